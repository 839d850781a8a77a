package controller_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CesarNXT/vitoria4u-v2-sub002/internal/controller"
	"github.com/CesarNXT/vitoria4u-v2-sub002/internal/engine"
	"github.com/CesarNXT/vitoria4u-v2-sub002/internal/model"
)

// emptyIndex satisfies the discovery interface with no due work, which keeps
// the tick on its fast path.
type emptyIndex struct {
	err error
}

func (e *emptyIndex) QueryDue(time.Time, int) ([]model.ActiveWorkEntry, error) {
	return nil, e.err
}
func (e *emptyIndex) Upsert(model.ActiveWorkEntry) error { return nil }
func (e *emptyIndex) Remove(uuid.UUID) error             { return nil }

func newRouter(idx *emptyIndex) http.Handler {
	eng := &engine.Engine{
		Index: idx,
		Log:   zerolog.Nop(),
	}
	ctrl := &controller.CampaignController{
		Engine: eng,
		Log:    zerolog.Nop(),
	}

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(controller.RequireCronSecret("super-secret"))
		r.Post("/cron/process-campaigns", ctrl.ProcessCampaigns)
	})
	return r
}

func TestProcessCampaignsRejectsMissingCredential(t *testing.T) {
	r := newRouter(&emptyIndex{})

	req := httptest.NewRequest("POST", "/cron/process-campaigns", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProcessCampaignsRejectsWrongCredential(t *testing.T) {
	r := newRouter(&emptyIndex{})

	req := httptest.NewRequest("POST", "/cron/process-campaigns", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProcessCampaignsReturnsTickResult(t *testing.T) {
	r := newRouter(&emptyIndex{})

	req := httptest.NewRequest("POST", "/cron/process-campaigns", nil)
	req.Header.Set("Authorization", "Bearer super-secret")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var res engine.TickResult
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	assert.Equal(t, 0, res.Processed)
	assert.Equal(t, 0, res.CampaignsChecked)
	assert.Equal(t, "no due campaigns", res.Message)
}

func TestProcessCampaignsSurfacesIndexFailure(t *testing.T) {
	r := newRouter(&emptyIndex{err: fmt.Errorf("index unavailable")})

	req := httptest.NewRequest("POST", "/cron/process-campaigns", nil)
	req.Header.Set("Authorization", "Bearer super-secret")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
