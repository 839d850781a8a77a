package service_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/CesarNXT/vitoria4u-v2-sub002/internal/errors"
	"github.com/CesarNXT/vitoria4u-v2-sub002/internal/model"
	"github.com/CesarNXT/vitoria4u-v2-sub002/internal/service"
)

// --- Mock repositories ---

type mockCampaignRepo struct {
	created     *model.Campaign
	createdRecs []model.Recipient

	campaigns map[uuid.UUID]*model.Campaign

	transitions []string // "from->to" per call
	rescheduled bool
	deleted     []uuid.UUID
}

func (m *mockCampaignRepo) Create(c *model.Campaign, recipients []model.Recipient) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.TotalRecipients = len(recipients)
	m.created = c
	m.createdRecs = recipients
	return nil
}

func (m *mockCampaignRepo) GetByID(id uuid.UUID) (*model.Campaign, error) {
	if c, ok := m.campaigns[id]; ok {
		return c, nil
	}
	return nil, appErrors.NewCampaignNotFound(id)
}

func (m *mockCampaignRepo) TransitionStatus(id uuid.UUID, from []string, to string, at time.Time) error {
	c, ok := m.campaigns[id]
	if !ok {
		return appErrors.NewCampaignNotFound(id)
	}
	for _, s := range from {
		if c.Status == s {
			m.transitions = append(m.transitions, c.Status+"->"+to)
			c.Status = to
			return nil
		}
	}
	return appErrors.NewInvalidTransition(c.Status, to)
}

func (m *mockCampaignRepo) Reschedule(id uuid.UUID, date time.Time, startTime string) (*model.Campaign, error) {
	c, ok := m.campaigns[id]
	if !ok {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	if c.Status != model.StatusScheduled {
		return nil, appErrors.NewInvalidTransition(c.Status, model.StatusScheduled)
	}
	c.ScheduledDate = date
	c.StartTime = startTime
	m.rescheduled = true
	return c, nil
}

func (m *mockCampaignRepo) Delete(id uuid.UUID) error {
	if _, ok := m.campaigns[id]; !ok {
		return appErrors.NewCampaignNotFound(id)
	}
	delete(m.campaigns, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockCampaignRepo) GetStats(id uuid.UUID) (map[string]int, error) {
	return map[string]int{"pending": 2, "sending": 0, "sent": 3, "failed": 1}, nil
}

type mockRecipientRepo struct {
	requeued int
}

func (m *mockRecipientRepo) ListPending(uuid.UUID, int) ([]model.Recipient, error) { return nil, nil }
func (m *mockRecipientRepo) Claim(uuid.UUID, int) (bool, error)                    { return false, nil }
func (m *mockRecipientRepo) MarkSent(uuid.UUID, int, time.Time) error              { return nil }
func (m *mockRecipientRepo) MarkFailed(uuid.UUID, int, string) error               { return nil }
func (m *mockRecipientRepo) RequeueFailed(uuid.UUID) (int, error)                  { return m.requeued, nil }

type mockIndexRepo struct {
	upserts []model.ActiveWorkEntry
	removed []uuid.UUID
}

func (m *mockIndexRepo) QueryDue(time.Time, int) ([]model.ActiveWorkEntry, error) { return nil, nil }
func (m *mockIndexRepo) Upsert(e model.ActiveWorkEntry) error {
	m.upserts = append(m.upserts, e)
	return nil
}
func (m *mockIndexRepo) Remove(id uuid.UUID) error {
	m.removed = append(m.removed, id)
	return nil
}

type mockTenantRepo struct{}

func (m *mockTenantRepo) GetByID(id string) (*model.Tenant, error) {
	if id == "tenant-1" {
		return &model.Tenant{ID: id, InstanceID: "inst-1", APIToken: "tok", Connected: true}, nil
	}
	return nil, nil
}

func newService() (*service.CampaignService, *mockCampaignRepo, *mockRecipientRepo, *mockIndexRepo) {
	campaigns := &mockCampaignRepo{campaigns: map[uuid.UUID]*model.Campaign{}}
	recipients := &mockRecipientRepo{}
	index := &mockIndexRepo{}
	svc := &service.CampaignService{
		CampaignRepo:  campaigns,
		RecipientRepo: recipients,
		IndexRepo:     index,
		TenantRepo:    &mockTenantRepo{},
		Log:           zerolog.Nop(),
	}
	return svc, campaigns, recipients, index
}

func validInput() service.CreateCampaignInput {
	return service.CreateCampaignInput{
		TenantID:      "tenant-1",
		Name:          "spring promo",
		Kind:          model.KindText,
		Message:       "hello",
		ScheduledDate: "2026-04-01",
		StartTime:     "14:00",
		Recipients:    []string{"5511999990001", "5511999990002"},
	}
}

// --- Tests ---

func TestCreateCampaign(t *testing.T) {
	svc, campaigns, _, _ := newService()

	c, err := svc.CreateCampaign(validInput())

	require.NoError(t, err)
	assert.Equal(t, model.StatusScheduled, c.Status)
	assert.Equal(t, 2, c.TotalRecipients)
	require.Len(t, campaigns.createdRecs, 2)
	assert.Equal(t, "5511999990001", campaigns.createdRecs[0].Destination)
}

func TestCreateCampaignDedupesRecipients(t *testing.T) {
	svc, campaigns, _, _ := newService()
	in := validInput()
	in.Recipients = []string{"a", "b", " a ", "b", "c", ""}

	c, err := svc.CreateCampaign(in)

	require.NoError(t, err)
	assert.Equal(t, 3, c.TotalRecipients)
	assert.Equal(t, "a", campaigns.createdRecs[0].Destination)
	assert.Equal(t, "b", campaigns.createdRecs[1].Destination)
	assert.Equal(t, "c", campaigns.createdRecs[2].Destination)
}

func TestCreateCampaignEnforcesRecipientCap(t *testing.T) {
	svc, _, _, _ := newService()
	in := validInput()
	in.Recipients = nil
	for i := 0; i < model.MaxRecipients+1; i++ {
		in.Recipients = append(in.Recipients, fmt.Sprintf("55119999%04d", i))
	}

	_, err := svc.CreateCampaign(in)

	var tooMany *appErrors.ErrTooManyRecipients
	require.ErrorAs(t, err, &tooMany)
	assert.Equal(t, model.MaxRecipients+1, tooMany.Count)
}

func TestCreateCampaignValidation(t *testing.T) {
	svc, _, _, _ := newService()

	cases := []struct {
		name   string
		mutate func(*service.CreateCampaignInput)
	}{
		{"empty name", func(in *service.CreateCampaignInput) { in.Name = " " }},
		{"bad kind", func(in *service.CreateCampaignInput) { in.Kind = "sticker" }},
		{"text without message", func(in *service.CreateCampaignInput) { in.Message = "" }},
		{"image without media url", func(in *service.CreateCampaignInput) {
			in.Kind = model.KindImage
			in.MediaURL = ""
		}},
		{"no recipients", func(in *service.CreateCampaignInput) { in.Recipients = nil }},
		{"bad date", func(in *service.CreateCampaignInput) { in.ScheduledDate = "01/04/2026" }},
		{"bad start time", func(in *service.CreateCampaignInput) { in.StartTime = "25:99" }},
		{"unknown tenant", func(in *service.CreateCampaignInput) { in.TenantID = "nope" }},
	}

	for _, tc := range cases {
		in := validInput()
		tc.mutate(&in)
		_, err := svc.CreateCampaign(in)
		assert.Error(t, err, tc.name)
	}
}

func TestCancelCampaign(t *testing.T) {
	svc, campaigns, _, _ := newService()
	id := uuid.New()
	campaigns.campaigns[id] = &model.Campaign{ID: id, Status: model.StatusRunning}

	require.NoError(t, svc.CancelCampaign(id))

	assert.Equal(t, model.StatusCanceled, campaigns.campaigns[id].Status)
	assert.Equal(t, []string{"running->canceled"}, campaigns.transitions)
}

func TestCancelCompletedCampaignFails(t *testing.T) {
	svc, campaigns, _, _ := newService()
	id := uuid.New()
	campaigns.campaigns[id] = &model.Campaign{ID: id, Status: model.StatusCompleted}

	err := svc.CancelCampaign(id)

	var bad *appErrors.ErrInvalidTransition
	require.ErrorAs(t, err, &bad)
	assert.Equal(t, model.StatusCompleted, campaigns.campaigns[id].Status)
}

func TestRescheduleRefreshesIndexEntry(t *testing.T) {
	svc, campaigns, _, index := newService()
	id := uuid.New()
	campaigns.campaigns[id] = &model.Campaign{
		ID: id, TenantID: "tenant-1", Status: model.StatusScheduled,
		ScheduledDate: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), StartTime: "10:00",
	}

	c, err := svc.Reschedule(id, "2026-04-02", "16:30")

	require.NoError(t, err)
	assert.Equal(t, "16:30", c.StartTime)
	require.Len(t, index.upserts, 1)
	assert.Equal(t, id, index.upserts[0].CampaignID)
	assert.Equal(t, time.Date(2026, 4, 2, 16, 30, 0, 0, time.UTC), index.upserts[0].ScheduledAt)
}

func TestDeleteCampaign(t *testing.T) {
	svc, campaigns, _, _ := newService()
	id := uuid.New()
	campaigns.campaigns[id] = &model.Campaign{ID: id, Status: model.StatusCompleted}

	require.NoError(t, svc.DeleteCampaign(id))
	assert.Equal(t, []uuid.UUID{id}, campaigns.deleted)
}

func TestGetCampaignDetailsIncludesStats(t *testing.T) {
	svc, campaigns, _, _ := newService()
	id := uuid.New()
	campaigns.campaigns[id] = &model.Campaign{ID: id, Status: model.StatusRunning, SentCount: 3}

	details, err := svc.GetCampaignDetails(id)

	require.NoError(t, err)
	assert.Equal(t, 3, details.Stats["sent"])
	assert.Equal(t, 2, details.Stats["pending"])
}

func TestRequeueFailedOnActiveCampaign(t *testing.T) {
	svc, campaigns, recipients, _ := newService()
	id := uuid.New()
	campaigns.campaigns[id] = &model.Campaign{ID: id, Status: model.StatusRunning}
	recipients.requeued = 4

	n, err := svc.RequeueFailed(id)

	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestRequeueFailedRejectsTerminalCampaigns(t *testing.T) {
	svc, campaigns, _, _ := newService()
	for _, status := range []string{model.StatusCompleted, model.StatusCanceled} {
		id := uuid.New()
		campaigns.campaigns[id] = &model.Campaign{ID: id, Status: status}

		_, err := svc.RequeueFailed(id)

		var bad *appErrors.ErrInvalidTransition
		assert.ErrorAs(t, err, &bad, status)
	}
}
