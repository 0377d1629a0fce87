package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadpilot/models"
	"leadpilot/repository"
)

func voiceFixture(t *testing.T) (*Controller, *repository.MemoryStore, *models.Campaign, *models.CampaignContact, *models.Lead) {
	t.Helper()

	store := repository.NewMemoryStore()
	ctrl := NewController(store, &fakeGateway{}, &stubGenerator{}, DefaultHandoffConfig(), quietLogger())

	campaign := store.AddCampaign(&models.Campaign{
		CompanyID: 1,
		Name:      "Reativação por voz",
		Type:      models.CampaignTypeVoice,
		Status:    models.CampaignRunning,
	})
	lead := &models.Lead{CompanyID: 1, Name: "Carlos", Phone: "+5511955550000", Score: 30}
	require.NoError(t, store.CreateLead(context.Background(), lead))

	contacts := []models.CampaignContact{{CampaignID: campaign.ID, LeadID: lead.ID, Status: models.ContactSent}}
	require.NoError(t, store.CreateContacts(context.Background(), contacts))
	contact := &contacts[0]

	return ctrl, store, campaign, contact, lead
}

func TestHandleVoiceOutcomeYes(t *testing.T) {
	ctrl, store, campaign, contact, lead := voiceFixture(t)
	ctx := context.Background()

	result, err := ctrl.HandleVoiceOutcome(ctx, campaign.ID, contact.ID, "sim, tenho interesse")
	require.NoError(t, err)
	assert.Equal(t, VoiceYes, result.Outcome)

	warmed, err := store.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, 55, warmed.Score)
	assert.Equal(t, models.TemperatureHot, warmed.Temperature)

	require.Len(t, store.Tasks, 1)
	assert.Equal(t, "high", store.Tasks[0].Priority)
	assert.WithinDuration(t, time.Now(), store.Tasks[0].DueAt, time.Minute)

	counted, err := store.GetCampaign(ctx, campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, counted.TotalPositiveResponses)
}

func TestHandleVoiceOutcomeNo(t *testing.T) {
	ctrl, store, campaign, contact, lead := voiceFixture(t)
	ctx := context.Background()

	result, err := ctrl.HandleVoiceOutcome(ctx, campaign.ID, contact.ID, "não quero, pare de ligar")
	require.NoError(t, err)
	assert.Equal(t, VoiceNo, result.Outcome)

	archived, err := store.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	assert.True(t, archived.IsArchived)
	assert.True(t, archived.OptOut)
	assert.Contains(t, archived.Notes, "opt-out")

	require.NotEmpty(t, store.Activities)
	assert.Equal(t, "opt_out", store.Activities[0].ActivityType)

	counted, err := store.GetCampaign(ctx, campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, counted.TotalNegativeResponses)
	assert.Empty(t, store.Tasks)
}

func TestHandleVoiceOutcomeMaybe(t *testing.T) {
	ctrl, store, campaign, contact, lead := voiceFixture(t)
	ctx := context.Background()

	result, err := ctrl.HandleVoiceOutcome(ctx, campaign.ID, contact.ID, "talvez, me liga depois")
	require.NoError(t, err)
	assert.Equal(t, VoiceMaybe, result.Outcome)

	require.Len(t, store.Tasks, 1)
	assert.Equal(t, "normal", store.Tasks[0].Priority)
	assert.WithinDuration(t, time.Now().Add(3*24*time.Hour), store.Tasks[0].DueAt, time.Minute)

	// Score untouched on a hesitant answer
	unchanged, err := store.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, 30, unchanged.Score)

	counted, err := store.GetCampaign(ctx, campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, counted.TotalMaybeResponses)
}

func TestHandleVoiceOutcomeUnknownIsInert(t *testing.T) {
	ctrl, store, campaign, contact, lead := voiceFixture(t)
	ctx := context.Background()

	result, err := ctrl.HandleVoiceOutcome(ctx, campaign.ID, contact.ID, "caixa postal")
	require.NoError(t, err)
	assert.Equal(t, VoiceUnknown, result.Outcome)

	unchanged, err := store.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, 30, unchanged.Score)
	assert.False(t, unchanged.IsArchived)
	assert.Empty(t, store.Tasks)
}
