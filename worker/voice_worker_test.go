package worker

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadpilot/models"
	"leadpilot/repository"
	"leadpilot/utils"
)

const testSigningSecret = "voice-callback-test-secret"

func newVoiceWorker(store *repository.MemoryStore, gateway *testGateway) *VoiceWorker {
	return NewVoiceWorker(store, gateway, testLogger(), "https://api.example.com", testSigningSecret)
}

func openVoiceCampaign(store *repository.MemoryStore) *models.Campaign {
	return store.AddCampaign(&models.Campaign{
		CompanyID:          1,
		Name:               "Ligações de reativação",
		Type:               models.CampaignTypeVoice,
		Status:             models.CampaignRunning,
		CallScript:         "Olá {{first_name}}, aqui é da Reformas Top.",
		MaxPerDay:          100,
		ActiveHoursStart:   0,
		ActiveHoursEnd:     24,
		Timezone:           "UTC",
		MaxAttemptsPerLead: 3,
	})
}

func TestVoiceTickPlacesCall(t *testing.T) {
	store := repository.NewMemoryStore()
	gateway := &testGateway{}
	w := newVoiceWorker(store, gateway)
	ctx := context.Background()

	c := openVoiceCampaign(store)
	lead := addLead(t, store, "+5511987654321")
	contact := addContact(t, store, c.ID, lead.ID, models.ContactPending)

	w.Tick(ctx)

	require.Len(t, gateway.called, 1)
	assert.Equal(t, lead.Phone, gateway.called[0])

	done, err := store.GetContact(ctx, contact.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ContactSent, done.Status)
	assert.Equal(t, "call-1", done.ExternalCallID)
	assert.Equal(t, 1, done.Attempts)

	counted, err := store.GetCampaign(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, counted.SentToday)
	assert.Equal(t, 1, counted.TotalCallsMade)
}

func TestVoiceTickCapsCallsPerRun(t *testing.T) {
	store := repository.NewMemoryStore()
	gateway := &testGateway{}
	w := newVoiceWorker(store, gateway)
	ctx := context.Background()

	c := openVoiceCampaign(store)
	for i := 0; i < 15; i++ {
		lead := addLead(t, store, fmt.Sprintf("+55119876543%02d", i))
		addContact(t, store, c.ID, lead.ID, models.ContactPending)
	}

	w.Tick(ctx)

	assert.Len(t, gateway.called, 10)

	// The rest is picked up by the next run
	w.Tick(ctx)
	assert.Len(t, gateway.called, 15)
}

func TestVoiceTickRespectsDailyCap(t *testing.T) {
	store := repository.NewMemoryStore()
	gateway := &testGateway{}
	w := newVoiceWorker(store, gateway)
	ctx := context.Background()

	c := openVoiceCampaign(store)
	require.NoError(t, store.UpdateCampaign(ctx, c.ID, map[string]interface{}{"sent_today": 100}))
	lead := addLead(t, store, "+5511987654321")
	addContact(t, store, c.ID, lead.ID, models.ContactPending)

	w.Tick(ctx)

	assert.Empty(t, gateway.called)
}

func TestVoiceCallbackTokenRoundTrip(t *testing.T) {
	token, err := utils.GenerateCallbackToken(7, 42, 99, testSigningSecret)
	require.NoError(t, err)

	claims, err := utils.ParseCallbackToken(token, testSigningSecret)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.CampaignID)
	assert.Equal(t, uint(42), claims.ContactID)
	assert.Equal(t, uint(99), claims.LeadID)

	_, err = utils.ParseCallbackToken(token, "wrong-secret")
	assert.Error(t, err)
}
