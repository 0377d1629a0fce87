package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadpilot/genai"
	"leadpilot/models"
	"leadpilot/repository"
)

// fakeGateway records outbound sends and can be told to fail
type fakeGateway struct {
	sent    []sentText
	calls   []string
	failure error
	onSend  func()
}

type sentText struct {
	Channel string
	To      string
	Body    string
}

func (g *fakeGateway) SendText(ctx context.Context, channel, to, body string) (string, error) {
	if g.onSend != nil {
		g.onSend()
	}
	if g.failure != nil {
		return "", g.failure
	}
	g.sent = append(g.sent, sentText{Channel: channel, To: to, Body: body})
	return "msg-123", nil
}

func (g *fakeGateway) InitiateVoiceCall(ctx context.Context, to, script, callbackURL string) (string, error) {
	if g.failure != nil {
		return "", g.failure
	}
	g.calls = append(g.calls, to)
	return "call-123", nil
}

type stubGenerator struct {
	reply string
	err   error
}

func (s *stubGenerator) Generate(ctx context.Context, prompt genai.PromptContext) (string, error) {
	return s.reply, s.err
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

// newFixture wires a controller over a memory store with one lead, one
// flow and one bot-active conversation sitting on the first question.
func newFixture(t *testing.T) (*Controller, *repository.MemoryStore, *fakeGateway, *models.Lead, *models.Conversation) {
	t.Helper()

	store := repository.NewMemoryStore()
	gateway := &fakeGateway{}
	ctrl := NewController(store, gateway, &stubGenerator{reply: "resposta gerada"}, DefaultHandoffConfig(), quietLogger())

	flow := store.AddFlow(&models.ConversationFlow{
		CompanyID:         1,
		Name:              "Qualificação de reforma",
		IsActive:          true,
		WarmLeadThreshold: 40,
		HotLeadThreshold:  70,
		HandoffMessage:    "Vou te passar para a equipe!",
		CompletionMessage: "Obrigado! Já temos tudo.",
		Questions: []models.FlowQuestion{
			{
				ID:              "q1",
				Question:        "Você procura reforma completa ou um reparo pequeno?",
				ExpectedAnswers: []string{"reforma completa", "reparo pequeno"},
				FieldToUpdate:   "service_type",
				ScoreImpact:     30,
			},
			{
				ID:              "q2",
				Question:        "Para quando você precisa do serviço?",
				ExpectedAnswers: []string{"urgente", "esse mes", "sem pressa"},
				ScoreImpact:     20,
			},
			{
				ID:              "q3",
				Question:        "Qual o seu nome completo?",
				ExpectedAnswers: nil,
				FieldToUpdate:   "name",
				NextStep:        models.NextStepFinish,
			},
		},
	})

	lead := &models.Lead{CompanyID: 1, Name: "Maria Silva", Phone: "+5511999990000", Source: models.ChannelWhatsApp}
	require.NoError(t, store.CreateLead(context.Background(), lead))

	conv := &models.Conversation{
		CompanyID: 1,
		LeadID:    lead.ID,
		Channel:   models.ChannelWhatsApp,
		Status:    models.ConversationBotActive,
		AIActive:  true,
		AIFlowID:  &flow.ID,
	}
	require.NoError(t, store.CreateConversation(context.Background(), conv))

	return ctrl, store, gateway, lead, conv
}

func TestHandleInboundAdvancesOnMatch(t *testing.T) {
	ctrl, store, gateway, lead, conv := newFixture(t)
	ctx := context.Background()

	result, err := ctrl.HandleInbound(ctx, InboundMessage{
		ConversationID: conv.ID,
		Body:           "Quero uma reforma completa",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeAdvanced, result.Outcome)
	assert.Equal(t, "Para quando você precisa do serviço?", result.Reply)

	// Cursor moved exactly one step
	updated, err := store.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.QualificationStep)

	// Score and temperature applied
	scored, err := store.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, 30, scored.Score)
	assert.Equal(t, models.TemperatureCold, scored.Temperature)
	assert.NotNil(t, scored.LastInteractionAt)

	// Matched literal landed in the custom field
	require.Len(t, store.CustomFields, 1)
	assert.Equal(t, "service_type", store.CustomFields[0].Name)
	assert.Equal(t, "reforma completa", store.CustomFields[0].Value)

	// Transcript holds the inbound row and the outbound question
	require.Len(t, store.Messages, 2)
	assert.Equal(t, models.DirectionInbound, store.Messages[0].Direction)
	assert.Equal(t, models.DirectionOutbound, store.Messages[1].Direction)
	require.Len(t, gateway.sent, 1)
	assert.Equal(t, lead.Phone, gateway.sent[0].To)
}

func TestHandleInboundCrossesIntoWarm(t *testing.T) {
	ctrl, store, _, lead, conv := newFixture(t)
	ctx := context.Background()

	require.NoError(t, store.UpdateLead(ctx, lead.ID, map[string]interface{}{"score": 20}))

	result, err := ctrl.HandleInbound(ctx, InboundMessage{ConversationID: conv.ID, Body: "reparo pequeno"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeAdvanced, result.Outcome)

	scored, err := store.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, scored.Score)
	assert.Equal(t, models.TemperatureWarm, scored.Temperature)
}

func TestHandleInboundClarificationKeepsCursor(t *testing.T) {
	ctrl, store, _, lead, conv := newFixture(t)
	ctx := context.Background()

	result, err := ctrl.HandleInbound(ctx, InboundMessage{
		ConversationID: conv.ID,
		Body:           "hmm deixa eu ver",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeClarification, result.Outcome)
	assert.Contains(t, result.Reply, "Desculpe, não entendi.")
	assert.Contains(t, result.Reply, "reforma completa, reparo pequeno")

	updated, err := store.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, updated.QualificationStep)

	// No scoring on a failed match
	scored, err := store.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, scored.Score)
}

func TestHandleInboundHandoffKeyword(t *testing.T) {
	ctrl, store, gateway, _, conv := newFixture(t)
	ctx := context.Background()

	result, err := ctrl.HandleInbound(ctx, InboundMessage{
		ConversationID: conv.ID,
		Body:           "quero falar com um atendente",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeHandoff, result.Outcome)
	assert.Equal(t, ReasonLeadRequest, result.Reason)
	assert.Equal(t, UrgencyHigh, result.Urgency)
	assert.Equal(t, "Vou te passar para a equipe!", result.Reply)

	updated, err := store.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ConversationHumanActive, updated.Status)
	assert.False(t, updated.AIActive)

	require.Len(t, gateway.sent, 1)
	require.NotEmpty(t, store.Activities)
	assert.Equal(t, "handoff", store.Activities[len(store.Activities)-1].ActivityType)
}

func TestHandoffMovesLeadToAttendedStage(t *testing.T) {
	ctrl, store, _, lead, conv := newFixture(t)
	ctx := context.Background()

	pipeline, err := store.EnsureDefaultPipeline(ctx, lead.CompanyID)
	require.NoError(t, err)
	require.NoError(t, store.UpdateLead(ctx, lead.ID, map[string]interface{}{"pipeline_id": pipeline.ID}))

	result, err := ctrl.HandleInbound(ctx, InboundMessage{
		ConversationID: conv.ID,
		Body:           "quero falar com um atendente",
	})
	require.NoError(t, err)
	require.Equal(t, OutcomeHandoff, result.Outcome)

	attended, err := store.FindStageByType(ctx, pipeline.ID, models.StageTypeAttended)
	require.NoError(t, err)
	moved, err := store.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	require.NotNil(t, moved.PipelineStageID)
	assert.Equal(t, attended.ID, *moved.PipelineStageID)
}

func TestHandleInboundGuardNoop(t *testing.T) {
	ctrl, store, gateway, _, conv := newFixture(t)
	ctx := context.Background()

	require.NoError(t, store.UpdateConversation(ctx, conv.ID, map[string]interface{}{
		"status":    models.ConversationHumanActive,
		"ai_active": false,
	}))

	result, err := ctrl.HandleInbound(ctx, InboundMessage{ConversationID: conv.ID, Body: "oi?"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoop, result.Outcome)

	// The transcript row and freshness stamp still land
	require.Len(t, store.Messages, 1)
	assert.Equal(t, models.DirectionInbound, store.Messages[0].Direction)
	updated, err := store.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "oi?", updated.LastMessagePreview)

	assert.Empty(t, gateway.sent)
}

func TestHandleInboundDispatchFailureLeavesCursor(t *testing.T) {
	ctrl, store, gateway, lead, conv := newFixture(t)
	ctx := context.Background()
	gateway.failure = errors.New("provider 502")

	result, err := ctrl.HandleInbound(ctx, InboundMessage{
		ConversationID: conv.ID,
		Body:           "reforma completa",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, result.Outcome)

	updated, err := store.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, updated.QualificationStep)

	// The answer's side effects were already applied; only the cursor
	// stays put so a retry re-asks the same question.
	scored, err := store.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, 30, scored.Score)
}

func TestHandleInboundConcurrentCursorAborts(t *testing.T) {
	ctrl, store, gateway, _, conv := newFixture(t)
	ctx := context.Background()

	// A racing delivery moves the cursor between send and advance
	gateway.onSend = func() {
		moved, err := store.AdvanceQualificationStep(ctx, conv.ID, 0, 1)
		require.NoError(t, err)
		require.True(t, moved)
		gateway.onSend = nil
	}

	result, err := ctrl.HandleInbound(ctx, InboundMessage{
		ConversationID: conv.ID,
		Body:           "reforma completa",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, result.Outcome)
	assert.Equal(t, "cursor moved concurrently", result.Detail)

	updated, err := store.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.QualificationStep)
}

func TestHandleInboundFinishStep(t *testing.T) {
	ctrl, store, _, _, conv := newFixture(t)
	ctx := context.Background()

	// Park the conversation on the final next_step=finish question
	_, err := store.AdvanceQualificationStep(ctx, conv.ID, 0, 2)
	require.NoError(t, err)

	result, err := ctrl.HandleInbound(ctx, InboundMessage{
		ConversationID: conv.ID,
		Body:           "Maria da Silva Santos",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeFinished, result.Outcome)
	assert.Equal(t, "Obrigado! Já temos tudo.", result.Reply)

	updated, err := store.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ConversationWaitingResponse, updated.Status)
	assert.True(t, updated.QualificationComplete)

	// Open question wrote the raw reply onto the lead
	named, err := store.GetLead(ctx, conv.LeadID)
	require.NoError(t, err)
	assert.Equal(t, "Maria da Silva Santos", named.Name)
}

func TestHandleInboundCursorPastEndFinishes(t *testing.T) {
	ctrl, store, _, _, conv := newFixture(t)
	ctx := context.Background()

	_, err := store.AdvanceQualificationStep(ctx, conv.ID, 0, 3)
	require.NoError(t, err)

	result, err := ctrl.HandleInbound(ctx, InboundMessage{ConversationID: conv.ID, Body: "ok"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeFinished, result.Outcome)
}

func TestHandleInboundGeneratedStep(t *testing.T) {
	ctrl, store, gateway, lead, _ := newFixture(t)
	ctx := context.Background()

	flow := store.AddFlow(&models.ConversationFlow{
		CompanyID: 1,
		Name:      "Fluxo com IA",
		IsActive:  true,
		Questions: []models.FlowQuestion{
			{ID: "g1", Question: "Responda a dúvida do cliente sobre prazos", Generate: true},
			{ID: "q2", Question: "Posso agendar uma avaliação?"},
		},
	})
	conv := &models.Conversation{
		CompanyID: 1,
		LeadID:    lead.ID,
		Channel:   models.ChannelWhatsApp,
		Status:    models.ConversationBotActive,
		AIActive:  true,
		AIFlowID:  &flow.ID,
	}
	require.NoError(t, store.CreateConversation(ctx, conv))

	result, err := ctrl.HandleInbound(ctx, InboundMessage{
		ConversationID: conv.ID,
		Body:           "quanto tempo demora uma obra dessas?",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeAdvanced, result.Outcome)
	assert.Equal(t, "resposta gerada", result.Reply)

	require.NotEmpty(t, gateway.sent)
	assert.Equal(t, "resposta gerada", gateway.sent[len(gateway.sent)-1].Body)

	updated, err := store.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.QualificationStep)
}

func TestStartConversationSendsGreetingAndFirstQuestion(t *testing.T) {
	ctrl, store, gateway, _, _ := newFixture(t)
	ctx := context.Background()

	store.AddFlow(&models.ConversationFlow{
		CompanyID:       2,
		Name:            "Boas-vindas",
		IsActive:        true,
		IsDefault:       true,
		GreetingMessage: "Olá! Sou o assistente da Reformas Top.",
		Questions: []models.FlowQuestion{
			{ID: "q1", Question: "Qual serviço você procura?"},
		},
	})
	lead := &models.Lead{CompanyID: 2, Name: "João", Phone: "+5511988880000", Source: models.ChannelWhatsApp}
	require.NoError(t, store.CreateLead(ctx, lead))

	result, err := ctrl.StartConversation(ctx, lead, models.ChannelWhatsApp)
	require.NoError(t, err)
	assert.Equal(t, OutcomeStarted, result.Outcome)
	assert.Equal(t, "Olá! Sou o assistente da Reformas Top.\n\nQual serviço você procura?", result.Reply)

	conv, err := store.GetConversation(ctx, result.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, models.ConversationBotActive, conv.Status)
	assert.True(t, conv.AIActive)

	linked, err := store.GetLead(ctx, lead.ID)
	require.NoError(t, err)
	require.NotNil(t, linked.ActiveConversationID)
	assert.Equal(t, conv.ID, *linked.ActiveConversationID)

	require.Len(t, gateway.sent, 1)
}

func TestStartConversationPrefersTriggerMatchOverDefault(t *testing.T) {
	ctrl, store, _, _, _ := newFixture(t)
	ctx := context.Background()

	store.AddFlow(&models.ConversationFlow{
		CompanyID: 3, Name: "Padrão", IsActive: true, IsDefault: true, Priority: 0,
		Questions: []models.FlowQuestion{{ID: "q1", Question: "padrão?"}},
	})
	adFlow := store.AddFlow(&models.ConversationFlow{
		CompanyID: 3, Name: "Anúncios", IsActive: true, Priority: 5,
		TriggerSources: []string{"lead_ad"},
		Questions:      []models.FlowQuestion{{ID: "q1", Question: "veio do anúncio?"}},
	})

	lead := &models.Lead{CompanyID: 3, Name: "Ana", Phone: "+5511977770000", Source: "lead_ad"}
	require.NoError(t, store.CreateLead(ctx, lead))

	result, err := ctrl.StartConversation(ctx, lead, models.ChannelWhatsApp)
	require.NoError(t, err)
	assert.Equal(t, OutcomeStarted, result.Outcome)

	conv, err := store.GetConversation(ctx, result.ConversationID)
	require.NoError(t, err)
	require.NotNil(t, conv.AIFlowID)
	assert.Equal(t, adFlow.ID, *conv.AIFlowID)
}

func TestStartConversationExistingIsNoop(t *testing.T) {
	ctrl, _, gateway, lead, conv := newFixture(t)

	result, err := ctrl.StartConversation(context.Background(), lead, models.ChannelWhatsApp)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoop, result.Outcome)
	assert.Equal(t, conv.ID, result.ConversationID)
	assert.Empty(t, gateway.sent)
}

func TestStartConversationNoFlow(t *testing.T) {
	ctrl, store, _, _, _ := newFixture(t)
	ctx := context.Background()

	lead := &models.Lead{CompanyID: 99, Name: "Sem Fluxo", Phone: "+5511966660000"}
	require.NoError(t, store.CreateLead(ctx, lead))

	result, err := ctrl.StartConversation(ctx, lead, models.ChannelWhatsApp)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoFlow, result.Outcome)
}

func TestTakeOverAndReactivate(t *testing.T) {
	ctrl, store, _, _, conv := newFixture(t)
	ctx := context.Background()

	require.NoError(t, ctrl.TakeOver(ctx, conv.ID))
	taken, err := store.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ConversationHumanActive, taken.Status)
	assert.False(t, taken.AIActive)

	require.NoError(t, ctrl.Reactivate(ctx, conv.ID))
	back, err := store.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ConversationBotActive, back.Status)
	assert.True(t, back.AIActive)
}
