package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"leadpilot/dispatch"
	"leadpilot/genai"
	"leadpilot/models"
	"leadpilot/repository"
)

// Step outcomes. Soft no-ops and hard failures are values, not errors:
// a failed step leaves the conversation at its last consistent state.
const (
	OutcomeStarted       = "started"
	OutcomeAdvanced      = "advanced"
	OutcomeClarification = "clarification"
	OutcomeHandoff       = "handoff"
	OutcomeFinished      = "finished"
	OutcomeNoop          = "noop"
	OutcomeNoFlow        = "no_matching_flow"
	OutcomeFailed        = "failed"
)

const (
	defaultHandoffMessage    = "Certo! Vou te transferir para um de nossos atendentes. Só um momento."
	defaultCompletionMessage = "Obrigado pelas respostas! Em breve entraremos em contato."
	clarificationPrefix      = "Desculpe, não entendi."
	previewLimit             = 120
)

// InboundMessage is the normalized payload a channel adapter delivers
type InboundMessage struct {
	ConversationID uint
	Body           string
	SenderName     string
}

// StepResult is the structured result of one engine invocation
type StepResult struct {
	Outcome        string
	Reply          string
	Reason         string
	Urgency        string
	Detail         string
	ConversationID uint
}

// Controller owns a conversation's lifecycle: it steps leads through
// qualification flows, applies scoring, detects handoffs and emits
// outbound messages through the dispatch gateway.
type Controller struct {
	store     repository.Store
	gateway   dispatch.Gateway
	generator genai.Generator
	handoff   HandoffConfig
	logger    *logrus.Logger
}

func NewController(store repository.Store, gateway dispatch.Gateway, generator genai.Generator, handoff HandoffConfig, logger *logrus.Logger) *Controller {
	return &Controller{
		store:     store,
		gateway:   gateway,
		generator: generator,
		handoff:   handoff,
		logger:    logger,
	}
}

// SelectFlow picks the active flow for a lead: highest priority first,
// trigger-source match wins, default flows are the fallback. A nil
// flow with nil error means no flow matches (a soft condition).
func (c *Controller) SelectFlow(ctx context.Context, companyID uint, source, channel string) (*models.ConversationFlow, error) {
	flows, err := c.store.ListActiveFlows(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("list flows: %w", err)
	}

	for i := range flows {
		for _, trigger := range flows[i].TriggerSources {
			if trigger == source || trigger == channel {
				return &flows[i], nil
			}
		}
	}
	for i := range flows {
		if flows[i].IsDefault {
			return &flows[i], nil
		}
	}
	return nil, nil
}

// StartConversation opens a bot conversation for a lead, sending the
// flow greeting and first question. A lead already holding a non-closed
// conversation keeps it untouched.
func (c *Controller) StartConversation(ctx context.Context, lead *models.Lead, channel string) (*StepResult, error) {
	if existing, err := c.store.FindActiveConversation(ctx, lead.ID); err == nil {
		return &StepResult{Outcome: OutcomeNoop, ConversationID: existing.ID}, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("find active conversation: %w", err)
	}

	flow, err := c.SelectFlow(ctx, lead.CompanyID, lead.Source, channel)
	if err != nil {
		return nil, err
	}
	if flow == nil {
		return &StepResult{Outcome: OutcomeNoFlow, Detail: "no active flow matches the lead source"}, nil
	}

	conv := &models.Conversation{
		CompanyID: lead.CompanyID,
		LeadID:    lead.ID,
		Channel:   channel,
		Status:    models.ConversationBotActive,
		AIActive:  true,
		AIFlowID:  &flow.ID,
	}
	if err := c.store.CreateConversation(ctx, conv); err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	if err := c.store.UpdateLead(ctx, lead.ID, map[string]interface{}{
		"active_conversation_id": conv.ID,
	}); err != nil {
		c.logger.WithError(err).Warn("failed to link active conversation to lead")
	}

	opening := flow.GreetingMessage
	if len(flow.Questions) > 0 {
		first := flow.Questions[0].Question
		if opening != "" {
			opening = opening + "\n\n" + first
		} else {
			opening = first
		}
	}
	if opening == "" {
		return &StepResult{Outcome: OutcomeStarted, ConversationID: conv.ID}, nil
	}

	if err := c.sendReply(ctx, conv, lead, opening); err != nil {
		return &StepResult{Outcome: OutcomeFailed, ConversationID: conv.ID, Detail: err.Error()}, nil
	}
	return &StepResult{Outcome: OutcomeStarted, ConversationID: conv.ID, Reply: opening}, nil
}

// HandleInbound runs one inbound message through the state machine.
// The inbound transcript row is persisted before anything can fail, and
// the conversation cursor only moves through the optimistic advance, so
// replaying the same event is safe.
func (c *Controller) HandleInbound(ctx context.Context, in InboundMessage) (*StepResult, error) {
	conv, err := c.store.GetConversation(ctx, in.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("load conversation %d: %w", in.ConversationID, err)
	}
	lead, err := c.store.GetLead(ctx, conv.LeadID)
	if err != nil {
		return nil, fmt.Errorf("load lead %d: %w", conv.LeadID, err)
	}

	if err := c.store.CreateMessage(ctx, &models.Message{
		ConversationID: conv.ID,
		LeadID:         lead.ID,
		SenderType:     models.SenderLead,
		Direction:      models.DirectionInbound,
		Body:           in.Body,
	}); err != nil {
		return nil, fmt.Errorf("persist inbound message: %w", err)
	}
	defer c.touch(ctx, conv.ID, lead.ID, in.Body)

	// Double-delivery and human-takeover guard
	if conv.Status != models.ConversationBotActive || !conv.AIActive || conv.AIFlowID == nil {
		return &StepResult{Outcome: OutcomeNoop, ConversationID: conv.ID}, nil
	}

	flow, err := c.store.GetFlow(ctx, *conv.AIFlowID)
	if err != nil {
		return nil, fmt.Errorf("load flow %d: %w", *conv.AIFlowID, err)
	}

	if decision := c.handoff.Detect(in.Body, lead.Score); decision.Handoff {
		return c.performHandoff(ctx, conv, lead, flow, decision)
	}

	if conv.QualificationStep >= len(flow.Questions) {
		return c.finishQualification(ctx, conv, lead, flow)
	}
	question := flow.Questions[conv.QualificationStep]

	if question.Generate {
		return c.generateStep(ctx, conv, lead, flow, question, in.Body)
	}

	answer, matched := MatchAnswer(in.Body, question.ExpectedAnswers)
	if !matched && len(question.ExpectedAnswers) > 0 {
		return c.clarify(ctx, conv, lead, question)
	}
	if !matched {
		// Open question: any reply is the answer
		answer = strings.TrimSpace(in.Body)
	}
	c.applyAnswer(ctx, conv, lead, flow, question, answer)

	resolution := ResolveNextStep(flow, conv.QualificationStep, question)
	switch resolution.Action {
	case ActionHandoff:
		return c.performHandoff(ctx, conv, lead, flow, HandoffDecision{
			Handoff: true,
			Reason:  ReasonFlowStep,
			Urgency: UrgencyNormal,
		})
	case ActionFinish:
		return c.finishQualification(ctx, conv, lead, flow)
	}
	if resolution.NextIndex >= len(flow.Questions) {
		return c.finishQualification(ctx, conv, lead, flow)
	}

	next := flow.Questions[resolution.NextIndex]
	if err := c.sendReply(ctx, conv, lead, next.Question); err != nil {
		return &StepResult{Outcome: OutcomeFailed, ConversationID: conv.ID, Detail: err.Error()}, nil
	}
	moved, err := c.store.AdvanceQualificationStep(ctx, conv.ID, conv.QualificationStep, resolution.NextIndex)
	if err != nil {
		return nil, fmt.Errorf("advance cursor: %w", err)
	}
	if !moved {
		return &StepResult{Outcome: OutcomeFailed, ConversationID: conv.ID, Detail: "cursor moved concurrently"}, nil
	}
	return &StepResult{Outcome: OutcomeAdvanced, ConversationID: conv.ID, Reply: next.Question}, nil
}

// generateStep answers a free-form step through the text backend. A
// generation or dispatch failure leaves the cursor where it was.
func (c *Controller) generateStep(ctx context.Context, conv *models.Conversation, lead *models.Lead, flow *models.ConversationFlow, question models.FlowQuestion, inbound string) (*StepResult, error) {
	reply, err := c.generator.Generate(ctx, genai.PromptContext{
		LeadName:    lead.Name,
		Channel:     conv.Channel,
		LastMessage: inbound,
		Instruction: question.Question,
	})
	if err != nil {
		c.logger.WithError(err).Warn("free-form generation failed")
		return &StepResult{Outcome: OutcomeFailed, ConversationID: conv.ID, Detail: err.Error()}, nil
	}
	if err := c.sendReply(ctx, conv, lead, reply); err != nil {
		return &StepResult{Outcome: OutcomeFailed, ConversationID: conv.ID, Detail: err.Error()}, nil
	}

	resolution := ResolveNextStep(flow, conv.QualificationStep, question)
	switch resolution.Action {
	case ActionHandoff:
		return c.performHandoff(ctx, conv, lead, flow, HandoffDecision{Handoff: true, Reason: ReasonFlowStep, Urgency: UrgencyNormal})
	case ActionFinish:
		return c.finishQualification(ctx, conv, lead, flow)
	}
	if resolution.NextIndex >= len(flow.Questions) {
		return c.finishQualification(ctx, conv, lead, flow)
	}
	moved, err := c.store.AdvanceQualificationStep(ctx, conv.ID, conv.QualificationStep, resolution.NextIndex)
	if err != nil {
		return nil, fmt.Errorf("advance cursor: %w", err)
	}
	if !moved {
		return &StepResult{Outcome: OutcomeFailed, ConversationID: conv.ID, Detail: "cursor moved concurrently"}, nil
	}
	return &StepResult{Outcome: OutcomeAdvanced, ConversationID: conv.ID, Reply: reply}, nil
}

// clarify re-asks the same question with the options enumerated. The
// cursor stays put; there is no failed-attempt counter.
func (c *Controller) clarify(ctx context.Context, conv *models.Conversation, lead *models.Lead, question models.FlowQuestion) (*StepResult, error) {
	reply := fmt.Sprintf("%s %s\n\nOpções: %s",
		clarificationPrefix, question.Question, strings.Join(question.ExpectedAnswers, ", "))
	if err := c.sendReply(ctx, conv, lead, reply); err != nil {
		return &StepResult{Outcome: OutcomeFailed, ConversationID: conv.ID, Detail: err.Error()}, nil
	}
	return &StepResult{Outcome: OutcomeClarification, ConversationID: conv.ID, Reply: reply}, nil
}

// applyAnswer applies a matched answer's scoring and field effects
func (c *Controller) applyAnswer(ctx context.Context, conv *models.Conversation, lead *models.Lead, flow *models.ConversationFlow, question models.FlowQuestion, answer string) {
	newScore := ApplyScore(lead.Score, question.ScoreImpact)
	temperature := Classify(newScore, flow.WarmLeadThreshold, flow.HotLeadThreshold)

	if err := c.store.UpdateLead(ctx, lead.ID, map[string]interface{}{
		"score":       newScore,
		"temperature": temperature,
	}); err != nil {
		c.logger.WithError(err).Warn("failed to persist lead score")
		return
	}
	lead.Score = newScore
	lead.Temperature = temperature

	if question.FieldToUpdate != "" {
		c.writeLeadField(ctx, lead, question.FieldToUpdate, answer)
	}

	if err := c.store.CreateActivity(ctx, &models.ActivityLog{
		CompanyID:      lead.CompanyID,
		LeadID:         lead.ID,
		ConversationID: &conv.ID,
		ActivityType:   "qualification",
		Details:        fmt.Sprintf("question %q answered %q (score %d)", question.ID, answer, newScore),
	}); err != nil {
		c.logger.WithError(err).Warn("failed to log qualification activity")
	}
}

// writeLeadField writes the matched literal answer onto a known lead
// column, or a custom field for anything else.
func (c *Controller) writeLeadField(ctx context.Context, lead *models.Lead, field, value string) {
	var err error
	switch field {
	case "name", "email", "funnel_stage", "notes":
		err = c.store.UpdateLead(ctx, lead.ID, map[string]interface{}{field: value})
	default:
		err = c.store.UpsertLeadCustomField(ctx, lead.ID, field, value)
	}
	if err != nil {
		c.logger.WithFields(logrus.Fields{"lead": lead.ID, "field": field}).WithError(err).Warn("failed to update lead field")
	}
}

// performHandoff passes the conversation to a human: the handoff
// message goes out first, then the conversation flips away from the
// bot and a pipeline move to the attended stage is attempted.
func (c *Controller) performHandoff(ctx context.Context, conv *models.Conversation, lead *models.Lead, flow *models.ConversationFlow, decision HandoffDecision) (*StepResult, error) {
	message := flow.HandoffMessage
	if message == "" {
		message = defaultHandoffMessage
	}
	if err := c.sendReply(ctx, conv, lead, message); err != nil {
		return &StepResult{Outcome: OutcomeFailed, ConversationID: conv.ID, Detail: err.Error()}, nil
	}

	if err := c.store.UpdateConversation(ctx, conv.ID, map[string]interface{}{
		"status":    models.ConversationHumanActive,
		"ai_active": false,
	}); err != nil {
		return nil, fmt.Errorf("hand off conversation: %w", err)
	}

	c.moveToAttendedStage(ctx, lead)

	if err := c.store.CreateActivity(ctx, &models.ActivityLog{
		CompanyID:      lead.CompanyID,
		LeadID:         lead.ID,
		ConversationID: &conv.ID,
		ActivityType:   "handoff",
		Details:        fmt.Sprintf("reason=%s urgency=%s", decision.Reason, decision.Urgency),
	}); err != nil {
		c.logger.WithError(err).Warn("failed to log handoff activity")
	}

	return &StepResult{
		Outcome:        OutcomeHandoff,
		ConversationID: conv.ID,
		Reply:          message,
		Reason:         decision.Reason,
		Urgency:        decision.Urgency,
	}, nil
}

// moveToAttendedStage is a soft no-op when the lead has no pipeline or
// the pipeline carries no attended-type stage.
func (c *Controller) moveToAttendedStage(ctx context.Context, lead *models.Lead) {
	if lead.PipelineID == nil {
		return
	}
	stage, err := c.store.FindStageByType(ctx, *lead.PipelineID, models.StageTypeAttended)
	if errors.Is(err, repository.ErrNotFound) {
		return
	}
	if err != nil {
		c.logger.WithError(err).Warn("failed to look up attended stage")
		return
	}
	if err := c.store.UpdateLead(ctx, lead.ID, map[string]interface{}{
		"pipeline_stage_id": stage.ID,
	}); err != nil {
		c.logger.WithError(err).Warn("failed to move lead to attended stage")
		return
	}
	if err := c.store.CreateActivity(ctx, &models.ActivityLog{
		CompanyID:    lead.CompanyID,
		LeadID:       lead.ID,
		ActivityType: "stage_change",
		Details:      fmt.Sprintf("moved to stage %q on handoff", stage.Name),
	}); err != nil {
		c.logger.WithError(err).Warn("failed to log stage change")
	}
}

// finishQualification closes out the scripted part of the conversation
func (c *Controller) finishQualification(ctx context.Context, conv *models.Conversation, lead *models.Lead, flow *models.ConversationFlow) (*StepResult, error) {
	message := flow.CompletionMessage
	if message == "" {
		message = defaultCompletionMessage
	}
	if err := c.sendReply(ctx, conv, lead, message); err != nil {
		return &StepResult{Outcome: OutcomeFailed, ConversationID: conv.ID, Detail: err.Error()}, nil
	}

	if err := c.store.UpdateConversation(ctx, conv.ID, map[string]interface{}{
		"status":                 models.ConversationWaitingResponse,
		"qualification_complete": true,
	}); err != nil {
		return nil, fmt.Errorf("complete qualification: %w", err)
	}
	if err := c.store.CreateActivity(ctx, &models.ActivityLog{
		CompanyID:      lead.CompanyID,
		LeadID:         lead.ID,
		ConversationID: &conv.ID,
		ActivityType:   "qualification",
		Details:        "qualification complete",
	}); err != nil {
		c.logger.WithError(err).Warn("failed to log qualification completion")
	}
	return &StepResult{Outcome: OutcomeFinished, ConversationID: conv.ID, Reply: message}, nil
}

// TakeOver flips a conversation to a human agent explicitly
func (c *Controller) TakeOver(ctx context.Context, convID uint) error {
	conv, err := c.store.GetConversation(ctx, convID)
	if err != nil {
		return err
	}
	if err := c.store.UpdateConversation(ctx, conv.ID, map[string]interface{}{
		"status":    models.ConversationHumanActive,
		"ai_active": false,
	}); err != nil {
		return err
	}
	return c.store.CreateActivity(ctx, &models.ActivityLog{
		CompanyID:      conv.CompanyID,
		LeadID:         conv.LeadID,
		ConversationID: &conv.ID,
		ActivityType:   "handoff",
		Details:        "manual takeover",
	})
}

// Reactivate gives the conversation back to the bot. This is the only
// way out of human_active/waiting_response.
func (c *Controller) Reactivate(ctx context.Context, convID uint) error {
	conv, err := c.store.GetConversation(ctx, convID)
	if err != nil {
		return err
	}
	return c.store.UpdateConversation(ctx, conv.ID, map[string]interface{}{
		"status":    models.ConversationBotActive,
		"ai_active": true,
	})
}

// sendReply pushes one outbound bot message and records the transcript
// row on success.
func (c *Controller) sendReply(ctx context.Context, conv *models.Conversation, lead *models.Lead, body string) error {
	externalID, err := c.gateway.SendText(ctx, conv.Channel, lead.Phone, body)
	if err != nil {
		return fmt.Errorf("dispatch reply: %w", err)
	}
	if err := c.store.CreateMessage(ctx, &models.Message{
		ConversationID: conv.ID,
		LeadID:         lead.ID,
		SenderType:     models.SenderBot,
		Direction:      models.DirectionOutbound,
		Body:           body,
		ExternalID:     externalID,
	}); err != nil {
		c.logger.WithError(err).Warn("failed to persist outbound message")
	}
	return nil
}

// touch stamps the freshness fields, whatever branch the step took
func (c *Controller) touch(ctx context.Context, convID, leadID uint, body string) {
	now := time.Now()
	preview := body
	if runes := []rune(preview); len(runes) > previewLimit {
		preview = string(runes[:previewLimit])
	}
	if err := c.store.UpdateConversation(ctx, convID, map[string]interface{}{
		"last_message_preview": preview,
		"last_message_at":      now,
	}); err != nil {
		c.logger.WithError(err).Warn("failed to stamp conversation freshness")
	}
	if err := c.store.UpdateLead(ctx, leadID, map[string]interface{}{
		"last_interaction_at": now,
	}); err != nil {
		c.logger.WithError(err).Warn("failed to stamp lead freshness")
	}
}
