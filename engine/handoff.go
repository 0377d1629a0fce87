package engine

import "strings"

// Handoff reasons and urgencies
const (
	ReasonLeadRequest        = "lead_request"
	ReasonScheduling         = "scheduling_request"
	ReasonSensitiveObjection = "sensitive_objection_qualified_lead"
	ReasonFlowStep           = "flow_step"

	UrgencyHigh   = "high"
	UrgencyNormal = "normal"
)

// HandoffDecision reports whether a human must take over and why
type HandoffDecision struct {
	Handoff bool
	Reason  string
	Urgency string
}

// HandoffConfig holds the keyword sets the detector matches free-text
// messages against. Sensitive objections only trigger for leads at or
// above the qualified score threshold.
type HandoffConfig struct {
	HandoffKeywords         []string
	SchedulingKeywords      []string
	ObjectionKeywords       []string
	QualifiedScoreThreshold int
}

// DefaultHandoffConfig returns the stock pt-BR keyword sets
func DefaultHandoffConfig() HandoffConfig {
	return HandoffConfig{
		HandoffKeywords: []string{
			"falar com atendente",
			"falar com um atendente",
			"falar com humano",
			"falar com alguem",
			"quero atendente",
			"atendimento humano",
			"pessoa de verdade",
		},
		SchedulingKeywords: []string{
			"agendar",
			"marcar horario",
			"marcar uma visita",
			"quando posso",
			"qual horario",
			"disponibilidade",
		},
		ObjectionKeywords: []string{
			"muito caro",
			"ta caro",
			"nao confio",
			"reclame aqui",
			"procon",
			"quero cancelar",
			"me processar",
		},
		QualifiedScoreThreshold: 50,
	}
}

// Detect checks a raw inbound message against the configured keyword
// sets, in priority order. It covers trigger (b) of the handoff
// contract; flow-step handoffs (trigger (a)) are resolved by the step
// resolver and composed by the controller with OR semantics.
func (c HandoffConfig) Detect(message string, leadScore int) HandoffDecision {
	text := Normalize(message)
	if text == "" {
		return HandoffDecision{}
	}

	if matchesAny(text, c.HandoffKeywords) {
		return HandoffDecision{Handoff: true, Reason: ReasonLeadRequest, Urgency: UrgencyHigh}
	}
	if matchesAny(text, c.SchedulingKeywords) {
		return HandoffDecision{Handoff: true, Reason: ReasonScheduling, Urgency: UrgencyHigh}
	}
	if leadScore >= c.QualifiedScoreThreshold && matchesAny(text, c.ObjectionKeywords) {
		return HandoffDecision{Handoff: true, Reason: ReasonSensitiveObjection, Urgency: UrgencyNormal}
	}
	return HandoffDecision{}
}

func matchesAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(text, Normalize(kw)) {
			return true
		}
	}
	return false
}
