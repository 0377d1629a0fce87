package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyVoiceOutcome(t *testing.T) {
	cases := []struct {
		transcript string
		outcome    string
	}{
		{"Sim, tenho interesse", VoiceYes},
		{"quero sim!", VoiceYes},
		{"com certeza, pode me mandar", VoiceYes},
		{"não quero, obrigado", VoiceNo},
		{"pare de ligar", VoiceNo},
		{"Não.", VoiceNo},
		{"talvez mais tarde", VoiceMaybe},
		{"me liga outro dia", VoiceMaybe},
		{"vou pensar", VoiceMaybe},
		{"alô? quem fala?", VoiceUnknown},
		{"", VoiceUnknown},
	}
	for _, tc := range cases {
		outcome, _ := ClassifyVoiceOutcome(tc.transcript)
		assert.Equal(t, tc.outcome, outcome, "transcript %q", tc.transcript)
	}
}

func TestClassifyVoiceOutcomeNegationBeatsBareYes(t *testing.T) {
	// "nao quero" carries "quero", so refusal phrases must win over
	// the bare yes patterns they contain.
	outcome, _ := ClassifyVoiceOutcome("não quero")
	assert.Equal(t, VoiceNo, outcome)
}

func TestClassifyVoiceOutcomeWordBoundaries(t *testing.T) {
	// "informação" contains "nao" as a substring but not as a token
	outcome, _ := ClassifyVoiceOutcome("preciso de mais informação")
	assert.Equal(t, VoiceUnknown, outcome)
}

func TestClassifyVoiceOutcomeConfidence(t *testing.T) {
	_, conf := ClassifyVoiceOutcome("sim")
	assert.InDelta(t, 0.8, conf, 0.001)

	_, conf = ClassifyVoiceOutcome("talvez")
	assert.InDelta(t, 0.6, conf, 0.001)

	_, conf = ClassifyVoiceOutcome("hmm")
	assert.InDelta(t, 0.2, conf, 0.001)
}
