package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "nao", Normalize("Não"))
	assert.Equal(t, "sim, quero", Normalize("  SIM, quero  "))
	assert.Equal(t, "orcamento ja", Normalize("Orçamento JÁ"))
	assert.Equal(t, "", Normalize("   "))
}

func TestMatchAnswerContainsCandidate(t *testing.T) {
	expected := []string{"sim", "não"}

	answer, ok := MatchAnswer("sim, quero saber mais", expected)
	assert.True(t, ok)
	assert.Equal(t, "sim", answer)
}

func TestMatchAnswerCandidateContainsUser(t *testing.T) {
	expected := []string{"reforma completa", "reparo pequeno"}

	answer, ok := MatchAnswer("reforma", expected)
	assert.True(t, ok)
	assert.Equal(t, "reforma completa", answer)
}

func TestMatchAnswerTokenOverlap(t *testing.T) {
	expected := []string{"quero um orçamento detalhado"}

	answer, ok := MatchAnswer("me manda o orçamento detalhado por favor", expected)
	assert.True(t, ok)
	assert.Equal(t, "quero um orçamento detalhado", answer)
}

func TestMatchAnswerDiacriticsInsensitive(t *testing.T) {
	answer, ok := MatchAnswer("NAO", []string{"não"})
	assert.True(t, ok)
	assert.Equal(t, "não", answer)
}

func TestMatchAnswerNoMatch(t *testing.T) {
	_, ok := MatchAnswer("talvez mais tarde", []string{"sim", "não"})
	assert.False(t, ok)
}

func TestMatchAnswerEmptyInput(t *testing.T) {
	_, ok := MatchAnswer("   ", []string{"sim"})
	assert.False(t, ok)

	_, ok = MatchAnswer("sim", nil)
	assert.False(t, ok)
}

func TestMatchAnswerFirstCandidateWins(t *testing.T) {
	answer, ok := MatchAnswer("sim sim", []string{"não", "sim"})
	assert.True(t, ok)
	assert.Equal(t, "sim", answer)
}
