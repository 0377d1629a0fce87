package engine

import "strings"

// Voice call outcomes classified from a provider transcript
const (
	VoiceYes     = "yes"
	VoiceNo      = "no"
	VoiceMaybe   = "maybe"
	VoiceUnknown = "unknown"
)

var (
	voiceYesPatterns = []string{
		"sim",
		"quero",
		"tenho interesse",
		"pode ser",
		"claro",
		"com certeza",
		"gostaria",
	}
	voiceNoPatterns = []string{
		"nao quero",
		"nao tenho interesse",
		"sem interesse",
		"pare de ligar",
		"nao me ligue",
		"nao",
	}
	voiceMaybePatterns = []string{
		"talvez",
		"depois",
		"mais tarde",
		"me liga",
		"outro dia",
		"vou pensar",
	}
)

// ClassifyVoiceOutcome maps a free-text call transcript onto an
// outcome via ordered keyword matching: refusals first, since phrases
// like "nao quero" contain a bare yes word, then yes, then maybe.
// Anything else is unknown with low confidence.
func ClassifyVoiceOutcome(transcript string) (string, float64) {
	text := Normalize(transcript)
	if text == "" {
		return VoiceUnknown, 0.0
	}

	for _, pattern := range voiceNoPatterns {
		if containsWordOrPhrase(text, pattern) {
			return VoiceNo, 0.8
		}
	}
	for _, pattern := range voiceYesPatterns {
		if containsWordOrPhrase(text, pattern) {
			return VoiceYes, 0.8
		}
	}
	for _, pattern := range voiceMaybePatterns {
		if containsWordOrPhrase(text, pattern) {
			return VoiceMaybe, 0.6
		}
	}
	return VoiceUnknown, 0.2
}

// containsWordOrPhrase matches multi-word patterns by substring and
// single words only on token boundaries, so "nao" does not fire inside
// "informacao".
func containsWordOrPhrase(text, pattern string) bool {
	if len(pattern) == 0 {
		return false
	}
	if strings.ContainsRune(pattern, ' ') {
		return strings.Contains(text, pattern)
	}
	for _, token := range strings.Fields(text) {
		if strings.Trim(token, ".,!?;:") == pattern {
			return true
		}
	}
	return false
}
