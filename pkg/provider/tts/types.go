package tts

// Default prosody for spoken answers.
const (
	DefaultRate   = 0.9
	DefaultPitch  = 1.0
	DefaultVolume = 0.8
)

// Voice describes one synthesis voice.
type Voice struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Provider string            `json:"provider"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Utterance is a single piece of text to speak together with its prosody.
type Utterance struct {
	Text string

	// VoiceID selects the voice. Empty uses the provider default.
	VoiceID string

	// Rate is the speaking rate multiplier (1.0 = normal).
	Rate float64

	// Pitch is the pitch multiplier (1.0 = normal). Providers that cannot
	// shift pitch ignore it.
	Pitch float64

	// Volume is the output gain in [0, 1]. Applied by the caller to the PCM
	// it receives, not by the provider.
	Volume float64
}

// NewUtterance returns an Utterance for text with the default prosody.
func NewUtterance(text string) Utterance {
	return Utterance{Text: text, Rate: DefaultRate, Pitch: DefaultPitch, Volume: DefaultVolume}
}
