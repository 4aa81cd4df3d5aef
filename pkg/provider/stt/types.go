package stt

// Transcript is one recognition result. Partial and final results share the
// type; IsFinal tells them apart.
type Transcript struct {
	Text    string
	IsFinal bool

	// Confidence is 0–1, or zero when the engine does not report it.
	Confidence float64

	// Alternatives holds further hypotheses beyond Text, best first, up to
	// CaptureConfig.MaxAlternatives-1 entries.
	Alternatives []string
}
