package store

import (
	"slices"
	"time"

	"github.com/MrWong99/bit10voice/internal/portfolio"
	"github.com/MrWong99/bit10voice/pkg/market"
)

// Voice mirrors the voice session for the dashboard. At most one of
// Listening, Processing and Speaking is set.
type Voice struct {
	Listening  bool `json:"is_listening"`
	Processing bool `json:"is_processing"`
	Speaking   bool `json:"is_speaking"`

	// Transcript is the in-progress or last recognised utterance.
	Transcript string `json:"transcript"`

	// Response is the last spoken answer.
	Response string `json:"response"`

	// Error is a human-readable description of the last failure, if any.
	Error string `json:"error,omitempty"`
}

// VoicePatch is a shallow update to [Voice]. Only non-nil fields change.
type VoicePatch struct {
	Listening  *bool
	Processing *bool
	Speaking   *bool
	Transcript *string
	Response   *string
	Error      *string
}

// Role identifies the speaker of a [Turn].
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one entry of the conversation log.
type Turn struct {
	ID   string    `json:"id"`
	Role Role      `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Snapshot is the complete application state at one point in time. A
// Snapshot is never modified after it is published; its slices must be
// treated as read-only.
type Snapshot struct {
	Assets       []market.Asset      `json:"assets"`
	Summary      *market.Summary     `json:"summary,omitempty"`
	Holdings     []portfolio.Holding `json:"holdings"`
	Voice        Voice               `json:"voice"`
	Conversation []Turn              `json:"conversation"`
	Loading      bool                `json:"loading"`
	// Fallback is set when Assets is the built-in substitute dataset
	// because the market API could not be reached.
	Fallback     bool                `json:"fallback,omitempty"`
	Err          string              `json:"error,omitempty"`
	UpdatedAt    time.Time           `json:"updated_at,omitzero"`
}

// Valuation prices the snapshot's holdings against its assets. The boolean
// is false when there are no holdings.
func (s Snapshot) Valuation() (portfolio.Valuation, bool) {
	if len(s.Holdings) == 0 {
		return portfolio.Valuation{}, false
	}
	return portfolio.Value(s.Holdings, s.Assets), true
}

// Holding returns the holding with the given id.
func (s Snapshot) Holding(id string) (portfolio.Holding, bool) {
	i := slices.IndexFunc(s.Holdings, func(h portfolio.Holding) bool { return h.ID == id })
	if i < 0 {
		return portfolio.Holding{}, false
	}
	return s.Holdings[i], true
}

// The functions below derive a new Snapshot from an old one. Slices are
// copied before they are extended so published snapshots stay intact.

func withHolding(s Snapshot, h portfolio.Holding) Snapshot {
	s.Holdings = append(slices.Clip(s.Holdings), h)
	return s
}

func withoutHolding(s Snapshot, id string) (Snapshot, bool) {
	i := slices.IndexFunc(s.Holdings, func(h portfolio.Holding) bool { return h.ID == id })
	if i < 0 {
		return s, false
	}
	s.Holdings = slices.Delete(slices.Clone(s.Holdings), i, i+1)
	return s, true
}

func withVoice(s Snapshot, p VoicePatch) Snapshot {
	v := s.Voice
	if p.Listening != nil {
		v.Listening = *p.Listening
	}
	if p.Processing != nil {
		v.Processing = *p.Processing
	}
	if p.Speaking != nil {
		v.Speaking = *p.Speaking
	}
	if p.Transcript != nil {
		v.Transcript = *p.Transcript
	}
	if p.Response != nil {
		v.Response = *p.Response
	}
	if p.Error != nil {
		v.Error = *p.Error
	}
	s.Voice = v
	return s
}

func withTurn(s Snapshot, t Turn) Snapshot {
	s.Conversation = append(slices.Clip(s.Conversation), t)
	return s
}

func withMarket(s Snapshot, assets []market.Asset, summary market.Summary, fallback bool, at time.Time) Snapshot {
	s.Assets = assets
	s.Summary = &summary
	s.Fallback = fallback
	s.Loading = false
	s.Err = ""
	s.UpdatedAt = at
	return s
}

func withFailure(s Snapshot, err error) Snapshot {
	s.Loading = false
	s.Err = err.Error()
	return s
}
