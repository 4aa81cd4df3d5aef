package config

import (
	"fmt"
	"time"
)

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked; everything else
// requires a restart.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	RefreshIntervalChanged bool
	NewRefreshInterval     time.Duration

	// VoiceChanged is true if any speech setting changed. The new settings
	// take effect on the next voice turn.
	VoiceChanged bool

	// RestartRequired lists the top-level sections that changed but cannot
	// be applied in place.
	RestartRequired []string
}

// Empty reports whether d carries no changes at all.
func (d ConfigDiff) Empty() bool {
	return !d.LogLevelChanged && !d.RefreshIntervalChanged && !d.VoiceChanged && len(d.RestartRequired) == 0
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}
	if old.Market.RefreshInterval != new.Market.RefreshInterval {
		d.RefreshIntervalChanged = true
		d.NewRefreshInterval = new.Market.RefreshInterval
	}
	if !equalVoice(old.Voice, new.Voice) {
		d.VoiceChanged = true
	}

	if old.Server.ListenAddr != new.Server.ListenAddr || !equalTLS(old.Server.TLS, new.Server.TLS) {
		d.RestartRequired = append(d.RestartRequired, "server")
	}
	if !equalMarket(old.Market, new.Market) {
		d.RestartRequired = append(d.RestartRequired, "market")
	}
	if old.Cache != new.Cache {
		d.RestartRequired = append(d.RestartRequired, "cache")
	}
	if !equalProviders(old.Providers, new.Providers) {
		d.RestartRequired = append(d.RestartRequired, "providers")
	}
	if old.ConvAI != new.ConvAI {
		d.RestartRequired = append(d.RestartRequired, "convai")
	}

	return d
}

func equalVoice(a, b VoiceConfig) bool {
	return a.Language == b.Language &&
		a.Continuous == b.Continuous &&
		a.Interim() == b.Interim() &&
		a.MaxAlternatives == b.MaxAlternatives &&
		a.SampleRate == b.SampleRate &&
		a.VoiceID == b.VoiceID &&
		a.Rate == b.Rate &&
		a.Pitch == b.Pitch &&
		a.Volume == b.Volume &&
		a.Correction() == b.Correction()
}

func equalTLS(a, b *TLSConfig) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// equalMarket ignores RefreshInterval, which is applied in place.
func equalMarket(a, b MarketConfig) bool {
	if a.Limit != b.Limit || a.Timeout != b.Timeout || a.Summary != b.Summary || a.Breaker != b.Breaker {
		return false
	}
	if len(a.Endpoints) != len(b.Endpoints) {
		return false
	}
	for i := range a.Endpoints {
		if a.Endpoints[i] != b.Endpoints[i] {
			return false
		}
	}
	return true
}

func equalProviders(a, b ProvidersConfig) bool {
	if !equalEntry(a.LLM, b.LLM) || !equalEntry(a.STT, b.STT) || !equalEntry(a.TTS, b.TTS) {
		return false
	}
	return equalEntries(a.Fallbacks.LLM, b.Fallbacks.LLM) &&
		equalEntries(a.Fallbacks.STT, b.Fallbacks.STT) &&
		equalEntries(a.Fallbacks.TTS, b.Fallbacks.TTS)
}

func equalEntries(a, b []ProviderEntry) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !equalEntry(a[i], b[i]) {
			return false
		}
	}
	return true
}

// equalEntry compares the scalar fields and the option keys' formatted values.
func equalEntry(a, b ProviderEntry) bool {
	if a.Name != b.Name || a.APIKey != b.APIKey || a.BaseURL != b.BaseURL || a.Model != b.Model {
		return false
	}
	if len(a.Options) != len(b.Options) {
		return false
	}
	for k, va := range a.Options {
		vb, ok := b.Options[k]
		if !ok || fmt.Sprint(va) != fmt.Sprint(vb) {
			return false
		}
	}
	return true
}
