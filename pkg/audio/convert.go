package audio

import (
	"encoding/binary"
	"log/slog"
	"math"
	"sync"
)

// Converter normalises frames to a target format, such as the sample rate and
// channel count an STT session was opened with. It logs once on the first
// mismatch and once on the first misaligned frame. Create one per stream.
type Converter struct {
	Target Format

	warnedMismatch sync.Once
	warnedCorrupt  sync.Once
}

// Convert returns f in the target format. The boolean is false when the frame
// is unusable (odd byte count, or shorter than one frame after resampling).
func (c *Converter) Convert(f Frame) (Frame, bool) {
	if len(f.Data)%2 != 0 {
		c.warnedCorrupt.Do(func() {
			slog.Warn("audio: odd byte count in PCM data, dropping frame", "bytes", len(f.Data))
		})
		return Frame{}, false
	}
	if f.SampleRate == c.Target.SampleRate && f.Channels == c.Target.Channels {
		return f, len(f.Data) > 0
	}
	c.warnedMismatch.Do(func() {
		slog.Warn("audio: converting input format",
			"from_rate", f.SampleRate, "from_channels", f.Channels,
			"to_rate", c.Target.SampleRate, "to_channels", c.Target.Channels,
		)
	})

	s := decode(f.Data)
	ch := max(f.Channels, 1)
	// Mix down before resampling so fewer samples are interpolated.
	if ch != 1 && c.Target.Channels == 1 {
		s = mixDown(s, ch)
		ch = 1
	}
	if f.SampleRate != c.Target.SampleRate {
		s = resample(s, ch, f.SampleRate, c.Target.SampleRate)
	}
	if ch == 1 && c.Target.Channels > 1 {
		s = spread(s, c.Target.Channels)
		ch = c.Target.Channels
	}
	if len(s) == 0 {
		return Frame{}, false
	}
	return Frame{
		Data:       encode(s),
		SampleRate: c.Target.SampleRate,
		Channels:   ch,
		Timestamp:  f.Timestamp,
	}, true
}

// ConvertStream converts every frame from in to target on a new goroutine,
// dropping unusable frames. The returned channel closes when in closes.
func ConvertStream(in <-chan Frame, target Format) <-chan Frame {
	out := make(chan Frame, cap(in))
	go func() {
		defer close(out)
		conv := Converter{Target: target}
		for f := range in {
			if cf, ok := conv.Convert(f); ok {
				out <- cf
			}
		}
	}()
	return out
}

// ApplyGain scales every sample of pcm by gain, clamping to the int16 range.
// A gain of 1 (or a non-finite gain) returns pcm unchanged; otherwise a new
// slice is returned and pcm is left untouched.
func ApplyGain(pcm []byte, gain float64) []byte {
	if gain == 1 || math.IsNaN(gain) || math.IsInf(gain, 0) {
		return pcm
	}
	gain = max(gain, 0)
	s := decode(pcm)
	for i, v := range s {
		s[i] = clamp16(float64(v) * gain)
	}
	return encode(s)
}

// MonoToStereo duplicates each mono sample into an L+R pair.
func MonoToStereo(pcm []byte) []byte { return encode(spread(decode(pcm), 2)) }

// StereoToMono averages each L+R pair.
func StereoToMono(pcm []byte) []byte { return encode(mixDown(decode(pcm), 2)) }

// Resample16 resamples interleaved PCM with the given channel count from
// srcRate to dstRate using linear interpolation. Invalid rates return pcm
// unchanged.
func Resample16(pcm []byte, channels, srcRate, dstRate int) []byte {
	if srcRate <= 0 || dstRate <= 0 || srcRate == dstRate || channels <= 0 {
		return pcm
	}
	return encode(resample(decode(pcm), channels, srcRate, dstRate))
}

func decode(pcm []byte) []int16 {
	s := make([]int16, len(pcm)/2)
	for i := range s {
		s[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	return s
}

func encode(s []int16) []byte {
	out := make([]byte, len(s)*2)
	for i, v := range s {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}

func clamp16(v float64) int16 {
	switch {
	case v > math.MaxInt16:
		return math.MaxInt16
	case v < math.MinInt16:
		return math.MinInt16
	}
	return int16(v)
}

// mixDown averages each group of ch interleaved samples into one.
func mixDown(s []int16, ch int) []int16 {
	frames := len(s) / ch
	out := make([]int16, frames)
	for i := range frames {
		var sum int32
		for c := range ch {
			sum += int32(s[i*ch+c])
		}
		out[i] = int16(sum / int32(ch))
	}
	return out
}

// spread repeats every mono sample ch times.
func spread(s []int16, ch int) []int16 {
	out := make([]int16, 0, len(s)*ch)
	for _, v := range s {
		for range ch {
			out = append(out, v)
		}
	}
	return out
}

func resample(s []int16, ch, srcRate, dstRate int) []int16 {
	if srcRate <= 0 || dstRate <= 0 || srcRate == dstRate {
		return s
	}
	srcFrames := len(s) / ch
	dstFrames := int(int64(srcFrames) * int64(dstRate) / int64(srcRate))
	if dstFrames == 0 {
		return nil
	}
	out := make([]int16, dstFrames*ch)
	ratio := float64(srcRate) / float64(dstRate)
	for i := range dstFrames {
		pos := float64(i) * ratio
		idx := int(pos)
		frac := pos - float64(idx)
		next := min(idx+1, srcFrames-1)
		for c := range ch {
			a := float64(s[idx*ch+c])
			b := float64(s[next*ch+c])
			out[i*ch+c] = int16(a*(1-frac) + b*frac)
		}
	}
	return out
}
