package audio

import (
	"math"
	"math/rand/v2"
	"time"
)

// SampleRate is the rate every sound is rendered at.
const SampleRate = 44100

// silence is the gain an exponential decay ends at.
const silence = 0.001

// Render synthesises s as mono samples in [-1, 1]. Noise voices use a
// fixed seed, so rendering is deterministic.
func Render(s Sound, rate int) []float32 {
	total := samples(s.Duration(), rate)
	out := make([]float64, total)
	rng := rand.New(rand.NewPCG(0x6d79, 0x64617973))

	for _, v := range s.Voices {
		start := samples(v.Start, rate)
		n := samples(v.Length, rate)
		phase := 0.0
		for i := 0; i < n && start+i < total; i++ {
			t := float64(i) / float64(rate)
			g := envelope(v, t)
			if g == 0 {
				continue
			}
			var x float64
			if v.Wave == Noise {
				x = rng.Float64()*2 - 1
			} else {
				phase += frequency(v, t) / float64(rate)
				phase -= math.Floor(phase)
				x = oscillate(v.Wave, phase)
			}
			out[start+i] += g * x
		}
	}

	pcm := make([]float32, total)
	for i, x := range out {
		pcm[i] = float32(math.Max(-1, math.Min(1, x)))
	}
	return pcm
}

func samples(d time.Duration, rate int) int {
	return int(d.Seconds() * float64(rate))
}

func frequency(v Voice, t float64) float64 {
	if v.FreqEnd <= 0 || v.Glide <= 0 {
		return v.Freq
	}
	p := math.Min(t/v.Glide.Seconds(), 1)
	return v.Freq * math.Pow(v.FreqEnd/v.Freq, p)
}

func envelope(v Voice, t float64) float64 {
	hold, decay := v.Hold.Seconds(), v.Decay.Seconds()
	switch {
	case t <= hold:
		return v.Gain
	case t >= decay || decay <= hold:
		return 0
	}
	p := (t - hold) / (decay - hold)
	return v.Gain * math.Pow(silence/v.Gain, p)
}

// oscillate evaluates a unit-amplitude wave at phase in [0, 1).
func oscillate(w Wave, phase float64) float64 {
	switch w {
	case Square:
		if phase < 0.5 {
			return 1
		}
		return -1
	case Sawtooth:
		return 2*phase - 1
	default:
		return math.Sin(2 * math.Pi * phase)
	}
}
