// Package audio plays the short completion sounds.
//
// Sounds are synthesised from a small catalogue of oscillator voices and
// handed to an output Device. Playback is fire-and-forget: failures are
// logged and otherwise ignored.
package audio

import (
	"sort"
	"time"
)

// Wave is an oscillator shape.
type Wave int

const (
	Sine Wave = iota
	Square
	Sawtooth
	Noise
)

// Voice is one oscillator in a sound. Gain is held for Hold, then decays
// exponentially until Decay, measured from the voice start. The voice is
// silent after Length.
type Voice struct {
	Wave   Wave
	Start  time.Duration
	Length time.Duration

	// Freq glides exponentially to FreqEnd over Glide. A zero FreqEnd
	// keeps the pitch constant. Ignored for Noise.
	Freq    float64
	FreqEnd float64
	Glide   time.Duration

	Gain  float64
	Hold  time.Duration
	Decay time.Duration
}

// Sound is a catalogue entry.
type Sound struct {
	Key    string
	Name   string
	Voices []Voice
}

// Duration is the length of the rendered sound.
func (s Sound) Duration() time.Duration {
	var end time.Duration
	for _, v := range s.Voices {
		if e := v.Start + v.Length; e > end {
			end = e
		}
	}
	return end
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

// tonal is an arpeggio of sine notes spaced evenly apart.
func tonal(key, name string, freqs []float64, dur, spacing time.Duration) Sound {
	s := Sound{Key: key, Name: name}
	for i, f := range freqs {
		s.Voices = append(s.Voices, Voice{
			Wave:   Sine,
			Start:  time.Duration(i) * spacing,
			Length: dur,
			Freq:   f,
			Gain:   0.15,
			Decay:  dur,
		})
	}
	return s
}

var catalogue = map[string]Sound{
	"chime":     tonal("chime", "Chime", []float64{523, 659, 784}, ms(400), ms(100)),
	"windchime": tonal("windchime", "Cheer", []float64{1047, 1319, 1568, 1760}, ms(700), ms(150)),
	"whoosh": {Key: "whoosh", Name: "Whoosh", Voices: []Voice{
		{Wave: Noise, Length: ms(400), Gain: 0.2, Hold: ms(100), Decay: ms(400)},
	}},
	"pop": {Key: "pop", Name: "Pop", Voices: []Voice{
		{Wave: Noise, Length: ms(80), Gain: 0.3, Decay: ms(80)},
	}},
	"quack": {Key: "quack", Name: "Quack", Voices: []Voice{
		{Wave: Sawtooth, Length: ms(180), Freq: 240, FreqEnd: 150, Glide: ms(160), Gain: 0.15, Hold: ms(40), Decay: ms(180)},
		{Wave: Square, Length: ms(180), Freq: 480, FreqEnd: 300, Glide: ms(160), Gain: 0.04, Hold: ms(40), Decay: ms(180)},
	}},
	"whistle": {Key: "whistle", Name: "Whistle", Voices: []Voice{
		{Wave: Sine, Length: ms(450), Freq: 1400, FreqEnd: 2300, Glide: ms(250), Gain: 0.12, Hold: ms(250), Decay: ms(450)},
	}},
	"bubble": {Key: "bubble", Name: "Bubble", Voices: []Voice{
		{Wave: Sine, Start: 0, Length: ms(180), Freq: 250, FreqEnd: 625, Glide: ms(80), Gain: 0.15, Decay: ms(150)},
		{Wave: Sine, Start: ms(120), Length: ms(180), Freq: 330, FreqEnd: 825, Glide: ms(80), Gain: 0.15, Decay: ms(150)},
		{Wave: Sine, Start: ms(260), Length: ms(180), Freq: 410, FreqEnd: 1025, Glide: ms(80), Gain: 0.15, Decay: ms(150)},
	}},
	"laser": {Key: "laser", Name: "Laser", Voices: []Voice{
		{Wave: Sawtooth, Length: ms(450), Freq: 2400, FreqEnd: 120, Glide: ms(350), Gain: 0.12, Decay: ms(400)},
	}},
	"kalimba": {Key: "kalimba", Name: "Kalimba", Voices: []Voice{
		{Wave: Sine, Start: 0, Length: ms(550), Freq: 523, Gain: 0.12, Decay: ms(500)},
		{Wave: Sine, Start: 0, Length: ms(550), Freq: 1568, Gain: 0.06, Decay: ms(500)},
		{Wave: Sine, Start: ms(110), Length: ms(550), Freq: 659, Gain: 0.12, Decay: ms(500)},
		{Wave: Sine, Start: ms(110), Length: ms(550), Freq: 1976, Gain: 0.06, Decay: ms(500)},
		{Wave: Sine, Start: ms(220), Length: ms(550), Freq: 784, Gain: 0.12, Decay: ms(500)},
		{Wave: Sine, Start: ms(220), Length: ms(550), Freq: 2349, Gain: 0.06, Decay: ms(500)},
	}},
	"coin": {Key: "coin", Name: "Coin", Voices: []Voice{
		{Wave: Square, Start: 0, Length: ms(450), Freq: 988, Gain: 0.1, Hold: ms(80), Decay: ms(120)},
		{Wave: Square, Start: ms(60), Length: ms(450), Freq: 1319, Gain: 0.1, Hold: ms(80), Decay: ms(400)},
	}},
}

// Lookup returns the catalogue entry for key.
func Lookup(key string) (Sound, bool) {
	s, ok := catalogue[key]
	return s, ok
}

// Keys returns the catalogue keys in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(catalogue))
	for k := range catalogue {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
