package main

import (
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"
	"github.com/hoshinonyaruko/stack-in-im/stack"
)

const sampleRate = beep.SampleRate(44100)

// note 是一个音符
type note struct {
	freq float64
	dur  time.Duration
}

var (
	cueStart    = []note{{523.25, 60 * time.Millisecond}, {659.25, 80 * time.Millisecond}}
	cueLanded   = []note{{330, 50 * time.Millisecond}}
	cuePerfect  = []note{{880, 50 * time.Millisecond}, {1174.66, 90 * time.Millisecond}}
	cueGameOver = []note{{392, 120 * time.Millisecond}, {311.13, 120 * time.Millisecond}, {196, 260 * time.Millisecond}}
)

// cueFor 按落块结果选择音效，nil 表示不出声
func cueFor(p *stack.Placement) []note {
	if p == nil {
		return nil
	}
	switch p.Outcome {
	case stack.Perfect:
		return cuePerfect
	case stack.Landed:
		return cueLanded
	default:
		return cueGameOver
	}
}

// sounds 播放简单的正弦音效，初始化失败时静音
type sounds struct {
	enabled bool
}

func newSounds() (*sounds, error) {
	if err := speaker.Init(sampleRate, sampleRate.N(time.Second/10)); err != nil {
		return &sounds{}, err
	}
	return &sounds{enabled: true}, nil
}

func (s *sounds) play(notes []note) {
	if s == nil || !s.enabled || len(notes) == 0 {
		return
	}
	streamers := make([]beep.Streamer, 0, len(notes))
	for _, n := range notes {
		sine, err := generators.SineTone(sampleRate, n.freq)
		if err != nil {
			continue
		}
		streamers = append(streamers, beep.Take(sampleRate.N(n.dur), sine))
	}
	speaker.Play(&effects.Volume{Streamer: beep.Seq(streamers...), Base: 2, Volume: -2})
}

func (s *sounds) close() {
	if s != nil && s.enabled {
		speaker.Clear()
	}
}
