package stack

import "github.com/hoshinonyaruko/stack-in-im/structs"

const (
	rippleGrowth  = 4.0
	rippleFade    = 1.2
	rippleOpacity = 0.6
)

// StepRipples 扩大并淡出完美落下的波纹，完全透明后移除
func StepRipples(ripples []structs.Ripple, dt float64) []structs.Ripple {
	if dt <= 0 {
		return ripples
	}
	kept := ripples[:0]
	for _, r := range ripples {
		r.Scale += dt * rippleGrowth
		r.Opacity -= dt * rippleFade
		if r.Opacity <= 0 {
			continue
		}
		kept = append(kept, r)
	}
	return kept
}

// PushRipple keeps at most limit ripples, newest last.
func PushRipple(ripples []structs.Ripple, r structs.Ripple, limit int) []structs.Ripple {
	ripples = append(ripples, r)
	if over := len(ripples) - limit; over > 0 {
		ripples = append(ripples[:0], ripples[over:]...)
	}
	return ripples
}
