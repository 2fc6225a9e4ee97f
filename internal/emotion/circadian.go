package emotion

import (
	"context"
	"math"
	"time"
)

// CircadianInfluence is the small PAD nudge a circadian tick applies.
type CircadianInfluence struct {
	Pleasure  float64
	Arousal   float64
	Dominance float64
}

// PhaseDescription returns a human-readable wall-clock phase label, grounded
// on original_source/ghost/emotion/circadian.py's hour bands.
func PhaseDescription(at time.Time) string {
	hour := at.Hour()
	switch {
	case hour >= 5 && hour < 9:
		return "Early Morning (Waking Up)"
	case hour >= 9 && hour < 12:
		return "Morning (Alert)"
	case hour >= 12 && hour < 14:
		return "Midday (Peak Energy)"
	case hour >= 14 && hour < 18:
		return "Afternoon (Active)"
	case hour >= 18 && hour < 22:
		return "Evening (Winding Down)"
	case hour >= 22:
		return "Late Night (Low Energy)"
	default:
		return "Deep Night (Sleepy)"
	}
}

// EmotionalInfluence returns the circadian PAD deltas for the given time:
// arousal follows a sinusoid peaking at 14:00, pleasure and dominance step
// between day/night bands.
func EmotionalInfluence(at time.Time) CircadianInfluence {
	hour := float64(at.Hour())
	const arousalPeakHour = 14.0
	arousal := math.Cos((hour - arousalPeakHour) * math.Pi / 12)

	pleasure := -0.1
	if hour >= 8 && hour < 20 {
		pleasure = 0.2
	}

	dominance := -0.2
	if hour >= 9 && hour < 18 {
		dominance = 0.3
	}

	return CircadianInfluence{Pleasure: pleasure, Arousal: arousal, Dominance: dominance}
}

// ProactivityModifier returns a [0.1, 1.0] proactivity multiplier for the
// given wall-clock hour. No other package calls it; the BDI engine's tick
// does not consult it.
func ProactivityModifier(at time.Time) float64 {
	hour := at.Hour()
	switch {
	case hour >= 9 && hour < 22:
		return 1.0
	case hour >= 22 || hour < 6:
		return 0.1
	default:
		return 0.5
	}
}

// ApplyCircadianTick nudges the PAD state by the scaled circadian influence
// at the given time, publishing the usual EmotionalStateChanged event. The
// 0.1 scale factor and "circadian_rhythm" reason match
// original_source/ghost/emotion/emotion_service.py's apply_circadian_influence.
func (s *Service) ApplyCircadianTick(ctx context.Context) State {
	infl := EmotionalInfluence(time.Now())
	return s.UpdateState(ctx, Delta{
		Pleasure:  infl.Pleasure * 0.1,
		Arousal:   infl.Arousal * 0.1,
		Dominance: infl.Dominance * 0.1,
		Reason:    "circadian_rhythm",
	})
}
