package scoring

import (
	"math"
	"math/rand"

	"trivia-live-service/internal/domain"
)

// Defaults mirror the stock game configuration.
const (
	DefaultBasePoints  = 100
	DefaultSpeedMax    = 50
	DefaultFirstBonus  = 100
	DefaultSpeedCapMs  = 5000
	DefaultTimePerQSec = 25
)

// DefaultConfig returns the stock per-match scoring configuration.
func DefaultConfig() domain.MatchConfig {
	return domain.MatchConfig{
		BasePoints:  DefaultBasePoints,
		SpeedMax:    DefaultSpeedMax,
		FirstBonus:  DefaultFirstBonus,
		SpeedCapMs:  DefaultSpeedCapMs,
		TimePerQSec: DefaultTimePerQSec,
	}
}

// Score maps one answer event to a point value. Incorrect answers score zero.
// Correct answers earn base points plus a speed bonus that decays linearly
// over capMs: a full bonus at 0ms, none at or beyond the cap. capMs is a
// fixed credit window, not the per-question time limit. Deterministic, no
// side effects; shared by the solo and live paths.
func Score(correct bool, elapsedMs int64, base, speedMax int, capMs int64) int {
	if !correct {
		return 0
	}
	if capMs <= 0 {
		capMs = DefaultSpeedCapMs
	}
	if elapsedMs < 0 {
		elapsedMs = 0
	}
	if elapsedMs > capMs {
		elapsedMs = capMs
	}
	ratio := float64(capMs-elapsedMs) / float64(capMs)
	return base + int(math.Round(float64(speedMax)*ratio))
}

// SetOptions controls how a match question list is cut from a pack.
type SetOptions struct {
	MaxQuestions   int
	ShuffleOrder   bool
	ShuffleAnswers bool
	DefaultTimeSec int
}

// BuildQuestionSet selects questions from src according to opts. Answer
// shuffling rewrites each question's answer list and remaps CorrectIndex so
// the correct text stays correct. The input slice is never mutated.
func BuildQuestionSet(src []domain.Question, opts SetOptions, rnd *rand.Rand) []domain.Question {
	qs := make([]domain.Question, len(src))
	copy(qs, src)

	if opts.ShuffleOrder {
		rnd.Shuffle(len(qs), func(i, j int) { qs[i], qs[j] = qs[j], qs[i] })
	}
	if opts.MaxQuestions > 0 && len(qs) > opts.MaxQuestions {
		qs = qs[:opts.MaxQuestions]
	}

	for i := range qs {
		if qs[i].TimeLimitSec <= 0 {
			if opts.DefaultTimeSec > 0 {
				qs[i].TimeLimitSec = opts.DefaultTimeSec
			} else {
				qs[i].TimeLimitSec = DefaultTimePerQSec
			}
		}
		if !opts.ShuffleAnswers {
			continue
		}
		perm := rnd.Perm(len(qs[i].Answers))
		shuffled := make([]string, len(qs[i].Answers))
		correct := qs[i].CorrectIndex
		for to, from := range perm {
			shuffled[to] = qs[i].Answers[from]
			if from == correct {
				qs[i].CorrectIndex = to
			}
		}
		qs[i].Answers = shuffled
	}
	return qs
}
