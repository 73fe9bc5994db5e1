package app

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"trivia-live-service/internal/domain"
	"trivia-live-service/internal/scoring"
)

// MatchService contains the live-match use cases: creation, joining, answer
// submission, host control, and snapshot subscription.
type MatchService struct {
	store    MatchStore
	packs    PackRepository
	defaults domain.MatchConfig
	now      func() time.Time
	rnd      *rand.Rand
}

func NewMatchService(store MatchStore, packs PackRepository, defaults domain.MatchConfig) *MatchService {
	return &MatchService{
		store:    store,
		packs:    packs,
		defaults: defaults,
		now:      time.Now,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NewMatchServiceWithClock is test-only for deterministic timestamps.
func NewMatchServiceWithClock(store MatchStore, packs PackRepository, defaults domain.MatchConfig, now func() time.Time) *MatchService {
	s := NewMatchService(store, packs, defaults)
	s.now = now
	return s
}

// CreateMatchInput describes a new match. Questions may be given directly or
// cut from a pack via PackID; PackID wins when both are set.
type CreateMatchInput struct {
	Code           string
	HostPin        string
	PackID         string
	Questions      []domain.Question
	Config         *domain.MatchConfig
	MaxQuestions   int
	ShuffleOrder   bool
	ShuffleAnswers bool
}

// CreateMatch inserts a new match in the lobby state and returns its id.
func (s *MatchService) CreateMatch(ctx context.Context, in CreateMatchInput) (string, error) {
	if in.Code == "" {
		return "", fmt.Errorf("join code is required")
	}
	if in.HostPin == "" {
		return "", fmt.Errorf("host pin is required")
	}

	cfg := s.defaults
	if in.Config != nil {
		cfg = *in.Config
	}

	questions := in.Questions
	if in.PackID != "" {
		pack, err := s.packs.GetPack(ctx, in.PackID)
		if err != nil {
			return "", err
		}
		if !pack.Enabled {
			return "", domain.ErrPackDisabled
		}
		questions = pack.Questions
	}
	if len(questions) == 0 {
		return "", fmt.Errorf("match needs at least one question")
	}
	questions = scoring.BuildQuestionSet(questions, scoring.SetOptions{
		MaxQuestions:   in.MaxQuestions,
		ShuffleOrder:   in.ShuffleOrder,
		ShuffleAnswers: in.ShuffleAnswers,
		DefaultTimeSec: cfg.TimePerQSec,
	}, s.rnd)

	m := domain.Match{
		ID:        uuid.New().String(),
		Code:      in.Code,
		HostPin:   in.HostPin,
		State:     domain.StateLobby,
		QIndex:    -1,
		Config:    cfg,
		Questions: questions,
		Players:   map[string]domain.Player{},
		Answers:   map[int]map[string]domain.AnswerRecord{},
	}
	if err := s.store.Create(ctx, m); err != nil {
		return "", err
	}
	return m.ID, nil
}

// FindMatchByCode looks a match up by its human-entered join code.
func (s *MatchService) FindMatchByCode(ctx context.Context, code string) (domain.Match, error) {
	return s.store.FindByCode(ctx, code)
}

// Get returns the current match document.
func (s *MatchService) Get(ctx context.Context, matchID string) (domain.Match, error) {
	return s.store.Get(ctx, matchID)
}

// JoinMatch registers a player in the match. Rejoining refreshes the display
// name but keeps the accumulated score; player entries are never removed for
// the lifetime of the match.
func (s *MatchService) JoinMatch(ctx context.Context, matchID, playerID, name string) error {
	clean := SanitizeName(name)
	_, err := s.store.Transact(ctx, matchID, func(m domain.Match) (domain.MatchPatch, error) {
		if m.State == domain.StateEnded {
			return domain.MatchPatch{}, domain.ErrMatchEnded
		}
		player, ok := m.Players[playerID]
		if ok {
			player.Name = clean
		} else {
			player = domain.Player{Name: clean}
		}
		return domain.MatchPatch{Players: map[string]domain.Player{playerID: player}}, nil
	})
	return err
}

// SubmitAnswerInput is one player's answer to the question they saw open.
// QIndex must be the index captured at the moment the player acted, so a
// submission racing a host advance fails with ErrStaleQuestion instead of
// being misfiled under the next question.
type SubmitAnswerInput struct {
	MatchID     string
	PlayerID    string
	QIndex      int
	AnswerIndex int
	ElapsedMs   int64
}

// SubmitAnswer records an answer and awards points in a single transaction.
// Correctness is recomputed from the stored question rather than trusted from
// the client, and when the question-open timestamp is known the elapsed time
// is measured server-side too. Exactly one player per question wins the
// first-correct bonus, decided by commit order: concurrent correct answers
// re-run against fresh snapshots until one of them sees firstCorrect unset.
func (s *MatchService) SubmitAnswer(ctx context.Context, in SubmitAnswerInput) (domain.AnswerResult, error) {
	var result domain.AnswerResult
	_, err := s.store.Transact(ctx, in.MatchID, func(m domain.Match) (domain.MatchPatch, error) {
		if m.State == domain.StateEnded {
			return domain.MatchPatch{}, domain.ErrMatchEnded
		}
		if m.State != domain.StateOpen {
			return domain.MatchPatch{}, domain.ErrQuestionNotOpen
		}
		if in.QIndex != m.QIndex {
			return domain.MatchPatch{}, domain.ErrStaleQuestion
		}
		question, ok := m.CurrentQuestion()
		if !ok {
			return domain.MatchPatch{}, domain.ErrQuestionNotOpen
		}
		player, ok := m.Players[in.PlayerID]
		if !ok {
			return domain.MatchPatch{}, domain.ErrPlayerNotFound
		}
		if _, dup := m.Answers[m.QIndex][in.PlayerID]; dup {
			return domain.MatchPatch{}, domain.ErrAlreadyAnswered
		}

		now := s.now()
		elapsed := in.ElapsedMs
		if m.QuestionStartAt != nil {
			elapsed = now.Sub(*m.QuestionStartAt).Milliseconds()
		}
		if elapsed < 0 {
			elapsed = 0
		}

		correct := in.AnswerIndex >= 0 &&
			in.AnswerIndex < len(question.Answers) &&
			in.AnswerIndex == question.CorrectIndex

		cfg := m.Config
		awarded := scoring.Score(correct, elapsed, cfg.BasePoints, cfg.SpeedMax, cfg.SpeedCapMs)

		first := correct && (m.FirstCorrect == nil || m.FirstCorrect.QIdx != m.QIndex)
		if first {
			awarded += cfg.FirstBonus
			player.Firsts++
		}

		answered := int64(countAnswers(m, in.PlayerID))
		player.AvgMs = (player.AvgMs*answered + elapsed) / (answered + 1)
		player.Score += awarded
		player.Answered = true

		patch := domain.MatchPatch{
			Players: map[string]domain.Player{in.PlayerID: player},
			Answers: map[int]map[string]domain.AnswerRecord{
				m.QIndex: {in.PlayerID: {Idx: in.AnswerIndex, Correct: correct, Ms: elapsed, At: now}},
			},
		}
		if first {
			patch.FirstCorrect = &domain.FirstCorrect{QIdx: m.QIndex, PlayerID: in.PlayerID}
		}

		result = domain.AnswerResult{
			QIndex:     m.QIndex,
			Correct:    correct,
			Awarded:    awarded,
			First:      first,
			TotalScore: player.Score,
		}
		return patch, nil
	})
	if err != nil {
		return domain.AnswerResult{}, err
	}
	return result, nil
}

// HostAction applies one host-privileged transition. The pin is validated
// against a fresh read inside the transaction; the transition itself is
// checked against the state machine instead of trusting the caller.
func (s *MatchService) HostAction(ctx context.Context, matchID, hostPin string, action domain.HostActionType) (domain.Match, error) {
	return s.store.Transact(ctx, matchID, func(m domain.Match) (domain.MatchPatch, error) {
		if m.HostPin != hostPin {
			return domain.MatchPatch{}, domain.ErrInvalidPin
		}
		if m.State == domain.StateEnded {
			return domain.MatchPatch{}, domain.ErrMatchEnded
		}

		switch action {
		case domain.ActionOpen:
			var next int
			switch m.State {
			case domain.StateLobby:
				next = 0
			case domain.StateLocked:
				if !m.HasMoreQuestions() {
					return domain.MatchPatch{}, domain.ErrInvalidTransition
				}
				next = m.QIndex + 1
			default:
				return domain.MatchPatch{}, domain.ErrInvalidTransition
			}
			if next >= len(m.Questions) {
				return domain.MatchPatch{}, domain.ErrInvalidTransition
			}
			state := domain.StateOpen
			startAt := s.now()
			players := make(map[string]domain.Player, len(m.Players))
			for id, p := range m.Players {
				p.Answered = false
				players[id] = p
			}
			return domain.MatchPatch{
				State:           &state,
				QIndex:          &next,
				QuestionStartAt: &startAt,
				Players:         players,
			}, nil

		case domain.ActionLock:
			if m.State != domain.StateOpen {
				return domain.MatchPatch{}, domain.ErrInvalidTransition
			}
			state := domain.StateLocked
			return domain.MatchPatch{State: &state}, nil

		case domain.ActionEnd:
			state := domain.StateEnded
			return domain.MatchPatch{State: &state}, nil

		default:
			return domain.MatchPatch{}, fmt.Errorf("unknown host action %q", action)
		}
	})
}

// EndMatch terminates the match. Ending is host-privileged, so it goes
// through the same pin gate as every other host action.
func (s *MatchService) EndMatch(ctx context.Context, matchID, hostPin string) error {
	_, err := s.HostAction(ctx, matchID, hostPin, domain.ActionEnd)
	return err
}

// MatchSnapshot pairs a delivered match state with its projected leaderboard.
type MatchSnapshot struct {
	Match       domain.Match       `json:"match"`
	Leaderboard domain.Leaderboard `json:"leaderboard"`
}

// Subscribe adapts the store's snapshot feed into leaderboard-bearing
// snapshots. The caller must invoke the returned cancel func to avoid leaks.
func (s *MatchService) Subscribe(ctx context.Context, matchID string) (<-chan MatchSnapshot, func(), error) {
	raw, cancel, err := s.store.Subscribe(ctx, matchID)
	if err != nil {
		return nil, nil, err
	}

	out := make(chan MatchSnapshot, 8)
	go func() {
		defer close(out)
		for m := range raw {
			lb := ProjectLeaderboard(m)
			lb.UpdatedAt = s.now()
			snap := MatchSnapshot{Match: m, Leaderboard: lb}
			select {
			case out <- snap:
			default:
				// Slow consumer: replace the stale snapshot with the newest
				// so delivery stays causally non-decreasing.
				select {
				case <-out:
				default:
				}
				out <- snap
			}
		}
	}()
	return out, cancel, nil
}

func countAnswers(m domain.Match, playerID string) int {
	n := 0
	for _, byPlayer := range m.Answers {
		if _, ok := byPlayer[playerID]; ok {
			n++
		}
	}
	return n
}
