package http

import (
	"time"

	"trivia-live-service/internal/app"
	"trivia-live-service/internal/domain"
)

// matchView is the wire shape of a match document. The host pin never leaves
// the server.
type matchView struct {
	ID              string                                 `json:"id"`
	Code            string                                 `json:"code"`
	State           domain.MatchState                      `json:"state"`
	QIndex          int                                    `json:"qIndex"`
	Config          domain.MatchConfig                     `json:"config"`
	Questions       []domain.Question                      `json:"questions"`
	Players         map[string]domain.Player               `json:"players"`
	Answers         map[int]map[string]domain.AnswerRecord `json:"answers"`
	FirstCorrect    *domain.FirstCorrect                   `json:"firstCorrect"`
	QuestionStartAt *time.Time                             `json:"questionStartAt"`
	CreatedAt       time.Time                              `json:"createdAt"`
	Version         int64                                  `json:"version"`
}

func newMatchView(m domain.Match) matchView {
	return matchView{
		ID:              m.ID,
		Code:            m.Code,
		State:           m.State,
		QIndex:          m.QIndex,
		Config:          m.Config,
		Questions:       m.Questions,
		Players:         m.Players,
		Answers:         m.Answers,
		FirstCorrect:    m.FirstCorrect,
		QuestionStartAt: m.QuestionStartAt,
		CreatedAt:       m.CreatedAt,
		Version:         m.Version,
	}
}

type snapshotView struct {
	Match       matchView          `json:"match"`
	Leaderboard domain.Leaderboard `json:"leaderboard"`
}

func newSnapshotView(s app.MatchSnapshot) snapshotView {
	return snapshotView{Match: newMatchView(s.Match), Leaderboard: s.Leaderboard}
}
