package domain

import "time"

// MatchState is the lifecycle state of a live match.
type MatchState string

const (
	// StateLobby is the pre-game state; players can join, no question is live.
	StateLobby MatchState = "lobby"
	// StateOpen means the current question accepts answers.
	StateOpen MatchState = "open"
	// StateLocked means the current question is closed but the match continues.
	StateLocked MatchState = "locked"
	// StateEnded is terminal; no host action or submission is accepted.
	StateEnded MatchState = "ended"
)

// Question is a single prompt with its answer options. Question lists are
// frozen into the match document at creation and never mutated afterwards.
type Question struct {
	Prompt       string   `json:"prompt"`
	Answers      []string `json:"answers"`
	CorrectIndex int      `json:"correctIndex"`
	TimeLimitSec int      `json:"timeLimitSec"`
	Image        string   `json:"image,omitempty"`
	Audio        string   `json:"audio,omitempty"`
}

// Player is a participant entry embedded in a match. Entries are created on
// join and never removed for the lifetime of the match.
type Player struct {
	Name     string `json:"name"`
	Score    int    `json:"score"`
	Answered bool   `json:"answered"`
	AvgMs    int64  `json:"avgMs"`
	Firsts   int    `json:"firsts"`
}

// AnswerRecord is the durable record of one player's answer to one question.
type AnswerRecord struct {
	Idx     int       `json:"idx"`
	Correct bool      `json:"correct"`
	Ms      int64     `json:"ms"`
	At      time.Time `json:"at"`
}

// FirstCorrect records which player was first to commit a correct answer for
// a question. A stale value from a prior question is never consulted: every
// write path checks QIdx against the current question index.
type FirstCorrect struct {
	QIdx     int    `json:"qIdx"`
	PlayerID string `json:"playerId"`
}

// MatchConfig carries the per-match scoring knobs.
type MatchConfig struct {
	BasePoints  int   `json:"basePoints"`
	SpeedMax    int   `json:"speedMax"`
	FirstBonus  int   `json:"firstBonus"`
	SpeedCapMs  int64 `json:"speedCapMs"`
	TimePerQSec int   `json:"timePerQSec"`
}

// Match is the canonical document for one live game session.
type Match struct {
	ID              string                          `json:"id"`
	Code            string                          `json:"code"`
	HostPin         string                          `json:"hostPin"`
	State           MatchState                      `json:"state"`
	QIndex          int                             `json:"qIndex"`
	Config          MatchConfig                     `json:"config"`
	Questions       []Question                      `json:"questions"`
	Players         map[string]Player               `json:"players"`
	Answers         map[int]map[string]AnswerRecord `json:"answers"`
	FirstCorrect    *FirstCorrect                   `json:"firstCorrect"`
	QuestionStartAt *time.Time                      `json:"questionStartAt"`
	CreatedAt       time.Time                       `json:"createdAt"`

	// Version increases by one on every committed change. Subscribers use it
	// to discard out-of-order snapshot deliveries.
	Version int64 `json:"version"`
}

// HostActionType enumerates the host-privileged state transitions.
type HostActionType string

const (
	// ActionOpen opens the next question (the first one from the lobby).
	ActionOpen HostActionType = "open"
	// ActionLock closes the currently open question.
	ActionLock HostActionType = "lock"
	// ActionEnd terminates the match.
	ActionEnd HostActionType = "end"
)

// AnswerResult summarizes the outcome of a submission for a single player.
type AnswerResult struct {
	QIndex     int  `json:"qIndex"`
	Correct    bool `json:"correct"`
	Awarded    int  `json:"awarded"`
	First      bool `json:"first"`
	TotalScore int  `json:"totalScore"`
}

// LeaderboardEntry is a snapshot-friendly view of a player's standing.
type LeaderboardEntry struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
	Firsts   int    `json:"firsts"`
}

// Leaderboard captures the ordered scoreboard for a match.
type Leaderboard struct {
	MatchID   string             `json:"matchId"`
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// SoloScore is one finished solo run, kept in the capped top-N leaderboard.
type SoloScore struct {
	Name       string    `json:"name"`
	Score      int       `json:"score"`
	DurationMs int64     `json:"durationMs"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Pack is a question set loaded from external configuration.
type Pack struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Enabled   bool       `json:"enabled"`
	Questions []Question `json:"questions"`
}
