package domain

import "time"

// MatchPatch is a partial update to a match document. Merge semantics are
// last-writer-wins per field: nil pointers and empty maps leave the existing
// value untouched, map entries replace whole entries under the same key.
// Patches cannot express deletion; the protocol never removes players or
// answer records.
type MatchPatch struct {
	State           *MatchState
	QIndex          *int
	QuestionStartAt *time.Time
	FirstCorrect    *FirstCorrect
	Players         map[string]Player
	Answers         map[int]map[string]AnswerRecord
}

// Apply merges p into m in place. It mutates only the fields the patch names.
func (m *Match) Apply(p MatchPatch) {
	if p.State != nil {
		m.State = *p.State
	}
	if p.QIndex != nil {
		m.QIndex = *p.QIndex
	}
	if p.QuestionStartAt != nil {
		t := *p.QuestionStartAt
		m.QuestionStartAt = &t
	}
	if p.FirstCorrect != nil {
		fc := *p.FirstCorrect
		m.FirstCorrect = &fc
	}
	if len(p.Players) > 0 {
		if m.Players == nil {
			m.Players = make(map[string]Player, len(p.Players))
		}
		for id, player := range p.Players {
			m.Players[id] = player
		}
	}
	if len(p.Answers) > 0 {
		if m.Answers == nil {
			m.Answers = make(map[int]map[string]AnswerRecord, len(p.Answers))
		}
		for q, byPlayer := range p.Answers {
			if m.Answers[q] == nil {
				m.Answers[q] = make(map[string]AnswerRecord, len(byPlayer))
			}
			for id, rec := range byPlayer {
				m.Answers[q][id] = rec
			}
		}
	}
}

// Clone returns a deep copy safe to hand to transaction callbacks and
// subscribers. Questions are shared because they are immutable after creation.
func (m Match) Clone() Match {
	out := m
	if m.Players != nil {
		out.Players = make(map[string]Player, len(m.Players))
		for id, p := range m.Players {
			out.Players[id] = p
		}
	}
	if m.Answers != nil {
		out.Answers = make(map[int]map[string]AnswerRecord, len(m.Answers))
		for q, byPlayer := range m.Answers {
			cp := make(map[string]AnswerRecord, len(byPlayer))
			for id, rec := range byPlayer {
				cp[id] = rec
			}
			out.Answers[q] = cp
		}
	}
	if m.FirstCorrect != nil {
		fc := *m.FirstCorrect
		out.FirstCorrect = &fc
	}
	if m.QuestionStartAt != nil {
		t := *m.QuestionStartAt
		out.QuestionStartAt = &t
	}
	return out
}

// CurrentQuestion returns the question at QIndex, if any.
func (m Match) CurrentQuestion() (Question, bool) {
	if m.QIndex < 0 || m.QIndex >= len(m.Questions) {
		return Question{}, false
	}
	return m.Questions[m.QIndex], true
}

// HasMoreQuestions reports whether a question remains after the current one.
func (m Match) HasMoreQuestions() bool {
	return m.QIndex+1 < len(m.Questions)
}
