package domain

// Question is one trivia question as fetched from the provider. Immutable once fetched.
type Question struct {
	Text             string   `json:"question"`
	CorrectAnswer    string   `json:"correct_answer"`
	IncorrectAnswers []string `json:"incorrect_answers"`
	Category         string   `json:"category"`
	Difficulty       string   `json:"difficulty"`
	Type             string   `json:"type"`
}

// AnswerOption is a single display choice for a question. OriginalIndex is nil
// for the correct answer and the 0-based position among the incorrect answers
// otherwise.
type AnswerOption struct {
	Text          string `json:"text"`
	Correct       bool   `json:"correct"`
	OriginalIndex *int   `json:"originalIndex"`
}

// PreparedQuestion pairs a question with its shuffled display order. The order
// is fixed when the question is prepared and never recomputed.
type PreparedQuestion struct {
	Question
	Answers []AnswerOption `json:"answers"`
}

// Filters narrows the fetched question set. Empty values mean "any" and are
// omitted from the provider request entirely.
type Filters struct {
	Category   string `json:"category"`
	Difficulty string `json:"difficulty"`
	Type       string `json:"type"`
}

// PlayerResult is built exactly once, when a session completes.
type PlayerResult struct {
	Name      string `json:"name"`
	AvatarRef string `json:"picture"`
	Score     int    `json:"score"`
}

// RankingEntry is a PlayerResult persisted to the ranking sequence. Entries
// are append-only; ordering for display is an external concern.
type RankingEntry struct {
	Name      string `json:"name"`
	AvatarRef string `json:"picture"`
	Score     int    `json:"score"`
}
