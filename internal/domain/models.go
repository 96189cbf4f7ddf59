package domain

// OptionCount is the number of options every question must offer.
const OptionCount = 4

// PointsPerAnswer is the score awarded for each correct answer.
const PointsPerAnswer = 100

// RightAnswer points at the correct option by 1-based position and text.
type RightAnswer struct {
	Index int    `json:"number"`
	Text  string `json:"text"`
}

// Question models an MCQ question with exactly one correct option.
type Question struct {
	Text        string      `json:"question"`
	Options     []string    `json:"options"`
	RightAnswer RightAnswer `json:"rightAnswer"`
}

// IsCorrect reports whether answer matches the right option's text.
func (q Question) IsCorrect(answer string) bool {
	return answer == q.RightAnswer.Text
}

// Game is a persisted quiz: topic plus an ordered question set and its owner.
type Game struct {
	ID            string     `json:"id"`
	Topic         string     `json:"topic"`
	Language      string     `json:"language"`
	QuestionCount int        `json:"questionCount"`
	OwnerID       string     `json:"ownerId"`
	Questions     []Question `json:"questions"`
}

// User is a named player.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RankingEntry is one user's final score for a game.
type RankingEntry struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	Score    int    `json:"score"`
}

// Results is the leaderboard view returned to a player after a game.
type Results struct {
	GameID   string         `json:"gameId"`
	Rankings []RankingEntry `json:"rankings"`
	Position int            `json:"position"`
	Score    int            `json:"score"`
	ShareURL string         `json:"shareUrl,omitempty"`
}

// Feedback is the transient signal shown after an answer.
type Feedback string

const (
	FeedbackHidden Feedback = "hidden"
	FeedbackRight  Feedback = "right"
	FeedbackWrong  Feedback = "wrong"
)

// Phase is the state of a quiz session.
type Phase string

const (
	PhaseAwaitingAnswer  Phase = "awaiting_answer"
	PhaseRevealingAnswer Phase = "revealing_answer"
	PhaseCompleted       Phase = "completed"
)

// SessionState is the durable form of a live quiz session.
type SessionState struct {
	ID             string   `json:"id"`
	GameID         string   `json:"gameId"`
	UserID         string   `json:"userId"`
	Phase          Phase    `json:"phase"`
	CurrentIndex   int      `json:"currentIndex"`
	SelectedAnswer *string  `json:"selectedAnswer,omitempty"`
	AnswerRevealed bool     `json:"answerRevealed"`
	CorrectCount   int      `json:"correctCount"`
	Feedback       Feedback `json:"feedback"`
}

// SessionResult is emitted once when a session completes.
type SessionResult struct {
	SessionID    string `json:"sessionId"`
	UserID       string `json:"userId"`
	GameID       string `json:"gameId"`
	CorrectCount int    `json:"correctCount"`
	Score        int    `json:"score"`
}

// GenerationRequest asks a generator for questions about a topic.
type GenerationRequest struct {
	Topic    string
	Language string
	Count    int
}
