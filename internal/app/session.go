package app

import (
	"log"
	"sync"
	"time"

	"quizgen/internal/domain"
)

// DefaultFeedbackDelay is how long the right/wrong feedback stays visible before advancing.
const DefaultFeedbackDelay = 3 * time.Second

// Scheduler runs fn once after d and returns a function that cancels the pending run.
type Scheduler func(d time.Duration, fn func()) (cancel func())

// TimerScheduler schedules on the runtime timer.
func TimerScheduler(d time.Duration, fn func()) func() {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}

// SessionOption customises a Session at construction.
type SessionOption func(*Session)

// WithSessionID sets the handle clients use to resume the session.
func WithSessionID(id string) SessionOption {
	return func(s *Session) { s.state.ID = id }
}

// WithFeedbackDelay overrides DefaultFeedbackDelay.
func WithFeedbackDelay(d time.Duration) SessionOption {
	return func(s *Session) {
		if d >= 0 {
			s.delay = d
		}
	}
}

// WithScheduler replaces the timer used for the automatic advance (tests use a manual one).
func WithScheduler(schedule Scheduler) SessionOption {
	return func(s *Session) {
		if schedule != nil {
			s.schedule = schedule
		}
	}
}

// WithCompletion registers the receiver of the terminal result.
func WithCompletion(fn func(domain.SessionResult) error) SessionOption {
	return func(s *Session) { s.onComplete = fn }
}

// WithCheckpoint registers a callback invoked with the state after every transition.
func WithCheckpoint(fn func(domain.SessionState)) SessionOption {
	return func(s *Session) { s.onChange = fn }
}

// QuestionView is a question as shown to the player, without the answer.
type QuestionView struct {
	Text    string   `json:"question"`
	Options []string `json:"options"`
}

// Snapshot is a read-only view of a session published to subscribers.
type Snapshot struct {
	domain.SessionState
	TotalQuestions int                   `json:"totalQuestions"`
	Score          int                   `json:"score"`
	Question       *QuestionView         `json:"question,omitempty"`
	RightAnswer    *domain.RightAnswer   `json:"rightAnswer,omitempty"`
	Loading        bool                  `json:"loading,omitempty"`
	Result         *domain.SessionResult `json:"result,omitempty"`
	SaveFailed     bool                  `json:"saveFailed,omitempty"`
}

// Session walks one user through a game's questions.
//
// It moves awaiting_answer(i) -> revealing_answer(i) on SubmitAnswer and, after the
// feedback delay, to awaiting_answer(i+1) or completed. The completed transition emits
// the result exactly once.
type Session struct {
	game       domain.Game
	delay      time.Duration
	schedule   Scheduler
	onComplete func(domain.SessionResult) error
	onChange   func(domain.SessionState)

	mu          sync.Mutex
	state       domain.SessionState
	pending     uint64
	cancel      func()
	closed      bool
	result      *domain.SessionResult
	saveErr     error
	subscribers map[chan Snapshot]struct{}
}

// NewSession starts a session at the first question.
func NewSession(game domain.Game, userID string, opts ...SessionOption) (*Session, error) {
	return RestoreSession(game, domain.SessionState{
		GameID:   game.ID,
		UserID:   userID,
		Phase:    domain.PhaseAwaitingAnswer,
		Feedback: domain.FeedbackHidden,
	}, opts...)
}

// RestoreSession rebuilds a session from a checkpoint. A checkpoint taken while the
// answer was being revealed reschedules the advance.
func RestoreSession(game domain.Game, state domain.SessionState, opts ...SessionOption) (*Session, error) {
	if len(game.Questions) == 0 {
		return nil, domain.ErrEmptyQuestionSet
	}
	id := state.ID
	s := &Session{
		game:        game,
		delay:       DefaultFeedbackDelay,
		schedule:    TimerScheduler,
		state:       state,
		subscribers: make(map[chan Snapshot]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if id != "" {
		s.state.ID = id
	}
	s.state.GameID = game.ID
	if s.state.Feedback == "" {
		s.state.Feedback = domain.FeedbackHidden
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state.Phase {
	case domain.PhaseRevealingAnswer:
		s.scheduleAdvanceLocked()
	case domain.PhaseCompleted:
		result := s.resultLocked()
		s.result = &result
	}
	return s, nil
}

// ID returns the session handle.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ID
}

// Game returns the game being played.
func (s *Session) Game() domain.Game {
	return s.game
}

// State returns the durable form of the session.
func (s *Session) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyState(s.state)
}

// Snapshot returns the current view of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Result returns the terminal result once the session has completed.
func (s *Session) Result() (domain.SessionResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return domain.SessionResult{}, false
	}
	return *s.result, true
}

// SubmitAnswer answers the current question. It returns false and leaves the state
// untouched unless the session is awaiting an answer.
func (s *Session) SubmitAnswer(answer string) (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.state.Phase != domain.PhaseAwaitingAnswer {
		return s.snapshotLocked(), false
	}
	question, ok := s.currentQuestionLocked()
	if !ok {
		return s.snapshotLocked(), false
	}

	selected := answer
	s.state.SelectedAnswer = &selected
	s.state.AnswerRevealed = true
	if question.IsCorrect(answer) {
		s.state.CorrectCount++
		s.state.Feedback = domain.FeedbackRight
	} else {
		s.state.Feedback = domain.FeedbackWrong
	}
	s.state.Phase = domain.PhaseRevealingAnswer
	s.scheduleAdvanceLocked()

	return s.publishLocked(), true
}

// Close cancels the pending advance and releases subscribers. No transition runs afterwards.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Subscribe returns a channel receiving a snapshot after every transition.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 4)

	s.mu.Lock()
	if s.closed {
		ch <- s.snapshotLocked()
		close(ch)
		s.mu.Unlock()
		return ch, func() {}
	}
	s.subscribers[ch] = struct{}{}
	ch <- s.snapshotLocked()
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) scheduleAdvanceLocked() {
	s.pending++
	token := s.pending
	s.cancel = s.schedule(s.delay, func() { s.advance(token) })
}

// advance runs when the feedback delay elapses. The completion callback runs
// outside the lock; the phase change before it guarantees a single emission.
func (s *Session) advance(token uint64) {
	s.mu.Lock()
	if s.closed || token != s.pending || s.state.Phase != domain.PhaseRevealingAnswer {
		s.mu.Unlock()
		return
	}
	s.cancel = nil
	s.state.Feedback = domain.FeedbackHidden

	if s.state.CurrentIndex < len(s.game.Questions)-1 {
		s.state.CurrentIndex++
		s.state.SelectedAnswer = nil
		s.state.AnswerRevealed = false
		s.state.Phase = domain.PhaseAwaitingAnswer
		s.publishLocked()
		s.mu.Unlock()
		return
	}

	s.state.Phase = domain.PhaseCompleted
	result := s.resultLocked()
	s.result = &result
	onComplete := s.onComplete
	s.mu.Unlock()

	var saveErr error
	if onComplete != nil {
		if saveErr = onComplete(result); saveErr != nil {
			log.Printf("[ERROR] session %s: record result: %v", result.SessionID, saveErr)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveErr = saveErr
	s.publishLocked()
}

func (s *Session) resultLocked() domain.SessionResult {
	return domain.SessionResult{
		SessionID:    s.state.ID,
		UserID:       s.state.UserID,
		GameID:       s.state.GameID,
		CorrectCount: s.state.CorrectCount,
		Score:        s.state.CorrectCount * domain.PointsPerAnswer,
	}
}

func (s *Session) currentQuestionLocked() (domain.Question, bool) {
	i := s.state.CurrentIndex
	if i < 0 || i >= len(s.game.Questions) {
		return domain.Question{}, false
	}
	return s.game.Questions[i], true
}

// publishLocked checkpoints the new state and fans the snapshot out to subscribers.
func (s *Session) publishLocked() Snapshot {
	if s.onChange != nil {
		s.onChange(copyState(s.state))
	}
	snap := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// drop the oldest update so a slow reader never blocks a transition
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
	return snap
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		SessionState:   copyState(s.state),
		TotalQuestions: len(s.game.Questions),
		Score:          s.state.CorrectCount * domain.PointsPerAnswer,
		SaveFailed:     s.saveErr != nil,
	}
	if s.result != nil {
		result := *s.result
		snap.Result = &result
	}
	if s.state.Phase == domain.PhaseCompleted {
		return snap
	}
	question, ok := s.currentQuestionLocked()
	if !ok {
		snap.Loading = true
		return snap
	}
	snap.Question = &QuestionView{Text: question.Text, Options: question.Options}
	if s.state.AnswerRevealed {
		right := question.RightAnswer
		snap.RightAnswer = &right
	}
	return snap
}

func copyState(state domain.SessionState) domain.SessionState {
	if state.SelectedAnswer != nil {
		selected := *state.SelectedAnswer
		state.SelectedAnswer = &selected
	}
	return state
}
