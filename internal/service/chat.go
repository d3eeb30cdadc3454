package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/timmy/folio/internal/domain"
	"github.com/timmy/folio/internal/llm"
	"github.com/timmy/folio/internal/logger"
	"github.com/timmy/folio/internal/popularity"
	"github.com/timmy/folio/internal/prompts"
)

// ChatConfig holds validation limits and pacing for chat sessions.
type ChatConfig struct {
	MaxInputLength       int
	HistoryCap           int
	HistoryWindow        int
	RequestTimeout       time.Duration
	TypingBase           time.Duration
	TypingWordsPerSecond float64
	TypingMax            time.Duration
	WelcomeDelay         time.Duration
	ErrorDelay           time.Duration
	ContactEmail         string
	OwnerName            string
}

func DefaultChatConfig() ChatConfig {
	return ChatConfig{
		MaxInputLength:       500,
		HistoryCap:           50,
		HistoryWindow:        5,
		RequestTimeout:       30 * time.Second,
		TypingBase:           time.Second,
		TypingWordsPerSecond: 3,
		TypingMax:            4 * time.Second,
		WelcomeDelay:         1500 * time.Millisecond,
		ErrorDelay:           time.Second,
		ContactEmail:         "hello@example.com",
		OwnerName:            "the portfolio owner",
	}
}

// Pagination tracks the "more" walk through projects.
type Pagination struct {
	Active bool `json:"active"`
	Index  int  `json:"index"`
	Total  int  `json:"total"`
}

// ChatState is a snapshot of a session.
type ChatState struct {
	ID             string               `json:"id"`
	Open           bool                 `json:"open"`
	Minimized      bool                 `json:"minimized"`
	Loading        bool                 `json:"loading"`
	Typing         bool                 `json:"typing"`
	WelcomePending bool                 `json:"welcome_pending"`
	Error          string               `json:"error,omitempty"`
	Messages       []domain.ChatMessage `json:"messages"`
	Pagination     Pagination           `json:"pagination"`
}

// ChatDeps are the collaborators shared by every session.
type ChatDeps struct {
	Completer  llm.Completer
	Portfolio  PortfolioContext
	Popularity popularity.Store
	Logger     *logger.Logger
}

// ChatSession drives one visitor conversation.
// A generation counter guards every asynchronous result: Close, ClearChat and each
// new send bump it, and results from an older generation are dropped.
type ChatSession struct {
	id   string
	deps ChatDeps
	cfg  ChatConfig

	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
	intn     func(n int) int
	schedule func(d time.Duration, fn func()) (stop func() bool)

	mu             sync.Mutex
	open           bool
	minimized      bool
	loading        bool
	typing         bool
	welcomePending bool
	lastErr        string
	messages       []domain.ChatMessage
	pagination     Pagination
	generation     uint64
	cancel         context.CancelFunc
	stopWelcome    func() bool
}

func NewChatSession(deps ChatDeps, cfg ChatConfig) *ChatSession {
	if deps.Logger == nil {
		deps.Logger = logger.GetDefault()
	}
	if deps.Popularity == nil {
		deps.Popularity = popularity.NewMemoryStore()
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	var rngMu sync.Mutex

	return &ChatSession{
		id:    uuid.New().String(),
		deps:  deps,
		cfg:   cfg,
		now:   time.Now,
		sleep: sleepContext,
		intn: func(n int) int {
			rngMu.Lock()
			defer rngMu.Unlock()
			return rng.Intn(n)
		},
		schedule: func(d time.Duration, fn func()) func() bool {
			return time.AfterFunc(d, fn).Stop
		},
		messages: []domain.ChatMessage{},
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *ChatSession) ID() string {
	return s.id
}

func (s *ChatSession) log(ctx context.Context) *logger.Logger {
	return logger.FromContext(ctx).WithField(logger.FieldSessionID, s.id)
}

// Open shows the session. A session with no history gets a welcome message after a short typing pause.
func (s *ChatSession) Open(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.open = true
	s.minimized = false
	if len(s.messages) > 0 || s.welcomePending {
		return
	}

	s.welcomePending = true
	s.typing = true
	gen := s.generation
	s.stopWelcome = s.schedule(s.cfg.WelcomeDelay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if gen != s.generation || !s.open {
			return
		}
		s.welcomePending = false
		s.stopWelcome = nil
		s.typing = s.loading
		if len(s.messages) == 0 {
			s.appendLocked(domain.RoleAssistant, s.greetingLocked())
		}
	})
}

// Close hides the session, cancels any outstanding request and clears the error.
func (s *ChatSession) Close(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.open = false
	s.lastErr = ""
	s.abandonLocked()
}

// ToggleMinimize flips the minimized flag and returns the new value.
func (s *ChatSession) ToggleMinimize() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.minimized = !s.minimized
	return s.minimized
}

// ClearChat replaces the history with a fresh welcome message.
func (s *ChatSession) ClearChat(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.abandonLocked()
	s.lastErr = ""
	s.pagination = Pagination{}
	s.messages = []domain.ChatMessage{}
	s.appendLocked(domain.RoleAssistant, s.greetingLocked())
}

// abandonLocked invalidates pending work: the in-flight request, its typing pause and the welcome timer.
func (s *ChatSession) abandonLocked() {
	s.generation++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.cancelWelcomeLocked()
	s.loading = false
	s.typing = false
}

func (s *ChatSession) cancelWelcomeLocked() {
	if s.stopWelcome != nil {
		s.stopWelcome()
		s.stopWelcome = nil
	}
	s.welcomePending = false
}

// UpdateProjectContext syncs pagination with the item the UI is rendering.
func (s *ChatSession) UpdateProjectContext(index, total int) error {
	if total < 0 || (total > 0 && (index < 0 || index >= total)) {
		return &domain.ValidationError{Field: "index", Message: fmt.Sprintf("index %d out of range for %d items", index, total)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pagination.Index = index
	s.pagination.Total = total
	if total == 0 {
		s.pagination = Pagination{}
	}
	return nil
}

// State returns a snapshot of the session.
func (s *ChatSession) State() ChatState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return ChatState{
		ID:             s.id,
		Open:           s.open,
		Minimized:      s.minimized,
		Loading:        s.loading,
		Typing:         s.typing,
		WelcomePending: s.welcomePending,
		Error:          s.lastErr,
		Messages:       append([]domain.ChatMessage{}, s.messages...),
		Pagination:     s.pagination,
	}
}

func (s *ChatSession) busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// validate checks raw input before anything touches the history.
func (s *ChatSession) validate(text string) error {
	if strings.TrimSpace(text) == "" {
		return &domain.ValidationError{Field: "message", Message: "message cannot be empty"}
	}
	if n := utf8.RuneCountInString(text); n > s.cfg.MaxInputLength {
		return &domain.ValidationError{
			Field:   "message",
			Message: fmt.Sprintf("message is too long (%d characters, maximum is %d)", n, s.cfg.MaxInputLength),
		}
	}
	return nil
}

// SendMessage validates text, answers it and appends both sides to the history.
// It blocks through the completion call and the typing pause. A failed completion
// still appends a fallback reply and returns the error.
func (s *ChatSession) SendMessage(ctx context.Context, text string) error {
	if err := s.validate(text); err != nil {
		s.mu.Lock()
		s.lastErr = err.Error()
		s.mu.Unlock()
		return err
	}
	question := strings.TrimSpace(text)

	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		return domain.ErrSessionClosed
	}
	if s.loading {
		s.mu.Unlock()
		return domain.ErrRequestInFlight
	}
	if strings.ToLower(question) == "more" && s.pagination.Active {
		s.advancePaginationLocked(question)
		s.mu.Unlock()
		return nil
	}

	s.cancelWelcomeLocked()
	history := s.historyLocked()
	s.appendLocked(domain.RoleUser, question)
	s.lastErr = ""
	s.loading = true
	s.typing = true
	s.generation++
	gen := s.generation
	reqCtx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	start := s.now()

	reply, showProject, total, err := s.answer(reqCtx, question, history)
	if err != nil {
		return s.fail(ctx, gen, reqCtx, err, start)
	}

	if err := s.sleep(ctx, s.typingDelay(reply)); err != nil {
		return s.fail(ctx, gen, reqCtx, err, start)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation || !s.open {
		s.log(ctx).Debug("Dropping response for superseded request")
		return domain.ErrSessionChanged
	}

	msg := s.appendLocked(domain.RoleAssistant, reply)
	if showProject && total > 0 {
		msg.ShowProject = true
		msg.ProjectIndex = 0
		s.messages[len(s.messages)-1] = *msg
		s.pagination = Pagination{Active: true, Index: 0, Total: total}
	}
	s.loading = false
	s.typing = false
	s.cancel = nil

	s.log(ctx).WithFields(logger.Fields{
		logger.FieldDurationMs: s.now().Sub(start).Milliseconds(),
		logger.FieldStatus:     "ok",
	}).Info("Chat response delivered")
	return nil
}

// answer gathers context, calls the completer and post-processes the reply.
func (s *ChatSession) answer(ctx context.Context, question string, history []domain.ChatMessage) (string, bool, int, error) {
	retrieved, err := s.retrieveContext(ctx, question)
	if err != nil {
		return "", false, 0, err
	}

	prompt := s.buildPrompt(question, retrieved, history)
	raw, err := s.deps.Completer.Complete(ctx, prompt)
	if err != nil {
		return "", false, 0, err
	}
	reply := PostProcess(raw)
	if reply == "" {
		return "", false, 0, errors.New("empty completion")
	}

	showProject := wantsProjectDisplay(question)
	total := 0
	if showProject {
		if total, err = s.deps.Portfolio.ProjectCount(ctx); err != nil {
			return "", false, 0, err
		}
		if total > 1 {
			reply = withMoreHint(reply)
		}
	}
	return reply, showProject, total, nil
}

// withMoreHint appends the "more" instructions when the reply does not mention the command.
func withMoreHint(reply string) string {
	if strings.Contains(strings.ToLower(reply), "more") {
		return reply
	}
	return reply + "\n\n" + prompts.ShowItemsReply
}

// fail waits the error pause, then appends a fallback reply if the request is still current.
func (s *ChatSession) fail(ctx context.Context, gen uint64, reqCtx context.Context, cause error, start time.Time) error {
	timedOut := errors.Is(cause, context.DeadlineExceeded) || errors.Is(cause, context.Canceled) || reqCtx.Err() != nil

	reply := fmt.Sprintf(prompts.FallbackReply, s.cfg.ContactEmail)
	status := "error"
	if timedOut {
		reply = prompts.TimeoutReply
		status = "timeout"
	}

	s.log(ctx).WithError(cause).WithFields(logger.Fields{
		logger.FieldDurationMs: s.now().Sub(start).Milliseconds(),
		logger.FieldStatus:     status,
	}).Warn("Chat request failed")

	_ = s.sleep(context.WithoutCancel(ctx), s.cfg.ErrorDelay)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation || !s.open {
		return domain.ErrSessionChanged
	}
	s.appendLocked(domain.RoleAssistant, reply)
	s.loading = false
	s.typing = false
	s.lastErr = ""
	s.cancel = nil

	if timedOut {
		return fmt.Errorf("chat request timed out: %w", cause)
	}
	return fmt.Errorf("chat request failed: %w", cause)
}

// advancePaginationLocked answers "more" without calling the completer.
func (s *ChatSession) advancePaginationLocked(command string) {
	s.appendLocked(domain.RoleUser, command)
	if s.pagination.Index < s.pagination.Total-1 {
		s.pagination.Index++
		msg := s.appendLocked(domain.RoleAssistant, prompts.NextItemReply)
		msg.ShowProject = true
		msg.ProjectIndex = s.pagination.Index
		s.messages[len(s.messages)-1] = *msg
		return
	}
	s.appendLocked(domain.RoleAssistant, prompts.LastItemReply)
	s.pagination.Active = false
}

// appendLocked adds a message and drops the oldest ones beyond the cap.
// The returned pointer is a copy; write it back to persist flag changes.
func (s *ChatSession) appendLocked(role domain.Role, content string) *domain.ChatMessage {
	msg := domain.ChatMessage{
		ID:        uuid.New().String(),
		Role:      role,
		Content:   content,
		CreatedAt: s.now(),
	}
	s.messages = append(s.messages, msg)
	if limit := s.cfg.HistoryCap; limit > 0 && len(s.messages) > limit {
		trimmed := make([]domain.ChatMessage, limit)
		copy(trimmed, s.messages[len(s.messages)-limit:])
		s.messages = trimmed
	}
	return &msg
}

// historyLocked returns the last HistoryWindow messages before the new question.
func (s *ChatSession) historyLocked() []domain.ChatMessage {
	n := s.cfg.HistoryWindow
	if n <= 0 {
		return nil
	}
	start := len(s.messages) - n
	if start < 0 {
		start = 0
	}
	return append([]domain.ChatMessage{}, s.messages[start:]...)
}

func (s *ChatSession) greetingLocked() string {
	var pool []string
	switch hour := s.now().Hour(); {
	case hour < 12:
		pool = prompts.MorningGreetings
	case hour < 18:
		pool = prompts.AfternoonGreetings
	default:
		pool = prompts.EveningGreetings
	}
	return pool[s.intn(len(pool))]
}

// typingDelay paces the reply by word count: base plus words/rate seconds, capped.
func (s *ChatSession) typingDelay(reply string) time.Duration {
	words := len(strings.Fields(reply))
	d := s.cfg.TypingBase
	if s.cfg.TypingWordsPerSecond > 0 {
		d += time.Duration(float64(words) / s.cfg.TypingWordsPerSecond * float64(time.Second))
	}
	if s.cfg.TypingMax > 0 && d > s.cfg.TypingMax {
		d = s.cfg.TypingMax
	}
	return d
}

var (
	projectKeywords     = []string{"project", "portfolio", "built", "build", "app", "website", "github", "repo"}
	certificateKeywords = []string{"certificate", "certification", "certified", "course", "credential", "training", "skill"}
	generalKeywords     = []string{"yourself", "about you", "who are you", "introduce", "background", "experience", "tell me about"}
)

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// retrieveContext routes the question to project or certificate summaries.
// General questions matching neither get both.
func (s *ChatSession) retrieveContext(ctx context.Context, question string) (string, error) {
	q := strings.ToLower(question)
	wantProjects := containsAny(q, projectKeywords)
	wantCerts := containsAny(q, certificateKeywords)
	if !wantProjects && !wantCerts && containsAny(q, generalKeywords) {
		wantProjects, wantCerts = true, true
	}

	var parts []string
	if wantProjects {
		summary, err := s.deps.Portfolio.ProjectsSummary(ctx)
		if err != nil {
			return "", err
		}
		parts = append(parts, summary)
	}
	if wantCerts {
		summary, err := s.deps.Portfolio.CertificatesSummary(ctx)
		if err != nil {
			return "", err
		}
		parts = append(parts, summary)
	}
	return strings.Join(parts, "\n\n"), nil
}

func (s *ChatSession) buildPrompt(question, retrieved string, history []domain.ChatMessage) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, prompts.PersonaPreamble, s.cfg.OwnerName)
	sb.WriteString("\n\n")
	sb.WriteString(prompts.ResponseGuidelines)

	if retrieved != "" {
		sb.WriteString("\n\n")
		sb.WriteString(prompts.ContextHeader)
		sb.WriteString("\n")
		sb.WriteString(retrieved)
	}

	if len(history) > 0 {
		sb.WriteString("\n\n")
		sb.WriteString(prompts.HistoryHeader)
		for _, m := range history {
			speaker := "You"
			if m.Role == domain.RoleUser {
				speaker = "Visitor"
			}
			fmt.Fprintf(&sb, "\n%s: %s", speaker, m.Content)
		}
	}

	sb.WriteString("\n\n")
	sb.WriteString(prompts.QuestionHeader)
	sb.WriteString("\n")
	sb.WriteString(question)
	return sb.String()
}

// wantsProjectDisplay reports whether the reply should open the project viewer.
func wantsProjectDisplay(question string) bool {
	q := strings.ToLower(question)
	return (strings.Contains(q, "show") && strings.Contains(q, "project")) ||
		strings.Contains(q, "portfolio") ||
		strings.Contains(q, "work")
}

var (
	boldStars        = regexp.MustCompile(`\*\*(.+?)\*\*`)
	boldUnderscores  = regexp.MustCompile(`__(.+?)__`)
	italicStar       = regexp.MustCompile(`\*([^*\n]+)\*`)
	italicUnderscore = regexp.MustCompile(`\b_([^_\n]+)_\b`)
	headingMarks     = regexp.MustCompile(`(?m)^#{1,6}[ \t]+`)
	extraNewlines    = regexp.MustCompile(`\n{3,}`)
)

// PostProcess strips markdown emphasis and headings and collapses blank-line runs.
func PostProcess(text string) string {
	text = boldStars.ReplaceAllString(text, "$1")
	text = boldUnderscores.ReplaceAllString(text, "$1")
	text = italicStar.ReplaceAllString(text, "$1")
	text = italicUnderscore.ReplaceAllString(text, "$1")
	text = headingMarks.ReplaceAllString(text, "")
	text = extraNewlines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// Suggestions returns up to n quick suggestions, most used first.
func (s *ChatSession) Suggestions(ctx context.Context, n int) []prompts.Suggestion {
	ranked := make([]prompts.Suggestion, 0, len(prompts.Suggestions))
	seen := make(map[string]bool)

	top, err := s.deps.Popularity.TopN(ctx, len(prompts.Suggestions))
	if err != nil {
		s.log(ctx).WithError(err).Warn("Failed to rank suggestions, using default order")
	}
	for _, key := range top {
		if sg, ok := findSuggestion(key); ok && !seen[key] {
			ranked = append(ranked, sg)
			seen[key] = true
		}
	}
	for _, sg := range prompts.Suggestions {
		if !seen[sg.Key] {
			ranked = append(ranked, sg)
		}
	}

	if n >= 0 && n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}

// SendSuggestion counts the suggestion's use and sends its text.
func (s *ChatSession) SendSuggestion(ctx context.Context, key string) error {
	sg, ok := findSuggestion(key)
	if !ok {
		return &domain.ValidationError{Field: "key", Message: fmt.Sprintf("unknown suggestion %q", key)}
	}
	if err := s.deps.Popularity.Increment(ctx, key); err != nil {
		s.log(ctx).WithError(err).Warn("Failed to count suggestion use")
	}
	return s.SendMessage(ctx, sg.Text)
}

func findSuggestion(key string) (prompts.Suggestion, bool) {
	for _, sg := range prompts.Suggestions {
		if sg.Key == key {
			return sg, true
		}
	}
	return prompts.Suggestion{}, false
}
