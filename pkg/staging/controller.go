package staging

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"localmind-client/internal/constant"
	"localmind-client/internal/entity"
	"localmind-client/pkg/backend"
	"localmind-client/pkg/events"
	"localmind-client/pkg/prompt"
	"localmind-client/pkg/store"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

// Intent rejections. All are synchronous no-ops: state and history are
// untouched when one of these is returned.
var (
	ErrEmptyInput    = errors.New("input is empty")
	ErrSessionActive = errors.New("a staging session is already active")
	ErrNoSession     = errors.New("no active staging session")
	ErrBusy          = errors.New("session is busy, prompt is read-only")
	ErrNoPreview     = errors.New("no preview to commit")
	ErrEmptyPrompt   = errors.New("prompt is empty")
	ErrNotBusy       = errors.New("no operation in flight")
)

// Transport is the backend boundary the controller drives. Satisfied
// by *backend.Client; tests substitute fakes.
type Transport interface {
	BuildPrompt(ctx context.Context, req backend.BuildPromptRequest) (*backend.BuildPromptResult, error)
	InferWithPrompt(ctx context.Context, req backend.InferRequest) (*backend.InferResult, error)
}

// HistorySink receives committed turns. A commit appends its user and
// assistant messages in one call.
type HistorySink interface {
	Append(conversationID string, messages ...entity.ChatMessage)
}

// SessionStore receives session snapshots on every transition so
// read-side panels never touch the controller lock.
type SessionStore interface {
	Save(session *store.StagingSession)
	Delete(sessionID string)
}

// Config carries the per-conversation settings the controller stamps
// onto every backend request.
type Config struct {
	Model           string
	SystemPrompt    string
	SummarizerModel string
	UseMemory       bool
	DisplayName     string
	Workspace       string
	ConversationID  string
	BuildTimeout    time.Duration
}

// Controller drives one staging session end-to-end: build, preview,
// edit, rerun, commit/discard. It is single-slot: a new turn cannot
// start until the active one reaches a terminal phase.
type Controller struct {
	mu        sync.Mutex
	cfg       Config
	transport Transport
	history   HistorySink
	sessions  SessionStore
	publisher message.Publisher
	logger    *log.Logger

	session  *store.StagingSession
	opGen    uint64
	cancelOp context.CancelFunc
}

// NewController wires a controller. sessions and publisher may be nil.
func NewController(cfg Config, transport Transport, history HistorySink, sessions SessionStore, publisher message.Publisher, logger *log.Logger) *Controller {
	if cfg.BuildTimeout <= 0 {
		cfg.BuildTimeout = 60 * time.Second
	}
	if cfg.ConversationID == "" {
		cfg.ConversationID = constant.DefaultConversationId
	}
	if logger == nil {
		logger = log.New(os.Stderr, "[STAGING] ", log.LstdFlags)
	}
	return &Controller{
		cfg:       cfg,
		transport: transport,
		history:   history,
		sessions:  sessions,
		publisher: publisher,
		logger:    logger,
	}
}

// Session returns a snapshot of the active session, or nil when idle.
func (c *Controller) Session() *store.StagingSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	snapshot := *c.session
	if c.session.PreviewText != nil {
		preview := *c.session.PreviewText
		snapshot.PreviewText = &preview
	}
	return &snapshot
}

// Submit starts a new staging session for one user turn. The prompt is
// immediately populated with a local skeleton so the caller has
// something to render while the build request is in flight.
func (c *Controller) Submit(ctx context.Context, input string) error {
	if strings.TrimSpace(input) == "" {
		return ErrEmptyInput
	}

	c.mu.Lock()
	if c.session != nil && !c.session.Terminal() {
		c.mu.Unlock()
		return ErrSessionActive
	}
	sess := &store.StagingSession{
		ID:            uuid.NewString(),
		Model:         c.cfg.Model,
		Phase:         store.PhaseIdle,
		OriginalInput: input,
		PromptText:    prompt.Skeleton(input),
		CreatedAt:     time.Now(),
	}
	c.session = sess
	evt := c.transitionLocked(sess, store.PhaseBuilding)
	opCtx, gen := c.beginOpLocked(ctx)
	c.mu.Unlock()

	c.emit(evt)
	go c.runBuild(opCtx, sess.ID, gen, input)
	go c.watchBuildTimeout(sess.ID, gen)
	return nil
}

// EditPrompt replaces the prompt text. Any existing preview no longer
// corresponds to the edited prompt and is invalidated.
func (c *Controller) EditPrompt(text string) error {
	c.mu.Lock()
	evt, err := c.editLocked(text)
	c.mu.Unlock()
	if err != nil {
		return err
	}
	c.emit(evt)
	return nil
}

// EditSection replaces the content of one parsed prompt section and
// feeds the reconstructed document back through the edit path. All
// sibling sections are untouched.
func (c *Controller) EditSection(index int, content string) error {
	c.mu.Lock()
	if c.session == nil {
		c.mu.Unlock()
		return ErrNoSession
	}
	if c.session.Busy() {
		c.mu.Unlock()
		return ErrBusy
	}
	sections := prompt.Parse(c.session.PromptText)
	_, text, err := prompt.SetSectionContent(sections, index, content)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	evt, err := c.editLocked(text)
	c.mu.Unlock()
	if err != nil {
		return err
	}
	c.emit(evt)
	return nil
}

// Sections returns the parsed view of the current prompt document.
func (c *Controller) Sections() []prompt.Section {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	return prompt.Parse(c.session.PromptText)
}

// Rerun repeats inference with the current prompt text verbatim,
// without rebuilding context.
func (c *Controller) Rerun(ctx context.Context) error {
	c.mu.Lock()
	if c.session == nil {
		c.mu.Unlock()
		return ErrNoSession
	}
	sess := c.session
	if sess.Busy() {
		c.mu.Unlock()
		return ErrBusy
	}
	if strings.TrimSpace(sess.PromptText) == "" {
		c.mu.Unlock()
		return ErrEmptyPrompt
	}
	promptText := sess.PromptText
	original := sess.OriginalInput
	evt, opCtx, gen := c.startInferLocked(ctx, sess)
	c.mu.Unlock()

	c.emit(evt)
	go c.runInfer(opCtx, sess.ID, gen, promptText, original)
	return nil
}

// Commit appends the staged turn to permanent history: exactly one
// user message then one assistant message, then resets to idle.
func (c *Controller) Commit() error {
	c.mu.Lock()
	sess := c.session
	if sess == nil {
		c.mu.Unlock()
		return ErrNoSession
	}
	if sess.Phase != store.PhasePreviewed || sess.PreviewText == nil {
		c.mu.Unlock()
		return ErrNoPreview
	}

	now := time.Now()
	c.history.Append(c.cfg.ConversationID,
		entity.ChatMessage{
			Id:             uuid.New(),
			Role:           constant.ChatMessageRoleUser,
			Content:        sess.OriginalInput,
			ConversationId: c.cfg.ConversationID,
			CreatedAt:      now,
		},
		entity.ChatMessage{
			Id:             uuid.New(),
			Role:           constant.ChatMessageRoleAssistant,
			Content:        *sess.PreviewText,
			ConversationId: c.cfg.ConversationID,
			CreatedAt:      now,
		},
	)

	evt := c.transitionLocked(sess, store.PhaseCommitted)
	c.resetLocked()
	c.mu.Unlock()

	c.emit(evt, events.PhaseChanged(sess.ID, store.PhaseCommitted, store.PhaseIdle))
	return nil
}

// Discard rolls the session back with no history mutation. Any
// in-flight operation is cancelled and its late result suppressed.
func (c *Controller) Discard() error {
	c.mu.Lock()
	sess := c.session
	if sess == nil {
		c.mu.Unlock()
		return ErrNoSession
	}
	if sess.Busy() && c.cancelOp != nil {
		c.cancelOp()
	}
	sess.PromptText = ""
	sess.PreviewText = nil
	evt := c.transitionLocked(sess, store.PhaseDiscarded)
	c.resetLocked()
	c.mu.Unlock()

	c.emit(evt, events.PhaseChanged(sess.ID, store.PhaseDiscarded, store.PhaseIdle))
	return nil
}

// Cancel aborts the in-flight build or inference and returns to idle.
// Partial results are discarded; nothing reaches history.
func (c *Controller) Cancel() error {
	c.mu.Lock()
	sess := c.session
	if sess == nil || !sess.Busy() {
		c.mu.Unlock()
		return ErrNotBusy
	}
	if c.cancelOp != nil {
		c.cancelOp()
	}
	from := sess.Phase
	if c.sessions != nil {
		c.sessions.Delete(sess.ID)
	}
	c.resetLocked()
	c.mu.Unlock()

	c.logger.Printf("[STAGING] Cancelled during %s (session %s)", from, sess.ID)
	c.emit(events.PhaseChanged(sess.ID, from, store.PhaseIdle))
	return nil
}

// --- async completion paths ---

func (c *Controller) runBuild(ctx context.Context, sessionID string, gen uint64, input string) {
	result, err := c.transport.BuildPrompt(ctx, backend.BuildPromptRequest{
		Model:        c.cfg.Model,
		Message:      input,
		SystemPrompt: c.cfg.SystemPrompt,
		UseMemory:    c.cfg.UseMemory,
		DisplayName:  c.cfg.DisplayName,
		Workspace:    c.cfg.Workspace,
	})

	c.mu.Lock()
	if c.staleLocked(sessionID, gen) || c.session.Phase != store.PhaseBuilding {
		c.mu.Unlock()
		c.logger.Printf("[STAGING] Dropping stale build result (session %s)", sessionID)
		return
	}
	sess := c.session

	if err != nil {
		if errors.Is(err, context.Canceled) {
			c.mu.Unlock()
			return
		}
		// Not fatal: the partial prompt stays actionable, so the
		// session degrades to review instead of failing.
		sess.LastError = err.Error()
		sess.PromptText = annotate(sess.PromptText, fmt.Sprintf("prompt build failed: %v", err))
		sess.PreviewText = nil
		evt := c.transitionLocked(sess, store.PhaseReadyForReview)
		c.mu.Unlock()
		c.emit(evt, events.BuildDegraded(sessionID, err.Error()))
		return
	}

	// The orchestrator's output strictly overwrites the skeleton.
	sess.PromptText = result.FinalPrompt
	sess.LastError = ""
	evtReady := c.transitionLocked(sess, store.PhaseReadyForReview)

	// The first inference always follows a successful build; every
	// later run is user-triggered via Rerun.
	promptText := sess.PromptText
	original := sess.OriginalInput
	evtInfer, opCtx, opGen := c.startInferLocked(context.Background(), sess)
	c.mu.Unlock()

	c.emit(evtReady, evtInfer)
	go c.runInfer(opCtx, sessionID, opGen, promptText, original)
}

func (c *Controller) runInfer(ctx context.Context, sessionID string, gen uint64, promptText, original string) {
	result, err := c.transport.InferWithPrompt(ctx, backend.InferRequest{
		FinalPrompt:     promptText,
		Model:           c.cfg.Model,
		Message:         original,
		SummarizerModel: c.cfg.SummarizerModel,
	})

	c.mu.Lock()
	if c.staleLocked(sessionID, gen) || c.session.Phase != store.PhaseInferring {
		c.mu.Unlock()
		c.logger.Printf("[STAGING] Dropping stale inference result (session %s)", sessionID)
		return
	}
	sess := c.session

	if err != nil {
		if errors.Is(err, context.Canceled) {
			c.mu.Unlock()
			return
		}
		sess.LastError = fmt.Sprintf("inference failed: %v", err)
		sess.PreviewText = nil
		evt := c.transitionLocked(sess, store.PhaseReadyForReview)
		c.mu.Unlock()
		c.emit(evt)
		return
	}

	preview := result.Response
	sess.PreviewText = &preview
	sess.ProposedMemory = result.NewMemory
	sess.LastError = ""
	evt := c.transitionLocked(sess, store.PhasePreviewed)
	c.mu.Unlock()

	evts := []events.Event{evt, events.PreviewReady(sessionID, preview)}
	if result.NewMemory != nil {
		evts = append(evts, events.MemoryProposed(sessionID, result.NewMemory.ID, result.NewMemory.Content))
	}
	c.emit(evts...)
}

// watchBuildTimeout degrades the session to review when the build
// exceeds its soft cap. The transport call is left running; its late
// result is suppressed by the generation bump.
func (c *Controller) watchBuildTimeout(sessionID string, gen uint64) {
	timer := time.NewTimer(c.cfg.BuildTimeout)
	defer timer.Stop()
	<-timer.C

	c.mu.Lock()
	if c.staleLocked(sessionID, gen) || c.session.Phase != store.PhaseBuilding {
		c.mu.Unlock()
		return
	}
	sess := c.session
	c.opGen++
	c.cancelOp = nil
	sess.LastError = "prompt build timed out"
	sess.PromptText = annotate(sess.PromptText,
		fmt.Sprintf("prompt build timed out after %s, showing the local skeleton. Edit the prompt and rerun.", c.cfg.BuildTimeout))
	sess.PreviewText = nil
	evt := c.transitionLocked(sess, store.PhaseReadyForReview)
	c.mu.Unlock()

	c.logger.Printf("[STAGING] Build timed out (session %s)", sessionID)
	c.emit(evt, events.BuildDegraded(sessionID, "build timeout"))
}

// --- locked helpers ---

func (c *Controller) editLocked(text string) (events.Event, error) {
	if c.session == nil {
		return nil, ErrNoSession
	}
	sess := c.session
	if sess.Busy() {
		return nil, ErrBusy
	}
	sess.PromptText = text
	sess.PreviewText = nil
	sess.UpdatedAt = time.Now()
	if sess.Phase == store.PhasePreviewed {
		return c.transitionLocked(sess, store.PhaseReadyForReview), nil
	}
	if c.sessions != nil {
		c.sessions.Save(sess)
	}
	return nil, nil
}

func (c *Controller) startInferLocked(ctx context.Context, sess *store.StagingSession) (events.Event, context.Context, uint64) {
	// A preview is only valid in PREVIEWED; a rerun's old draft must
	// not outlive the transition into INFERRING.
	sess.PreviewText = nil
	evt := c.transitionLocked(sess, store.PhaseInferring)
	opCtx, gen := c.beginOpLocked(ctx)
	return evt, opCtx, gen
}

func (c *Controller) beginOpLocked(ctx context.Context) (context.Context, uint64) {
	c.opGen++
	opCtx, cancel := context.WithCancel(ctx)
	c.cancelOp = cancel
	return opCtx, c.opGen
}

func (c *Controller) transitionLocked(sess *store.StagingSession, to string) events.Event {
	from := sess.Phase
	sess.Phase = to
	sess.UpdatedAt = time.Now()
	if c.sessions != nil {
		c.sessions.Save(sess)
	}
	c.logger.Printf("[STAGING] %s -> %s (session %s)", from, to, sess.ID)
	return events.PhaseChanged(sess.ID, from, to)
}

// staleLocked reports whether a completion belongs to a superseded
// session or operation and must be dropped.
func (c *Controller) staleLocked(sessionID string, gen uint64) bool {
	return c.session == nil || c.session.ID != sessionID || c.opGen != gen
}

func (c *Controller) resetLocked() {
	c.session = nil
	c.opGen++
	c.cancelOp = nil
}

func (c *Controller) emit(evts ...events.Event) {
	for _, evt := range evts {
		if evt == nil {
			continue
		}
		if err := events.Publish(c.publisher, events.TopicStaging, evt); err != nil {
			c.logger.Printf("[STAGING] Failed to publish %s: %v", evt.EventType(), err)
		}
	}
}

func annotate(promptText, warning string) string {
	return promptText + "\n\n=== BUILD WARNING ===\n" + warning
}
