package transcript

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wiko-cutlery/assistant-portal/internal/model/chat"
	"github.com/wiko-cutlery/assistant-portal/internal/notify"
)

var (
	// ErrStale is returned when a response arrives after a newer selection,
	// load or reset and has been discarded.
	ErrStale = errors.New("transcript: stale response discarded")
	// ErrNoActiveSession is returned by operations that need a selected session.
	ErrNoActiveSession = errors.New("transcript: no active session")
	// ErrSessionNotFound is returned when an id is not in the session list.
	ErrSessionNotFound = errors.New("transcript: session not found")
	// ErrEmptyMessage is returned for blank message text.
	ErrEmptyMessage = errors.New("transcript: message is empty")
)

// Notification texts shown to the employee.
const (
	msgSessionsFailed = "Failed to load chat sessions"
	msgCreateFailed   = "Failed to create new chat session"
	msgCreated        = "New chat session created"
	msgMessagesFailed = "Failed to load messages"
	msgSendFailed     = "Failed to send message. Please try again."
)

// Backend is the subset of the API used by the synchronizer.
type Backend interface {
	ListSessions(ctx context.Context) ([]chat.Session, error)
	CreateSession(ctx context.Context, name string) (*chat.Session, error)
	ListMessages(ctx context.Context, sessionID int64) ([]chat.Message, error)
	SendMessage(ctx context.Context, sessionID int64, text string, contextType chat.ContextType) (*chat.SendResponse, error)
}

// Option customizes a Synchronizer.
type Option func(*Synchronizer)

// WithClock overrides the time source used for optimistic ids and default
// session names.
func WithClock(now func() time.Time) Option {
	return func(s *Synchronizer) {
		s.now = now
	}
}

// Synchronizer keeps the session list and the transcript of the active
// session in step with the server.
type Synchronizer struct {
	backend  Backend
	notifier notify.Notifier
	now      func() time.Time

	mu       sync.RWMutex
	sessions []chat.Session
	active   *chat.Session
	messages []chat.Message
	// loadGen orders transcript loads; epoch changes only on Reset.
	loadGen  uint64
	epoch    uint64
	inFlight int
	lastID   int64

	wg sync.WaitGroup
}

// New creates a synchronizer. A nil notifier discards notifications.
func New(backend Backend, notifier notify.Notifier, opts ...Option) *Synchronizer {
	if notifier == nil {
		notifier = notify.Discard
	}
	s := &Synchronizer{
		backend:  backend,
		notifier: notifier,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListSessions replaces the session list with the server's. On failure the
// list is left untouched. A response that resolves after Reset returns
// ErrStale and is not reported.
func (s *Synchronizer) ListSessions(ctx context.Context) error {
	return s.listSessions(ctx, s.currentEpoch())
}

func (s *Synchronizer) listSessions(ctx context.Context, epoch uint64) error {
	sessions, err := s.backend.ListSessions(ctx)
	if err != nil {
		if s.currentEpoch() != epoch {
			return ErrStale
		}
		log.Printf("[transcript] failed to load sessions: %v", err)
		s.notifier.Notify(notify.LevelError, msgSessionsFailed)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		return ErrStale
	}
	s.sessions = append(make([]chat.Session, 0, len(sessions)), sessions...)
	return nil
}

// CreateSession creates a session, puts it first in the list and makes it
// active. An empty name becomes "Chat <local time>". A session created
// across a Reset is not added and ErrStale is returned.
func (s *Synchronizer) CreateSession(ctx context.Context, name string) (chat.Session, error) {
	if strings.TrimSpace(name) == "" {
		name = "Chat " + s.now().Format("2006-01-02 15:04:05")
	}
	epoch := s.currentEpoch()

	created, err := s.backend.CreateSession(ctx, name)
	if err != nil {
		if s.currentEpoch() != epoch {
			return chat.Session{}, ErrStale
		}
		log.Printf("[transcript] failed to create session %q: %v", name, err)
		s.notifier.Notify(notify.LevelError, msgCreateFailed)
		return chat.Session{}, err
	}
	session := *created

	s.mu.Lock()
	if epoch != s.epoch {
		s.mu.Unlock()
		log.Printf("[transcript] session %d created across a reset, discarded", session.ID)
		return chat.Session{}, ErrStale
	}
	s.sessions = append([]chat.Session{session}, s.sessions...)
	s.mu.Unlock()

	s.notifier.Notify(notify.LevelSuccess, msgCreated)

	// A failed load is already reported; the session itself exists.
	if err := s.SelectSession(ctx, session); err != nil && !errors.Is(err, ErrStale) {
		log.Printf("[transcript] created session %d but could not load it: %v", session.ID, err)
	}
	return session, nil
}

// SelectSession makes session active and loads its transcript. Selecting
// the already-active session does nothing.
func (s *Synchronizer) SelectSession(ctx context.Context, session chat.Session) error {
	s.mu.Lock()
	if s.active != nil && s.active.ID == session.ID {
		s.mu.Unlock()
		return nil
	}
	selected := session
	s.active = &selected
	s.messages = nil
	s.mu.Unlock()

	return s.LoadMessages(ctx, session.ID)
}

// SelectSessionByID selects a session from the current list.
func (s *Synchronizer) SelectSessionByID(ctx context.Context, sessionID int64) error {
	s.mu.RLock()
	var found *chat.Session
	for i := range s.sessions {
		if s.sessions[i].ID == sessionID {
			session := s.sessions[i]
			found = &session
			break
		}
	}
	s.mu.RUnlock()

	if found == nil {
		return ErrSessionNotFound
	}
	return s.SelectSession(ctx, *found)
}

// LoadMessages replaces the transcript with the server's copy. A response
// that resolves after a newer load, selection or reset returns ErrStale and
// changes nothing. Entries still awaiting a send confirmation are kept after
// the server list.
func (s *Synchronizer) LoadMessages(ctx context.Context, sessionID int64) error {
	s.mu.Lock()
	s.loadGen++
	gen := s.loadGen
	s.inFlight++
	s.mu.Unlock()
	defer s.done()

	messages, err := s.backend.ListMessages(ctx, sessionID)

	s.mu.Lock()
	if gen != s.loadGen || s.active == nil || s.active.ID != sessionID {
		s.mu.Unlock()
		return ErrStale
	}
	if err != nil {
		s.mu.Unlock()
		log.Printf("[transcript] failed to load messages for session %d: %v", sessionID, err)
		s.notifier.Notify(notify.LevelError, msgMessagesFailed)
		return err
	}

	next := make([]chat.Message, 0, len(messages)+1)
	next = append(next, messages...)
	for _, msg := range s.messages {
		if msg.Pending() {
			next = append(next, msg)
		}
	}
	s.messages = next
	s.mu.Unlock()
	return nil
}

// SendMessage appends the user's text optimistically, sends it and appends
// the assistant's reply. With no active session it creates one and returns
// (nil, nil) without sending; the caller re-invokes once the session exists.
//
// On failure the optimistic entry stays in the transcript marked failed.
// If the active session changes while the request is in flight the reply
// is returned but not written into the transcript.
func (s *Synchronizer) SendMessage(ctx context.Context, text string, contextType chat.ContextType) (*chat.Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}

	s.mu.Lock()
	if s.active == nil {
		s.mu.Unlock()
		_, err := s.CreateSession(ctx, "")
		return nil, err
	}
	sessionID := s.active.ID
	epoch := s.epoch
	now := s.now()
	pending := chat.Message{
		ID:            s.nextIDLocked(now.UnixMilli()),
		SessionID:     sessionID,
		MessageType:   chat.MessageUser,
		Content:       text,
		Timestamp:     chat.NewTimestamp(now),
		Status:        chat.StatusPending,
		CorrelationID: uuid.NewString(),
	}
	s.messages = append(s.messages, pending)
	s.inFlight++
	s.mu.Unlock()
	defer s.done()

	resp, err := s.backend.SendMessage(ctx, sessionID, text, contextType.OrDefault())
	if err != nil {
		s.mu.Lock()
		s.setStatusLocked(pending.CorrelationID, chat.StatusFailed)
		stale := epoch != s.epoch
		s.mu.Unlock()

		log.Printf("[transcript] failed to send message to session %d: %v", sessionID, err)
		if !stale {
			s.notifier.Notify(notify.LevelError, msgSendFailed)
		}
		return nil, err
	}

	s.mu.Lock()
	reply := s.replyLocked(resp, pending, sessionID)
	if s.active != nil && s.active.ID == sessionID {
		s.reconcileLocked(pending.CorrelationID, resp.UserMessage)
		if !s.containsLocked(reply.ID) {
			s.messages = append(s.messages, reply)
		}
	} else {
		log.Printf("[transcript] session %d no longer active, reply not applied", sessionID)
	}
	stale := epoch != s.epoch
	s.mu.Unlock()

	if !stale {
		s.refreshSessions(ctx, epoch)
	}
	return &reply, nil
}

// Reset clears all state. In-flight responses that arrive afterwards are
// discarded.
func (s *Synchronizer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions = nil
	s.active = nil
	s.messages = nil
	s.loadGen++
	s.epoch++
}

func (s *Synchronizer) currentEpoch() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

// Wait blocks until background session refreshes have finished.
func (s *Synchronizer) Wait() {
	s.wg.Wait()
}

// Sessions returns a copy of the session list.
func (s *Synchronizer) Sessions() []chat.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]chat.Session, len(s.sessions))
	copy(out, s.sessions)
	return out
}

// Active returns the active session.
func (s *Synchronizer) Active() (chat.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.active == nil {
		return chat.Session{}, false
	}
	return *s.active, true
}

// Messages returns a copy of the active transcript in display order.
func (s *Synchronizer) Messages() []chat.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]chat.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Loading reports whether a load or send is in flight.
func (s *Synchronizer) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inFlight > 0
}

// refreshSessions reloads the list in the background. Results that land
// after a Reset past epoch are dropped.
func (s *Synchronizer) refreshSessions(ctx context.Context, epoch uint64) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.listSessions(context.WithoutCancel(ctx), epoch); err != nil && !errors.Is(err, ErrStale) {
			log.Printf("[transcript] background session refresh failed: %v", err)
		}
	}()
}

// replyLocked builds the assistant entry. Server ids win over client ids.
func (s *Synchronizer) replyLocked(resp *chat.SendResponse, pending chat.Message, sessionID int64) chat.Message {
	reply := chat.Message{
		SessionID:   sessionID,
		MessageType: chat.MessageAssistant,
		Content:     resp.ReplyContent(),
	}
	if ai := resp.AIResponse; ai != nil && ai.ID != 0 {
		reply.ID = ai.ID
		reply.Timestamp = ai.Timestamp
	} else {
		reply.ID = s.nextIDLocked(pending.ID + 1)
	}
	if reply.Timestamp.IsZero() {
		reply.Timestamp = chat.NewTimestamp(s.now())
	}
	return reply
}

// reconcileLocked confirms the pending entry. When the server returned its
// own record the entry is replaced by it, or dropped if a reload already
// brought that record in.
func (s *Synchronizer) reconcileLocked(correlationID string, confirmed *chat.Message) {
	idx := s.indexLocked(correlationID)
	if idx < 0 {
		return
	}
	if confirmed == nil || confirmed.ID == 0 {
		s.messages[idx].Status = chat.StatusConfirmed
		return
	}
	if s.containsLocked(confirmed.ID) {
		s.messages = append(s.messages[:idx], s.messages[idx+1:]...)
		return
	}

	record := *confirmed
	record.Status = chat.StatusConfirmed
	record.CorrelationID = ""
	if record.MessageType == "" {
		record.MessageType = chat.MessageUser
	}
	if record.Content == "" {
		record.Content = s.messages[idx].Content
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = s.messages[idx].Timestamp
	}
	s.messages[idx] = record
}

func (s *Synchronizer) setStatusLocked(correlationID string, status chat.MessageStatus) {
	if idx := s.indexLocked(correlationID); idx >= 0 {
		s.messages[idx].Status = status
	}
}

func (s *Synchronizer) indexLocked(correlationID string) int {
	for i := range s.messages {
		if s.messages[i].CorrelationID == correlationID {
			return i
		}
	}
	return -1
}

func (s *Synchronizer) containsLocked(id int64) bool {
	for i := range s.messages {
		if s.messages[i].ID == id && s.messages[i].CorrelationID == "" {
			return true
		}
	}
	return false
}

// nextIDLocked returns candidate, bumped past the last client id issued.
func (s *Synchronizer) nextIDLocked(candidate int64) int64 {
	if candidate <= s.lastID {
		candidate = s.lastID + 1
	}
	s.lastID = candidate
	return candidate
}

func (s *Synchronizer) done() {
	s.mu.Lock()
	s.inFlight--
	s.mu.Unlock()
}
