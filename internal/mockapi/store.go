package mockapi

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wiko-cutlery/assistant-portal/internal/model/auth"
	"github.com/wiko-cutlery/assistant-portal/internal/model/chat"
	"github.com/wiko-cutlery/assistant-portal/internal/model/tools"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrSessionNotFound    = errors.New("session not found")
)

// documentTTL matches the backend's retention window for uploads.
const documentTTL = 30 * 24 * time.Hour

type sessionRecord struct {
	chat.Session
	employeeID int64
}

type documentRecord struct {
	tools.Document
	employeeID int64
}

// Store keeps all stub backend state in memory.
type Store struct {
	now func() time.Time

	mu            sync.RWMutex
	employees     map[string]Employee
	logins        map[string]int64
	sessions      map[int64]*sessionRecord
	messages      map[int64][]chat.Message
	documents     []documentRecord
	nextSessionID int64
	nextMessageID int64
	nextDocID     int64
}

// NewStore bootstraps a store with the given employees.
func NewStore(employees []Employee) *Store {
	byName := make(map[string]Employee, len(employees))
	for _, e := range employees {
		byName[e.Username] = e
	}
	return &Store{
		now:       func() time.Time { return time.Now().UTC() },
		employees: byName,
		logins:    make(map[string]int64),
		sessions:  make(map[int64]*sessionRecord),
		messages:  make(map[int64][]chat.Message),
	}
}

// Authenticate checks credentials and opens a login, returning its token.
func (s *Store) Authenticate(_ context.Context, username, password string) (auth.User, string, error) {
	s.mu.RLock()
	employee, ok := s.employees[strings.TrimSpace(username)]
	s.mu.RUnlock()

	if !ok || !employee.Active || !employee.CheckPassword(password) {
		return auth.User{}, "", ErrInvalidCredentials
	}

	token := uuid.NewString()
	s.mu.Lock()
	s.logins[token] = employee.ID
	s.mu.Unlock()
	return employee.User, token, nil
}

// Lookup resolves a login token to the employee it belongs to.
func (s *Store) Lookup(_ context.Context, token string) (auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.logins[token]
	if !ok {
		return auth.User{}, ErrNotAuthenticated
	}
	for _, e := range s.employees {
		if e.ID == id && e.Active {
			return e.User, nil
		}
	}
	return auth.User{}, ErrNotAuthenticated
}

// EndLogin forgets a token. Unknown tokens are ignored.
func (s *Store) EndLogin(_ context.Context, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.logins, token)
}

// EmployeeCount returns the number of seeded accounts.
func (s *Store) EmployeeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.employees)
}

// ListSessions returns the employee's sessions, most recently updated first.
func (s *Store) ListSessions(_ context.Context, employeeID int64) []chat.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]chat.Session, 0)
	for _, record := range s.sessions {
		if record.employeeID == employeeID {
			out = append(out, record.Session)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt.Time) {
			return out[i].ID > out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt.Time)
	})
	return out
}

// CreateSession provisions a session owned by employeeID.
func (s *Store) CreateSession(_ context.Context, employeeID int64, name string) chat.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := chat.NewTimestamp(s.now())
	if name == "" {
		name = "Chat " + now.Format("2006-01-02 15:04")
	}
	s.nextSessionID++
	record := &sessionRecord{
		Session: chat.Session{
			ID:          s.nextSessionID,
			SessionName: name,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		employeeID: employeeID,
	}
	s.sessions[record.ID] = record
	s.messages[record.ID] = make([]chat.Message, 0, 16)
	return record.Session
}

// Messages returns a session's transcript in timestamp order.
func (s *Store) Messages(_ context.Context, employeeID, sessionID int64) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.ownedLocked(employeeID, sessionID); err != nil {
		return nil, err
	}
	history := s.messages[sessionID]
	out := make([]chat.Message, len(history))
	copy(out, history)
	return out, nil
}

// History returns up to limit recent messages, oldest first.
func (s *Store) History(ctx context.Context, employeeID, sessionID int64, limit int) ([]chat.Message, error) {
	history, err := s.Messages(ctx, employeeID, sessionID)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}
	return history, nil
}

// AppendExchange stores a user message and the assistant reply and bumps
// the session's activity time.
func (s *Store) AppendExchange(_ context.Context, employeeID, sessionID int64, userText, replyText string) (chat.Message, chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.ownedLocked(employeeID, sessionID)
	if err != nil {
		return chat.Message{}, chat.Message{}, err
	}

	now := chat.NewTimestamp(s.now())
	s.nextMessageID++
	user := chat.Message{
		ID:          s.nextMessageID,
		SessionID:   sessionID,
		MessageType: chat.MessageUser,
		Content:     userText,
		Timestamp:   now,
	}
	s.nextMessageID++
	reply := chat.Message{
		ID:          s.nextMessageID,
		SessionID:   sessionID,
		MessageType: chat.MessageAssistant,
		Content:     replyText,
		Timestamp:   now,
	}
	s.messages[sessionID] = append(s.messages[sessionID], user, reply)
	record.UpdatedAt = now
	return user, reply, nil
}

// SaveDocument records an upload.
func (s *Store) SaveDocument(_ context.Context, employeeID int64, doc tools.Document) tools.Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.nextDocID++
	doc.ID = s.nextDocID
	doc.UploadedAt = chat.NewTimestamp(now)
	doc.ExpiresAt = chat.NewTimestamp(now.Add(documentTTL))
	s.documents = append(s.documents, documentRecord{Document: doc, employeeID: employeeID})
	return doc
}

// ListDocuments returns unexpired uploads, newest first.
func (s *Store) ListDocuments(_ context.Context, employeeID int64) []tools.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	out := make([]tools.Document, 0)
	for i := len(s.documents) - 1; i >= 0; i-- {
		record := s.documents[i]
		if record.employeeID == employeeID && record.ExpiresAt.After(now) {
			out = append(out, record.Document)
		}
	}
	return out
}

func (s *Store) ownedLocked(employeeID, sessionID int64) (*sessionRecord, error) {
	record, ok := s.sessions[sessionID]
	if !ok || record.employeeID != employeeID {
		return nil, ErrSessionNotFound
	}
	return record, nil
}
