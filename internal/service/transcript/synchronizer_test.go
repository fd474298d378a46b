package transcript

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/wiko-cutlery/assistant-portal/internal/model/chat"
	"github.com/wiko-cutlery/assistant-portal/internal/notify"
)

type sendCall struct {
	sessionID   int64
	text        string
	contextType chat.ContextType
}

type fakeBackend struct {
	mu sync.Mutex

	sessions    []chat.Session
	sessionsErr error
	listCalls   int
	listGate    chan struct{}

	created   chat.Session
	createErr  error
	names      []string
	createGate chan struct{}

	messages  map[int64][]chat.Message
	loadErr   error
	loadCalls []int64
	// gates blocks ListMessages for a session until the channel is closed.
	gates map[int64]chan struct{}

	sendResp  *chat.SendResponse
	sendErr   error
	sendCalls []sendCall
	sendGate  chan struct{}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		messages: make(map[int64][]chat.Message),
		gates:    make(map[int64]chan struct{}),
	}
}

func (f *fakeBackend) ListSessions(_ context.Context) ([]chat.Session, error) {
	f.mu.Lock()
	f.listCalls++
	gate := f.listGate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sessionsErr != nil {
		return nil, f.sessionsErr
	}
	return append([]chat.Session(nil), f.sessions...), nil
}

func (f *fakeBackend) CreateSession(_ context.Context, name string) (*chat.Session, error) {
	f.mu.Lock()
	f.names = append(f.names, name)
	gate := f.createGate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	session := f.created
	session.SessionName = name
	return &session, nil
}

func (f *fakeBackend) ListMessages(_ context.Context, sessionID int64) ([]chat.Message, error) {
	f.mu.Lock()
	f.loadCalls = append(f.loadCalls, sessionID)
	gate := f.gates[sessionID]
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return append([]chat.Message(nil), f.messages[sessionID]...), nil
}

func (f *fakeBackend) SendMessage(_ context.Context, sessionID int64, text string, contextType chat.ContextType) (*chat.SendResponse, error) {
	f.mu.Lock()
	f.sendCalls = append(f.sendCalls, sendCall{sessionID, text, contextType})
	gate := f.sendGate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sendResp, f.sendErr
}

func (f *fakeBackend) loads() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.loadCalls...)
}

func fixedClock() func() time.Time {
	at := time.Date(2024, 3, 5, 14, 30, 0, 0, time.Local)
	return func() time.Time { return at }
}

func session(id int64, name string) chat.Session {
	return chat.Session{ID: id, SessionName: name}
}

func TestListSessionsReplacesList(t *testing.T) {
	backend := newFakeBackend()
	backend.sessions = []chat.Session{session(2, "newer"), session(1, "older")}
	syncer := New(backend, nil)

	if err := syncer.ListSessions(context.Background()); err != nil {
		t.Fatalf("ListSessions err: %v", err)
	}
	got := syncer.Sessions()
	if len(got) != 2 || got[0].ID != 2 || got[1].ID != 1 {
		t.Fatalf("server order not preserved: %+v", got)
	}
}

func TestListSessionsFailureLeavesListUnchanged(t *testing.T) {
	backend := newFakeBackend()
	backend.sessions = []chat.Session{session(1, "first")}
	rec := &notify.Recorder{}
	syncer := New(backend, rec)

	if err := syncer.ListSessions(context.Background()); err != nil {
		t.Fatalf("ListSessions err: %v", err)
	}

	backend.sessionsErr = errors.New("HTTP error! status: 500")
	if err := syncer.ListSessions(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	got := syncer.Sessions()
	if len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("list changed on failure: %+v", got)
	}
	if msgs := rec.Messages(notify.LevelError); len(msgs) != 1 || msgs[0] != "Failed to load chat sessions" {
		t.Fatalf("unexpected notifications: %v", msgs)
	}
}

func TestCreateThenSelectLoadsOnce(t *testing.T) {
	backend := newFakeBackend()
	backend.sessions = []chat.Session{session(1, "existing")}
	backend.created = session(7, "")
	rec := &notify.Recorder{}
	syncer := New(backend, rec)
	ctx := context.Background()

	if err := syncer.ListSessions(ctx); err != nil {
		t.Fatalf("ListSessions err: %v", err)
	}
	created, err := syncer.CreateSession(ctx, "Quarterly report")
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}
	if err := syncer.SelectSession(ctx, created); err != nil {
		t.Fatalf("SelectSession err: %v", err)
	}

	active, ok := syncer.Active()
	if !ok || active.ID != 7 {
		t.Fatalf("unexpected active session: %+v", active)
	}
	sessions := syncer.Sessions()
	if len(sessions) != 2 || sessions[0].ID != 7 {
		t.Fatalf("new session not prepended: %+v", sessions)
	}
	if loads := backend.loads(); len(loads) != 1 || loads[0] != 7 {
		t.Fatalf("expected exactly one load of session 7, got %v", loads)
	}
	if msgs := rec.Messages(notify.LevelSuccess); len(msgs) != 1 || msgs[0] != "New chat session created" {
		t.Fatalf("unexpected notifications: %v", msgs)
	}
}

func TestCreateSessionDefaultName(t *testing.T) {
	backend := newFakeBackend()
	backend.created = session(3, "")
	syncer := New(backend, nil, WithClock(fixedClock()))

	created, err := syncer.CreateSession(context.Background(), "  ")
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}
	if created.SessionName != "Chat 2024-03-05 14:30:00" {
		t.Fatalf("unexpected default name: %q", created.SessionName)
	}
}

func TestCreateSessionFailureLeavesStateUnchanged(t *testing.T) {
	backend := newFakeBackend()
	backend.createErr = errors.New("Not authenticated")
	rec := &notify.Recorder{}
	syncer := New(backend, rec)

	if _, err := syncer.CreateSession(context.Background(), "x"); err == nil {
		t.Fatal("expected error")
	}
	if len(syncer.Sessions()) != 0 {
		t.Fatal("session list should be unchanged")
	}
	if _, ok := syncer.Active(); ok {
		t.Fatal("no session should be active")
	}
	if msgs := rec.Messages(notify.LevelError); len(msgs) != 1 || msgs[0] != "Failed to create new chat session" {
		t.Fatalf("unexpected notifications: %v", msgs)
	}
}

func TestSendWithoutSessionCreatesOnly(t *testing.T) {
	backend := newFakeBackend()
	backend.created = session(9, "")
	syncer := New(backend, nil)

	msg, err := syncer.SendMessage(context.Background(), "hello", chat.ContextGeneral)
	if err != nil {
		t.Fatalf("SendMessage err: %v", err)
	}
	if msg != nil {
		t.Fatalf("expected no reply on the creating call, got %+v", msg)
	}
	if len(backend.sendCalls) != 0 {
		t.Fatalf("expected no send request, got %d", len(backend.sendCalls))
	}
	if active, ok := syncer.Active(); !ok || active.ID != 9 {
		t.Fatalf("expected session 9 active, got %+v", active)
	}
}

func TestSendAppendsUserAndAssistant(t *testing.T) {
	backend := newFakeBackend()
	backend.created = session(1, "")
	backend.sendResp = &chat.SendResponse{Response: "hello"}
	syncer := New(backend, nil)
	ctx := context.Background()

	if _, err := syncer.CreateSession(ctx, "chat"); err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}
	before := len(syncer.Messages())

	reply, err := syncer.SendMessage(ctx, "hi there", chat.ContextTranslation)
	if err != nil {
		t.Fatalf("SendMessage err: %v", err)
	}
	syncer.Wait()

	msgs := syncer.Messages()
	if len(msgs) != before+2 {
		t.Fatalf("expected two new entries, got %d", len(msgs)-before)
	}
	user, assistant := msgs[len(msgs)-2], msgs[len(msgs)-1]
	if user.MessageType != chat.MessageUser || user.Content != "hi there" {
		t.Fatalf("unexpected user entry: %+v", user)
	}
	if user.Pending() {
		t.Fatal("user entry should be confirmed")
	}
	if assistant.MessageType != chat.MessageAssistant || assistant.Content != "hello" {
		t.Fatalf("unexpected assistant entry: %+v", assistant)
	}
	if assistant.ID <= user.ID {
		t.Fatalf("assistant id %d should follow user id %d", assistant.ID, user.ID)
	}
	if reply == nil || reply.Content != "hello" {
		t.Fatalf("unexpected reply: %+v", reply)
	}
	if call := backend.sendCalls[0]; call.sessionID != 1 || call.contextType != chat.ContextTranslation {
		t.Fatalf("unexpected send call: %+v", call)
	}
	if backend.listCalls != 1 {
		t.Fatalf("expected one background session refresh, got %d", backend.listCalls)
	}
	if syncer.Loading() {
		t.Fatal("loading should be cleared")
	}
}

func TestSendReplyFallbacks(t *testing.T) {
	cases := []struct {
		name string
		resp chat.SendResponse
		want string
	}{
		{"message content", chat.SendResponse{Message: &chat.ReplyEnvelope{Content: "from envelope"}}, "from envelope"},
		{"ai response", chat.SendResponse{AIResponse: &chat.Message{ID: 55, Content: "from record"}}, "from record"},
		{"nothing", chat.SendResponse{}, "No response received"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			backend := newFakeBackend()
			backend.created = session(1, "")
			resp := tc.resp
			backend.sendResp = &resp
			syncer := New(backend, nil)
			ctx := context.Background()

			if _, err := syncer.CreateSession(ctx, "chat"); err != nil {
				t.Fatalf("CreateSession err: %v", err)
			}
			if _, err := syncer.SendMessage(ctx, "question", ""); err != nil {
				t.Fatalf("SendMessage err: %v", err)
			}
			syncer.Wait()

			msgs := syncer.Messages()
			if got := msgs[len(msgs)-1].Content; got != tc.want {
				t.Fatalf("content = %q, want %q", got, tc.want)
			}
			if backend.sendCalls[0].contextType != chat.ContextGeneral {
				t.Fatalf("empty context should be sent as general, got %q", backend.sendCalls[0].contextType)
			}
		})
	}
}

func TestSendReconcilesWithServerRecord(t *testing.T) {
	backend := newFakeBackend()
	backend.created = session(1, "")
	backend.sendResp = &chat.SendResponse{
		UserMessage: &chat.Message{ID: 101, MessageType: chat.MessageUser, Content: "hi"},
		AIResponse:  &chat.Message{ID: 102, MessageType: chat.MessageAssistant, Content: "hello"},
	}
	syncer := New(backend, nil)
	ctx := context.Background()

	if _, err := syncer.CreateSession(ctx, "chat"); err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}
	if _, err := syncer.SendMessage(ctx, "hi", ""); err != nil {
		t.Fatalf("SendMessage err: %v", err)
	}
	syncer.Wait()

	msgs := syncer.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected exactly two entries, got %+v", msgs)
	}
	if msgs[0].ID != 101 || msgs[0].Status != chat.StatusConfirmed || msgs[0].CorrelationID != "" {
		t.Fatalf("user entry not replaced by server record: %+v", msgs[0])
	}
	if msgs[1].ID != 102 {
		t.Fatalf("assistant should carry server id, got %d", msgs[1].ID)
	}
}

func TestSendFailureMarksEntryFailed(t *testing.T) {
	backend := newFakeBackend()
	backend.created = session(1, "")
	backend.sendErr = errors.New("HTTP error! status: 500")
	rec := &notify.Recorder{}
	syncer := New(backend, rec)
	ctx := context.Background()

	if _, err := syncer.CreateSession(ctx, "chat"); err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}
	if _, err := syncer.SendMessage(ctx, "hi", ""); err == nil {
		t.Fatal("expected error")
	}

	msgs := syncer.Messages()
	if len(msgs) != 1 {
		t.Fatalf("optimistic entry should remain, got %+v", msgs)
	}
	if msgs[0].Status != chat.StatusFailed || msgs[0].Content != "hi" {
		t.Fatalf("unexpected entry: %+v", msgs[0])
	}
	if errs := rec.Messages(notify.LevelError); len(errs) != 1 || errs[0] != "Failed to send message. Please try again." {
		t.Fatalf("unexpected notifications: %v", errs)
	}
	if syncer.Loading() {
		t.Fatal("loading should be cleared after failure")
	}
}

func TestSendRejectsBlankText(t *testing.T) {
	syncer := New(newFakeBackend(), nil)
	if _, err := syncer.SendMessage(context.Background(), "   ", ""); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
}

func TestStaleLoadIsDiscarded(t *testing.T) {
	backend := newFakeBackend()
	backend.sessions = []chat.Session{session(1, "slow"), session(2, "fast")}
	backend.messages[1] = []chat.Message{{ID: 10, MessageType: chat.MessageUser, Content: "from one"}}
	backend.messages[2] = []chat.Message{{ID: 20, MessageType: chat.MessageUser, Content: "from two"}}
	gate := make(chan struct{})
	backend.gates[1] = gate
	syncer := New(backend, nil)
	ctx := context.Background()

	if err := syncer.ListSessions(ctx); err != nil {
		t.Fatalf("ListSessions err: %v", err)
	}

	slow := make(chan error, 1)
	go func() {
		slow <- syncer.SelectSessionByID(ctx, 1)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for len(backend.loads()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("first load never started")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := syncer.SelectSessionByID(ctx, 2); err != nil {
		t.Fatalf("SelectSessionByID err: %v", err)
	}
	close(gate)

	if err := <-slow; !errors.Is(err, ErrStale) {
		t.Fatalf("expected ErrStale from slow load, got %v", err)
	}
	msgs := syncer.Messages()
	if len(msgs) != 1 || msgs[0].Content != "from two" {
		t.Fatalf("stale response overwrote transcript: %+v", msgs)
	}
}

func TestReplyNotAppliedAfterSessionSwitch(t *testing.T) {
	backend := newFakeBackend()
	backend.sessions = []chat.Session{session(1, "one"), session(2, "two")}
	backend.sendResp = &chat.SendResponse{Response: "late"}
	backend.sendGate = make(chan struct{})
	syncer := New(backend, nil)
	ctx := context.Background()

	if err := syncer.ListSessions(ctx); err != nil {
		t.Fatalf("ListSessions err: %v", err)
	}
	if err := syncer.SelectSessionByID(ctx, 1); err != nil {
		t.Fatalf("SelectSessionByID err: %v", err)
	}

	done := make(chan *chat.Message, 1)
	go func() {
		reply, _ := syncer.SendMessage(ctx, "hi", "")
		done <- reply
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		backend.mu.Lock()
		started := len(backend.sendCalls) > 0
		backend.mu.Unlock()
		if started {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("send never started")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := syncer.SelectSessionByID(ctx, 2); err != nil {
		t.Fatalf("SelectSessionByID err: %v", err)
	}
	close(backend.sendGate)
	reply := <-done
	syncer.Wait()

	if reply == nil || reply.Content != "late" {
		t.Fatalf("reply should still be returned, got %+v", reply)
	}
	if msgs := syncer.Messages(); len(msgs) != 0 {
		t.Fatalf("reply leaked into another session: %+v", msgs)
	}
}

func TestLoadKeepsPendingEntries(t *testing.T) {
	backend := newFakeBackend()
	backend.sessions = []chat.Session{session(1, "one")}
	backend.messages[1] = []chat.Message{{ID: 5, MessageType: chat.MessageAssistant, Content: "earlier"}}
	backend.sendResp = &chat.SendResponse{Response: "ok"}
	backend.sendGate = make(chan struct{})
	syncer := New(backend, nil)
	ctx := context.Background()

	if err := syncer.ListSessions(ctx); err != nil {
		t.Fatalf("ListSessions err: %v", err)
	}
	if err := syncer.SelectSessionByID(ctx, 1); err != nil {
		t.Fatalf("SelectSessionByID err: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		syncer.SendMessage(ctx, "in flight", "")
	}()

	deadline := time.Now().Add(2 * time.Second)
	for len(syncer.Messages()) != 2 {
		if time.Now().After(deadline) {
			t.Fatal("optimistic entry never appeared")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := syncer.LoadMessages(ctx, 1); err != nil {
		t.Fatalf("LoadMessages err: %v", err)
	}
	msgs := syncer.Messages()
	if len(msgs) != 2 || !msgs[1].Pending() || msgs[1].Content != "in flight" {
		t.Fatalf("pending entry lost on reload: %+v", msgs)
	}
	if !syncer.Loading() {
		t.Fatal("loading should stay set while the send is in flight")
	}

	close(backend.sendGate)
	<-done
	syncer.Wait()
	if syncer.Loading() {
		t.Fatal("loading should be cleared")
	}
}

func TestLoadFailureNotifies(t *testing.T) {
	backend := newFakeBackend()
	backend.sessions = []chat.Session{session(1, "one")}
	backend.loadErr = errors.New("Session not found")
	rec := &notify.Recorder{}
	syncer := New(backend, rec)
	ctx := context.Background()

	if err := syncer.ListSessions(ctx); err != nil {
		t.Fatalf("ListSessions err: %v", err)
	}
	if err := syncer.SelectSessionByID(ctx, 1); err == nil {
		t.Fatal("expected load error")
	}
	if errs := rec.Messages(notify.LevelError); len(errs) != 1 || errs[0] != "Failed to load messages" {
		t.Fatalf("unexpected notifications: %v", errs)
	}
}

func TestSelectUnknownSession(t *testing.T) {
	syncer := New(newFakeBackend(), nil)
	if err := syncer.SelectSessionByID(context.Background(), 42); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestResetClearsEverything(t *testing.T) {
	backend := newFakeBackend()
	backend.created = session(1, "")
	backend.sendResp = &chat.SendResponse{Response: "hello"}
	syncer := New(backend, nil)
	ctx := context.Background()

	if _, err := syncer.CreateSession(ctx, "chat"); err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}
	if _, err := syncer.SendMessage(ctx, "hi", ""); err != nil {
		t.Fatalf("SendMessage err: %v", err)
	}
	syncer.Wait()

	syncer.Reset()
	if len(syncer.Sessions()) != 0 || len(syncer.Messages()) != 0 {
		t.Fatal("expected empty state after reset")
	}
	if _, ok := syncer.Active(); ok {
		t.Fatal("expected no active session after reset")
	}
}

func TestCreateAcrossResetIsDiscarded(t *testing.T) {
	backend := newFakeBackend()
	backend.created = session(9, "")
	backend.createGate = make(chan struct{})
	rec := &notify.Recorder{}
	syncer := New(backend, rec)

	done := make(chan error, 1)
	go func() {
		_, err := syncer.CreateSession(context.Background(), "late")
		done <- err
	}()

	waitFor(t, func() bool {
		backend.mu.Lock()
		defer backend.mu.Unlock()
		return len(backend.names) == 1
	})
	syncer.Reset()
	close(backend.createGate)

	if err := <-done; !errors.Is(err, ErrStale) {
		t.Fatalf("expected ErrStale, got %v", err)
	}
	if len(syncer.Sessions()) != 0 || len(syncer.Messages()) != 0 {
		t.Fatalf("late create repopulated state: sessions=%+v", syncer.Sessions())
	}
	if _, ok := syncer.Active(); ok {
		t.Fatal("no session should be active after reset")
	}
	if loads := backend.loads(); len(loads) != 0 {
		t.Fatalf("transcript should not be loaded, got %v", loads)
	}
	if msgs := rec.Messages(notify.LevelSuccess); len(msgs) != 0 {
		t.Fatalf("unexpected notifications: %v", msgs)
	}
}

func TestSessionListFailureAfterResetIsSilent(t *testing.T) {
	backend := newFakeBackend()
	backend.sessionsErr = errors.New("Not authenticated")
	backend.listGate = make(chan struct{})
	rec := &notify.Recorder{}
	syncer := New(backend, rec)

	done := make(chan error, 1)
	go func() {
		done <- syncer.ListSessions(context.Background())
	}()

	waitFor(t, func() bool {
		backend.mu.Lock()
		defer backend.mu.Unlock()
		return backend.listCalls == 1
	})
	syncer.Reset()
	close(backend.listGate)

	if err := <-done; !errors.Is(err, ErrStale) {
		t.Fatalf("expected ErrStale, got %v", err)
	}
	if msgs := rec.Messages(notify.LevelError); len(msgs) != 0 {
		t.Fatalf("no error should be shown after reset, got %v", msgs)
	}
}

func TestSendAcrossResetSkipsRefresh(t *testing.T) {
	backend := newFakeBackend()
	backend.created = session(1, "")
	backend.sessions = []chat.Session{session(1, "chat")}
	backend.sendResp = &chat.SendResponse{Response: "hello"}
	syncer := New(backend, nil)
	ctx := context.Background()

	if _, err := syncer.CreateSession(ctx, "chat"); err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}
	backend.mu.Lock()
	backend.sendGate = make(chan struct{})
	backend.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		_, err := syncer.SendMessage(ctx, "hi", "")
		done <- err
	}()

	waitFor(t, func() bool {
		backend.mu.Lock()
		defer backend.mu.Unlock()
		return len(backend.sendCalls) == 1
	})
	syncer.Reset()
	close(backend.sendGate)

	if err := <-done; err != nil {
		t.Fatalf("SendMessage err: %v", err)
	}
	syncer.Wait()

	if len(syncer.Sessions()) != 0 || len(syncer.Messages()) != 0 {
		t.Fatalf("state repopulated after reset: sessions=%+v messages=%+v", syncer.Sessions(), syncer.Messages())
	}
	backend.mu.Lock()
	calls := backend.listCalls
	backend.mu.Unlock()
	if calls != 0 {
		t.Fatalf("session list should not be refreshed after reset, got %d calls", calls)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(time.Millisecond)
	}
}
