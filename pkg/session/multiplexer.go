// Package session keeps the client-side state of every chat conversation and
// multiplexes concurrent streamed replies into it.
//
// Each conversation has its own State in a Store, keyed by session id or by
// Unsaved for the conversation the server has not persisted yet. A reply
// streaming into one conversation never touches another, and the user can
// switch between conversations while replies are in flight.
package session

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/papercomputeco/cloudchat/pkg/chatapi"
	"github.com/papercomputeco/cloudchat/pkg/eventstream"
	"github.com/papercomputeco/cloudchat/pkg/eventstream/nop"
	"github.com/papercomputeco/cloudchat/pkg/logger"
)

// API is the remote chat service.
type API interface {
	ListSessions(ctx context.Context, token string) ([]chatapi.Session, error)
	GetSession(ctx context.Context, token, sessionID string) (*chatapi.SessionDetail, error)
	DeleteSession(ctx context.Context, token, sessionID string) error
	StreamChat(ctx context.Context, token, message string, sessionID *string) (*chatapi.Stream, error)
}

// TokenProvider supplies the bearer token for API calls. An empty token
// with a nil error means the user is not signed in.
type TokenProvider interface {
	IDToken(ctx context.Context) (string, error)
}

// Screen names a top-level view of the client.
type Screen string

const (
	ScreenLogin Screen = "login"
	ScreenChat  Screen = "chat"
)

// Navigator moves the client between screens.
type Navigator interface {
	Navigate(screen Screen)
}

type nopNavigator struct{}

func (nopNavigator) Navigate(Screen) {}

// Snapshot is a consistent copy of everything observers render.
type Snapshot struct {
	Sessions         []chatapi.Session
	SessionsLoading  bool
	CurrentSessionID string
	Messages         []chatapi.Message
	IsStreaming      bool
	Error            string
}

// Multiplexer owns the session list, the current selection and the per
// conversation state. All methods are safe for concurrent use. Network calls
// are never made while holding the lock.
type Multiplexer struct {
	api       API
	tokens    TokenProvider
	navigator Navigator
	publisher eventstream.Publisher
	logger    *slog.Logger
	now       func() time.Time

	mu       sync.Mutex
	sessions []chatapi.Session
	loading  int
	current  Key
	store    *Store
	errMsg   string

	// generation moves on sign-out, draft whenever the unsaved conversation
	// is discarded or promoted. In-flight exchanges compare against both.
	generation uint64
	draft      uint64

	subs    map[int]chan struct{}
	nextSub int
}

// Option configures a Multiplexer.
type Option func(*Multiplexer)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Multiplexer) {
		m.logger = l
	}
}

// WithNavigator sets where sign-out navigates to the login screen.
func WithNavigator(n Navigator) Option {
	return func(m *Multiplexer) {
		m.navigator = n
	}
}

// WithPublisher sets the publisher that receives settled exchanges.
func WithPublisher(p eventstream.Publisher) Option {
	return func(m *Multiplexer) {
		m.publisher = p
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Multiplexer) {
		m.now = now
	}
}

// New creates a Multiplexer with no sessions and no current conversation.
func New(api API, tokens TokenProvider, opts ...Option) *Multiplexer {
	m := &Multiplexer{
		api:       api,
		tokens:    tokens,
		navigator: nopNavigator{},
		publisher: nop.NewPublisher(),
		logger:    logger.Nop(),
		now:       time.Now,
		store:     NewStore(),
		subs:      make(map[int]chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Subscribe returns a channel that receives a value after state changes.
// Notifications coalesce: a slow reader sees at least one signal after the
// latest change, not one per change. Call the returned func to unsubscribe.
func (m *Multiplexer) Subscribe() (<-chan struct{}, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSub
	m.nextSub++
	ch := make(chan struct{}, 1)
	m.subs[id] = ch

	return ch, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if c, ok := m.subs[id]; ok {
			delete(m.subs, id)
			close(c)
		}
	}
}

// notifyLocked must be called with mu held.
func (m *Multiplexer) notifyLocked() {
	for _, ch := range m.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Sessions returns the session list as last fetched.
func (m *Multiplexer) Sessions() []chatapi.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.sessions)
}

// SessionsLoading reports whether a session list fetch is running.
func (m *Multiplexer) SessionsLoading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loading > 0
}

// CurrentSessionID returns the selected session id, or "" when the current
// conversation is unsaved.
func (m *Multiplexer) CurrentSessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, _ := m.current.ID()
	return id
}

// Messages returns the messages of the current conversation.
func (m *Multiplexer) Messages() []chatapi.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, _ := m.store.Get(m.current)
	return st.Messages
}

// IsStreaming reports whether the current conversation is receiving a reply.
func (m *Multiplexer) IsStreaming() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, _ := m.store.Get(m.current)
	return st.IsStreaming
}

// Error returns the last user-facing error, or "".
func (m *Multiplexer) Error() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errMsg
}

// Snapshot returns every observable value under a single lock.
func (m *Multiplexer) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, _ := m.store.Get(m.current)
	id, _ := m.current.ID()
	return Snapshot{
		Sessions:         slices.Clone(m.sessions),
		SessionsLoading:  m.loading > 0,
		CurrentSessionID: id,
		Messages:         st.Messages,
		IsStreaming:      st.IsStreaming,
		Error:            m.errMsg,
	}
}

// ClearError drops the user-facing error.
func (m *Multiplexer) ClearError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errMsg = ""
	m.notifyLocked()
}

// ClearCurrentSession deselects the current conversation. Cached state and
// in-flight replies are untouched.
func (m *Multiplexer) ClearCurrentSession() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = Unsaved
	m.notifyLocked()
}

// SignIn navigates to the chat screen and refreshes the session list for
// the newly signed-in user.
func (m *Multiplexer) SignIn(ctx context.Context) {
	m.navigator.Navigate(ScreenChat)
	m.LoadSessions(ctx)
}

// SignOut forgets everything belonging to the signed-out user and navigates
// to the login screen. Replies still streaming are dropped as they arrive.
func (m *Multiplexer) SignOut() {
	m.mu.Lock()
	m.sessions = nil
	m.current = Unsaved
	m.store.Reset()
	m.errMsg = ""
	m.generation++
	m.draft++
	m.notifyLocked()
	m.mu.Unlock()

	m.navigator.Navigate(ScreenLogin)
}

func (m *Multiplexer) token(ctx context.Context) (string, error) {
	if m.tokens == nil {
		return "", nil
	}
	return m.tokens.IDToken(ctx)
}

// LoadSessions fetches the session list. Failures are logged and leave the
// previous list in place. Without a token it does nothing.
func (m *Multiplexer) LoadSessions(ctx context.Context) {
	token, err := m.token(ctx)
	if err != nil {
		m.logger.Error("failed to get token", "error", err)
		return
	}
	if token == "" {
		return
	}

	m.mu.Lock()
	m.loading++
	generation := m.generation
	m.notifyLocked()
	m.mu.Unlock()

	sessions, err := m.api.ListSessions(ctx, token)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.loading--
	defer m.notifyLocked()

	if err != nil {
		m.logger.Error("failed to load sessions", "error", err)
		return
	}
	if generation != m.generation {
		return
	}
	m.sessions = sessions
}

// LoadSession fetches one conversation and makes it current. A conversation
// that is streaming a reply is made current without being fetched, so the
// partial reply is kept.
func (m *Multiplexer) LoadSession(ctx context.Context, id string) error {
	key := Existing(id)
	if key.IsUnsaved() {
		return ErrInvalidSessionID
	}

	m.mu.Lock()
	if st, ok := m.store.Get(key); ok && st.IsStreaming {
		m.current = key
		m.notifyLocked()
		m.mu.Unlock()
		return nil
	}
	generation := m.generation
	m.mu.Unlock()

	token, err := m.token(ctx)
	if err != nil {
		m.failLoad(id, err)
		return err
	}
	if token == "" {
		return nil
	}

	detail, err := m.api.GetSession(ctx, token, id)
	if err != nil {
		m.failLoad(id, err)
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if generation != m.generation {
		return nil
	}

	// A send may have started while the fetch was running.
	if st, ok := m.store.Get(key); !ok || !st.IsStreaming {
		m.store.Put(key, State{Messages: detail.Messages})
	}
	m.current = key
	m.notifyLocked()
	return nil
}

func (m *Multiplexer) failLoad(id string, err error) {
	m.logger.Error("failed to load session", "session_id", id, "error", err)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.errMsg = errLoadConversation
	m.notifyLocked()
}

// HandleNewSession starts a fresh unsaved conversation, discarding any
// previous unsaved draft.
func (m *Multiplexer) HandleNewSession() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.newSessionLocked()
	m.notifyLocked()
}

func (m *Multiplexer) newSessionLocked() {
	m.current = Unsaved
	m.store.Delete(Unsaved)
	m.draft++
	m.errMsg = ""
}

// HandleSelectSession makes id current, fetching it only when it is not
// cached yet.
func (m *Multiplexer) HandleSelectSession(ctx context.Context, id string) error {
	key := Existing(id)
	if key.IsUnsaved() {
		return ErrInvalidSessionID
	}

	m.mu.Lock()
	if m.current == key {
		m.mu.Unlock()
		return nil
	}
	m.errMsg = ""
	cached := m.store.Has(key)
	if cached {
		m.current = key
	}
	m.notifyLocked()
	m.mu.Unlock()

	if cached {
		return nil
	}
	return m.LoadSession(ctx, id)
}

// HandleDeleteSession deletes a conversation on the server and forgets it
// locally. Deleting the current conversation starts a new one.
func (m *Multiplexer) HandleDeleteSession(ctx context.Context, id string) error {
	key := Existing(id)
	if key.IsUnsaved() {
		return ErrInvalidSessionID
	}

	token, err := m.token(ctx)
	if err != nil {
		m.failDelete(id, err)
		return err
	}
	if token == "" {
		return nil
	}

	if err := m.api.DeleteSession(ctx, token, id); err != nil {
		m.failDelete(id, err)
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = slices.DeleteFunc(m.sessions, func(s chatapi.Session) bool {
		return s.SessionID == id
	})
	m.store.Delete(key)
	if m.current == key {
		m.newSessionLocked()
	}
	m.notifyLocked()
	return nil
}

func (m *Multiplexer) failDelete(id string, err error) {
	m.logger.Error("failed to delete session", "session_id", id, "error", err)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.errMsg = errDeleteConversation
	m.notifyLocked()
}

// HandleSendMessage sends text in the current conversation and streams the
// reply into it. It returns once the reply has settled. The user may switch
// conversations or send in another one meanwhile; the reply keeps flowing
// into the conversation it was sent in.
func (m *Multiplexer) HandleSendMessage(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}

	x, err := m.beginExchange(text)
	if err != nil {
		return err
	}

	log := m.logger.With("session", x.target.String())
	log.Debug("sending message", "length", len(text))

	err = m.stream(ctx, x)

	m.mu.Lock()
	x.settle(err)
	if err != nil {
		m.errMsg = err.Error()
		m.dropEmptyReplyLocked(x)
	}
	m.writeLocked(x, func(st State) State {
		st.IsStreaming = false
		return st
	})
	m.notifyLocked()
	m.mu.Unlock()

	if err != nil {
		log.Error("chat exchange failed", "error", err)
	} else {
		log.Debug("chat exchange settled", "outcome", x.outcome, "session_id", x.active.String())
		if x.needsRefresh() {
			m.LoadSessions(ctx)
		}
	}

	if perr := m.publisher.PublishExchange(context.WithoutCancel(ctx), x.event(m.now())); perr != nil {
		log.Warn("failed to publish exchange event", "error", perr)
	}

	return err
}

// beginExchange records the user message and an empty assistant placeholder
// under the current key and marks it streaming.
func (m *Multiplexer) beginExchange(text string) (*exchange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	target := m.current
	if st, ok := m.store.Get(target); ok && st.IsStreaming {
		return nil, ErrSessionBusy
	}

	x := newExchange(target, text, m.generation, m.draft, m.now())
	m.errMsg = ""
	m.store.WithEntry(target, func(st State) State {
		st.Messages = append(st.Messages,
			chatapi.Message{Role: chatapi.RoleUser, Content: text},
			chatapi.Message{Role: chatapi.RoleAssistant, Content: ""},
		)
		st.IsStreaming = true
		return st
	})
	m.notifyLocked()
	return x, nil
}

func (m *Multiplexer) stream(ctx context.Context, x *exchange) error {
	token, err := m.token(ctx)
	if err != nil {
		return err
	}
	if token == "" {
		return ErrNotAuthenticated
	}

	s, err := m.api.StreamChat(ctx, token, x.text, x.target.idPtr())
	if err != nil {
		return err
	}
	defer s.Close()

	for {
		ev, err := s.Next()
		if err != nil {
			return err
		}
		if ev == nil {
			return nil
		}

		m.mu.Lock()
		m.applyLocked(x, ev)
		m.notifyLocked()
		m.mu.Unlock()

		if x.phase == phaseSettled {
			return nil
		}
	}
}

// applyLocked folds one stream event into the exchange's conversation.
func (m *Multiplexer) applyLocked(x *exchange, ev *chatapi.Event) {
	if !x.advance(ev.Type) {
		m.logger.Debug("ignoring chat event", "type", ev.Type, "phase", x.phase)
		return
	}

	switch ev.Type {
	case chatapi.EventSession:
		m.rebindLocked(x, ev.SessionID)

	case chatapi.EventContent:
		if ev.Content == "" {
			return
		}
		x.reply.WriteString(ev.Content)
		m.setReplyLocked(x, x.reply.String())

	case chatapi.EventError, chatapi.EventBlocked:
		msg := ev.Message
		if msg == "" {
			msg = fallbackReply
		}
		x.reply.Reset()
		x.reply.WriteString(msg)
		m.setReplyLocked(x, msg)

	case chatapi.EventDone:
	}
}

// rebindLocked handles a session assignment. When the server's id differs
// from the target, the target's state moves to the new key and later events
// are written there. The current selection follows only if the user is still
// looking at the target.
func (m *Multiplexer) rebindLocked(x *exchange, id string) {
	key := Existing(id)
	if key.IsUnsaved() || key == x.target || x.rebound {
		return
	}
	x.rebound = true

	moved := false
	if m.ownsLocked(x, x.target) {
		moved = m.store.Migrate(x.target, key)
	}
	if moved && x.target.IsUnsaved() {
		m.draft++
	}
	if moved && m.current == x.target {
		m.current = key
	}
	x.active = key

	m.logger.Debug("session assigned", "from", x.target.String(), "to", id, "moved", moved)
}

// ownsLocked reports whether writes for x may still land on key: the user
// has not signed out since, and an unsaved draft is still the one x began in.
func (m *Multiplexer) ownsLocked(x *exchange, key Key) bool {
	if x.generation != m.generation {
		return false
	}
	if key.IsUnsaved() && x.draft != m.draft {
		return false
	}
	return true
}

func (m *Multiplexer) writeLocked(x *exchange, fn func(State) State) {
	if !m.ownsLocked(x, x.active) {
		return
	}
	m.store.Update(x.active, fn)
}

// setReplyLocked overwrites the trailing assistant message.
func (m *Multiplexer) setReplyLocked(x *exchange, content string) {
	m.writeLocked(x, func(st State) State {
		if st.lastAssistant() {
			st.Messages[len(st.Messages)-1].Content = content
		}
		return st
	})
}

func (m *Multiplexer) dropEmptyReplyLocked(x *exchange) {
	m.writeLocked(x, func(st State) State {
		if st.lastAssistant() && st.Messages[len(st.Messages)-1].Content == "" {
			st.Messages = st.Messages[:len(st.Messages)-1]
		}
		return st
	})
}

// IsNotAuthenticated reports whether err came from sending while signed out.
func IsNotAuthenticated(err error) bool {
	return errors.Is(err, ErrNotAuthenticated)
}
