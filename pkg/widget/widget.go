// Package widget is the embeddable chat session: it keeps a TTL-bounded
// session id, replays history when a stored session is reopened, and streams
// bot replies fragment by fragment into a host-provided View.
package widget

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/zhouzirui/bellhop-widget/internal/client"
	"github.com/zhouzirui/bellhop-widget/internal/model/chat"
	"github.com/zhouzirui/bellhop-widget/internal/sessionstore"
	"github.com/zhouzirui/bellhop-widget/internal/sse"
	"github.com/zhouzirui/bellhop-widget/internal/storage"
)

type (
	Message   = chat.TranscriptMessage
	Role      = chat.Role
	Store     = storage.Store
	Transport = client.Transport
	Request   = client.Request
	Response  = client.Response
)

const (
	// FallbackText is shown when a reply stream carried no renderable text.
	FallbackText = sse.FallbackText
	// ConnectionErrorText is shown when the exchange fails.
	ConnectionErrorText = "Sorry, I'm having connection issues. Please try again."
)

// ErrBusy is returned by Reset while an exchange is in flight.
var ErrBusy = errors.New("exchange in flight")

// State of the conversation.
type State int

const (
	StateIdle State = iota
	StateSending
	StateStreaming
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateStreaming:
		return "streaming"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ReplyStatus classifies the outcome of Send.
type ReplyStatus int

const (
	// ReplyIgnored: the message was blank.
	ReplyIgnored ReplyStatus = iota
	// ReplyBusy: another exchange was still in flight.
	ReplyBusy
	ReplyOK
	// ReplyFallback: the stream completed without renderable text.
	ReplyFallback
	// ReplyFailed: transport failure or non-2xx; the error bubble was shown.
	ReplyFailed
)

// Reply describes one Send. Err carries the cause of ReplyFailed for
// inspection; it has already been rendered as an error bubble.
type Reply struct {
	Status    ReplyStatus
	SessionID string
	Text      string
	Err       error
}

// Option customises Init.
type Option func(*options)

type options struct {
	store     storage.Store
	transport client.Transport
	clock     func() time.Time
	newID     func() string
}

// WithStore sets the durable store. The default is process memory.
func WithStore(s Store) Option {
	return func(o *options) { o.store = s }
}

// WithTransport replaces the HTTP transport.
func WithTransport(t Transport) Option {
	return func(o *options) { o.transport = t }
}

// WithClock replaces time.Now for session expiry.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.clock = now }
}

// WithIDGenerator replaces the session id generator.
func WithIDGenerator(gen func() string) Option {
	return func(o *options) { o.newID = gen }
}

// Widget is the handle returned by Init. Callers keep it and pass it around;
// there is no process-wide instance.
type Widget struct {
	cfg        Config
	view       View
	api        *client.API
	sessions   *sessionstore.Store
	key        string
	persistent bool
	inflight   *semaphore.Weighted

	mu        sync.Mutex
	state     State
	sessionID string
	visible   bool
	restored  bool
	replayed  bool
}

// Init validates cfg and builds a ready widget. Invalid configuration is
// reported through the log and the returned error; no widget is created.
func Init(ctx context.Context, cfg Config, view View, opts ...Option) (*Widget, error) {
	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("widget not initialized")
		return nil, err
	}
	if view == nil {
		err := errors.Wrap(ErrInvalidConfig, "view is required")
		log.Error().Err(err).Msg("widget not initialized")
		return nil, err
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.store == nil {
		o.store = storage.NewMemoryStore()
	}
	if o.transport == nil {
		o.transport = client.NewHTTPTransport(cfg.RequestTimeout)
	}

	api, err := client.NewAPI(cfg.APIURL, client.Credentials{
		APIKey:     cfg.APIKey,
		CustomerID: cfg.CustomerID,
	}, o.transport)
	if err != nil {
		err = errors.Wrap(ErrInvalidConfig, err.Error())
		log.Error().Err(err).Msg("widget not initialized")
		return nil, err
	}

	var storeOpts []sessionstore.Option
	if o.clock != nil {
		storeOpts = append(storeOpts, sessionstore.WithClock(o.clock))
	}
	if o.newID != nil {
		storeOpts = append(storeOpts, sessionstore.WithIDGenerator(o.newID))
	}
	sessions := sessionstore.New(ctx, o.store, storeOpts...)

	w := &Widget{
		cfg:        cfg,
		view:       view,
		api:        api,
		sessions:   sessions,
		key:        sessionstore.KeyFor(cfg.secret()),
		persistent: sessions.Available(),
		inflight:   semaphore.NewWeighted(1),
	}

	if w.persistent {
		_, w.restored = sessions.Active(ctx, w.key)
		w.sessionID = sessions.GetOrCreate(ctx, w.key)
	} else {
		w.sessionID = sessions.NewID()
	}

	view.ShowGreeting(cfg.greeting())
	log.Info().
		Str("session_id", w.sessionID).
		Bool("persistent", w.persistent).
		Bool("restored", w.restored).
		Str("api_url", api.BaseURL()).
		Msg("widget initialized")

	if cfg.Inline != "" {
		w.Open(ctx)
	}
	return w, nil
}

// SessionID returns the id used for the next exchange.
func (w *Widget) SessionID() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.sessionID
}

// State returns the current conversation state.
func (w *Widget) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Visible reports whether the widget is shown.
func (w *Widget) Visible() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.visible
}

// Persistent reports whether sessions survive restarts.
func (w *Widget) Persistent() bool {
	return w.persistent
}

func (w *Widget) setState(s State) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}

// Open shows the widget. The first time it becomes visible with a restored,
// still-live session, the stored transcript is replayed.
func (w *Widget) Open(ctx context.Context) {
	w.mu.Lock()
	if w.visible {
		w.mu.Unlock()
		return
	}
	w.visible = true
	replay := w.persistent && w.restored && !w.replayed
	w.mu.Unlock()

	w.view.SetVisible(true)
	if !replay {
		return
	}
	if _, ok := w.sessions.Active(ctx, w.key); !ok {
		return
	}
	w.mu.Lock()
	w.replayed = true
	w.mu.Unlock()
	w.replayHistory(ctx)
}

// Close hides the widget. Inline widgets stay visible.
func (w *Widget) Close() {
	if w.cfg.Inline != "" {
		return
	}
	w.mu.Lock()
	if !w.visible {
		w.mu.Unlock()
		return
	}
	w.visible = false
	w.mu.Unlock()
	w.view.SetVisible(false)
}

// Toggle flips visibility.
func (w *Widget) Toggle(ctx context.Context) {
	if w.Visible() {
		w.Close()
		return
	}
	w.Open(ctx)
}

func (w *Widget) replayHistory(ctx context.Context) {
	sessionID := w.SessionID()
	messages, err := w.api.History(ctx, sessionID)
	switch {
	case errors.Is(err, client.ErrSessionNotFound):
		// The backend dropped the session; start over locally.
		w.sessions.Clear(ctx, w.key)
		next := w.sessions.GetOrCreate(ctx, w.key)
		w.mu.Lock()
		w.sessionID = next
		w.mu.Unlock()
		log.Info().Str("old_session_id", sessionID).Str("session_id", next).Msg("backend session not found, regenerated")
		return
	case err != nil:
		log.Warn().Err(err).Str("session_id", sessionID).Msg("history replay failed")
		return
	}
	if len(messages) > 0 {
		w.view.ShowHistory(messages)
	}
}

// refreshSession bumps the stored record before a send, regenerating the id
// when the record expired.
func (w *Widget) refreshSession(ctx context.Context) string {
	if !w.persistent {
		return w.SessionID()
	}
	id := w.sessions.GetOrCreate(ctx, w.key)
	w.mu.Lock()
	if id != w.sessionID {
		log.Info().Str("old_session_id", w.sessionID).Str("session_id", id).Msg("session rotated")
		w.sessionID = id
	}
	w.mu.Unlock()
	return id
}

// Send delivers one user message and streams the reply into the view. Blank
// text is ignored and a Send issued while another is in flight is rejected;
// neither touches the view. Failures are rendered, never returned as errors.
func (w *Widget) Send(ctx context.Context, text string) Reply {
	text = strings.TrimSpace(text)
	if text == "" {
		return Reply{Status: ReplyIgnored, SessionID: w.SessionID()}
	}
	if !w.inflight.TryAcquire(1) {
		return Reply{Status: ReplyBusy, SessionID: w.SessionID()}
	}
	defer w.inflight.Release(1)

	w.view.SetSendEnabled(false)
	defer func() {
		w.setState(StateIdle)
		w.view.SetSendEnabled(true)
	}()

	w.setState(StateSending)
	sessionID := w.refreshSession(ctx)
	w.view.AppendUserMessage(text)
	w.view.ShowTyping()

	body, err := w.api.StreamChat(ctx, sessionID, text)
	if err != nil {
		w.view.HideTyping()
		return w.fail(sessionID, "", err)
	}
	defer body.Close()

	w.view.HideTyping()
	w.setState(StateStreaming)
	bubble := w.view.BeginBotMessage()

	reader := sse.NewReader(body, sse.WithFallback(FallbackText))
	var reply strings.Builder
	for {
		fragment, err := reader.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return w.fail(sessionID, reply.String(), errors.Wrap(err, "read reply stream"))
		}
		reply.WriteString(fragment)
		bubble.Append(fragment)
		log.Debug().Str("session_id", sessionID).Int("bytes", len(fragment)).Msg("fragment")
	}

	if w.persistent {
		w.sessions.Touch(ctx, w.key)
	}

	status := ReplyOK
	if reader.FellBack() {
		status = ReplyFallback
		log.Warn().Str("session_id", sessionID).Msg("reply stream carried no text")
	}
	return Reply{Status: status, SessionID: sessionID, Text: reply.String()}
}

func (w *Widget) fail(sessionID, partial string, err error) Reply {
	w.setState(StateFailed)
	w.view.ShowError(ConnectionErrorText)
	log.Warn().Err(err).Str("session_id", sessionID).Msg("exchange failed")
	return Reply{Status: ReplyFailed, SessionID: sessionID, Text: partial, Err: err}
}

// Reset starts a new conversation: the stored record is replaced and the view
// is cleared down to greeting (the configured greeting when empty).
func (w *Widget) Reset(ctx context.Context, greeting string) error {
	if !w.inflight.TryAcquire(1) {
		return ErrBusy
	}
	defer w.inflight.Release(1)

	var next string
	if w.persistent {
		w.sessions.Clear(ctx, w.key)
		next = w.sessions.GetOrCreate(ctx, w.key)
	} else {
		next = w.sessions.NewID()
	}

	w.mu.Lock()
	w.sessionID = next
	w.restored = false
	w.mu.Unlock()

	if greeting == "" {
		greeting = w.cfg.greeting()
	}
	w.view.Reset(greeting)
	log.Info().Str("session_id", next).Msg("conversation reset")
	return nil
}
