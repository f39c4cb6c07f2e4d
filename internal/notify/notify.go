// Package notify carries the transient toast messages shown to shoppers.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/utafrali/storefront/internal/storage"
)

// Level selects the toast style.
type Level string

const (
	LevelError   Level = "error"
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
)

// DefaultDuration returns how long a toast of level stays on screen.
func DefaultDuration(level Level) time.Duration {
	if level == LevelError {
		return 7 * time.Second
	}
	return 5 * time.Second
}

// Message is one toast.
type Message struct {
	Level      Level  `json:"level"`
	Text       string `json:"message"`
	DurationMS int64  `json:"duration_ms"`
}

func newMessage(level Level, text string) Message {
	return Message{Level: level, Text: text, DurationMS: DefaultDuration(level).Milliseconds()}
}

func Error(text string) Message   { return newMessage(LevelError, text) }
func Success(text string) Message { return newMessage(LevelSuccess, text) }
func Info(text string) Message    { return newMessage(LevelInfo, text) }

// Notifier shows a message to the shopper. It never reports failure.
type Notifier interface {
	Notify(ctx context.Context, msg Message)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, msg Message)

// Notify implements Notifier.
func (f NotifierFunc) Notify(ctx context.Context, msg Message) { f(ctx, msg) }

// MaxQueued bounds a session's pending toasts; the oldest are dropped first.
const MaxQueued = 20

// Queue is a per-session flash queue persisted under toasts:<session> and
// emptied by the next render.
type Queue struct {
	adapter *storage.Adapter
	session string
	logger  *slog.Logger
	mu      sync.Mutex
}

// NewQueue creates the queue for session.
func NewQueue(adapter *storage.Adapter, session string, logger *slog.Logger) *Queue {
	return &Queue{adapter: adapter, session: session, logger: logger}
}

// Notify implements Notifier. Persistence failures are logged and the
// message is dropped.
func (q *Queue) Notify(ctx context.Context, msg Message) {
	q.mu.Lock()
	defer q.mu.Unlock()

	key := storage.ToastsKey(q.session)
	pending := storage.Get[[]Message](ctx, q.adapter, key, nil)
	pending = append(pending, msg)
	if len(pending) > MaxQueued {
		pending = pending[len(pending)-MaxQueued:]
	}
	if err := q.adapter.Set(ctx, key, pending); err != nil {
		q.logger.WarnContext(ctx, "dropping toast",
			slog.String("toast_level", string(msg.Level)),
			slog.String("message", msg.Text),
		)
	}
}

// Drain returns and clears the pending messages, oldest first.
func (q *Queue) Drain(ctx context.Context) []Message {
	q.mu.Lock()
	defer q.mu.Unlock()

	msgs, _ := storage.Take[[]Message](ctx, q.adapter, storage.ToastsKey(q.session))
	return msgs
}

// Log writes messages to a structured logger. Used when no session exists.
type Log struct {
	logger *slog.Logger
}

// NewLog creates a logging notifier.
func NewLog(logger *slog.Logger) *Log { return &Log{logger: logger} }

// Notify implements Notifier.
func (l *Log) Notify(ctx context.Context, msg Message) {
	level := slog.LevelInfo
	if msg.Level == LevelError {
		level = slog.LevelWarn
	}
	l.logger.Log(ctx, level, "notification",
		slog.String("toast_level", string(msg.Level)),
		slog.String("message", msg.Text),
	)
}

// Recorder keeps every message in memory.
type Recorder struct {
	mu   sync.Mutex
	msgs []Message
}

// Notify implements Notifier.
func (r *Recorder) Notify(_ context.Context, msg Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

// Messages returns a copy of everything recorded so far.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.msgs...)
}

// Last returns the most recent message and whether there was one.
func (r *Recorder) Last() (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.msgs) == 0 {
		return Message{}, false
	}
	return r.msgs[len(r.msgs)-1], true
}
