package chatmodel

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/effective-security/x/values"
	"github.com/effective-security/xdb/pkg/flake"
)

// ChatContext is the context of one interactive session.
// It carries the chat ID used to correlate the logs of a session,
// and the number of user turns dispatched so far.
type ChatContext interface {
	GetChatID() string
	// StartedAt returns the time the session started
	StartedAt() time.Time
	// Turn returns the number of the current user turn
	Turn() uint64
	// NextTurn increments and returns the turn number
	NextTurn() uint64
}

type chatContext struct {
	chatID  string
	started time.Time
	turn    atomic.Uint64
}

func (c *chatContext) GetChatID() string {
	return c.chatID
}

func (c *chatContext) StartedAt() time.Time {
	return c.started
}

func (c *chatContext) Turn() uint64 {
	return c.turn.Load()
}

func (c *chatContext) NextTurn() uint64 {
	return c.turn.Add(1)
}

// NewChatContext returns ChatContext,
// a new chat ID is generated if chatID is empty.
func NewChatContext(chatID string) ChatContext {
	return &chatContext{
		chatID:  values.StringsCoalesce(chatID, NewChatID()),
		started: time.Now(),
	}
}

type contextKey int

const (
	keyContext contextKey = iota
)

// WithChatContext returns a new context with ChatContext value
func WithChatContext(ctx context.Context, chatCtx ChatContext) context.Context {
	return context.WithValue(ctx, keyContext, chatCtx)
}

// GetChatContext retrieves the ChatContext from the context
func GetChatContext(ctx context.Context) ChatContext {
	if v, ok := ctx.Value(keyContext).(ChatContext); ok {
		return v
	}
	return nil
}

// GetChatID retrieves the chat ID from the provided context.
// If the context does not contain a ChatContext, it returns an empty string.
func GetChatID(ctx context.Context) string {
	if v, ok := ctx.Value(keyContext).(ChatContext); ok {
		return v.GetChatID()
	}
	return ""
}

// NewChatID generates a new chat ID using the flake ID generator.
func NewChatID() string {
	return strconv.FormatUint(flake.DefaultIDGenerator.NextID(), 10)
}
