package chat_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	model "github.com/zhouzirui/bellhop-widget/internal/model/chat"
	chat "github.com/zhouzirui/bellhop-widget/internal/service/chat"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func TestServiceEnsureSessionCreatesOnFirstUse(t *testing.T) {
	svc := chat.NewService()
	ctx := context.Background()

	_, err := svc.GetSession(ctx, "session_a")
	require.ErrorIs(t, err, chat.ErrSessionNotFound)

	conv, err := svc.EnsureSession(ctx, "session_a", "cust_1")
	require.NoError(t, err)
	require.Equal(t, "session_a", conv.ID)
	require.Equal(t, "cust_1", conv.CustomerID)

	got, err := svc.GetSession(ctx, "session_a")
	require.NoError(t, err)
	require.Equal(t, conv.CreatedAt, got.CreatedAt)

	_, err = svc.EnsureSession(ctx, "", "")
	require.ErrorIs(t, err, chat.ErrSessionIDRequired)
}

func TestServiceTranscriptRoundTrip(t *testing.T) {
	svc := chat.NewService()
	ctx := context.Background()

	err := svc.SaveMessage(ctx, model.Message{SessionID: "missing", Role: model.RoleUser, Content: "hi"})
	require.ErrorIs(t, err, chat.ErrSessionNotFound)

	_, err = svc.EnsureSession(ctx, "session_a", "")
	require.NoError(t, err)
	require.NoError(t, svc.SaveMessage(ctx, model.Message{SessionID: "session_a", Role: model.RoleUser, Content: "hello"}))
	require.NoError(t, svc.SaveMessage(ctx, model.Message{SessionID: "session_a", Role: model.RoleAssistant, Content: "Hi there"}))

	messages, err := svc.LoadTranscript(ctx, "session_a")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	require.Equal(t, "hello", messages[0].Content)
	require.Equal(t, model.RoleAssistant, messages[1].Role)
	require.NotEmpty(t, messages[0].ID)

	_, err = svc.LoadTranscript(ctx, "session_b")
	require.ErrorIs(t, err, chat.ErrSessionNotFound)
}

func TestServiceExpiry(t *testing.T) {
	c := &clock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	svc := chat.NewService(chat.WithTTL(time.Minute), chat.WithClock(c.Now))
	ctx := context.Background()

	_, err := svc.EnsureSession(ctx, "session_a", "")
	require.NoError(t, err)
	require.NoError(t, svc.SaveMessage(ctx, model.Message{SessionID: "session_a", Role: model.RoleUser, Content: "hello"}))

	c.now = c.now.Add(2 * time.Minute)
	_, err = svc.LoadTranscript(ctx, "session_a")
	require.ErrorIs(t, err, chat.ErrSessionNotFound)

	// Reusing an expired id starts an empty conversation.
	_, err = svc.EnsureSession(ctx, "session_a", "")
	require.NoError(t, err)
	messages, err := svc.LoadTranscript(ctx, "session_a")
	require.NoError(t, err)
	require.Empty(t, messages)

	_, err = svc.EnsureSession(ctx, "session_b", "")
	require.NoError(t, err)
	c.now = c.now.Add(2 * time.Minute)
	require.Equal(t, 2, svc.Prune(ctx))
}

func TestServiceDeleteSession(t *testing.T) {
	svc := chat.NewService()
	ctx := context.Background()

	_, err := svc.EnsureSession(ctx, "session_a", "")
	require.NoError(t, err)
	svc.DeleteSession(ctx, "session_a")

	_, err = svc.GetSession(ctx, "session_a")
	require.ErrorIs(t, err, chat.ErrSessionNotFound)
}
