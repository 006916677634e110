package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSessionRecordExpired(t *testing.T) {
	now := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	rec := NewSessionRecord("session_a", now)

	require.False(t, rec.Expired(now.Add(SessionTTL)))
	require.True(t, rec.Expired(now.Add(SessionTTL+time.Millisecond)))
}

func TestSessionRecordTouchIsMonotonic(t *testing.T) {
	now := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	rec := NewSessionRecord("session_a", now)

	rec.Touch(now.Add(time.Minute))
	require.Equal(t, now.Add(time.Minute), rec.LastActivity)

	rec.Touch(now)
	require.Equal(t, now.Add(time.Minute), rec.LastActivity)
	require.True(t, rec.Valid())
}

func TestStreamEventRenderable(t *testing.T) {
	require.True(t, StreamEvent{Name: TokenEvent, Data: "hi"}.Renderable())
	require.False(t, StreamEvent{Name: "meta", Data: "hi"}.Renderable())
	require.False(t, StreamEvent{Name: TokenEvent, Data: `{"x":1}`}.Renderable())
	require.False(t, StreamEvent{Name: TokenEvent, Data: "   "}.Renderable())
}
