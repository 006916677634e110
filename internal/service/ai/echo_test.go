package ai

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/bellhop-widget/internal/model/chat"
)

func drain(t *testing.T, sr *schema.StreamReader[*schema.Message]) []string {
	t.Helper()
	defer sr.Close()
	var out []string
	for {
		chunk, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(t, err)
		out = append(out, chunk.Content)
	}
}

func TestWords(t *testing.T) {
	require.Equal(t, []string{"You", " said:", " hi"}, Words("You said:  hi "))
	require.Empty(t, Words("   "))
}

func TestEchoStreamsWords(t *testing.T) {
	sr, err := Echo{}.Stream(context.Background(), nil, "hello world")
	require.NoError(t, err)
	got := drain(t, sr)
	require.Equal(t, "You said: hello world", strings.Join(got, ""))
	require.Len(t, got, 4)
}

func TestScriptedKeepsFragments(t *testing.T) {
	sr, err := Scripted{Fragments: []string{"Hi", " there"}, Delay: time.Millisecond}.Stream(context.Background(), nil, "hello")
	require.NoError(t, err)
	require.Equal(t, []string{"Hi", " there"}, drain(t, sr))

	sr, err = Scripted{}.Stream(context.Background(), nil, "hello")
	require.NoError(t, err)
	require.Empty(t, drain(t, sr))
}

func TestBuildHistoryMessagesKeepsRecentTurns(t *testing.T) {
	var messages []chat.Message
	for i := 0; i < 12; i++ {
		role := chat.RoleUser
		if i%2 == 1 {
			role = chat.RoleAssistant
		}
		messages = append(messages, chat.Message{Role: role, Content: string(rune('a' + i))})
	}

	history := buildHistoryMessages(messages)
	require.Len(t, history, 10)
	require.Equal(t, "c", history[0].Content)
	require.Equal(t, schema.User, history[0].Role)
	require.Equal(t, schema.Assistant, history[9].Role)
	require.Nil(t, buildHistoryMessages(nil))
}
