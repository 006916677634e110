package ai

import (
	"context"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/bellhop-widget/internal/model/chat"
)

// Scripted replays a fixed list of fragments for every message. An empty
// script produces a stream with no chunks.
type Scripted struct {
	Fragments []string
	Delay     time.Duration
}

var _ Responder = Scripted{}

func (s Scripted) Stream(ctx context.Context, _ []chat.Message, _ string) (*schema.StreamReader[*schema.Message], error) {
	return pipeFragments(ctx, s.Fragments, s.Delay), nil
}

// Echo answers by repeating the user message word by word. It stands in for
// the model when no Ark credentials are configured.
type Echo struct {
	Delay time.Duration
}

var _ Responder = Echo{}

func (e Echo) Stream(ctx context.Context, _ []chat.Message, userMessage string) (*schema.StreamReader[*schema.Message], error) {
	return pipeFragments(ctx, Words("You said: "+userMessage), e.Delay), nil
}

// Words splits text into fragments that concatenate back to the
// space-normalised text: every word after the first carries its leading space.
func Words(text string) []string {
	fields := strings.Fields(text)
	out := make([]string, len(fields))
	for i, f := range fields {
		if i > 0 {
			f = " " + f
		}
		out[i] = f
	}
	return out
}

func pipeFragments(ctx context.Context, fragments []string, delay time.Duration) *schema.StreamReader[*schema.Message] {
	sr, sw := schema.Pipe[*schema.Message](len(fragments) + 1)
	go func() {
		defer sw.Close()
		for i, fragment := range fragments {
			if i > 0 && delay > 0 {
				select {
				case <-ctx.Done():
					sw.Send(nil, ctx.Err())
					return
				case <-time.After(delay):
				}
			}
			if closed := sw.Send(schema.AssistantMessage(fragment, nil), nil); closed {
				return
			}
		}
	}()
	return sr
}
