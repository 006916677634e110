package chat

import "strings"

// TokenEvent is the only event name whose data is rendered.
const TokenEvent = "token"

// StreamEvent is one event/data pair observed on the response stream.
type StreamEvent struct {
	Name string
	Data string
}

// Renderable reports whether the event contributes text to the bot message.
// JSON-looking payloads are control metadata even under a token event.
func (e StreamEvent) Renderable() bool {
	return e.Name == TokenEvent && visibleData(e.Data)
}

func visibleData(data string) bool {
	trimmed := strings.TrimSpace(data)
	return trimmed != "" && !strings.HasPrefix(trimmed, "{")
}
