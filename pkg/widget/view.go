package widget

import (
	"strings"
	"sync"

	"github.com/zhouzirui/bellhop-widget/internal/model/chat"
)

// BotMessage is one growing assistant bubble. Fragments arrive one SSE data
// line at a time, so a reply that contains line breaks is appended without
// them; the same message replayed through ShowHistory keeps its line breaks.
type BotMessage interface {
	Append(fragment string)
}

// View is implemented by the host that renders the widget. The core only calls
// it; it never reads state back.
type View interface {
	ShowGreeting(text string)
	SetVisible(visible bool)
	SetSendEnabled(enabled bool)
	AppendUserMessage(text string)
	ShowTyping()
	HideTyping()
	BeginBotMessage() BotMessage
	ShowError(text string)
	// ShowHistory replaces the visible transcript with replayed messages.
	ShowHistory(messages []Message)
	// Reset clears the transcript and shows greeting.
	Reset(greeting string)
}

// Bubble is a rendered transcript entry of a TranscriptView.
type Bubble struct {
	Role  Role
	Text  string
	Error bool
}

// TranscriptView is an in-memory View for headless hosts and tests.
type TranscriptView struct {
	mu          sync.Mutex
	bubbles     []*Bubble
	visible     bool
	sendEnabled bool
	typing      bool
	historyRuns int
}

var _ View = (*TranscriptView)(nil)

func NewTranscriptView() *TranscriptView {
	return &TranscriptView{sendEnabled: true}
}

func (v *TranscriptView) ShowGreeting(text string) {
	v.push(&Bubble{Role: chat.RoleAssistant, Text: text})
}

func (v *TranscriptView) SetVisible(visible bool) {
	v.mu.Lock()
	v.visible = visible
	v.mu.Unlock()
}

func (v *TranscriptView) SetSendEnabled(enabled bool) {
	v.mu.Lock()
	v.sendEnabled = enabled
	v.mu.Unlock()
}

func (v *TranscriptView) AppendUserMessage(text string) {
	v.push(&Bubble{Role: chat.RoleUser, Text: text})
}

func (v *TranscriptView) ShowTyping() {
	v.mu.Lock()
	v.typing = true
	v.mu.Unlock()
}

func (v *TranscriptView) HideTyping() {
	v.mu.Lock()
	v.typing = false
	v.mu.Unlock()
}

type transcriptBubble struct {
	view   *TranscriptView
	bubble *Bubble
}

func (b transcriptBubble) Append(fragment string) {
	b.view.mu.Lock()
	b.bubble.Text += fragment
	b.view.mu.Unlock()
}

func (v *TranscriptView) BeginBotMessage() BotMessage {
	b := &Bubble{Role: chat.RoleAssistant}
	v.push(b)
	return transcriptBubble{view: v, bubble: b}
}

func (v *TranscriptView) ShowError(text string) {
	v.push(&Bubble{Role: chat.RoleAssistant, Text: text, Error: true})
}

func (v *TranscriptView) ShowHistory(messages []Message) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.historyRuns++
	if len(messages) == 0 {
		return
	}
	v.bubbles = v.bubbles[:0]
	for _, m := range messages {
		v.bubbles = append(v.bubbles, &Bubble{Role: m.Role, Text: m.Content})
	}
}

func (v *TranscriptView) Reset(greeting string) {
	v.mu.Lock()
	v.bubbles = []*Bubble{{Role: chat.RoleAssistant, Text: greeting}}
	v.mu.Unlock()
}

func (v *TranscriptView) push(b *Bubble) {
	v.mu.Lock()
	v.bubbles = append(v.bubbles, b)
	v.mu.Unlock()
}

// Bubbles returns a copy of the transcript.
func (v *TranscriptView) Bubbles() []Bubble {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]Bubble, len(v.bubbles))
	for i, b := range v.bubbles {
		out[i] = *b
	}
	return out
}

// Last returns the most recent bubble.
func (v *TranscriptView) Last() Bubble {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.bubbles) == 0 {
		return Bubble{}
	}
	return *v.bubbles[len(v.bubbles)-1]
}

func (v *TranscriptView) Visible() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.visible
}

func (v *TranscriptView) SendEnabled() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.sendEnabled
}

func (v *TranscriptView) Typing() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.typing
}

// HistoryReplays counts ShowHistory calls.
func (v *TranscriptView) HistoryReplays() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.historyRuns
}

// String renders the transcript one bubble per line.
func (v *TranscriptView) String() string {
	var b strings.Builder
	for _, bubble := range v.Bubbles() {
		b.WriteString(string(bubble.Role))
		b.WriteString(": ")
		b.WriteString(bubble.Text)
		b.WriteByte('\n')
	}
	return b.String()
}
