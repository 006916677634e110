package main

import (
	"fmt"
	"io"
	"sync"

	"charm.land/lipgloss/v2"

	"github.com/zhouzirui/bellhop-widget/internal/model/chat"
	"github.com/zhouzirui/bellhop-widget/pkg/widget"
)

var (
	botStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	userStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#AFAFAF"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F"))
	statusStyle = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("#888888"))
)

// terminalView renders the widget as a scrolling transcript. Bot replies are
// written fragment by fragment as they arrive.
type terminalView struct {
	mu     sync.Mutex
	out    io.Writer
	styled bool
	// open is set while a bot line is being streamed.
	open bool
}

var _ widget.View = (*terminalView)(nil)

func newTerminalView(out io.Writer, styled bool) *terminalView {
	return &terminalView{out: out, styled: styled}
}

func (v *terminalView) render(style lipgloss.Style, s string) string {
	if !v.styled {
		return s
	}
	return style.Render(s)
}

func (v *terminalView) println(s string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.endLine()
	fmt.Fprintln(v.out, s)
}

func (v *terminalView) endLine() {
	if v.open {
		fmt.Fprintln(v.out)
		v.open = false
	}
}

func (v *terminalView) label(role chat.Role) string {
	if role == chat.RoleUser {
		return v.render(userStyle, "you:")
	}
	return v.render(botStyle, "bot:")
}

func (v *terminalView) ShowGreeting(text string) {
	v.println(v.label(chat.RoleAssistant) + " " + text)
}

func (v *terminalView) SetVisible(visible bool) {
	state := "closed"
	if visible {
		state = "opened"
	}
	v.println(v.render(statusStyle, "[chat "+state+"]"))
}

func (v *terminalView) SetSendEnabled(enabled bool) {
	if !enabled {
		return
	}
	v.mu.Lock()
	v.endLine()
	v.mu.Unlock()
}

func (v *terminalView) AppendUserMessage(text string) {
	v.println(v.label(chat.RoleUser) + " " + text)
}

func (v *terminalView) ShowTyping() {
	v.println(v.render(statusStyle, "..."))
}

func (v *terminalView) HideTyping() {}

type terminalBubble struct {
	view *terminalView
}

func (b terminalBubble) Append(fragment string) {
	b.view.mu.Lock()
	fmt.Fprint(b.view.out, fragment)
	b.view.mu.Unlock()
}

func (v *terminalView) BeginBotMessage() widget.BotMessage {
	v.mu.Lock()
	v.endLine()
	fmt.Fprint(v.out, v.label(chat.RoleAssistant)+" ")
	v.open = true
	v.mu.Unlock()
	return terminalBubble{view: v}
}

func (v *terminalView) ShowError(text string) {
	v.println(v.label(chat.RoleAssistant) + " " + v.render(errorStyle, text))
}

func (v *terminalView) ShowHistory(messages []widget.Message) {
	v.println(v.render(statusStyle, fmt.Sprintf("[restored %d messages]", len(messages))))
	for _, m := range messages {
		v.println(v.label(m.Role) + " " + m.Content)
	}
}

func (v *terminalView) Reset(greeting string) {
	v.println(v.render(statusStyle, "[new conversation]"))
	v.ShowGreeting(greeting)
}
