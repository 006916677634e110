package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/bellhop-widget/internal/config"
	"github.com/zhouzirui/bellhop-widget/internal/handler"
	"github.com/zhouzirui/bellhop-widget/internal/service/ai"
	chatService "github.com/zhouzirui/bellhop-widget/internal/service/chat"
	"github.com/zhouzirui/bellhop-widget/internal/storage"
	"github.com/zhouzirui/bellhop-widget/pkg/widget"
)

func widgetConfig(t *testing.T, fragments ...string) config.WidgetConfig {
	t.Helper()
	srv := httptest.NewServer(handler.NewRouter(chatService.NewService(), ai.Scripted{Fragments: fragments}, nil))
	t.Cleanup(srv.Close)
	return config.WidgetConfig{
		Config:  widget.Config{APIKey: "bh_pk_cli", APIURL: srv.URL},
		Storage: storage.Options{Kind: storage.KindMemory},
	}
}

func TestRunChatsUntilQuit(t *testing.T) {
	cfg := widgetConfig(t, "Hi", " there")
	var out bytes.Buffer

	in := strings.NewReader("hello\n/session\n/quit\nnever sent\n")
	require.NoError(t, run(context.Background(), cfg, in, &out))

	got := out.String()
	require.Contains(t, got, "bot: "+widget.DefaultGreeting+"\n")
	require.Contains(t, got, "[chat opened]\n")
	require.Contains(t, got, "you: hello\n")
	require.Contains(t, got, "bot: Hi there\n")
	require.Contains(t, got, "(persistent=true)")
	require.NotContains(t, got, "never sent")
}

func TestRunCommands(t *testing.T) {
	cfg := widgetConfig(t, "ok")
	var out bytes.Buffer

	in := strings.NewReader("/open\n/close\n/reset Fresh start\n/bogus\n")
	require.NoError(t, run(context.Background(), cfg, in, &out))

	got := out.String()
	require.Contains(t, got, "[chat closed]\n")
	require.Contains(t, got, "[new conversation]\nbot: Fresh start\n")
	require.Contains(t, got, "unknown command /bogus\n")
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	err := run(context.Background(), config.WidgetConfig{}, strings.NewReader(""), &bytes.Buffer{})
	require.ErrorIs(t, err, widget.ErrInvalidConfig)
}

func TestTerminalViewStyled(t *testing.T) {
	var out bytes.Buffer
	v := newTerminalView(&out, true)
	v.ShowError("boom")
	require.Contains(t, out.String(), "boom")

	out.Reset()
	plain := newTerminalView(&out, false)
	plain.ShowError("boom")
	require.Equal(t, "bot: boom\n", out.String())
}
