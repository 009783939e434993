package console

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/GriffinCanCode/confirmscout/internal/activity"
	"github.com/GriffinCanCode/confirmscout/internal/monitor"
	"github.com/GriffinCanCode/confirmscout/internal/server"
	"github.com/GriffinCanCode/confirmscout/internal/stability"
	"github.com/GriffinCanCode/confirmscout/internal/target"
)

type mockConn struct {
	mu   sync.Mutex
	sent []string
	next []any
	err  error
}

func (c *mockConn) Send(ctx context.Context, cmd string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, cmd)
	return c.err
}

func (c *mockConn) Next(ctx context.Context) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.next) == 0 {
		return nil, errors.New("closed")
	}
	msg := c.next[0]
	c.next = c.next[1:]
	return msg, nil
}

func (c *mockConn) Close() error { return nil }

func (c *mockConn) lastSent() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.sent) == 0 {
		return ""
	}
	return c.sent[len(c.sent)-1]
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	got, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return got, cmd
}

func TestKeysSendCommands(t *testing.T) {
	tests := []struct {
		name       string
		key        tea.KeyMsg
		monitoring bool
		want       string
	}{
		{"enter clicks", tea.KeyMsg{Type: tea.KeyEnter}, true, server.CmdClick},
		{"s scrolls", runes("s"), true, server.CmdScroll},
		{"esc cancels", tea.KeyMsg{Type: tea.KeyEsc}, true, server.CmdCancel},
		{"m starts", runes("m"), false, server.CmdStart},
		{"m stops", runes("m"), true, server.CmdStop},
		{"r refreshes", runes("r"), false, server.CmdStatus},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := &mockConn{}
			m := NewModel(context.Background(), conn)
			m.status.Monitoring = tt.monitoring

			_, cmd := update(t, m, tt.key)
			if cmd == nil {
				t.Fatal("expected a command")
			}
			res, ok := cmd().(sentMsg)
			if !ok {
				t.Fatalf("cmd() = %T, want sentMsg", res)
			}
			if got := conn.lastSent(); got != tt.want {
				t.Errorf("sent = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestQuit(t *testing.T) {
	m := NewModel(context.Background(), &mockConn{})
	_, cmd := update(t, m, runes("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}

func TestSendFailureShown(t *testing.T) {
	conn := &mockConn{err: errors.New("broken pipe")}
	m := NewModel(context.Background(), conn)

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = update(t, m, cmd())
	if !strings.Contains(m.lastErr, "broken pipe") {
		t.Errorf("lastErr = %q", m.lastErr)
	}
}

func sampleDetection() *monitor.Detection {
	return &monitor.Detection{
		StableEvent: stability.StableEvent{Key: "confirm", Text: "Confirm", Confidence: 0.93, Frames: 2},
		ScreenX:     150,
		ScreenY:     235,
	}
}

func TestApplyServerMessages(t *testing.T) {
	m := NewModel(context.Background(), &mockConn{})
	now := time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)

	m, cmd := update(t, m, serverMsg{msg: &server.HelloMessage{
		Type: "hello",
		Status: monitor.Status{
			Monitoring: true,
			Target:     target.Target{PID: 42, Title: "Installer"},
			Breaker:    "closed",
		},
		Activity: []activity.Entry{{Time: now, Level: activity.Info, Message: "Monitoring started"}},
	}})
	if cmd == nil {
		t.Error("server messages should keep listening")
	}
	if !m.status.Monitoring || m.status.Target.PID != 42 {
		t.Errorf("status = %+v", m.status)
	}
	if len(m.activity) != 1 {
		t.Fatalf("activity = %d entries, want 1", len(m.activity))
	}

	m, _ = update(t, m, serverMsg{msg: &monitor.Event{Type: monitor.EventStable, Detection: sampleDetection()}})
	if m.detection == nil || m.detection.Text != "Confirm" {
		t.Errorf("detection = %+v", m.detection)
	}

	m, _ = update(t, m, serverMsg{msg: &monitor.Event{Type: monitor.EventScroll, Scroll: &monitor.ScrollProgress{State: "stepping", Step: 3, Max: 30}}})
	if m.scroll == nil || m.scroll.Step != 3 {
		t.Errorf("scroll = %+v", m.scroll)
	}

	m, _ = update(t, m, serverMsg{msg: &server.ActivityMessage{Type: "activity", Entry: activity.Entry{Time: now, Level: activity.Action, Message: "Clicked"}}})
	if len(m.activity) != 2 {
		t.Errorf("activity = %d entries, want 2", len(m.activity))
	}

	m, _ = update(t, m, serverMsg{msg: &server.ErrorMessage{Type: "error", Command: "click", Message: "no stable detection"}})
	if m.lastErr != "click: no stable detection" {
		t.Errorf("lastErr = %q", m.lastErr)
	}

	m, _ = update(t, m, serverMsg{msg: &server.ClickedMessage{Type: "clicked", Detection: *sampleDetection()}})
	if m.lastErr != "" || !strings.Contains(m.notice, "(150, 235)") {
		t.Errorf("notice = %q, lastErr = %q", m.notice, m.lastErr)
	}

	// A status without a detection clears the stale one.
	m, _ = update(t, m, serverMsg{msg: &server.StatusMessage{Type: "status", Status: monitor.Status{}}})
	if m.detection != nil {
		t.Error("status without detection should clear it")
	}
}

func TestActivityBounded(t *testing.T) {
	m := NewModel(context.Background(), &mockConn{})
	for i := 0; i < maxActivity+10; i++ {
		m, _ = update(t, m, serverMsg{msg: &server.ActivityMessage{Entry: activity.Entry{Message: "x"}}})
	}
	if len(m.activity) != maxActivity {
		t.Errorf("activity = %d entries, want %d", len(m.activity), maxActivity)
	}
}

func TestDisconnectQuits(t *testing.T) {
	m := NewModel(context.Background(), &mockConn{})
	m, cmd := update(t, m, disconnectedMsg{err: errors.New("eof")})
	if m.connected {
		t.Error("should be disconnected")
	}
	if cmd == nil {
		t.Fatal("expected quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("disconnect should quit")
	}
}

func TestListenEndsOnError(t *testing.T) {
	m := NewModel(context.Background(), &mockConn{})
	if _, ok := m.Init()().(disconnectedMsg); !ok {
		t.Error("Init on a closed conn should report disconnect")
	}
}

func TestView(t *testing.T) {
	m := NewModel(context.Background(), &mockConn{})
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
	m.status = monitor.Status{Monitoring: true, Target: target.Target{PID: 7, Title: "Setup Wizard"}, Breaker: "open"}
	m.detection = sampleDetection()
	m.activity = []activity.Entry{{Level: activity.Warn, Message: "Click blocked: cooldown"}}

	out := m.View()
	for _, want := range []string{"ConfirmScout", "Setup Wizard", "running", `"Confirm"`, "(150, 235)", "open", "Click blocked: cooldown", "enter click"} {
		if !strings.Contains(out, want) {
			t.Errorf("View() missing %q", want)
		}
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		data    string
		want    string
		wantErr bool
	}{
		{`{"type":"hello","status":{"monitoring":true},"activity":[]}`, "*server.HelloMessage", false},
		{`{"type":"status","status":{}}`, "*server.StatusMessage", false},
		{`{"type":"stable","detection":{"text":"OK","screen_x":1,"screen_y":2}}`, "*monitor.Event", false},
		{`{"type":"scroll","scroll":{"state":"found","step":2,"max":30}}`, "*monitor.Event", false},
		{`{"type":"ack","command":"click"}`, "*server.AckMessage", false},
		{`{"type":"nope"}`, "", true},
		{`not json`, "", true},
	}
	for _, tt := range tests {
		msg, err := decode([]byte(tt.data))
		if (err != nil) != tt.wantErr {
			t.Errorf("decode(%s) error = %v, wantErr %v", tt.data, err, tt.wantErr)
			continue
		}
		if tt.wantErr {
			continue
		}
		if got := typeName(msg); got != tt.want {
			t.Errorf("decode(%s) = %s, want %s", tt.data, got, tt.want)
		}
	}
}

func typeName(v any) string {
	switch v.(type) {
	case *server.HelloMessage:
		return "*server.HelloMessage"
	case *server.StatusMessage:
		return "*server.StatusMessage"
	case *server.AckMessage:
		return "*server.AckMessage"
	case *monitor.Event:
		return "*monitor.Event"
	}
	return "?"
}

func TestClientRoundTrip(t *testing.T) {
	got := make(chan server.Command, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.CloseNow()
		ctx := r.Context()
		_ = wsjson.Write(ctx, conn, server.AckMessage{Type: "ack", Command: "hello"})
		var cmd server.Command
		if err := wsjson.Read(ctx, conn, &cmd); err == nil {
			got <- cmd
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := Dial(ctx, strings.TrimPrefix(srv.URL, "http://"))
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer c.Close()

	msg, err := c.Next(ctx)
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if ack, ok := msg.(*server.AckMessage); !ok || ack.Command != "hello" {
		t.Errorf("Next() = %#v", msg)
	}

	if err := c.Send(ctx, server.CmdClick); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	select {
	case cmd := <-got:
		if cmd.Type != server.CmdClick {
			t.Errorf("server got %q, want click", cmd.Type)
		}
	case <-ctx.Done():
		t.Fatal("server never received the command")
	}
}
