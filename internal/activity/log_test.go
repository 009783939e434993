package activity

import (
	"strings"
	"testing"
	"time"
)

func fixedClock(l *Log, t *time.Time) {
	l.now = func() time.Time { return *t }
}

func TestEntryString(t *testing.T) {
	e := Entry{Time: time.Date(2024, 1, 2, 15, 4, 5, 0, time.Local), Message: "Stable detection: Confirm"}
	if got := e.String(); got != "[15:04:05] Stable detection: Confirm" {
		t.Errorf("String() = %q", got)
	}
}

func TestAddAndRecent(t *testing.T) {
	l := New(10, 10)
	l.Infof("monitoring %s", "Installer")
	l.Actionf("clicked at (%d,%d)", 10, 20)
	l.Warnf("click blocked: %s", "cooldown")

	got := l.Recent(2)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Level != Action || got[1].Level != Warn {
		t.Errorf("levels = %v, %v", got[0].Level, got[1].Level)
	}
	if all := l.Recent(0); len(all) != 3 || all[0].Message != "monitoring Installer" {
		t.Errorf("Recent(0) = %+v", all)
	}
}

func TestCapacity(t *testing.T) {
	l := New(3, 0)
	for i := 0; i < 10; i++ {
		l.Infof("line %d", i)
	}
	got := l.Recent(0)
	if len(got) != 3 || got[0].Message != "line 7" || got[2].Message != "line 9" {
		t.Errorf("entries = %+v", got)
	}
}

func TestSince(t *testing.T) {
	now := time.Unix(1000, 0)
	l := New(10, 0)
	fixedClock(l, &now)

	l.Infof("old")
	now = now.Add(10 * time.Minute)
	l.Infof("new")

	got := l.Since(time.Minute)
	if len(got) != 1 || got[0].Message != "new" {
		t.Errorf("Since() = %+v", got)
	}
}

func TestEventsNonBlocking(t *testing.T) {
	l := New(10, 1)
	l.Infof("first")
	l.Infof("second") // buffer full, dropped from the feed only

	if e := <-l.Events(); e.Message != "first" {
		t.Errorf("event = %q, want first", e.Message)
	}
	select {
	case e := <-l.Events():
		t.Errorf("unexpected event %q", e.Message)
	default:
	}
	if len(l.Recent(0)) != 2 {
		t.Error("dropped events must still be logged")
	}
}

func TestText(t *testing.T) {
	l := New(10, 0)
	l.Infof("a")
	l.Infof("b")
	lines := strings.Split(l.Text(0), "\n")
	if len(lines) != 2 || !strings.HasSuffix(lines[1], "] b") {
		t.Errorf("Text() = %q", l.Text(0))
	}
}
