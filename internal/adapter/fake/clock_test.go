package fake

import (
	"testing"
	"time"
)

func TestClock_Now(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	c := NewClock(start)

	if got := c.Now(); !got.Equal(start) {
		t.Errorf("expected %v, got %v", start, got)
	}
}

func TestClock_Advance(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	c := NewClock(start)

	c.Advance(90 * time.Second)
	want := start.Add(90 * time.Second)
	if got := c.Now(); !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestClock_Set(t *testing.T) {
	c := NewClock(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))

	want := time.Date(2026, 9, 15, 12, 30, 0, 0, time.UTC)
	c.Set(want)
	if got := c.Now(); !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}
