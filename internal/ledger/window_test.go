package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWindow(t *testing.T) {
	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	w := NewWindow(15)

	assert.Equal(t, 15*24*time.Hour, w.Length())
	assert.True(t, w.Contains(now, now))
	assert.True(t, w.Contains(now.Add(-15*24*time.Hour), now), "boundary is inside")
	assert.False(t, w.Contains(now.Add(-15*24*time.Hour-time.Second), now))
	assert.Equal(t, now.Add(-15*24*time.Hour), w.Start(now))
}

func TestNewWindow_DefaultsNonPositive(t *testing.T) {
	assert.Equal(t, NewWindow(DefaultWindowDays), NewWindow(0))
	assert.Equal(t, NewWindow(DefaultWindowDays), NewWindow(-3))
	assert.Equal(t, 3*24*time.Hour, NewWindow(3).Length())
}
