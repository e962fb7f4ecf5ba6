package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWindow_Overlaps(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	at := func(h int) time.Time { return base.Add(time.Duration(h) * time.Hour) }
	w := Window{Start: at(0), End: at(10)}

	assert.True(t, w.Overlaps(Window{Start: at(5), End: at(15)}))
	assert.True(t, w.Overlaps(Window{Start: at(-5), End: at(1)}))
	assert.True(t, w.Overlaps(Window{Start: at(2), End: at(3)}))
	assert.False(t, w.Overlaps(Window{Start: at(10), End: at(20)}), "touching end")
	assert.False(t, w.Overlaps(Window{Start: at(-10), End: at(0)}), "touching start")
}

func TestProvisionalWindow(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	end := start.Add(4 * time.Hour)

	assert.Equal(t, Window{Start: start, End: end}, ProvisionalWindow(start, end, start.Add(time.Hour)))

	// Open-ended and already running: until now.
	now := start.Add(2 * time.Hour)
	assert.Equal(t, Window{Start: start, End: now}, ProvisionalWindow(start, time.Time{}, now))

	// Open-ended and not begun: the start instant only.
	w := ProvisionalWindow(start, time.Time{}, start.Add(-time.Hour))
	assert.True(t, w.Valid())
	assert.True(t, w.Overlaps(Window{Start: start.Add(-time.Minute), End: start.Add(time.Minute)}))
	assert.False(t, w.Overlaps(Window{Start: start.Add(time.Minute), End: end}))
}
