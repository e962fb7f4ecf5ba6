package domain

import "time"

// Window is a half-open time interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether the two windows intersect.
func (w Window) Overlaps(o Window) bool {
	return w.Start.Before(o.End) && o.Start.Before(w.End)
}

// Valid reports whether the window is non-empty.
func (w Window) Valid() bool {
	return !w.Start.IsZero() && w.Start.Before(w.End)
}

// ProvisionalWindow builds the window used for overlap checks. A zero end
// means open-ended: the window runs until now, or covers only the start
// instant when now is not later than start.
func ProvisionalWindow(start, end, now time.Time) Window {
	if end.IsZero() {
		end = now
		if !end.After(start) {
			end = start.Add(time.Nanosecond)
		}
	}
	return Window{Start: start, End: end}
}
