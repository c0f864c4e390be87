package progress

import "time"

// Edit pacing used at the different reporting call sites. Values mirror how
// often each surface can be edited without tripping channel rate limits.
const (
	DownloadEditInterval       = 2 * time.Second
	PlaylistDownloadInterval   = 3 * time.Second
	UploadEditInterval         = 5 * time.Second
	PlaylistUploadEditInterval = 10 * time.Second

	DefaultPercentDelta = 5
)

// Sample is one progress observation from a running transfer.
type Sample struct {
	Percent int
	Size    string // total size, human readable, may be empty
	Rate    string // transfer rate, human readable, may be empty
	ETA     string // mm:ss, may be empty
}

// ShouldEmit is the pure throttling decision: emit when the interval since
// the last emission elapsed or the percentage moved by at least delta points.
// The first 100% sample always passes, so a display that last emitted within
// delta of the end (say 97%) still reaches the terminal state. It only ever
// suppresses samples, never reorders them, so the newest emitted sample
// always reflects the latest known state.
func ShouldEmit(lastEmit time.Time, lastPercent, percent int, now time.Time, interval time.Duration, delta int) bool {
	if percent >= 100 && lastPercent < 100 {
		return true
	}
	if now.Sub(lastEmit) >= interval {
		return true
	}
	return abs(percent-lastPercent) >= delta
}

// Throttle tracks the last emission and applies ShouldEmit to each sample.
type Throttle struct {
	interval time.Duration
	delta    int

	lastEmit    time.Time
	lastPercent int

	now func() time.Time // test seam
}

// NewThrottle returns a throttle that emits at most every interval, or when
// progress jumped by delta percentage points. The first sample after
// construction is emitted once interval elapses from the construction time.
func NewThrottle(interval time.Duration, delta int) *Throttle {
	return &Throttle{
		interval: interval,
		delta:    delta,
		lastEmit: time.Now(),
		now:      time.Now,
	}
}

// Observe records a sample and reports whether it should be displayed.
func (t *Throttle) Observe(percent int) bool {
	now := t.now()
	if !ShouldEmit(t.lastEmit, t.lastPercent, percent, now, t.interval, t.delta) {
		return false
	}
	t.lastEmit = now
	t.lastPercent = percent
	return true
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
