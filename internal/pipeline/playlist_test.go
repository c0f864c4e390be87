package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ytget/ytgram/internal/model"
	"github.com/ytget/ytgram/internal/registry"
)

// scriptedRunner returns one scripted outcome per call, optionally firing a
// side effect first.
type scriptedRunner struct {
	outcomes []error
	onCall   map[int]func(task *registry.Task)
	calls    int
}

func (s *scriptedRunner) Run(ctx context.Context, task *registry.Task, job Job) error {
	i := s.calls
	s.calls++
	if fn, ok := s.onCall[i]; ok {
		fn(task)
	}
	return s.outcomes[i]
}

func newTestDriver(runner ItemRunner, fm *fakeMessenger) *Driver {
	d := NewDriver(runner, fm, nil)
	d.sleep = func(time.Duration) {}
	return d
}

func playlistItems(n int) []model.PlaylistItem {
	items := make([]model.PlaylistItem, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, model.PlaylistItem{
			Position: i + 1,
			Title:    "item",
			URL:      "https://youtu.be/x",
		})
	}
	return items
}

func admitPlaylist(t *testing.T) *registry.Task {
	t.Helper()
	task, err := registry.New(nil, nil).Admit("user-1", registry.KindPlaylist, model.ProfileAudio)
	if err != nil {
		t.Fatalf("Expected admission, got %v", err)
	}
	return task
}

func expectStats(t *testing.T, got model.RunStats, attempted, succeeded, skipped, failed int) {
	t.Helper()
	if got.Attempted != attempted || got.Succeeded != succeeded || got.Skipped != skipped || got.Failed != failed {
		t.Errorf("Expected stats {%d %d %d %d}, got %+v", attempted, succeeded, skipped, failed, got)
	}
}

func TestDriverCountsOutcomes(t *testing.T) {
	fm := &fakeMessenger{}
	runner := &scriptedRunner{outcomes: []error{nil, model.ErrCancelled, nil}}
	d := newTestDriver(runner, fm)

	stats := d.Run(context.Background(), admitPlaylist(t), PlaylistJob{
		ChatID: 7,
		Items:  playlistItems(3),
	})

	expectStats(t, stats, 3, 2, 1, 0)
	if !fm.editsContain("Complete") {
		t.Error("Expected completion summary edit")
	}
}

func TestDriverSingleSuccess(t *testing.T) {
	fm := &fakeMessenger{}
	runner := &scriptedRunner{outcomes: []error{nil}}
	d := newTestDriver(runner, fm)

	stats := d.Run(context.Background(), admitPlaylist(t), PlaylistJob{
		ChatID: 7,
		Items:  playlistItems(1),
	})

	expectStats(t, stats, 1, 1, 0, 0)
}

func TestDriverFailureContinuesRun(t *testing.T) {
	fm := &fakeMessenger{}
	runner := &scriptedRunner{outcomes: []error{errors.New("boom"), nil}}
	d := newTestDriver(runner, fm)

	stats := d.Run(context.Background(), admitPlaylist(t), PlaylistJob{
		ChatID: 7,
		Items:  playlistItems(2),
	})

	expectStats(t, stats, 2, 1, 0, 1)

	hasFailure := false
	for _, msg := range fm.sent {
		if strings.Contains(msg, "Failed") && strings.Contains(msg, "boom") {
			hasFailure = true
		}
	}
	if !hasFailure {
		t.Error("Expected failure notice naming the error")
	}
}

func TestDriverRunCancelStopsLoop(t *testing.T) {
	fm := &fakeMessenger{}
	runner := &scriptedRunner{
		outcomes: []error{nil, model.ErrCancelled, nil},
		onCall: map[int]func(task *registry.Task){
			1: func(task *registry.Task) { task.CancelAll() },
		},
	}
	d := newTestDriver(runner, fm)

	stats := d.Run(context.Background(), admitPlaylist(t), PlaylistJob{
		ChatID: 7,
		Items:  playlistItems(3),
	})

	expectStats(t, stats, 2, 1, 0, 0)
	if runner.calls != 2 {
		t.Errorf("Expected 2 item runs, got %d", runner.calls)
	}
	if !fm.editsContain("Cancelled") {
		t.Error("Expected cancelled summary edit")
	}
}

func TestDriverCancelAfterItemCompletes(t *testing.T) {
	fm := &fakeMessenger{}
	// Cancel lands while the first item finishes cleanly; the item still
	// counts as succeeded before the run stops.
	runner := &scriptedRunner{
		outcomes: []error{nil, nil, nil},
		onCall: map[int]func(task *registry.Task){
			0: func(task *registry.Task) { task.CancelAll() },
		},
	}
	d := newTestDriver(runner, fm)

	stats := d.Run(context.Background(), admitPlaylist(t), PlaylistJob{
		ChatID: 7,
		Items:  playlistItems(3),
	})

	expectStats(t, stats, 1, 1, 0, 0)
	if runner.calls != 1 {
		t.Errorf("Expected 1 item run, got %d", runner.calls)
	}
	if !fm.editsContain("Cancelled") {
		t.Error("Expected cancelled summary edit")
	}
}

func TestDriverSkipResetsForNextItem(t *testing.T) {
	fm := &fakeMessenger{}
	// Skip fires via the item token; the next item must still run.
	runner := &scriptedRunner{
		outcomes: []error{model.ErrCancelled, nil},
		onCall: map[int]func(task *registry.Task){
			0: func(task *registry.Task) { task.CancelItem() },
		},
	}
	d := newTestDriver(runner, fm)

	stats := d.Run(context.Background(), admitPlaylist(t), PlaylistJob{
		ChatID: 7,
		Items:  playlistItems(2),
	})

	expectStats(t, stats, 2, 1, 1, 0)
}
