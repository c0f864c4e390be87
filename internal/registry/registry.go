// Package registry enforces the one-active-task-per-user rule and hands the
// callback layer its cancel/skip handles. It is the only admission control:
// a second request while a task runs is rejected, never queued.
package registry

import (
	"sync"

	"go.uber.org/zap"

	"github.com/ytget/ytgram/internal/cancel"
	"github.com/ytget/ytgram/internal/model"
)

// Kind classifies the active task.
type Kind string

const (
	KindAudio    Kind = "audio"
	KindVideo    Kind = "video"
	KindPlaylist Kind = "playlist"
)

// Registry maps a user identity to its single active task.
type Registry struct {
	mu    sync.Mutex
	tasks map[string]*Task

	// onRelease runs once per released task, with the artifact paths still
	// recorded on it. The janitor hangs off this.
	onRelease func(*Task)
	log       *zap.Logger
}

// New creates an empty registry. onRelease may be nil.
func New(onRelease func(*Task), log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		tasks:     make(map[string]*Task),
		onRelease: onRelease,
		log:       log,
	}
}

// Admit registers a task for user. It fails with model.ErrAlreadyActive when
// one exists; the caller tells the user to wait.
func (r *Registry) Admit(user string, kind Kind, profile model.Profile) (*Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tasks[user]; exists {
		return nil, model.ErrAlreadyActive
	}

	task := &Task{
		User:    user,
		Kind:    kind,
		Profile: profile,
	}
	if kind == KindPlaylist {
		task.run = cancel.New()
		task.item = task.run.Child()
	} else {
		task.item = cancel.New()
	}

	r.tasks[user] = task
	r.log.Debug("task admitted", zap.String("user", user), zap.String("kind", string(kind)))
	return task, nil
}

// Lookup returns the active task for user, if any.
func (r *Registry) Lookup(user string) (*Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[user]
	return task, ok
}

// RequestCancel aborts the user's task: the whole run for a playlist, the
// item for a single download. No-op when nothing is active.
func (r *Registry) RequestCancel(user string) bool {
	task, ok := r.Lookup(user)
	if !ok {
		return false
	}
	task.CancelAll()
	return true
}

// RequestSkip aborts only the item currently downloading. Valid for playlist
// tasks; anything else reports false.
func (r *Registry) RequestSkip(user string) bool {
	task, ok := r.Lookup(user)
	if !ok || task.Kind != KindPlaylist {
		return false
	}
	task.CancelItem()
	return true
}

// Release removes the user's task and fires the teardown hook exactly once.
// Every admitted task must be released on every exit path.
func (r *Registry) Release(user string) {
	r.mu.Lock()
	task, ok := r.tasks[user]
	delete(r.tasks, user)
	r.mu.Unlock()

	if !ok {
		return
	}
	r.log.Debug("task released", zap.String("user", user))
	if r.onRelease != nil {
		r.onRelease(task)
	}
}

// Active reports the number of in-flight tasks, for the health surface.
func (r *Registry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}
