package registry

import (
	"sync"

	"github.com/ytget/ytgram/internal/cancel"
	"github.com/ytget/ytgram/internal/model"
)

// Task is the descriptor of one admitted download. The pipeline mutates the
// artifact paths and the item token in place while callback handlers read
// them concurrently, so mutable fields sit behind a mutex.
type Task struct {
	User    string
	Kind    Kind
	Profile model.Profile

	mu   sync.Mutex
	run  *cancel.Token // playlist scope, nil for single downloads
	item *cancel.Token // current item, child of run for playlists

	artifactPath string
	thumbPath    string
}

// ItemToken returns the token governing the item currently downloading.
func (t *Task) ItemToken() *cancel.Token {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.item
}

// RunToken returns the playlist-scope token, nil for single downloads.
func (t *Task) RunToken() *cancel.Token {
	return t.run
}

// NextItem installs a fresh item token under the playlist scope and returns
// it. Called by the driver at the start of each item so a skip of the
// previous item never bleeds into the next.
func (t *Task) NextItem() *cancel.Token {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.item = t.run.Child()
	return t.item
}

// CancelItem sets the current item token.
func (t *Task) CancelItem() {
	t.ItemToken().Set()
}

// CancelAll sets the widest scope available: the run token for playlists,
// the item token otherwise.
func (t *Task) CancelAll() {
	if t.run != nil {
		t.run.Set()
		return
	}
	t.ItemToken().Set()
}

// Cancelled reports whether the current item should stop, covering both
// scopes through the parent chain.
func (t *Task) Cancelled() bool {
	return t.ItemToken().IsSet()
}

// SetArtifact records the path of the file currently being produced so the
// janitor can find it even on abrupt failure.
func (t *Task) SetArtifact(path string) {
	t.mu.Lock()
	t.artifactPath = path
	t.mu.Unlock()
}

// SetThumbnail records the fetched thumbnail path.
func (t *Task) SetThumbnail(path string) {
	t.mu.Lock()
	t.thumbPath = path
	t.mu.Unlock()
}

// Paths returns the currently recorded artifact and thumbnail paths.
func (t *Task) Paths() (artifact, thumb string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.artifactPath, t.thumbPath
}
