package bot

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/ytget/ytgram/internal/janitor"
	"github.com/ytget/ytgram/internal/messenger"
	"github.com/ytget/ytgram/internal/model"
	"github.com/ytget/ytgram/internal/pipeline"
	"github.com/ytget/ytgram/internal/registry"
	"github.com/ytget/ytgram/internal/session"
)

type recordingMessenger struct {
	mu      sync.Mutex
	nextID  int
	sent    []string
	buttons [][][]messenger.Button
	edits   []string
	answers []string
	deleted int

	files       []messenger.FileUpload
	sendFileErr error
}

func (r *recordingMessenger) SendMessage(chatID int64, text string, opts *messenger.SendOptions) (messenger.MessageRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	r.sent = append(r.sent, text)
	if opts != nil {
		r.buttons = append(r.buttons, opts.Buttons)
	} else {
		r.buttons = append(r.buttons, nil)
	}
	return messenger.MessageRef{ChatID: chatID, ID: r.nextID}, nil
}

func (r *recordingMessenger) EditMessage(ref messenger.MessageRef, text string, opts *messenger.SendOptions) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.edits = append(r.edits, text)
	return nil
}

func (r *recordingMessenger) DeleteMessage(ref messenger.MessageRef) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted++
	return nil
}

func (r *recordingMessenger) SendFile(chatID int64, upload messenger.FileUpload) (messenger.MessageRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sendFileErr != nil {
		return messenger.MessageRef{}, r.sendFileErr
	}
	r.nextID++
	r.files = append(r.files, upload)
	return messenger.MessageRef{ChatID: chatID, ID: r.nextID}, nil
}

func (r *recordingMessenger) AnswerCallback(callbackID, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.answers = append(r.answers, text)
	return nil
}

func (r *recordingMessenger) lastSent() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sent) == 0 {
		return ""
	}
	return r.sent[len(r.sent)-1]
}

func (r *recordingMessenger) sentContaining(substr string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sent {
		if strings.Contains(s, substr) {
			return true
		}
	}
	return false
}

type stubCatalog struct {
	items []model.PlaylistItem
	err   error
}

func (s *stubCatalog) Items(ctx context.Context, url string) ([]model.PlaylistItem, error) {
	return s.items, s.err
}

type stubInfo struct {
	info *model.ItemInfo
	err  error
}

func (s *stubInfo) FetchInfo(ctx context.Context, url string) (*model.ItemInfo, error) {
	return s.info, s.err
}

type stubItemRunner struct {
	calls int
	err   error
	last  pipeline.Job
}

func (s *stubItemRunner) Run(ctx context.Context, task *registry.Task, job pipeline.Job) error {
	s.calls++
	s.last = job
	return s.err
}

type stubPlaylistRunner struct {
	calls int
	last  pipeline.PlaylistJob
}

func (s *stubPlaylistRunner) Run(ctx context.Context, task *registry.Task, job pipeline.PlaylistJob) model.RunStats {
	s.calls++
	s.last = job
	return model.RunStats{}
}

type fixture struct {
	msg       *recordingMessenger
	reg       *registry.Registry
	sessions  *session.Cache
	items     *stubItemRunner
	playlists *stubPlaylistRunner
	catalog   *stubCatalog
	info      *stubInfo
	handler   *Handler
}

func newFixture() *fixture {
	f := &fixture{
		msg:       &recordingMessenger{},
		reg:       registry.New(nil, nil),
		sessions:  session.New(session.DefaultTTL),
		items:     &stubItemRunner{},
		playlists: &stubPlaylistRunner{},
		catalog:   &stubCatalog{},
		info:      &stubInfo{info: &model.ItemInfo{Title: "Clip", Uploader: "Ch", Duration: 30}},
	}
	f.handler = NewHandler(f.msg, f.reg, f.sessions, f.items, f.playlists, f.catalog, f.info, nil, nil, 2000, nil)
	return f
}

type stubThumbs struct {
	calls int
	err   error
}

func (s *stubThumbs) Download(ctx context.Context, url, destPath string) error {
	s.calls++
	if s.err != nil {
		return s.err
	}
	return os.WriteFile(destPath, []byte("jpeg"), 0o644)
}

// withThumbs rebuilds the handler with a preview fetcher and a real work
// dir, collecting discarded preview paths synchronously.
func (f *fixture) withThumbs(t *testing.T, thumbs *stubThumbs) *[]string {
	t.Helper()
	jan, err := janitor.New(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Expected janitor, got %v", err)
	}
	f.handler = NewHandler(f.msg, f.reg, f.sessions, f.items, f.playlists, f.catalog, f.info, thumbs, jan, 2000, nil)
	discarded := &[]string{}
	f.handler.discardThumb = func(path string) {
		*discarded = append(*discarded, path)
		jan.Cleanup(path)
	}
	return discarded
}

func TestCancelCommandWithoutTask(t *testing.T) {
	f := newFixture()
	f.handler.HandleMessage(context.Background(), 7, "u1", 100, "/cancel")

	if !f.msg.sentContaining("No active download") {
		t.Errorf("Expected no-active notice, got %q", f.msg.lastSent())
	}
}

func TestCancelCommandRedirectsPlaylist(t *testing.T) {
	f := newFixture()
	if _, err := f.reg.Admit("u1", registry.KindPlaylist, model.ProfileAudio); err != nil {
		t.Fatalf("Expected admission, got %v", err)
	}

	f.handler.HandleMessage(context.Background(), 7, "u1", 100, "/cancel")

	if !f.msg.sentContaining("control buttons") {
		t.Errorf("Expected redirect to playlist controls, got %q", f.msg.lastSent())
	}
	task, _ := f.reg.Lookup("u1")
	if task.Cancelled() {
		t.Error("Expected playlist run untouched by /cancel")
	}
}

func TestCancelCommandCancelsSingle(t *testing.T) {
	f := newFixture()
	if _, err := f.reg.Admit("u1", registry.KindAudio, model.ProfileAudio); err != nil {
		t.Fatalf("Expected admission, got %v", err)
	}

	f.handler.HandleMessage(context.Background(), 7, "u1", 100, "/cancel")

	task, _ := f.reg.Lookup("u1")
	if !task.ItemToken().IsSet() {
		t.Error("Expected item token set after /cancel")
	}
	if !f.msg.sentContaining("Cancelling") {
		t.Errorf("Expected cancelling notice, got %q", f.msg.lastSent())
	}
}

func TestLinkPromptCreatesSession(t *testing.T) {
	f := newFixture()
	f.handler.HandleMessage(context.Background(), 7, "u1", 100, "https://youtu.be/abc")

	if !f.msg.sentContaining("Select quality") {
		t.Fatalf("Expected quality prompt, got %v", f.msg.sent)
	}
	if f.sessions.Len() != 1 {
		t.Errorf("Expected 1 cached session, got %d", f.sessions.Len())
	}

	var keyboard [][]messenger.Button
	for _, b := range f.msg.buttons {
		if b != nil {
			keyboard = b
		}
	}
	if len(keyboard) != 3 {
		t.Fatalf("Expected 3 keyboard rows, got %d", len(keyboard))
	}
	sel, ok := ParseQualityPayload(keyboard[0][0].Data)
	if !ok || sel.Playlist {
		t.Errorf("Expected single quality payload, got %q", keyboard[0][0].Data)
	}
}

func TestLinkPromptSendsPhotoWithKeyboard(t *testing.T) {
	f := newFixture()
	thumbs := &stubThumbs{}
	discarded := f.withThumbs(t, thumbs)
	f.info.info.Thumbnail = "https://img.example/thumb.jpg"

	f.handler.HandleMessage(context.Background(), 7, "u1", 100, "https://youtu.be/abc")

	if len(f.msg.files) != 1 {
		t.Fatalf("Expected 1 photo prompt, got %d", len(f.msg.files))
	}
	up := f.msg.files[0]
	if !strings.Contains(up.Caption, "Select quality") || !strings.Contains(up.Caption, "Clip") {
		t.Errorf("Expected caption with title and prompt, got %q", up.Caption)
	}
	if len(up.Buttons) != 3 {
		t.Fatalf("Expected 3 keyboard rows on the photo, got %d", len(up.Buttons))
	}
	if f.msg.sentContaining("Select quality") {
		t.Error("Expected no text prompt alongside the photo")
	}
	if f.sessions.Len() != 1 {
		t.Errorf("Expected 1 cached session, got %d", f.sessions.Len())
	}
	if len(*discarded) != 1 {
		t.Fatalf("Expected 1 discarded preview, got %d", len(*discarded))
	}
	if _, err := os.Stat((*discarded)[0]); !os.IsNotExist(err) {
		t.Errorf("Expected preview file removed, got %v", err)
	}
}

func TestLinkPromptPhotoFallsBackToText(t *testing.T) {
	f := newFixture()
	thumbs := &stubThumbs{err: errors.New("fetch failed")}
	f.withThumbs(t, thumbs)
	f.info.info.Thumbnail = "https://img.example/thumb.jpg"

	f.handler.HandleMessage(context.Background(), 7, "u1", 100, "https://youtu.be/abc")

	if thumbs.calls != 1 {
		t.Errorf("Expected 1 fetch attempt, got %d", thumbs.calls)
	}
	if len(f.msg.files) != 0 {
		t.Errorf("Expected no photo prompt, got %d", len(f.msg.files))
	}
	if !f.msg.sentContaining("Select quality") {
		t.Fatalf("Expected text fallback prompt, got %v", f.msg.sent)
	}
}

func TestLinkPromptPhotoSendFailureCleansUp(t *testing.T) {
	f := newFixture()
	thumbs := &stubThumbs{}
	discarded := f.withThumbs(t, thumbs)
	f.msg.sendFileErr = errors.New("send failed")
	f.info.info.Thumbnail = "https://img.example/thumb.jpg"

	f.handler.HandleMessage(context.Background(), 7, "u1", 100, "https://youtu.be/abc")

	if !f.msg.sentContaining("Select quality") {
		t.Fatalf("Expected text fallback prompt, got %v", f.msg.sent)
	}
	if len(*discarded) != 0 {
		t.Errorf("Expected no deferred discard on send failure, got %d", len(*discarded))
	}
}

func TestInvalidURLRejected(t *testing.T) {
	f := newFixture()
	f.handler.HandleMessage(context.Background(), 7, "u1", 100, "https://example.com/x | 3")

	if !f.msg.sentContaining("Invalid YouTube URL") {
		t.Errorf("Expected rejection, got %v", f.msg.sent)
	}
}

func TestPlaylistPromptAppliesRange(t *testing.T) {
	f := newFixture()
	f.catalog.items = []model.PlaylistItem{
		{Position: 1, Title: "a", URL: "u1"},
		{Position: 2, Title: "b", URL: "u2"},
		{Position: 3, Title: "c", URL: "u3"},
	}

	f.handler.HandleMessage(context.Background(), 7, "u1", 100, "https://www.youtube.com/playlist?list=PL1 | 2-3")

	if !f.msg.sentContaining("Videos to download: 2") {
		t.Fatalf("Expected 2 items after range filter, got %v", f.msg.sent)
	}
	if !f.msg.sentContaining("Range: Video #2 to #3") {
		t.Errorf("Expected range info, got %v", f.msg.sent)
	}
}

func TestCallbackSessionExpired(t *testing.T) {
	f := newFixture()
	f.handler.HandleCallback(context.Background(), 7, "u1", "cb1", messenger.MessageRef{}, "quality_mp3_nosuchkey")

	if len(f.msg.answers) != 1 || !strings.Contains(f.msg.answers[0], "Session expired") {
		t.Errorf("Expected session expired answer, got %v", f.msg.answers)
	}
}

func TestCallbackRunsSingleItem(t *testing.T) {
	f := newFixture()
	key := f.sessions.Put(&model.SelectionEntry{
		Item:    &model.ItemInfo{Title: "Clip", URL: "https://youtu.be/abc"},
		ReplyTo: 100,
	})

	f.handler.HandleCallback(context.Background(), 7, "u1", "cb1", messenger.MessageRef{ChatID: 7, ID: 5}, QualityPayload(model.Profile720p, key, false))

	if f.items.calls != 1 {
		t.Fatalf("Expected 1 item run, got %d", f.items.calls)
	}
	if f.items.last.ReplyTo != 100 {
		t.Errorf("Expected reply to original message, got %d", f.items.last.ReplyTo)
	}
	if _, active := f.reg.Lookup("u1"); active {
		t.Error("Expected task released after run")
	}
	if f.sessions.Len() != 0 {
		t.Error("Expected session consumed")
	}
}

func TestCallbackRunsPlaylist(t *testing.T) {
	f := newFixture()
	key := f.sessions.Put(&model.SelectionEntry{
		Items:   []model.PlaylistItem{{Position: 4, URL: "u"}},
		ReplyTo: 100,
	})

	f.handler.HandleCallback(context.Background(), 7, "u1", "cb1", messenger.MessageRef{}, QualityPayload(model.ProfileAudio, key, true))

	if f.playlists.calls != 1 {
		t.Fatalf("Expected 1 playlist run, got %d", f.playlists.calls)
	}
	if len(f.playlists.last.Controls) != 2 {
		t.Errorf("Expected skip and cancel control rows, got %d", len(f.playlists.last.Controls))
	}
}

func TestCallbackDuplicateAdmissionRefused(t *testing.T) {
	f := newFixture()
	if _, err := f.reg.Admit("u1", registry.KindAudio, model.ProfileAudio); err != nil {
		t.Fatalf("Expected admission, got %v", err)
	}
	key := f.sessions.Put(&model.SelectionEntry{Item: &model.ItemInfo{URL: "u"}})

	f.handler.HandleCallback(context.Background(), 7, "u1", "cb1", messenger.MessageRef{}, QualityPayload(model.ProfileAudio, key, false))

	if f.items.calls != 0 {
		t.Errorf("Expected no run, got %d", f.items.calls)
	}
	if len(f.msg.answers) != 1 || !strings.Contains(f.msg.answers[0], "already have an active download") {
		t.Errorf("Expected already-active answer, got %v", f.msg.answers)
	}
}

func TestCallbackCancelledRunEditsStatus(t *testing.T) {
	f := newFixture()
	f.items.err = model.ErrCancelled
	key := f.sessions.Put(&model.SelectionEntry{Item: &model.ItemInfo{URL: "u"}})

	f.handler.HandleCallback(context.Background(), 7, "u1", "cb1", messenger.MessageRef{}, QualityPayload(model.ProfileAudio, key, false))

	found := false
	for _, e := range f.msg.edits {
		if strings.Contains(e, "Download Cancelled") {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected cancelled edit, got %v", f.msg.edits)
	}
}

func TestControlOwnerMismatch(t *testing.T) {
	f := newFixture()
	f.handler.HandleCallback(context.Background(), 7, "u2", "cb1", messenger.MessageRef{}, SkipPayload("u1"))

	if len(f.msg.answers) != 1 || !strings.Contains(f.msg.answers[0], "not your download") {
		t.Errorf("Expected ownership refusal, got %v", f.msg.answers)
	}
}

func TestControlSkipSetsItemToken(t *testing.T) {
	f := newFixture()
	task, err := f.reg.Admit("u1", registry.KindPlaylist, model.ProfileAudio)
	if err != nil {
		t.Fatalf("Expected admission, got %v", err)
	}

	f.handler.HandleCallback(context.Background(), 7, "u1", "cb1", messenger.MessageRef{}, SkipPayload("u1"))

	if !task.ItemToken().IsSet() {
		t.Error("Expected item token set after skip")
	}
	if task.RunToken().IsSet() {
		t.Error("Expected run token untouched by skip")
	}
}

func TestControlCancelSetsRunToken(t *testing.T) {
	f := newFixture()
	task, err := f.reg.Admit("u1", registry.KindPlaylist, model.ProfileAudio)
	if err != nil {
		t.Fatalf("Expected admission, got %v", err)
	}

	f.handler.HandleCallback(context.Background(), 7, "u1", "cb1", messenger.MessageRef{}, CancelPayload("u1"))

	if !task.RunToken().IsSet() {
		t.Error("Expected run token set after cancel")
	}
}

func TestControlWithoutPlaylistRefused(t *testing.T) {
	f := newFixture()
	if _, err := f.reg.Admit("u1", registry.KindAudio, model.ProfileAudio); err != nil {
		t.Fatalf("Expected admission, got %v", err)
	}

	f.handler.HandleCallback(context.Background(), 7, "u1", "cb1", messenger.MessageRef{}, SkipPayload("u1"))

	if len(f.msg.answers) != 1 || !strings.Contains(f.msg.answers[0], "No active playlist") {
		t.Errorf("Expected refusal, got %v", f.msg.answers)
	}
}

func TestPlaylistEnumerationErrorReported(t *testing.T) {
	f := newFixture()
	f.catalog.err = errors.New("fetch failed")

	f.handler.HandleMessage(context.Background(), 7, "u1", 100, "https://www.youtube.com/playlist?list=PL1")

	if !f.msg.sentContaining("Error") {
		t.Errorf("Expected error notice, got %v", f.msg.sent)
	}
}
