package bot

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ytget/ytgram/internal/catalog"
	"github.com/ytget/ytgram/internal/janitor"
	"github.com/ytget/ytgram/internal/messenger"
	"github.com/ytget/ytgram/internal/model"
	"github.com/ytget/ytgram/internal/pipeline"
	"github.com/ytget/ytgram/internal/progress"
	"github.com/ytget/ytgram/internal/registry"
	"github.com/ytget/ytgram/internal/session"
)

// Cataloger enumerates playlist URLs.
type Cataloger interface {
	Items(ctx context.Context, url string) ([]model.PlaylistItem, error)
}

// InfoFetcher resolves single-item metadata.
type InfoFetcher interface {
	FetchInfo(ctx context.Context, url string) (*model.ItemInfo, error)
}

// PlaylistRunner sequences a playlist run.
type PlaylistRunner interface {
	Run(ctx context.Context, task *registry.Task, job pipeline.PlaylistJob) model.RunStats
}

// promptThumbTTL is how long a preview file stays on disk after the photo
// prompt is sent. The chat keeps its own copy.
const promptThumbTTL = 5 * time.Second

// Handler routes chat events.
type Handler struct {
	msg       messenger.Messenger
	reg       *registry.Registry
	sessions  *session.Cache
	items     pipeline.ItemRunner
	playlists PlaylistRunner
	catalog   Cataloger
	info      InfoFetcher
	thumbs    pipeline.ThumbnailFetcher
	jan       *janitor.Janitor
	maxSizeMB int64
	log       *zap.Logger

	discardThumb func(path string) // test seam
}

// NewHandler wires the event router. thumbs and jan may be nil; the quality
// prompt is then always plain text.
func NewHandler(msg messenger.Messenger, reg *registry.Registry, sessions *session.Cache, items pipeline.ItemRunner, playlists PlaylistRunner, cat Cataloger, info InfoFetcher, thumbs pipeline.ThumbnailFetcher, jan *janitor.Janitor, maxSizeMB int64, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	h := &Handler{
		msg:       msg,
		reg:       reg,
		sessions:  sessions,
		items:     items,
		playlists: playlists,
		catalog:   cat,
		info:      info,
		thumbs:    thumbs,
		jan:       jan,
		maxSizeMB: maxSizeMB,
		log:       log,
	}
	h.discardThumb = func(path string) {
		time.AfterFunc(promptThumbTTL, func() { h.jan.Cleanup(path) })
	}
	return h
}

// HandleMessage processes one incoming text message. user identifies the
// sender for admission and cancel scoping.
func (h *Handler) HandleMessage(ctx context.Context, chatID int64, user string, messageID int, text string) {
	switch {
	case text == "/start":
		h.send(chatID, h.welcomeText(), nil)
	case text == "/help":
		h.send(chatID, h.helpText(), nil)
	case text == "/cancel":
		h.handleCancelCommand(chatID, user, messageID)
	case IsYouTubeURL(text) || strings.Contains(text, "|"):
		h.handleLink(ctx, chatID, messageID, text)
	case len(text) > 10 && !strings.HasPrefix(text, "/"):
		h.send(chatID, "❌ Please send a valid YouTube URL", &messenger.SendOptions{ReplyTo: messageID})
	}
}

func (h *Handler) handleCancelCommand(chatID int64, user string, messageID int) {
	task, ok := h.reg.Lookup(user)
	if !ok {
		h.send(chatID, "ℹ️ No active download to cancel.", &messenger.SendOptions{ReplyTo: messageID})
		return
	}

	if task.Kind == registry.KindPlaylist {
		h.send(chatID,
			"ℹ️ Playlist Download Active\n\nPlease use the control buttons in the playlist status message:\n⏭️ Skip Current Video\n🛑 Cancel Entire Playlist",
			&messenger.SendOptions{ReplyTo: messageID})
		return
	}

	h.reg.RequestCancel(user)
	h.send(chatID, "🛑 Cancelling...", &messenger.SendOptions{ReplyTo: messageID})
}

func (h *Handler) handleLink(ctx context.Context, chatID int64, messageID int, text string) {
	req := ParseRequest(text)
	if !IsYouTubeURL(req.URL) {
		h.send(chatID, "❌ Invalid YouTube URL", &messenger.SendOptions{ReplyTo: messageID})
		return
	}

	if catalog.IsPlaylistURL(req.URL) {
		h.promptPlaylist(ctx, chatID, messageID, req)
		return
	}
	h.promptSingle(ctx, chatID, messageID, req.URL)
}

func (h *Handler) promptPlaylist(ctx context.Context, chatID int64, messageID int, req Request) {
	loading, _ := h.msg.SendMessage(chatID, "🔍 Getting playlist information...", &messenger.SendOptions{ReplyTo: messageID})
	defer func() { _ = h.msg.DeleteMessage(loading) }()

	items, err := h.catalog.Items(ctx, req.URL)
	if err == nil {
		items, err = catalog.FilterRange(items, req.Start, req.End)
	}
	if err != nil {
		h.log.Warn("playlist prompt failed", zap.String("url", req.URL), zap.Error(err))
		h.send(chatID, fmt.Sprintf("❌ Error: %v", err), &messenger.SendOptions{ReplyTo: messageID})
		return
	}

	key := h.sessions.Put(&model.SelectionEntry{
		Items:   items,
		ReplyTo: messageID,
	})

	rangeInfo := ""
	if req.Start > 0 {
		rangeInfo = fmt.Sprintf("\n📍 Range: Video #%d to #%d", items[0].Position, items[len(items)-1].Position)
	}
	h.send(chatID,
		fmt.Sprintf("📝 Playlist Ready\n\n📊 Videos to download: %d%s\n\nSelect quality for all videos:", len(items), rangeInfo),
		&messenger.SendOptions{ReplyTo: messageID, Buttons: QualityKeyboard(key, true)})
}

func (h *Handler) promptSingle(ctx context.Context, chatID int64, messageID int, url string) {
	loading, _ := h.msg.SendMessage(chatID, "🔍 Getting video information...", &messenger.SendOptions{ReplyTo: messageID})
	defer func() { _ = h.msg.DeleteMessage(loading) }()

	info, err := h.info.FetchInfo(ctx, url)
	if err != nil {
		h.log.Warn("info prompt failed", zap.String("url", url), zap.Error(err))
		h.send(chatID, fmt.Sprintf("❌ Error: %v", err), &messenger.SendOptions{ReplyTo: messageID})
		return
	}
	info.URL = url

	key := h.sessions.Put(&model.SelectionEntry{Item: info, ReplyTo: messageID})
	caption := fmt.Sprintf("📹 %s\n\n👤 Channel: %s\n⏱ Duration: %s\n\nSelect quality:",
		info.Title, info.Uploader, progress.FormatDuration(info.Duration))
	buttons := QualityKeyboard(key, false)

	if h.sendPhotoPrompt(ctx, chatID, messageID, info.Thumbnail, caption, buttons) {
		return
	}
	h.send(chatID, caption, &messenger.SendOptions{ReplyTo: messageID, Buttons: buttons})
}

// sendPhotoPrompt attaches the quality keyboard to a preview photo. Any
// failure falls back to the plain text prompt. The temp file is removed
// shortly after sending.
func (h *Handler) sendPhotoPrompt(ctx context.Context, chatID int64, messageID int, thumbURL, caption string, buttons [][]messenger.Button) bool {
	if h.thumbs == nil || h.jan == nil || thumbURL == "" {
		return false
	}

	path := filepath.Join(h.jan.Dir(), fmt.Sprintf("prompt_thumb_%d.jpg", time.Now().UnixNano()))
	if err := h.thumbs.Download(ctx, thumbURL, path); err != nil {
		h.log.Warn("prompt thumbnail failed", zap.String("url", thumbURL), zap.Error(err))
		return false
	}

	_, err := h.msg.SendFile(chatID, messenger.FileUpload{
		Path:     path,
		FileName: filepath.Base(path),
		Caption:  caption,
		Buttons:  buttons,
		ReplyTo:  messageID,
	})
	if err != nil {
		h.log.Warn("photo prompt failed", zap.Error(err))
		h.jan.Cleanup(path)
		return false
	}
	h.discardThumb(path)
	return true
}

// HandleCallback processes one button press. prompt is the message the
// button was attached to; a successful admission removes it.
func (h *Handler) HandleCallback(ctx context.Context, chatID int64, user, callbackID string, prompt messenger.MessageRef, data string) {
	if owner, ok := strings.CutPrefix(data, skipPayloadPrefix); ok {
		h.handleControl(user, callbackID, owner, true)
		return
	}
	if owner, ok := strings.CutPrefix(data, cancelPayloadPrefix); ok {
		h.handleControl(user, callbackID, owner, false)
		return
	}

	sel, ok := ParseQualityPayload(data)
	if !ok {
		h.log.Debug("unknown callback payload", zap.String("data", data))
		return
	}

	entry, err := h.sessions.Take(sel.Key)
	if err != nil {
		if errors.Is(err, model.ErrSessionExpired) {
			_ = h.msg.AnswerCallback(callbackID, "❌ Session expired. Please send the link again.")
		}
		return
	}

	kind := registry.KindVideo
	switch {
	case entry.IsPlaylist():
		kind = registry.KindPlaylist
	case sel.Profile.IsAudio():
		kind = registry.KindAudio
	}

	task, err := h.reg.Admit(user, kind, sel.Profile)
	if err != nil {
		if errors.Is(err, model.ErrAlreadyActive) {
			_ = h.msg.AnswerCallback(callbackID, "⚠️ You already have an active download.")
			return
		}
		h.log.Error("admission failed", zap.String("user", user), zap.Error(err))
		return
	}
	defer h.reg.Release(user)

	if entry.IsPlaylist() {
		_ = h.msg.AnswerCallback(callbackID, "✅ Starting playlist download...")
	} else {
		_ = h.msg.AnswerCallback(callbackID, "✅ Processing...")
	}
	_ = h.msg.DeleteMessage(prompt)

	if entry.IsPlaylist() {
		h.playlists.Run(ctx, task, pipeline.PlaylistJob{
			ChatID:   chatID,
			Items:    entry.Items,
			ReplyTo:  entry.ReplyTo,
			Controls: PlaylistControls(user),
		})
		return
	}

	h.runSingle(ctx, chatID, task, entry)
}

func (h *Handler) runSingle(ctx context.Context, chatID int64, task *registry.Task, entry *model.SelectionEntry) {
	status, err := h.msg.SendMessage(chatID, "⏳ Initializing download...", &messenger.SendOptions{ReplyTo: entry.ReplyTo})
	if err != nil {
		h.log.Error("status message failed", zap.Error(err))
		return
	}

	runErr := h.items.Run(ctx, task, pipeline.Job{
		ChatID:           chatID,
		URL:              entry.Item.URL,
		Info:             entry.Item,
		ReplyTo:          entry.ReplyTo,
		Status:           status,
		DownloadInterval: progress.DownloadEditInterval,
		UploadInterval:   progress.UploadEditInterval,
	})

	switch {
	case runErr == nil:
	case errors.Is(runErr, model.ErrCancelled):
		_ = h.msg.EditMessage(status, "🛑 Download Cancelled", nil)
	case model.IsOversize(runErr):
		// Rejection already shown on the status message.
	default:
		h.log.Error("download failed", zap.String("url", entry.Item.URL), zap.Error(runErr))
		_ = h.msg.EditMessage(status, fmt.Sprintf("❌ Download error: %v", runErr), nil)
	}
}

// handleControl answers a skip or cancel button press after checking the
// presser owns the run.
func (h *Handler) handleControl(user, callbackID, owner string, skip bool) {
	if owner != user {
		_ = h.msg.AnswerCallback(callbackID, "❌ This is not your download.")
		return
	}

	task, ok := h.reg.Lookup(user)
	if !ok || task.Kind != registry.KindPlaylist {
		_ = h.msg.AnswerCallback(callbackID, "❌ No active playlist download.")
		return
	}

	if skip {
		h.reg.RequestSkip(user)
		_ = h.msg.AnswerCallback(callbackID, "⏭️ Skipping current video...")
		return
	}
	h.reg.RequestCancel(user)
	_ = h.msg.AnswerCallback(callbackID, "🛑 Cancelling entire playlist...")
}

func (h *Handler) send(chatID int64, text string, opts *messenger.SendOptions) {
	if _, err := h.msg.SendMessage(chatID, text, opts); err != nil {
		h.log.Warn("send failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (h *Handler) welcomeText() string {
	return fmt.Sprintf("👋 Welcome to YouTube Downloader Bot!\n\n"+
		"📹 Send me any YouTube link (video or playlist)\n\n"+
		"Available Formats:\n🎵 MP3 Audio (192kbps)\n📹 360p Video\n📹 480p Video\n📹 720p Video\n📹 1080p Video\n\n"+
		"Features:\n✅ Single video download\n✅ Full playlist download\n✅ Playlist range support (see /help)\n✅ Download & upload progress\n✅ Thumbnail preview\n✅ Cancel/Skip support\n🚀 Ultra-fast downloads\n\n"+
		"⚠️ Max file size: %dMB", h.maxSizeMB)
}

func (h *Handler) helpText() string {
	return fmt.Sprintf("📖 Help\n\n"+
		"How to use:\n1. Send any YouTube video or playlist link\n2. Choose your preferred quality\n3. Watch the download progress\n4. Receive your file!\n\n"+
		"Playlist Range Support:\n📍 Start from video 36:\n   playlist_url | 36\n\n📍 Download videos 10 to 50:\n   playlist_url | 10-50\n\n"+
		"Commands:\n/start - Start the bot\n/help - Show this help\n/cancel - Cancel download\n\n"+
		"Limitations:\n⚠️ Max file size: %dMB\n⚠️ One download at a time per user", h.maxSizeMB)
}
