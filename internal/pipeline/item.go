// Package pipeline drives one item from metadata fetch through retrieval,
// normalization, the size gate, and delivery, and sequences playlist runs on
// top of that.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ytget/ytgram/internal/cancel"
	"github.com/ytget/ytgram/internal/janitor"
	"github.com/ytget/ytgram/internal/messenger"
	"github.com/ytget/ytgram/internal/model"
	"github.com/ytget/ytgram/internal/progress"
	"github.com/ytget/ytgram/internal/registry"
	"github.com/ytget/ytgram/internal/ytdlp"
)

const (
	// Re-encoded video under this size is a broken merge, not a tiny video.
	MinVideoSize = 500 * 1024

	// Short pause before removing the status message so the last progress
	// state is visible.
	finalizeDelay = time.Second
)

// Job carries the per-item parameters of one pipeline run.
type Job struct {
	ChatID  int64
	URL     string
	Info    *model.ItemInfo // prefetched metadata, fetched when nil
	ReplyTo int

	// Status is the message progress edits go to. The pipeline deletes it
	// after successful delivery.
	Status messenger.MessageRef

	DownloadInterval time.Duration
	UploadInterval   time.Duration
}

// Pipeline owns the item state machine.
type Pipeline struct {
	retriever  Retriever
	transcoder Transcoder
	thumbs     ThumbnailFetcher
	msg        messenger.Messenger
	jan        *janitor.Janitor
	sizeLimit  int64
	log        *zap.Logger

	sleep func(time.Duration) // test seam
}

// New creates a pipeline. sizeLimit caps delivered file size in bytes.
func New(retriever Retriever, transcoder Transcoder, thumbs ThumbnailFetcher, msg messenger.Messenger, jan *janitor.Janitor, sizeLimit int64, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{
		retriever:  retriever,
		transcoder: transcoder,
		thumbs:     thumbs,
		msg:        msg,
		jan:        jan,
		sizeLimit:  sizeLimit,
		log:        log,
		sleep:      time.Sleep,
	}
}

// Run executes one item end to end. model.ErrCancelled is the cancellation
// outcome; a *model.OversizeError means the artifact was produced but
// rejected, and the rejection is already shown on the status message.
func (p *Pipeline) Run(ctx context.Context, task *registry.Task, job Job) error {
	info := job.Info
	if info == nil {
		var err error
		info, err = p.retriever.FetchInfo(ctx, job.URL)
		if err != nil {
			return fmt.Errorf("fetch info: %w", err)
		}
	}
	if info.URL == "" {
		info.URL = job.URL
	}

	if task.ItemToken().IsSet() {
		return model.ErrCancelled
	}

	if task.Profile.IsAudio() {
		return p.runAudio(ctx, task, job, info)
	}
	return p.runVideo(ctx, task, job, info)
}

func (p *Pipeline) runAudio(ctx context.Context, task *registry.Task, job Job, info *model.ItemInfo) error {
	title := info.Title
	intro := fmt.Sprintf("🎵 %s\n\n👤 Channel: %s\n⏱ Duration: %s\n\n⬇️ Downloading audio...\n%s",
		title, info.Uploader, progress.FormatDuration(info.Duration), progress.Bar(0))
	_ = p.msg.EditMessage(job.Status, intro, nil)

	base := ytdlp.SanitizeFilename(title)
	stamp := time.Now().UnixMilli()
	template := filepath.Join(p.jan.Dir(), fmt.Sprintf("%s_%d%s", base, stamp, ytdlp.ExtPlaceholder))

	token := task.ItemToken()
	throttle := progress.NewThrottle(job.DownloadInterval, progress.DefaultPercentDelta)
	reported, err := p.retriever.Download(ctx, ytdlp.DownloadRequest{
		URL:            info.URL,
		Format:         model.AudioFormatSelector,
		OutputTemplate: template,
		NoPart:         true,
		Token:          token,
		Progress: func(s progress.Sample) {
			if !throttle.Observe(s.Percent) {
				return
			}
			text := fmt.Sprintf("🎵 %s\n\n⬇️ Downloading audio...\n%s\n📊 Size: %s\n🚀 Speed: %s\n⏱ ETA: %s",
				title, progress.Bar(s.Percent), s.Size, s.Rate, s.ETA)
			_ = p.msg.EditMessage(job.Status, text, nil)
		},
	})
	if err != nil {
		return err
	}

	raw, err := ytdlp.LocateArtifact(reported, template, ytdlp.AudioExtensions)
	if err != nil {
		return err
	}
	task.SetArtifact(raw)

	final := raw
	if !strings.HasSuffix(raw, ".mp3") {
		_ = p.msg.EditMessage(job.Status, fmt.Sprintf("🎵 %s\n\n🔄 Converting to MP3...\nPlease wait...", title), nil)

		mp3Path := strings.Replace(template, ytdlp.ExtPlaceholder, ".mp3", 1)
		if err := p.transcoder.ExtractMP3(ctx, raw, mp3Path, model.AudioSampleRate, model.AudioChannels, model.AudioBitrate); err != nil {
			p.jan.Cleanup(raw)
			return err
		}
		p.jan.Cleanup(raw)
		final = mp3Path
	}
	task.SetArtifact(final)

	if token.IsSet() {
		p.jan.Cleanup(final)
		return model.ErrCancelled
	}

	return p.deliver(ctx, task, job, info, final, deliverOptions{
		caption:  fmt.Sprintf("🎵 %s\n\n👤 %s", title, info.Uploader),
		fileName: base + ".mp3",
		header:   "🎵 " + title,
		audio: &messenger.AudioAttributes{
			Duration:  info.Duration,
			Title:     title,
			Performer: info.Uploader,
		},
	})
}

func (p *Pipeline) runVideo(ctx context.Context, task *registry.Task, job Job, info *model.ItemInfo) error {
	title := info.Title
	label := task.Profile.Label()
	intro := fmt.Sprintf("📹 %s\n\n👤 Channel: %s\n⏱ Duration: %s\n🎬 Quality: %s\n\n⬇️ Downloading video...\n%s",
		title, info.Uploader, progress.FormatDuration(info.Duration), label, progress.Bar(0))
	_ = p.msg.EditMessage(job.Status, intro, nil)

	stamp := time.Now().UnixMilli()
	videoTemplate := filepath.Join(p.jan.Dir(), fmt.Sprintf("video_%d%s", stamp, ytdlp.ExtPlaceholder))
	audioTemplate := filepath.Join(p.jan.Dir(), fmt.Sprintf("audio_%d%s", stamp, ytdlp.ExtPlaceholder))
	mergedPath := filepath.Join(p.jan.Dir(), fmt.Sprintf("merged_%d.mp4", stamp))

	token := task.ItemToken()

	videoPath, err := p.downloadStream(ctx, job, token, info.URL, task.Profile.VideoFormatSelector(), videoTemplate,
		ytdlp.VideoExtensions, fmt.Sprintf("📹 %s\n\n🎬 Quality: %s\n⬇️ Downloading video stream...", title, label))
	if err != nil {
		return err
	}
	task.SetArtifact(videoPath)

	audioPath, err := p.downloadStream(ctx, job, token, info.URL, model.AudioFormatSelector, audioTemplate,
		ytdlp.AudioExtensions, fmt.Sprintf("📹 %s\n\n🎬 Quality: %s\n⬇️ Downloading audio stream...", title, label))
	if err != nil {
		p.jan.Cleanup(videoPath)
		return err
	}

	_ = p.msg.EditMessage(job.Status, fmt.Sprintf("📹 %s\n\n🎬 Quality: %s\n🔧 Processing video...\nPlease wait...", title, label), nil)

	if err := p.transcoder.MuxMP4(ctx, videoPath, audioPath, mergedPath, task.Profile.CRF()); err != nil {
		p.jan.Cleanup(videoPath, audioPath)
		return err
	}
	p.jan.Cleanup(videoPath, audioPath)
	task.SetArtifact(mergedPath)

	st, err := os.Stat(mergedPath)
	if err != nil {
		return fmt.Errorf("%w: %s", model.ErrArtifactNotFound, mergedPath)
	}
	if st.Size() < MinVideoSize {
		p.jan.Cleanup(mergedPath)
		return fmt.Errorf("file too small: %s", progress.FormatSize(st.Size()))
	}

	if token.IsSet() {
		p.jan.Cleanup(mergedPath)
		return model.ErrCancelled
	}

	width, height := task.Profile.Dimensions()
	return p.deliver(ctx, task, job, info, mergedPath, deliverOptions{
		caption:  fmt.Sprintf("📹 %s\n\n👤 %s\n🎬 Quality: %s", title, info.Uploader, label),
		fileName: ytdlp.SanitizeFilename(title) + ".mp4",
		header:   fmt.Sprintf("📹 %s\n\n🎬 Quality: %s", title, label),
		video: &messenger.VideoAttributes{
			Duration:          info.Duration,
			Width:             width,
			Height:            height,
			SupportsStreaming: true,
		},
	})
}

// downloadStream retrieves one stream and resolves the produced file.
func (p *Pipeline) downloadStream(ctx context.Context, job Job, token *cancel.Token, url, format, template string, candidates []string, header string) (string, error) {
	throttle := progress.NewThrottle(job.DownloadInterval, progress.DefaultPercentDelta)
	reported, err := p.retriever.Download(ctx, ytdlp.DownloadRequest{
		URL:            url,
		Format:         format,
		OutputTemplate: template,
		NoPart:         true,
		Token:          token,
		Progress: func(s progress.Sample) {
			if !throttle.Observe(s.Percent) {
				return
			}
			_ = p.msg.EditMessage(job.Status, header+"\n"+progress.Bar(s.Percent), nil)
		},
	})
	if err != nil {
		return "", err
	}
	return ytdlp.LocateArtifact(reported, template, candidates)
}

type deliverOptions struct {
	caption  string
	fileName string
	header   string
	audio    *messenger.AudioAttributes
	video    *messenger.VideoAttributes
}

// deliver runs the size gate, thumbnail fetch, upload and finalize steps for
// a produced artifact.
func (p *Pipeline) deliver(ctx context.Context, task *registry.Task, job Job, info *model.ItemInfo, artifact string, opts deliverOptions) error {
	token := task.ItemToken()

	st, err := os.Stat(artifact)
	if err != nil {
		return fmt.Errorf("%w: %s", model.ErrArtifactNotFound, artifact)
	}
	size := st.Size()

	// The gate runs after production; encoded size is unknowable up front.
	if size > p.sizeLimit {
		oversize := &model.OversizeError{Size: size, Limit: p.sizeLimit}
		_ = p.msg.EditMessage(job.Status, "❌ "+oversize.Error(), nil)
		p.jan.Cleanup(artifact)
		task.SetArtifact("")
		return oversize
	}

	thumbPath := ""
	if info.Thumbnail != "" {
		candidate := artifact + "_thumb.jpg"
		if err := p.thumbs.Download(ctx, info.Thumbnail, candidate); err != nil {
			p.log.Warn("thumbnail fetch failed", zap.String("url", info.Thumbnail), zap.Error(err))
		} else {
			thumbPath = candidate
			task.SetThumbnail(thumbPath)
		}
	}

	if token.IsSet() {
		p.jan.Cleanup(artifact, thumbPath)
		return model.ErrCancelled
	}

	_ = p.msg.EditMessage(job.Status,
		fmt.Sprintf("%s\n\n📤 Uploading...\n%s\n📊 Size: %s", opts.header, progress.Bar(0), progress.FormatSize(size)), nil)

	workers, requestSize := messenger.UploadSettings(size)
	throttle := progress.NewThrottle(job.UploadInterval, progress.DefaultPercentDelta)

	_, err = p.msg.SendFile(job.ChatID, messenger.FileUpload{
		Path:        artifact,
		Size:        size,
		FileName:    opts.fileName,
		Caption:     opts.caption,
		Workers:     workers,
		RequestSize: requestSize,
		Audio:       opts.audio,
		Video:       opts.video,
		ThumbPath:   thumbPath,
		ReplyTo:     job.ReplyTo,
		Progress: func(uploaded, total int64) {
			if token.IsSet() {
				return
			}
			pct := progress.Percent(uploaded, total)
			if !throttle.Observe(pct) {
				return
			}
			text := fmt.Sprintf("%s\n\n📤 Uploading...\n%s\n📊 %s / %s",
				opts.header, progress.Bar(pct), progress.FormatSize(uploaded), progress.FormatSize(total))
			_ = p.msg.EditMessage(job.Status, text, nil)
		},
	})
	if err != nil {
		p.jan.Cleanup(artifact, thumbPath)
		return fmt.Errorf("upload: %w", err)
	}

	if token.IsSet() {
		p.jan.Cleanup(artifact, thumbPath)
		return model.ErrCancelled
	}

	p.sleep(finalizeDelay)
	if err := p.msg.DeleteMessage(job.Status); err != nil {
		p.log.Debug("status delete failed", zap.Error(err))
	}
	p.jan.Cleanup(artifact, thumbPath)
	task.SetArtifact("")
	task.SetThumbnail("")

	p.log.Info("item delivered",
		zap.String("title", info.Title),
		zap.String("profile", string(task.Profile)),
		zap.Int64("size", size))
	return nil
}

// errAsCancelled reports whether an item outcome counts as a skip.
func errAsCancelled(err error) bool {
	return errors.Is(err, model.ErrCancelled)
}
