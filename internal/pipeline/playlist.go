package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ytget/ytgram/internal/messenger"
	"github.com/ytget/ytgram/internal/model"
	"github.com/ytget/ytgram/internal/progress"
	"github.com/ytget/ytgram/internal/registry"
)

const (
	// Pause between consecutive playlist items. Spread out to avoid rate
	// pressure on the source; polled in short steps so a cancel lands fast.
	itemPace = 5 * time.Second
	paceStep = 500 * time.Millisecond

	titlePreviewLen = 50
)

// Driver sequences a playlist run: one item at a time, per-item outcome
// accounting, and a pinned status message updated between items.
type Driver struct {
	runner ItemRunner
	msg    messenger.Messenger
	log    *zap.Logger

	pace  time.Duration
	step  time.Duration
	sleep func(time.Duration) // test seam
}

// NewDriver creates a playlist driver running items through runner.
func NewDriver(runner ItemRunner, msg messenger.Messenger, log *zap.Logger) *Driver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Driver{
		runner: runner,
		msg:    msg,
		log:    log,
		pace:   itemPace,
		step:   paceStep,
		sleep:  time.Sleep,
	}
}

// PlaylistJob describes one playlist run.
type PlaylistJob struct {
	ChatID  int64
	Items   []model.PlaylistItem
	ReplyTo int

	// Controls is the inline keyboard attached to the run status message
	// (skip current, cancel run).
	Controls [][]messenger.Button
}

// Run executes items sequentially and returns the outcome tally. Per-item
// failures are reported and do not stop the run; only run-scope cancellation
// does.
func (d *Driver) Run(ctx context.Context, task *registry.Task, job PlaylistJob) model.RunStats {
	stats := model.RunStats{}
	total := len(job.Items)

	status, err := d.msg.SendMessage(job.ChatID,
		fmt.Sprintf("📝 Starting playlist download\n📊 Total videos: %d\n📍 Starting from: Video #%d\n\n⏳ Processing...\n\nUse buttons below to control:",
			total, job.Items[0].Position),
		&messenger.SendOptions{ReplyTo: job.ReplyTo, Buttons: job.Controls})
	if err != nil {
		d.log.Error("playlist status message failed", zap.Error(err))
		return stats
	}

	for i, item := range job.Items {
		if task.RunToken().IsSet() {
			d.finishCancelled(status, i, total, stats)
			return stats
		}

		// Fresh item token; a skip of the previous item must not leak in.
		task.NextItem()

		_ = d.msg.EditMessage(status,
			fmt.Sprintf("📝 Downloading Playlist\n\n📊 Progress: %d/%d\n📍 Playlist position: #%d\n✅ Success: %d\n⏭️ Skipped: %d\n❌ Failed: %d\n\n⬇️ Current: %s\n\nUse buttons below to control:",
				i+1, total, item.Position, stats.Succeeded, stats.Skipped, stats.Failed, truncateTitle(item.Title)),
			&messenger.SendOptions{Buttons: job.Controls})

		itemStatus, err := d.msg.SendMessage(job.ChatID,
			fmt.Sprintf("⏳ [#%d] [%d/%d] Processing...", item.Position, i+1, total),
			&messenger.SendOptions{ReplyTo: job.ReplyTo})
		if err != nil {
			d.log.Error("item status message failed", zap.Error(err))
			continue
		}

		if i > 0 && d.pause(task) {
			d.finishCancelled(status, i, total, stats)
			return stats
		}

		stats.Attempted++
		runErr := d.runner.Run(ctx, task, Job{
			ChatID:           job.ChatID,
			URL:              item.URL,
			ReplyTo:          job.ReplyTo,
			Status:           itemStatus,
			DownloadInterval: progress.PlaylistDownloadInterval,
			UploadInterval:   progress.PlaylistUploadEditInterval,
		})

		switch {
		case runErr == nil:
			stats.Succeeded++
		case task.RunToken().IsSet():
			// Run cancel landed mid-item; the aborted item is neither
			// skipped nor failed, the whole run just stops.
			d.finishCancelled(status, i+1, total, stats)
			return stats
		case errAsCancelled(runErr) || task.ItemToken().IsSet():
			stats.Skipped++
			_, _ = d.msg.SendMessage(job.ChatID,
				fmt.Sprintf("⏭️ [#%d] Skipped: %s", item.Position, truncateTitle(item.Title)),
				&messenger.SendOptions{ReplyTo: job.ReplyTo})
		case runErr != nil:
			stats.Failed++
			d.log.Warn("playlist item failed",
				zap.Int("position", item.Position),
				zap.Error(runErr))
			_, _ = d.msg.SendMessage(job.ChatID,
				fmt.Sprintf("❌ [#%d] Failed: %s\n\nError: %v", item.Position, truncateTitle(item.Title), runErr),
				&messenger.SendOptions{ReplyTo: job.ReplyTo})
		}
	}

	_ = d.msg.EditMessage(status,
		fmt.Sprintf("✅ Playlist Download Complete!\n\n📊 Total videos processed: %d\n✅ Successfully downloaded: %d\n⏭️ Skipped: %d\n❌ Failed: %d\n\n🎉 All done!",
			total, stats.Succeeded, stats.Skipped, stats.Failed), nil)

	d.log.Info("playlist finished",
		zap.Int("total", total),
		zap.Int("succeeded", stats.Succeeded),
		zap.Int("skipped", stats.Skipped),
		zap.Int("failed", stats.Failed))
	return stats
}

// pause waits the inter-item delay in short steps so a run cancel takes
// effect within one step. Reports whether the run was cancelled.
func (d *Driver) pause(task *registry.Task) bool {
	for elapsed := time.Duration(0); elapsed < d.pace; elapsed += d.step {
		if task.RunToken().IsSet() {
			return true
		}
		d.sleep(d.step)
	}
	return task.RunToken().IsSet()
}

func (d *Driver) finishCancelled(status messenger.MessageRef, processed, total int, stats model.RunStats) {
	_ = d.msg.EditMessage(status,
		fmt.Sprintf("🛑 Playlist Download Cancelled\n\n📊 Progress: %d/%d\n✅ Success: %d\n⏭️ Skipped: %d\n❌ Failed: %d\n\nCancelled by user.",
			processed, total, stats.Succeeded, stats.Skipped, stats.Failed), nil)
}

func truncateTitle(title string) string {
	runes := []rune(title)
	if len(runes) <= titlePreviewLen {
		return title
	}
	return string(runes[:titlePreviewLen]) + "..."
}
