package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ytget/ytgram/internal/bot"
	"github.com/ytget/ytgram/internal/catalog"
	"github.com/ytget/ytgram/internal/config"
	"github.com/ytget/ytgram/internal/ffmpeg"
	"github.com/ytget/ytgram/internal/health"
	"github.com/ytget/ytgram/internal/janitor"
	"github.com/ytget/ytgram/internal/logger"
	"github.com/ytget/ytgram/internal/messenger"
	"github.com/ytget/ytgram/internal/pipeline"
	"github.com/ytget/ytgram/internal/registry"
	"github.com/ytget/ytgram/internal/session"
	"github.com/ytget/ytgram/internal/thumbnail"
	"github.com/ytget/ytgram/internal/ytdlp"
)

// Console transport identity used when no chat backend is attached.
const (
	consoleChatID = 1
	consoleUser   = "console"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bot",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		log, err := logger.New(cfg.Log)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		return run(cfg, log)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func run(cfg *config.Config, log *zap.Logger) error {
	jan, err := janitor.New(cfg.Download.TempDir, log)
	if err != nil {
		return fmt.Errorf("init work dir: %w", err)
	}
	jan.Start()
	defer jan.Stop()

	reg := registry.New(func(task *registry.Task) {
		artifact, thumb := task.Paths()
		jan.Cleanup(artifact, thumb)
	}, log)
	sessions := session.New(session.DefaultTTL)

	runner := ytdlp.NewRunner(cfg.Download.YtDlpPath, log)
	transcoder := ffmpeg.NewService(cfg.Download.FFmpegPath, cfg.Download.FFprobePath, log)
	cat := catalog.NewService(log)
	thumbs := thumbnail.NewFetcher(log)
	defer func() { _ = thumbs.Close() }()

	// Console transport stands in until a chat backend is wired.
	msg := messenger.NewConsole(nil, log)

	pipe := pipeline.New(runner, transcoder, thumbs, msg, jan, cfg.Download.MaxFileSizeBytes(), log)
	driver := pipeline.NewDriver(pipe, msg, log)
	handler := bot.NewHandler(msg, reg, sessions, pipe, driver, cat, runner, thumbs, jan, cfg.Download.MaxFileSizeMB, log)

	healthSrv := health.New(cfg.Health.Port, reg, sessions, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := healthSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return healthSrv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		consoleLoop(ctx, handler, log)
		return nil
	})

	log.Info("bot started",
		zap.Int64("max_file_size_mb", cfg.Download.MaxFileSizeMB),
		zap.String("work_dir", jan.Dir()))

	err = g.Wait()

	// Leftover artifacts are useless across restarts.
	removed := jan.Sweep(0)
	log.Info("shutdown complete", zap.Int("files_removed", removed))
	return err
}

// consoleLoop feeds stdin lines into the handler: plain lines are chat
// messages, "cb <payload>" lines simulate a button press.
func consoleLoop(ctx context.Context, handler *bot.Handler, log *zap.Logger) {
	scanner := bufio.NewScanner(os.Stdin)
	messageID := 0

	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		messageID++

		if data, ok := strings.CutPrefix(line, "cb "); ok {
			go handler.HandleCallback(ctx, consoleChatID, consoleUser, fmt.Sprintf("cb-%d", messageID),
				messenger.MessageRef{ChatID: consoleChatID, ID: messageID}, data)
			continue
		}
		go handler.HandleMessage(ctx, consoleChatID, consoleUser, messageID, line)
	}
	if err := scanner.Err(); err != nil {
		log.Warn("console input closed", zap.Error(err))
	}
}
