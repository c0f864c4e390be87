package ytdlp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/ytget/ytgram/internal/cancel"
	"github.com/ytget/ytgram/internal/model"
	"github.com/ytget/ytgram/internal/progress"
)

// Invocation constants
const (
	DefaultBinary = "yt-dlp"

	// UserAgent is sent on every invocation; the source throttles
	// unidentified clients harder.
	UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

	ConcurrentFragments = "4"
	ThrottledRate       = "100K"
)

// Runner invokes the retrieval binary.
type Runner struct {
	path string
	log  *zap.Logger
}

// NewRunner creates a runner for the binary at path (empty means PATH lookup
// of the default name).
func NewRunner(path string, log *zap.Logger) *Runner {
	if path == "" {
		path = DefaultBinary
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{path: path, log: log}
}

// infoJSON is the subset of the tool's -j dump the bot uses.
type infoJSON struct {
	Title      string  `json:"title"`
	Duration   float64 `json:"duration"`
	Channel    string  `json:"channel"`
	Uploader   string  `json:"uploader"`
	Thumbnail  string  `json:"thumbnail"`
	Thumbnails []struct {
		URL string `json:"url"`
	} `json:"thumbnails"`
}

// FetchInfo dumps metadata for a single item without downloading it.
func (r *Runner) FetchInfo(ctx context.Context, url string) (*model.ItemInfo, error) {
	args := []string{
		url,
		"-j",
		"--no-warnings",
		"--no-playlist",
		"--skip-download",
		"--user-agent", UserAgent,
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.path, args...)
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("fetch metadata: %w: %s", err, diagnosticTail(stderr.String()))
	}

	var info infoJSON
	if err := json.Unmarshal(out, &info); err != nil {
		return nil, fmt.Errorf("fetch metadata: parse json: %w", err)
	}

	uploader := info.Channel
	if uploader == "" {
		uploader = info.Uploader
	}
	if uploader == "" {
		uploader = "Unknown"
	}
	title := info.Title
	if title == "" {
		title = "Unknown"
	}

	return &model.ItemInfo{
		Title:     title,
		Uploader:  uploader,
		Duration:  int(info.Duration),
		Thumbnail: pickThumbnail(info),
		URL:       url,
	}, nil
}

// pickThumbnail prefers the max-resolution variant when the dump lists one.
func pickThumbnail(info infoJSON) string {
	for _, t := range info.Thumbnails {
		if strings.Contains(t.URL, "maxresdefault") {
			return t.URL
		}
	}
	return info.Thumbnail
}

// DownloadRequest describes one stream retrieval.
type DownloadRequest struct {
	URL            string
	Format         string // format selector encoding the profile
	OutputTemplate string // contains the extension placeholder
	MergeMP4       bool   // let the tool mux matching streams into mp4
	NoPart         bool   // write output directly, no .part intermediate
	Progress       func(progress.Sample)
	Token          *cancel.Token
}

// Download runs the retrieval tool until completion or cancellation. It
// returns the final filename when the tool reported one; an empty name with a
// nil error is normal and means the caller must probe for the artifact.
func (r *Runner) Download(ctx context.Context, req DownloadRequest) (string, error) {
	args := []string{
		req.URL,
		"-f", req.Format,
		"-o", req.OutputTemplate,
		"--no-warnings",
		"--no-playlist",
		"--newline",
		"--user-agent", UserAgent,
	}
	if req.MergeMP4 {
		args = append(args,
			"--merge-output-format", "mp4",
			"--concurrent-fragments", ConcurrentFragments,
			"--throttled-rate", ThrottledRate,
		)
	}
	if req.NoPart {
		args = append(args, "--no-part")
	}

	cmd := exec.CommandContext(ctx, r.path, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("spawn %s: %w", r.path, err)
	}

	finalName := ""
	merged := false
	killed := false

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		line := scanner.Text()

		// Each progress line is a poll point for cooperative cancellation.
		if !killed && req.Token.IsSet() {
			killed = true
			_ = cmd.Process.Kill()
			continue // keep draining until the pipe closes
		}

		if sample, ok := ParseProgressLine(line); ok {
			if req.Progress != nil && !killed {
				req.Progress(sample)
			}
			continue
		}
		if name, isMerge, ok := ParseFinalName(line); ok {
			if isMerge || !merged {
				finalName = name
				merged = merged || isMerge
			}
		}
	}

	waitErr := cmd.Wait()

	if killed || req.Token.IsSet() {
		return "", model.ErrCancelled
	}
	if waitErr != nil {
		return "", fmt.Errorf("retrieval failed: %w: %s", waitErr, diagnosticTail(stderr.String()))
	}
	return finalName, nil
}

// diagnosticTail keeps the last chunk of the tool's stderr for the error
// message, skipping warning noise.
func diagnosticTail(stderr string) string {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	kept := lines[:0]
	for _, l := range lines {
		if strings.Contains(l, "WARNING") || strings.TrimSpace(l) == "" {
			continue
		}
		kept = append(kept, l)
	}
	if len(kept) > 3 {
		kept = kept[len(kept)-3:]
	}
	return strings.Join(kept, " | ")
}
