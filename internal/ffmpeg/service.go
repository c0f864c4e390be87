// Package ffmpeg invokes the external transcoding binary to normalize
// retrieved streams: audio is re-encoded to a fixed-bitrate mp3, video is
// muxed and re-encoded into a broadly playable mp4 at a per-tier quality.
package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Encoder settings. Baseline h264 with yuv420p plays everywhere, which is the
// whole point of the normalize step.
const (
	VideoCodec   = "libx264"
	VideoPreset  = "faster"
	VideoProfile = "baseline"
	VideoLevel   = "3.0"
	PixelFormat  = "yuv420p"

	AudioCodec        = "aac"
	MuxAudioBitrate   = "128k"
	FastStartFlag     = "+faststart"
	DefaultFFmpeg     = "ffmpeg"
	DefaultFFprobe    = "ffprobe"
	TranscodeTimeout  = 5 * time.Minute
	ProbeShowEntries  = "format=duration"
	ProbeOutputFormat = "csv=p=0"
)

// Service runs the transcoding and probing binaries.
type Service struct {
	ffmpegPath  string
	ffprobePath string
	log         *zap.Logger
}

// NewService creates a transcoding service. Empty paths fall back to PATH
// lookup of the default names.
func NewService(ffmpegPath, ffprobePath string, log *zap.Logger) *Service {
	if ffmpegPath == "" {
		ffmpegPath = DefaultFFmpeg
	}
	if ffprobePath == "" {
		ffprobePath = DefaultFFprobe
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath, log: log}
}

// BuildExtractArgs builds the argument list for mp3 extraction.
func BuildExtractArgs(inputPath, outputPath, sampleRate, channels, bitrate string) []string {
	return []string{
		"-i", inputPath,
		"-vn",
		"-ar", sampleRate,
		"-ac", channels,
		"-b:a", bitrate,
		"-y",
		outputPath,
	}
}

// BuildMuxArgs builds the argument list muxing separate video and audio
// inputs into one mp4 at the given CRF.
func BuildMuxArgs(videoIn, audioIn, outputPath, crf string) []string {
	return []string{
		"-i", videoIn,
		"-i", audioIn,
		"-c:v", VideoCodec,
		"-preset", VideoPreset,
		"-profile:v", VideoProfile,
		"-level", VideoLevel,
		"-crf", crf,
		"-pix_fmt", PixelFormat,
		"-c:a", AudioCodec,
		"-b:a", MuxAudioBitrate,
		"-movflags", FastStartFlag,
		"-y",
		outputPath,
	}
}

// ExtractMP3 re-encodes input into a 44.1 kHz stereo mp3 at the given
// bitrate, producing exactly outputPath or failing.
func (s *Service) ExtractMP3(ctx context.Context, inputPath, outputPath, sampleRate, channels, bitrate string) error {
	return s.run(ctx, BuildExtractArgs(inputPath, outputPath, sampleRate, channels, bitrate))
}

// MuxMP4 combines a video-only and an audio-only stream into one mp4,
// re-encoding the video track at the tier's CRF.
func (s *Service) MuxMP4(ctx context.Context, videoIn, audioIn, outputPath, crf string) error {
	return s.run(ctx, BuildMuxArgs(videoIn, audioIn, outputPath, crf))
}

func (s *Service) run(ctx context.Context, args []string) error {
	ctx, cancelFn := context.WithTimeout(ctx, TranscodeTimeout)
	defer cancelFn()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, s.ffmpegPath, args...)
	cmd.Stderr = &stderr

	s.log.Debug("running transcode", zap.Strings("args", args))
	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("transcode timed out after %s", TranscodeTimeout)
		}
		return fmt.Errorf("transcode failed: %w: %s", err, lastLine(stderr.String()))
	}
	return nil
}

// Duration reports a media file's duration in seconds via the probe binary.
func (s *Service) Duration(filePath string) (float64, error) {
	cmd := exec.Command(s.ffprobePath,
		"-v", "error",
		"-show_entries", ProbeShowEntries,
		"-of", ProbeOutputFormat,
		filePath,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("probe duration: %w", err)
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("probe duration: parse: %w", err)
	}
	return duration, nil
}

func lastLine(out string) string {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) == 0 {
		return ""
	}
	return lines[len(lines)-1]
}
