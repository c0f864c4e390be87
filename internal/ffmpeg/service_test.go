package ffmpeg

import (
	"strings"
	"testing"
)

func TestBuildExtractArgs(t *testing.T) {
	args := BuildExtractArgs("/tmp/in.m4a", "/tmp/out.mp3", "44100", "2", "192k")

	joined := strings.Join(args, " ")
	expected := "-i /tmp/in.m4a -vn -ar 44100 -ac 2 -b:a 192k -y /tmp/out.mp3"
	if joined != expected {
		t.Errorf("Expected args %q, got %q", expected, joined)
	}
}

func TestBuildMuxArgs(t *testing.T) {
	args := BuildMuxArgs("/tmp/video.mp4", "/tmp/audio.m4a", "/tmp/out.mp4", "24")

	joined := strings.Join(args, " ")
	checks := []string{
		"-i /tmp/video.mp4 -i /tmp/audio.m4a",
		"-c:v libx264",
		"-preset faster",
		"-profile:v baseline",
		"-level 3.0",
		"-crf 24",
		"-pix_fmt yuv420p",
		"-c:a aac",
		"-b:a 128k",
		"-movflags +faststart",
	}
	for _, want := range checks {
		if !strings.Contains(joined, want) {
			t.Errorf("Expected args to contain %q, got %q", want, joined)
		}
	}
	if args[len(args)-1] != "/tmp/out.mp4" {
		t.Errorf("Expected output path last, got %q", args[len(args)-1])
	}
	if args[len(args)-2] != "-y" {
		t.Errorf("Expected -y before output path, got %q", args[len(args)-2])
	}
}

func TestNewServiceDefaults(t *testing.T) {
	s := NewService("", "", nil)

	if s.ffmpegPath != DefaultFFmpeg {
		t.Errorf("Expected ffmpeg path %q, got %q", DefaultFFmpeg, s.ffmpegPath)
	}
	if s.ffprobePath != DefaultFFprobe {
		t.Errorf("Expected ffprobe path %q, got %q", DefaultFFprobe, s.ffprobePath)
	}
	if s.log == nil {
		t.Error("Expected non-nil logger")
	}
}

func TestLastLine(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"multi line", "first\nsecond\nthird\n", "third"},
		{"single line", "only", "only"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := lastLine(tt.input); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}
