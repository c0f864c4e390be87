package messenger

import (
	"strings"
	"testing"
)

func TestUploadSettings(t *testing.T) {
	tests := []struct {
		name            string
		size            int64
		expectedWorkers int
	}{
		{"small file", 10 * 1024 * 1024, SmallFileWorkers},
		{"just under threshold", 50*1024*1024 - 1, SmallFileWorkers},
		{"at threshold", 50 * 1024 * 1024, LargeFileWorkers},
		{"large file", 900 * 1024 * 1024, LargeFileWorkers},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			workers, requestSize := UploadSettings(tt.size)
			if workers != tt.expectedWorkers {
				t.Errorf("Expected %d workers, got %d", tt.expectedWorkers, workers)
			}
			if requestSize != UploadRequestSize {
				t.Errorf("Expected request size %d, got %d", UploadRequestSize, requestSize)
			}
		})
	}
}

func TestConsoleTraffic(t *testing.T) {
	var sb strings.Builder
	c := NewConsole(&sb, nil)

	ref, err := c.SendMessage(42, "hello", &SendOptions{
		Buttons: [][]Button{{{Text: "Stop", Data: "cancel_playlist_42"}}},
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if ref.ChatID != 42 || ref.ID == 0 {
		t.Errorf("Expected populated ref, got %+v", ref)
	}

	if err := c.EditMessage(ref, "updated", nil); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if err := c.DeleteMessage(ref); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	out := sb.String()
	for _, want := range []string{"hello", "cancel_playlist_42", "updated", "deleted"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got %q", want, out)
		}
	}
}

func TestConsoleSendFileReportsProgress(t *testing.T) {
	var sb strings.Builder
	c := NewConsole(&sb, nil)

	var uploaded, total int64
	_, err := c.SendFile(7, FileUpload{
		Path:     "/tmp/a.mp3",
		FileName: "a.mp3",
		Size:     1234,
		Progress: func(u, t int64) { uploaded, total = u, t },
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if uploaded != 1234 || total != 1234 {
		t.Errorf("Expected progress 1234/1234, got %d/%d", uploaded, total)
	}
}
