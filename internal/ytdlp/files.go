package ytdlp

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/ytget/ytgram/internal/model"
)

// ExtPlaceholder is the extension slot in output templates.
const ExtPlaceholder = ".%(ext)s"

// Extension candidates probed when the tool did not report its output name.
var (
	AudioExtensions = []string{".m4a", ".webm", ".opus", ".mp3"}
	VideoExtensions = []string{".mp4", ".mkv", ".webm"}
)

// Filename limits
const (
	MaxFilenameBytes = 240
	truncationSuffix = "..."
)

var forbiddenChars = regexp.MustCompile(`[/\\?%*:|"<>]`)

// LocateArtifact resolves the file a download actually produced. reported is
// the name the tool printed, possibly empty; when it does not exist the
// template is probed against each candidate extension in order.
func LocateArtifact(reported, template string, candidates []string) (string, error) {
	if reported != "" {
		if _, err := os.Stat(reported); err == nil {
			return reported, nil
		}
	}

	for _, ext := range candidates {
		path := strings.Replace(template, ExtPlaceholder, ext, 1)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: no candidate at %s", model.ErrArtifactNotFound, template)
}

// SanitizeFilename strips characters the filesystem rejects and truncates to
// MaxFilenameBytes of UTF-8, never splitting a rune.
func SanitizeFilename(name string) string {
	cleaned := forbiddenChars.ReplaceAllString(name, "-")
	if len(cleaned) <= MaxFilenameBytes {
		return cleaned
	}

	limit := MaxFilenameBytes - len(truncationSuffix)
	runes := []rune(cleaned)
	for len(string(runes)) > limit {
		runes = runes[:len(runes)-1]
	}
	return strings.TrimSpace(string(runes)) + truncationSuffix
}
