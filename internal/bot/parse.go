// Package bot translates chat traffic into application actions: it parses
// incoming links and commands, shows quality prompts, and dispatches callback
// answers into pipeline runs.
package bot

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ytget/ytgram/internal/model"
)

// Callback payload prefixes.
const (
	qualityPrefix         = "quality"
	playlistQualityMarker = "pl"
	skipPayloadPrefix     = "skip_current_"
	cancelPayloadPrefix   = "cancel_playlist_"
)

var youtubeURLRe = regexp.MustCompile(`^(https?://)?(www\.)?(youtube\.com|youtu\.be)/.+`)

// IsYouTubeURL reports whether text looks like a supported link.
func IsYouTubeURL(text string) bool {
	return youtubeURLRe.MatchString(text)
}

// Request is a parsed incoming link with an optional playlist range.
type Request struct {
	URL   string
	Start int // 1-based first position, 0 when absent
	End   int // inclusive last position, 0 when open
}

// ParseRequest splits "url | N" and "url | N-M" inputs. A bare URL yields a
// zero range.
func ParseRequest(text string) Request {
	parts := strings.SplitN(text, "|", 2)
	url := strings.TrimSpace(parts[0])
	if len(parts) == 1 {
		return Request{URL: url}
	}

	spec := strings.TrimSpace(parts[1])
	if first, last, found := strings.Cut(spec, "-"); found {
		start, _ := strconv.Atoi(strings.TrimSpace(first))
		end, _ := strconv.Atoi(strings.TrimSpace(last))
		return Request{URL: url, Start: start, End: end}
	}
	start, _ := strconv.Atoi(spec)
	return Request{URL: url, Start: start}
}

// QualityPayload encodes a quality choice bound to a session key.
func QualityPayload(profile model.Profile, key string, playlist bool) string {
	if playlist {
		return fmt.Sprintf("%s_%s_%s_%s", playlistQualityMarker, qualityPrefix, profile, key)
	}
	return fmt.Sprintf("%s_%s_%s", qualityPrefix, profile, key)
}

// Selection is a decoded quality choice.
type Selection struct {
	Profile  model.Profile
	Key      string
	Playlist bool
}

// ParseQualityPayload decodes a quality callback. Session keys never contain
// underscores, so the underscore split is unambiguous.
func ParseQualityPayload(data string) (Selection, bool) {
	parts := strings.Split(data, "_")
	switch {
	case len(parts) == 3 && parts[0] == qualityPrefix:
		profile, ok := model.ParseProfile(parts[1])
		if !ok {
			return Selection{}, false
		}
		return Selection{Profile: profile, Key: parts[2]}, true
	case len(parts) == 4 && parts[0] == playlistQualityMarker && parts[1] == qualityPrefix:
		profile, ok := model.ParseProfile(parts[2])
		if !ok {
			return Selection{}, false
		}
		return Selection{Profile: profile, Key: parts[3], Playlist: true}, true
	}
	return Selection{}, false
}

// SkipPayload encodes the skip-current control for a user's run.
func SkipPayload(user string) string {
	return skipPayloadPrefix + user
}

// CancelPayload encodes the cancel-run control for a user's run.
func CancelPayload(user string) string {
	return cancelPayloadPrefix + user
}
