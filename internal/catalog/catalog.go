// Package catalog enumerates playlist contents and resolves user-supplied
// position ranges against them.
package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ytget/ytdlp/v2"
	"go.uber.org/zap"

	"github.com/ytget/ytgram/internal/model"
)

const (
	DefaultEnumerateTimeout = 60 * time.Second

	PlaylistParam  = "list="
	ParamSeparator = "&"

	videoURLTemplate = "https://www.youtube.com/watch?v=%s"
)

// Service resolves playlist URLs into ordered item lists.
type Service struct {
	timeout time.Duration
	log     *zap.Logger
}

// NewService creates a playlist enumeration service.
func NewService(log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{timeout: DefaultEnumerateTimeout, log: log}
}

// SetTimeout overrides the enumeration timeout.
func (s *Service) SetTimeout(timeout time.Duration) {
	s.timeout = timeout
}

// IsPlaylistURL reports whether the URL carries a playlist identifier.
func IsPlaylistURL(url string) bool {
	return strings.Contains(url, PlaylistParam)
}

// ExtractPlaylistID pulls the playlist identifier out of a URL. Returns an
// empty string when the URL carries none.
func ExtractPlaylistID(url string) string {
	idx := strings.Index(url, PlaylistParam)
	if idx == -1 {
		return ""
	}
	id := url[idx+len(PlaylistParam):]
	if sep := strings.Index(id, ParamSeparator); sep != -1 {
		id = id[:sep]
	}
	return id
}

// Items enumerates a playlist into positioned entries, first item at
// position 1.
func (s *Service) Items(ctx context.Context, url string) ([]model.PlaylistItem, error) {
	playlistID := ExtractPlaylistID(url)
	if playlistID == "" {
		return nil, fmt.Errorf("no playlist identifier in URL: %s", url)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	d := ytdlp.New()
	entries, err := d.GetPlaylistItemsAll(ctx, playlistID, 0)
	if err != nil {
		return nil, fmt.Errorf("enumerate playlist %s: %w", playlistID, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("playlist %s is empty", playlistID)
	}

	items := make([]model.PlaylistItem, 0, len(entries))
	for i, entry := range entries {
		items = append(items, model.PlaylistItem{
			Position: i + 1,
			Title:    entry.Title,
			URL:      fmt.Sprintf(videoURLTemplate, entry.VideoID),
		})
	}

	s.log.Debug("playlist enumerated",
		zap.String("playlist_id", playlistID),
		zap.Int("items", len(items)))
	return items, nil
}

// FilterRange slices items down to the inclusive 1-based [start, end] window.
// Out-of-bounds edges clamp to the list; end <= 0 means "to the last item".
// An empty result after clamping is an error.
func FilterRange(items []model.PlaylistItem, start, end int) ([]model.PlaylistItem, error) {
	if start < 1 {
		start = 1
	}
	first := start - 1
	last := len(items)
	if end > 0 && end < last {
		last = end
	}
	if first >= last {
		return nil, fmt.Errorf("range %d-%d selects nothing from %d items", start, end, len(items))
	}
	return items[first:last], nil
}
