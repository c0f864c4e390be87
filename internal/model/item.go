package model

// ItemInfo is the metadata fetched for a single item before retrieval starts.
type ItemInfo struct {
	Title     string
	Uploader  string
	Duration  int // seconds, 0 if unknown
	Thumbnail string
	URL       string
}

// PlaylistItem is one entry of an enumerated playlist. Position is the
// absolute 1-based position in the full playlist, preserved across
// range-filtered slices.
type PlaylistItem struct {
	Position int
	Title    string
	URL      string
}

// RunStats aggregates per-item outcomes over one playlist run.
type RunStats struct {
	Attempted int
	Succeeded int
	Skipped   int
	Failed    int
}
