package model

// SelectionEntry is the pending context cached between showing a quality
// prompt and the user answering it. Exactly one of Item or Items is set.
type SelectionEntry struct {
	// Item holds single-item metadata for a plain video request.
	Item *ItemInfo

	// Items holds the (already range-filtered) playlist slice.
	Items []PlaylistItem

	// ReplyTo is the id of the originating user message; later status and
	// file messages reply to it.
	ReplyTo int
}

// IsPlaylist reports whether the entry carries a playlist slice.
func (e *SelectionEntry) IsPlaylist() bool {
	return len(e.Items) > 0
}
