package bot

import (
	"github.com/ytget/ytgram/internal/messenger"
	"github.com/ytget/ytgram/internal/model"
)

// QualityKeyboard builds the quality selection rows for a cached session.
func QualityKeyboard(key string, playlist bool) [][]messenger.Button {
	button := func(p model.Profile) messenger.Button {
		label := "📹 " + p.Label()
		if p.IsAudio() {
			label = "🎵 " + p.Label()
		}
		return messenger.Button{Text: label, Data: QualityPayload(p, key, playlist)}
	}

	return [][]messenger.Button{
		{button(model.ProfileAudio), button(model.Profile360p)},
		{button(model.Profile480p), button(model.Profile720p)},
		{button(model.Profile1080p)},
	}
}

// PlaylistControls builds the skip and cancel rows pinned to a playlist run.
func PlaylistControls(user string) [][]messenger.Button {
	return [][]messenger.Button{
		{{Text: "⏭️ Skip Current Video", Data: SkipPayload(user)}},
		{{Text: "🛑 Cancel Entire Playlist", Data: CancelPayload(user)}},
	}
}
