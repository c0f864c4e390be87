package model

import "fmt"

// Profile selects the output produced for an item: extracted audio or a video
// capped at a resolution tier.
type Profile string

const (
	ProfileAudio Profile = "mp3"
	Profile360p  Profile = "360"
	Profile480p  Profile = "480"
	Profile720p  Profile = "720"
	Profile1080p Profile = "1080"
)

// Audio encoding settings
const (
	AudioBitrate    = "192k"
	AudioSampleRate = "44100"
	AudioChannels   = "2"
)

// Format selector fragments. The avc1 preference keeps the retrieved video
// stream playable on most clients without a second re-encode pass.
const (
	AudioFormatSelector       = "bestaudio[ext=m4a]/bestaudio"
	videoFormatSelectorLayout = "bestvideo[height<=%s][vcodec^=avc1]/bestvideo[height<=%s][ext=mp4]/bestvideo[height<=%s]"
)

// ParseProfile maps a callback payload tag to a Profile.
func ParseProfile(tag string) (Profile, bool) {
	switch Profile(tag) {
	case ProfileAudio, Profile360p, Profile480p, Profile720p, Profile1080p:
		return Profile(tag), true
	}
	return "", false
}

// AllProfiles returns every selectable profile in keyboard order.
func AllProfiles() []Profile {
	return []Profile{ProfileAudio, Profile360p, Profile480p, Profile720p, Profile1080p}
}

// IsAudio reports whether the profile produces an audio-only file.
func (p Profile) IsAudio() bool {
	return p == ProfileAudio
}

// Label returns the user-facing name of the profile.
func (p Profile) Label() string {
	if p.IsAudio() {
		return "MP3 Audio"
	}
	return string(p) + "p"
}

// VideoFormatSelector returns the retrieval format selector for the profile's
// video stream. Audio profiles have no video selector.
func (p Profile) VideoFormatSelector() string {
	if p.IsAudio() {
		return ""
	}
	return fmt.Sprintf(videoFormatSelectorLayout, p, p, p)
}

// CRF returns the re-encode quality for the tier. Lower resolutions tolerate
// a higher CRF, which keeps output size down.
func (p Profile) CRF() string {
	switch p {
	case Profile480p:
		return "25"
	case Profile720p:
		return "24"
	case Profile1080p:
		return "23"
	default:
		return "26"
	}
}

// Dimensions returns the nominal output width and height for the tier.
func (p Profile) Dimensions() (width, height int) {
	switch p {
	case Profile480p:
		return 854, 480
	case Profile720p:
		return 1280, 720
	case Profile1080p:
		return 1920, 1080
	default:
		return 640, 360
	}
}
