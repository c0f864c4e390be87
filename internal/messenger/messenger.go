// Package messenger abstracts the chat transport. The rest of the
// application talks to the Messenger interface; a concrete Telegram binding
// plugs in at wiring time, and a console implementation backs local runs and
// tests.
package messenger

// MessageRef identifies a sent message for later edits or deletion.
type MessageRef struct {
	ChatID int64
	ID     int
}

// Button is a single inline action attached to a message.
type Button struct {
	Text string
	Data string
}

// SendOptions control message placement and attached controls.
type SendOptions struct {
	ReplyTo int
	Buttons [][]Button
}

// AudioAttributes describe an audio upload.
type AudioAttributes struct {
	Duration  int
	Title     string
	Performer string
}

// VideoAttributes describe a video upload.
type VideoAttributes struct {
	Duration          int
	Width             int
	Height            int
	SupportsStreaming bool
}

// FileUpload carries everything needed to deliver one artifact. Buttons
// attach inline controls to the file message, used for photo prompts that
// carry the quality keyboard.
type FileUpload struct {
	Path        string
	Size        int64
	FileName    string
	Caption     string
	Buttons     [][]Button
	Workers     int
	RequestSize int64
	Audio       *AudioAttributes
	Video       *VideoAttributes
	ThumbPath   string
	ReplyTo     int
	Progress    func(uploaded, total int64)
}

// Messenger is the chat transport surface the application depends on.
type Messenger interface {
	SendMessage(chatID int64, text string, opts *SendOptions) (MessageRef, error)
	EditMessage(ref MessageRef, text string, opts *SendOptions) error
	DeleteMessage(ref MessageRef) error
	SendFile(chatID int64, upload FileUpload) (MessageRef, error)
	AnswerCallback(callbackID, text string) error
}

// Upload tuning thresholds.
const (
	SmallFileWorkers = 8
	LargeFileWorkers = 16

	// Files at or above this size get the larger worker pool.
	largeFileThreshold = 50 * 1024 * 1024

	UploadRequestSize = 512 * 1024
)

// UploadSettings picks parallelism and chunk size for a file of the given
// size.
func UploadSettings(size int64) (workers int, requestSize int64) {
	if size >= largeFileThreshold {
		return LargeFileWorkers, UploadRequestSize
	}
	return SmallFileWorkers, UploadRequestSize
}
