package messenger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Console is a Messenger that prints to a writer. It backs local development
// runs and lets tests observe the exact message traffic.
type Console struct {
	mu     sync.Mutex
	out    io.Writer
	nextID atomic.Int64
	log    *zap.Logger
}

// NewConsole creates a console messenger writing to out, stdout when nil.
func NewConsole(out io.Writer, log *zap.Logger) *Console {
	if out == nil {
		out = os.Stdout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Console{out: out, log: log}
}

func (c *Console) SendMessage(chatID int64, text string, opts *SendOptions) (MessageRef, error) {
	id := int(c.nextID.Add(1))
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "[chat %d] #%d: %s\n", chatID, id, text)
	if opts != nil {
		for _, row := range opts.Buttons {
			for _, b := range row {
				fmt.Fprintf(c.out, "  [%s] -> %s\n", b.Text, b.Data)
			}
		}
	}
	return MessageRef{ChatID: chatID, ID: id}, nil
}

func (c *Console) EditMessage(ref MessageRef, text string, opts *SendOptions) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "[chat %d] #%d (edited): %s\n", ref.ChatID, ref.ID, text)
	return nil
}

func (c *Console) DeleteMessage(ref MessageRef) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "[chat %d] #%d deleted\n", ref.ChatID, ref.ID)
	return nil
}

func (c *Console) SendFile(chatID int64, upload FileUpload) (MessageRef, error) {
	if upload.Progress != nil {
		upload.Progress(upload.Size, upload.Size)
	}
	id := int(c.nextID.Add(1))
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "[chat %d] #%d: file %s (%d bytes)\n", chatID, id, upload.FileName, upload.Size)
	if upload.Caption != "" {
		fmt.Fprintf(c.out, "  caption: %s\n", upload.Caption)
	}
	for _, row := range upload.Buttons {
		for _, b := range row {
			fmt.Fprintf(c.out, "  [%s] -> %s\n", b.Text, b.Data)
		}
	}
	return MessageRef{ChatID: chatID, ID: id}, nil
}

func (c *Console) AnswerCallback(callbackID, text string) error {
	c.log.Debug("callback answered",
		zap.String("callback_id", callbackID),
		zap.String("text", text))
	return nil
}

var _ Messenger = (*Console)(nil)
