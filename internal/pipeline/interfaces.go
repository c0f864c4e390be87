package pipeline

import (
	"context"

	"github.com/ytget/ytgram/internal/model"
	"github.com/ytget/ytgram/internal/registry"
	"github.com/ytget/ytgram/internal/ytdlp"
)

// Retriever fetches item metadata and runs stream downloads.
type Retriever interface {
	FetchInfo(ctx context.Context, url string) (*model.ItemInfo, error)
	Download(ctx context.Context, req ytdlp.DownloadRequest) (string, error)
}

// Transcoder normalizes retrieved streams into deliverable formats.
type Transcoder interface {
	ExtractMP3(ctx context.Context, inputPath, outputPath, sampleRate, channels, bitrate string) error
	MuxMP4(ctx context.Context, videoIn, audioIn, outputPath, crf string) error
}

// ThumbnailFetcher downloads preview images.
type ThumbnailFetcher interface {
	Download(ctx context.Context, url, destPath string) error
}

// ItemRunner executes one item end to end. The playlist driver depends on
// this rather than the concrete pipeline.
type ItemRunner interface {
	Run(ctx context.Context, task *registry.Task, job Job) error
}
