package service

import (
	"context"

	"github.com/xxxsen/askyt/internal/ai"
	"github.com/xxxsen/askyt/internal/model"
	"github.com/xxxsen/askyt/internal/youtube"
)

// Store and collaborator contracts consumed by the services. The production
// bindings live in repo, ai and youtube; tests substitute fakes.

type VideoStore interface {
	GetByID(ctx context.Context, videoID string) (*model.Video, error)
	Claim(ctx context.Context, videoID, url string, now int64) (bool, error)
	Finalize(ctx context.Context, video *model.Video) error
	Delete(ctx context.Context, videoID string) error
	ListStalePending(ctx context.Context, maxMtime int64, limit int) ([]string, error)
}

type ChunkStore interface {
	UpsertBatch(ctx context.Context, chunks []model.VideoChunk) error
	Search(ctx context.Context, queryVec []float32, videoIDs []string, k int) ([]model.SearchHit, error)
	DeleteByVideo(ctx context.Context, videoID string) error
	DeleteOrphans(ctx context.Context, maxCtime int64) (int64, error)
}

type ThreadStore interface {
	Create(ctx context.Context, thread *model.Thread) error
	GetByID(ctx context.Context, threadID string) (*model.Thread, error)
	List(ctx context.Context) ([]model.Thread, error)
	Delete(ctx context.Context, threadID string) error
}

type MessageStore interface {
	Create(ctx context.Context, msg *model.Message) error
	ListByThread(ctx context.Context, threadID string) ([]model.Message, error)
}

type VideoFetcher interface {
	Metadata(ctx context.Context, videoID string) (*youtube.Metadata, error)
	WatchInfo(ctx context.Context, videoID string) (*youtube.WatchInfo, error)
	Transcript(ctx context.Context, info *youtube.WatchInfo, languages []string) (string, error)
}

type AIPipeline interface {
	SummarizeChapter(ctx context.Context, section string) (string, error)
	SummarizeVideo(ctx context.Context, chapters []string) (string, error)
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbeddingModelName() string
	ChatStream(ctx context.Context, contextBlock string, history []ai.ChatMessage, fn ai.StreamFunc) error
}
