package service

import (
	"context"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/askyt/internal/config"
	"github.com/xxxsen/askyt/internal/model"
	appErr "github.com/xxxsen/askyt/internal/pkg/errors"
	"github.com/xxxsen/askyt/internal/splitter"
	"github.com/xxxsen/askyt/internal/youtube"
)

// IngestService turns a video url into an indexed, chat-ready record:
// transcript fetch, hierarchical split, per-chapter and global synthesis,
// then batched embedding into the chunk store.
type IngestService struct {
	videos   VideoStore
	chunks   ChunkStore
	yt       VideoFetcher
	ai       AIPipeline
	splitter *splitter.Hierarchical
	cfg      config.IngestConfig
}

func NewIngestService(videos VideoStore, chunks ChunkStore, yt VideoFetcher, pipeline AIPipeline, cfg config.IngestConfig) *IngestService {
	return &IngestService{
		videos:   videos,
		chunks:   chunks,
		yt:       yt,
		ai:       pipeline,
		splitter: splitter.NewHierarchical(cfg.ParentChunkSize, cfg.ParentChunkOverlap, cfg.ChildChunkSize, cfg.ChildChunkOverlap),
		cfg:      cfg,
	}
}

// EnsureVideo ingests the video behind rawURL unless it is indexed already.
// Re-submitting an ingested video returns the stored record without any
// model or embedding call. A claim row written before the pipeline starts
// makes two concurrent first-time ingestions race-safe: exactly one caller
// proceeds, the other gets a conflict.
func (s *IngestService) EnsureVideo(ctx context.Context, rawURL string) (*model.Video, error) {
	videoID, err := youtube.ExtractVideoID(rawURL)
	if err != nil {
		return nil, err
	}
	logger := logutil.GetLogger(ctx).With(zap.String("video_id", videoID))
	existing, err := s.videos.GetByID(ctx, videoID)
	if err == nil {
		if existing.State == model.VideoStateReady {
			return existing, nil
		}
		return nil, fmt.Errorf("%w: ingestion in progress", appErr.ErrConflict)
	}
	if !appErr.IsNotFound(err) {
		return nil, err
	}
	claimed, err := s.videos.Claim(ctx, videoID, rawURL, time.Now().UnixMilli())
	if err != nil {
		return nil, err
	}
	if !claimed {
		// The race winner may have finished between our read and the
		// claim; serve its record instead of forcing a retry.
		winner, gerr := s.videos.GetByID(ctx, videoID)
		if gerr == nil && winner.State == model.VideoStateReady {
			return winner, nil
		}
		return nil, fmt.Errorf("%w: ingestion in progress", appErr.ErrConflict)
	}
	video, err := s.ingest(ctx, videoID, rawURL)
	if err != nil {
		s.release(ctx, videoID)
		logger.Error("ingest video failed", zap.Error(err))
		return nil, err
	}
	logger.Info("video ingested",
		zap.Int64("duration", video.Duration),
		zap.Int("transcript_chars", len(video.Transcript)),
		zap.String("embed_model", s.ai.EmbeddingModelName()))
	return video, nil
}

func (s *IngestService) ingest(ctx context.Context, videoID, rawURL string) (*model.Video, error) {
	info, err := s.yt.WatchInfo(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("fetch watch info: %w", err)
	}
	// Duration 0 means the watch page did not expose it; proceed uncapped.
	if s.cfg.MaxDurationSeconds > 0 && info.Duration > s.cfg.MaxDurationSeconds {
		return nil, fmt.Errorf("%w: %ds exceeds %ds", appErr.ErrVideoTooLong, info.Duration, s.cfg.MaxDurationSeconds)
	}
	meta, err := s.yt.Metadata(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("fetch metadata: %w", err)
	}
	transcript, err := s.yt.Transcript(ctx, info, s.cfg.Languages)
	if err != nil {
		return nil, err
	}
	parents := s.splitter.Split(transcript)
	if len(parents) == 0 {
		return nil, appErr.ErrNoCaptions
	}

	now := time.Now().UnixMilli()
	chapters := make([]string, 0, len(parents))
	var chunks []model.VideoChunk
	for _, parent := range parents {
		// Sequential on purpose: the global prompt is built from the
		// chapter list in window order.
		chapter, err := s.ai.SummarizeChapter(ctx, parent.Text)
		if err != nil {
			return nil, fmt.Errorf("%w: summarize window %d: %v", appErr.ErrGenerationFailure, parent.Index, err)
		}
		chapters = append(chapters, chapter)
		for _, child := range parent.Children {
			chunks = append(chunks, model.VideoChunk{
				ChunkID:        model.ChunkID(videoID, parent.Index, child.Index),
				VideoID:        videoID,
				ParentIndex:    parent.Index,
				ChunkIndex:     child.Index,
				ChapterSummary: chapter,
				Content:        child.Text,
				Ctime:          now,
			})
		}
	}
	summary, err := s.ai.SummarizeVideo(ctx, chapters)
	if err != nil {
		return nil, fmt.Errorf("%w: global summary: %v", appErr.ErrGenerationFailure, err)
	}
	if err := s.embedAndUpsert(ctx, chunks); err != nil {
		return nil, err
	}

	video := &model.Video{
		VideoID:      videoID,
		URL:          rawURL,
		Title:        meta.Title,
		AuthorName:   meta.AuthorName,
		ThumbnailURL: meta.ThumbnailURL,
		Transcript:   transcript,
		Duration:     info.Duration,
		Summary:      summary,
		State:        model.VideoStateReady,
		Mtime:        time.Now().UnixMilli(),
	}
	// The durable flip to ready happens only after every external call
	// above has succeeded.
	if err := s.videos.Finalize(ctx, video); err != nil {
		return nil, err
	}
	return video, nil
}

// embedAndUpsert processes chunks in fixed-size batches, each batch embedded
// and written before the next starts, bounding memory against upstream limits.
func (s *IngestService) embedAndUpsert(ctx context.Context, chunks []model.VideoChunk) error {
	batchSize := s.cfg.EmbedBatchSize
	if batchSize <= 0 {
		batchSize = len(chunks)
	}
	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]
		texts := make([]string, 0, len(batch))
		for _, chunk := range batch {
			texts = append(texts, chunk.Content)
		}
		embeddings, err := s.ai.EmbedDocuments(ctx, texts)
		if err != nil {
			return fmt.Errorf("%w: embed batch at %d: %v", appErr.ErrGenerationFailure, start, err)
		}
		if len(embeddings) != len(batch) {
			return fmt.Errorf("%w: embed batch at %d: got %d vectors for %d texts", appErr.ErrGenerationFailure, start, len(embeddings), len(batch))
		}
		for i := range batch {
			batch[i].Embedding = embeddings[i]
		}
		if err := s.chunks.UpsertBatch(ctx, batch); err != nil {
			return err
		}
	}
	return nil
}

// CleanupStale sweeps leftovers from ingestions that died without rollback:
// claims stuck in pending and chunks whose video never reached ready.
func (s *IngestService) CleanupStale(ctx context.Context, olderThan time.Duration, limit int) error {
	cutoff := time.Now().Add(-olderThan).UnixMilli()
	logger := logutil.GetLogger(ctx)
	ids, err := s.videos.ListStalePending(ctx, cutoff, limit)
	if err != nil {
		return err
	}
	for _, videoID := range ids {
		if err := s.chunks.DeleteByVideo(ctx, videoID); err != nil {
			return err
		}
		if err := s.videos.Delete(ctx, videoID); err != nil {
			return err
		}
		logger.Info("stale claim removed", zap.String("video_id", videoID))
	}
	removed, err := s.chunks.DeleteOrphans(ctx, cutoff)
	if err != nil {
		return err
	}
	if removed > 0 {
		logger.Info("orphan chunks removed", zap.Int64("count", removed))
	}
	return nil
}

// release rolls back a failed ingestion so a later attempt can retry the
// video. Leftovers from a crash before this runs are swept by the cleanup job.
func (s *IngestService) release(ctx context.Context, videoID string) {
	ctx = context.WithoutCancel(ctx)
	logger := logutil.GetLogger(ctx).With(zap.String("video_id", videoID))
	if err := s.chunks.DeleteByVideo(ctx, videoID); err != nil {
		logger.Error("cleanup chunks failed", zap.Error(err))
		return
	}
	if err := s.videos.Delete(ctx, videoID); err != nil {
		logger.Error("cleanup claim failed", zap.Error(err))
	}
}
