package service

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/askyt/internal/model"
)

type ThreadService struct {
	threads  ThreadStore
	messages MessageStore
	ingest   *IngestService
}

func NewThreadService(threads ThreadStore, messages MessageStore, ingest *IngestService) *ThreadService {
	return &ThreadService{
		threads:  threads,
		messages: messages,
		ingest:   ingest,
	}
}

// Create ingests the video if needed and opens a thread bound to it. The
// thread title is copied from the video.
func (s *ThreadService) Create(ctx context.Context, videoURL string) (*model.Thread, *model.Video, error) {
	video, err := s.ingest.EnsureVideo(ctx, videoURL)
	if err != nil {
		return nil, nil, err
	}
	thread := &model.Thread{
		ThreadID: newID(),
		VideoID:  video.VideoID,
		Title:    video.Title,
		Ctime:    time.Now().UnixMilli(),
	}
	if err := s.threads.Create(ctx, thread); err != nil {
		return nil, nil, err
	}
	logutil.GetLogger(ctx).Info("thread created",
		zap.String("thread_id", thread.ThreadID),
		zap.String("video_id", video.VideoID))
	return thread, video, nil
}

func (s *ThreadService) List(ctx context.Context) ([]model.Thread, error) {
	return s.threads.List(ctx)
}

// Delete removes the thread and its messages. The video and its chunks stay,
// other threads may still reference them.
func (s *ThreadService) Delete(ctx context.Context, threadID string) error {
	return s.threads.Delete(ctx, threadID)
}

func (s *ThreadService) Messages(ctx context.Context, threadID string) ([]model.Message, error) {
	if _, err := s.threads.GetByID(ctx, threadID); err != nil {
		return nil, err
	}
	return s.messages.ListByThread(ctx, threadID)
}
