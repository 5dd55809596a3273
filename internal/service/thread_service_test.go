package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	appErr "github.com/xxxsen/askyt/internal/pkg/errors"
)

func TestThreadLifecycle(t *testing.T) {
	videos := newFakeVideoStore()
	chunks := &fakeChunkStore{}
	pipeline := &fakeAI{}
	fetcher := &fakeFetcher{duration: 300, transcript: testTranscript()}
	ingest := NewIngestService(videos, chunks, fetcher, pipeline, testIngestConfig())
	threads := newFakeThreadStore()
	messages := &fakeMessageStore{}
	svc := NewThreadService(threads, messages, ingest)

	thread, video, err := svc.Create(context.Background(), testVideoURL)
	require.NoError(t, err)
	require.Equal(t, testVideoID, thread.VideoID)
	require.Equal(t, video.Title, thread.Title)
	require.NotEmpty(t, thread.ThreadID)

	listed, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, listed, 1)

	msgs, err := svc.Messages(context.Background(), thread.ThreadID)
	require.NoError(t, err)
	require.Empty(t, msgs)

	require.NoError(t, svc.Delete(context.Background(), thread.ThreadID))
	require.True(t, appErr.IsNotFound(svc.Delete(context.Background(), thread.ThreadID)))
}

func TestThreadMessagesUnknownThread(t *testing.T) {
	svc := NewThreadService(newFakeThreadStore(), &fakeMessageStore{}, nil)
	_, err := svc.Messages(context.Background(), "missing")
	require.True(t, appErr.IsNotFound(err))
}

func TestThreadSecondThreadSameVideo(t *testing.T) {
	videos := newFakeVideoStore()
	pipeline := &fakeAI{}
	fetcher := &fakeFetcher{duration: 300, transcript: testTranscript()}
	ingest := NewIngestService(videos, &fakeChunkStore{}, fetcher, pipeline, testIngestConfig())
	svc := NewThreadService(newFakeThreadStore(), &fakeMessageStore{}, ingest)

	first, _, err := svc.Create(context.Background(), testVideoURL)
	require.NoError(t, err)
	calls := pipeline.callCount()

	second, _, err := svc.Create(context.Background(), testVideoURL)
	require.NoError(t, err)
	require.NotEqual(t, first.ThreadID, second.ThreadID)
	// Ingestion short-circuits, no further model calls.
	require.Equal(t, calls, pipeline.callCount())
}
