package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/xxxsen/askyt/internal/ai"
	"github.com/xxxsen/askyt/internal/model"
	appErr "github.com/xxxsen/askyt/internal/pkg/errors"
	"github.com/xxxsen/askyt/internal/youtube"
)

type fakeVideoStore struct {
	mu        sync.Mutex
	videos    map[string]*model.Video
	denyClaim bool
	// claimRace, when set, appears in the store at the moment a claim is
	// denied, imitating a concurrent winner.
	claimRace *model.Video
	deleted   []string
	finalized []*model.Video
}

func newFakeVideoStore() *fakeVideoStore {
	return &fakeVideoStore{videos: make(map[string]*model.Video)}
}

func (f *fakeVideoStore) GetByID(ctx context.Context, videoID string) (*model.Video, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	video, ok := f.videos[videoID]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	clone := *video
	return &clone, nil
}

func (f *fakeVideoStore) Claim(ctx context.Context, videoID, url string, now int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.denyClaim {
		if f.claimRace != nil {
			clone := *f.claimRace
			f.videos[clone.VideoID] = &clone
		}
		return false, nil
	}
	if _, ok := f.videos[videoID]; ok {
		return false, nil
	}
	f.videos[videoID] = &model.Video{
		VideoID: videoID,
		URL:     url,
		State:   model.VideoStatePending,
		Ctime:   now,
		Mtime:   now,
	}
	return true, nil
}

func (f *fakeVideoStore) Finalize(ctx context.Context, video *model.Video) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.videos[video.VideoID]; !ok {
		return appErr.ErrNotFound
	}
	clone := *video
	clone.State = model.VideoStateReady
	f.videos[video.VideoID] = &clone
	f.finalized = append(f.finalized, &clone)
	return nil
}

func (f *fakeVideoStore) Delete(ctx context.Context, videoID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.videos, videoID)
	f.deleted = append(f.deleted, videoID)
	return nil
}

func (f *fakeVideoStore) ListStalePending(ctx context.Context, maxMtime int64, limit int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for _, video := range f.videos {
		if video.State == model.VideoStatePending && video.Mtime < maxMtime {
			ids = append(ids, video.VideoID)
		}
		if len(ids) == limit {
			break
		}
	}
	return ids, nil
}

type fakeChunkStore struct {
	mu           sync.Mutex
	upserts      [][]model.VideoChunk
	hits         []model.SearchHit
	deleted      []string
	orphanSweeps int
}

func (f *fakeChunkStore) UpsertBatch(ctx context.Context, chunks []model.VideoChunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	batch := make([]model.VideoChunk, len(chunks))
	copy(batch, chunks)
	f.upserts = append(f.upserts, batch)
	return nil
}

func (f *fakeChunkStore) Search(ctx context.Context, queryVec []float32, videoIDs []string, k int) ([]model.SearchHit, error) {
	return f.hits, nil
}

func (f *fakeChunkStore) DeleteByVideo(ctx context.Context, videoID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, videoID)
	return nil
}

func (f *fakeChunkStore) DeleteOrphans(ctx context.Context, maxCtime int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orphanSweeps++
	return 0, nil
}

func (f *fakeChunkStore) allChunks() []model.VideoChunk {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.VideoChunk
	for _, batch := range f.upserts {
		out = append(out, batch...)
	}
	return out
}

type fakeThreadStore struct {
	mu      sync.Mutex
	threads map[string]*model.Thread
}

func newFakeThreadStore() *fakeThreadStore {
	return &fakeThreadStore{threads: make(map[string]*model.Thread)}
}

func (f *fakeThreadStore) Create(ctx context.Context, thread *model.Thread) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *thread
	f.threads[thread.ThreadID] = &clone
	return nil
}

func (f *fakeThreadStore) GetByID(ctx context.Context, threadID string) (*model.Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	thread, ok := f.threads[threadID]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	clone := *thread
	return &clone, nil
}

func (f *fakeThreadStore) List(ctx context.Context) ([]model.Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Thread
	for _, thread := range f.threads {
		out = append(out, *thread)
	}
	return out, nil
}

func (f *fakeThreadStore) Delete(ctx context.Context, threadID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.threads[threadID]; !ok {
		return appErr.ErrNotFound
	}
	delete(f.threads, threadID)
	return nil
}

type fakeMessageStore struct {
	mu       sync.Mutex
	messages []model.Message
}

func (f *fakeMessageStore) Create(ctx context.Context, msg *model.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, *msg)
	return nil
}

func (f *fakeMessageStore) ListByThread(ctx context.Context, threadID string) ([]model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Message
	for _, msg := range f.messages {
		if msg.ThreadID == threadID {
			out = append(out, msg)
		}
	}
	return out, nil
}

type fakeFetcher struct {
	duration   int64
	transcript string
	watchErr   error
}

func (f *fakeFetcher) Metadata(ctx context.Context, videoID string) (*youtube.Metadata, error) {
	return &youtube.Metadata{
		Title:        "Test Video",
		AuthorName:   "Test Author",
		ThumbnailURL: "https://i.ytimg.com/vi/" + videoID + "/hqdefault.jpg",
	}, nil
}

func (f *fakeFetcher) WatchInfo(ctx context.Context, videoID string) (*youtube.WatchInfo, error) {
	if f.watchErr != nil {
		return nil, f.watchErr
	}
	return &youtube.WatchInfo{Duration: f.duration}, nil
}

func (f *fakeFetcher) Transcript(ctx context.Context, info *youtube.WatchInfo, languages []string) (string, error) {
	if f.transcript == "" {
		return "", appErr.ErrNoCaptions
	}
	return f.transcript, nil
}

type fakeAI struct {
	mu           sync.Mutex
	chapterCalls []string
	globalCalls  [][]string
	embedBatches [][]string
	queryCalls   []string
	chatContexts []string
	chatHistory  [][]ai.ChatMessage
	chatTokens   []string
	chatErr      error
	chapterErr   error
	globalErr    error
	embedErr     error
}

func (f *fakeAI) SummarizeChapter(ctx context.Context, section string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.chapterErr != nil {
		return "", f.chapterErr
	}
	f.chapterCalls = append(f.chapterCalls, section)
	return fmt.Sprintf("chapter-%d", len(f.chapterCalls)-1), nil
}

func (f *fakeAI) SummarizeVideo(ctx context.Context, chapters []string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.globalErr != nil {
		return "", f.globalErr
	}
	f.globalCalls = append(f.globalCalls, chapters)
	return "global summary", nil
}

func (f *fakeAI) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	f.embedBatches = append(f.embedBatches, texts)
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = []float32{float32(len(text))}
	}
	return out, nil
}

func (f *fakeAI) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queryCalls = append(f.queryCalls, text)
	return []float32{1}, nil
}

func (f *fakeAI) EmbeddingModelName() string { return "fake-embed" }

func (f *fakeAI) ChatStream(ctx context.Context, contextBlock string, history []ai.ChatMessage, fn ai.StreamFunc) error {
	f.mu.Lock()
	f.chatContexts = append(f.chatContexts, contextBlock)
	copied := make([]ai.ChatMessage, len(history))
	copy(copied, history)
	f.chatHistory = append(f.chatHistory, copied)
	tokens := f.chatTokens
	chatErr := f.chatErr
	f.mu.Unlock()
	for _, token := range tokens {
		if err := fn(token); err != nil {
			return err
		}
	}
	return chatErr
}

func (f *fakeAI) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.chapterCalls) + len(f.globalCalls) + len(f.embedBatches) + len(f.queryCalls) + len(f.chatContexts)
}
