package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/askyt/internal/model"
	appErr "github.com/xxxsen/askyt/internal/pkg/errors"
)

func newChatFixture(pipeline *fakeAI, hits []model.SearchHit) (*ChatService, *fakeMessageStore) {
	videos := newFakeVideoStore()
	videos.videos[testVideoID] = &model.Video{
		VideoID: testVideoID,
		Title:   "Test Video",
		State:   model.VideoStateReady,
	}
	threads := newFakeThreadStore()
	threads.threads["thread1"] = &model.Thread{
		ThreadID: "thread1",
		VideoID:  testVideoID,
		Title:    "Test Video",
	}
	messages := &fakeMessageStore{}
	retriever := NewRetriever(&fakeChunkStore{hits: hits}, pipeline, 5)
	return NewChatService(threads, messages, videos, retriever, pipeline), messages
}

func TestChatThreeTurns(t *testing.T) {
	pipeline := &fakeAI{chatTokens: []string{"Hello ", "there"}}
	svc, messages := newChatFixture(pipeline, nil)

	for turn := 0; turn < 3; turn++ {
		var streamed strings.Builder
		err := svc.StreamReply(context.Background(), "thread1", fmt.Sprintf("question %d", turn), func(token string) error {
			streamed.WriteString(token)
			return nil
		})
		require.NoError(t, err)
		require.Equal(t, "Hello there", streamed.String())
	}

	stored, err := messages.ListByThread(context.Background(), "thread1")
	require.NoError(t, err)
	require.Len(t, stored, 6)
	for i, msg := range stored {
		if i%2 == 0 {
			require.Equal(t, model.SenderHuman, msg.Sender)
			require.Equal(t, fmt.Sprintf("question %d", i/2), msg.Content)
		} else {
			require.Equal(t, model.SenderAI, msg.Sender)
			require.Equal(t, "Hello there", msg.Content)
		}
		if i > 0 {
			require.Greater(t, msg.Ctime, stored[i-1].Ctime)
		}
	}

	// The third turn sees the two finished turns plus its own message.
	require.Len(t, pipeline.chatHistory, 3)
	last := pipeline.chatHistory[2]
	require.Len(t, last, 5)
	require.Equal(t, "question 2", last[4].Content)
}

func TestChatStampsPastExistingHistory(t *testing.T) {
	pipeline := &fakeAI{chatTokens: []string{"reply"}}
	svc, messages := newChatFixture(pipeline, nil)

	// A stored message dated ahead of the wall clock forces both new
	// messages through the collision path.
	future := time.Now().UnixMilli() + 60_000
	messages.messages = append(messages.messages, model.Message{
		MessageID: "seed", ThreadID: "thread1", Sender: model.SenderAI, Content: "old", Ctime: future,
	})

	err := svc.StreamReply(context.Background(), "thread1", "next question", func(string) error { return nil })
	require.NoError(t, err)

	stored, listErr := messages.ListByThread(context.Background(), "thread1")
	require.NoError(t, listErr)
	require.Len(t, stored, 3)
	require.Equal(t, future+1, stored[1].Ctime)
	require.Equal(t, model.SenderHuman, stored[1].Sender)
	require.Equal(t, future+2, stored[2].Ctime)
	require.Equal(t, model.SenderAI, stored[2].Sender)
}

func TestChatContextFromRetrieval(t *testing.T) {
	pipeline := &fakeAI{chatTokens: []string{"ok"}}
	svc, _ := newChatFixture(pipeline, []model.SearchHit{
		{VideoID: testVideoID, ChapterSummary: "intro", Content: "the topic is go"},
	})

	err := svc.StreamReply(context.Background(), "thread1", "what is the topic", func(string) error { return nil })
	require.NoError(t, err)
	require.Len(t, pipeline.chatContexts, 1)
	require.Contains(t, pipeline.chatContexts[0], "Video: "+testVideoID)
	require.Contains(t, pipeline.chatContexts[0], "the topic is go")
}

func TestChatPartialReplyPersisted(t *testing.T) {
	pipeline := &fakeAI{chatTokens: []string{"partial "}, chatErr: errors.New("stream broke")}
	svc, messages := newChatFixture(pipeline, nil)

	err := svc.StreamReply(context.Background(), "thread1", "hello", func(string) error { return nil })
	require.Error(t, err)

	stored, listErr := messages.ListByThread(context.Background(), "thread1")
	require.NoError(t, listErr)
	require.Len(t, stored, 2)
	require.Equal(t, model.SenderAI, stored[1].Sender)
	require.Equal(t, "partial ", stored[1].Content)
}

func TestChatNoReplyNotPersisted(t *testing.T) {
	pipeline := &fakeAI{chatErr: errors.New("refused immediately")}
	svc, messages := newChatFixture(pipeline, nil)

	err := svc.StreamReply(context.Background(), "thread1", "hello", func(string) error { return nil })
	require.Error(t, err)

	stored, listErr := messages.ListByThread(context.Background(), "thread1")
	require.NoError(t, listErr)
	require.Len(t, stored, 1)
	require.Equal(t, model.SenderHuman, stored[0].Sender)
}

func TestChatEmptyContent(t *testing.T) {
	svc, _ := newChatFixture(&fakeAI{}, nil)
	err := svc.StreamReply(context.Background(), "thread1", "   ", func(string) error { return nil })
	require.ErrorIs(t, err, appErr.ErrInvalid)
}

func TestChatUnknownThread(t *testing.T) {
	svc, _ := newChatFixture(&fakeAI{}, nil)
	err := svc.StreamReply(context.Background(), "missing", "hello", func(string) error { return nil })
	require.True(t, appErr.IsNotFound(err))
}
