package service

import (
	"context"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/askyt/internal/ai"
	"github.com/xxxsen/askyt/internal/model"
	appErr "github.com/xxxsen/askyt/internal/pkg/errors"
)

// ChatService runs one conversation turn: durable human message, retrieval
// over the thread's video, streamed model reply, durable ai message.
type ChatService struct {
	threads   ThreadStore
	messages  MessageStore
	videos    VideoStore
	retriever *Retriever
	ai        AIPipeline
}

func NewChatService(threads ThreadStore, messages MessageStore, videos VideoStore, retriever *Retriever, pipeline AIPipeline) *ChatService {
	return &ChatService{
		threads:   threads,
		messages:  messages,
		videos:    videos,
		retriever: retriever,
		ai:        pipeline,
	}
}

// StreamReply appends the human turn, retrieves grounding context and
// streams the model reply through fn. Whatever text was produced is
// persisted as one ai message, even when the stream dies half way; a
// truncated answer the user already saw should survive in history.
func (s *ChatService) StreamReply(ctx context.Context, threadID, content string, fn ai.StreamFunc) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return appErr.ErrInvalid
	}
	thread, err := s.threads.GetByID(ctx, threadID)
	if err != nil {
		return err
	}
	if _, err := s.videos.GetByID(ctx, thread.VideoID); err != nil {
		return err
	}
	history, lastCtime, err := s.history(ctx, threadID)
	if err != nil {
		return err
	}
	// Each message is stamped past its predecessor so a thread's timeline
	// stays strictly increasing even when turns land in one millisecond.
	humanCtime := time.Now().UnixMilli()
	if humanCtime <= lastCtime {
		humanCtime = lastCtime + 1
	}
	if err := s.messages.Create(ctx, &model.Message{
		MessageID: newID(),
		ThreadID:  threadID,
		Sender:    model.SenderHuman,
		Content:   content,
		Ctime:     humanCtime,
	}); err != nil {
		return err
	}
	history = append(history, ai.ChatMessage{Role: ai.RoleUser, Content: content})

	contextBlock, hits, err := s.retriever.Retrieve(ctx, content, []string{thread.VideoID})
	if err != nil {
		return err
	}
	logutil.GetLogger(ctx).Debug("retrieved context",
		zap.String("thread_id", threadID),
		zap.Int("hits", len(hits)))

	var reply strings.Builder
	streamErr := s.ai.ChatStream(ctx, contextBlock, history, func(token string) error {
		reply.WriteString(token)
		return fn(token)
	})
	if reply.Len() > 0 {
		aiCtime := time.Now().UnixMilli()
		if aiCtime <= humanCtime {
			aiCtime = humanCtime + 1
		}
		if err := s.messages.Create(context.WithoutCancel(ctx), &model.Message{
			MessageID: newID(),
			ThreadID:  threadID,
			Sender:    model.SenderAI,
			Content:   reply.String(),
			Ctime:     aiCtime,
		}); err != nil {
			logutil.GetLogger(ctx).Error("save ai message failed", zap.String("thread_id", threadID), zap.Error(err))
			if streamErr == nil {
				return err
			}
		}
	}
	return streamErr
}

// history maps the stored transcript of the thread into model turns and
// reports the newest ctime seen, the floor for stamping the next turn.
func (s *ChatService) history(ctx context.Context, threadID string) ([]ai.ChatMessage, int64, error) {
	stored, err := s.messages.ListByThread(ctx, threadID)
	if err != nil {
		return nil, 0, err
	}
	var lastCtime int64
	history := make([]ai.ChatMessage, 0, len(stored))
	for _, msg := range stored {
		role := ai.RoleUser
		if msg.Sender == model.SenderAI {
			role = ai.RoleModel
		}
		history = append(history, ai.ChatMessage{Role: role, Content: msg.Content})
		if msg.Ctime > lastCtime {
			lastCtime = msg.Ctime
		}
	}
	return history, lastCtime, nil
}
