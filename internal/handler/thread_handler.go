package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/askyt/internal/pkg/errcode"
	"github.com/xxxsen/askyt/internal/pkg/response"
	"github.com/xxxsen/askyt/internal/service"
)

type ThreadHandler struct {
	threads *service.ThreadService
	chat    *service.ChatService
}

func NewThreadHandler(threads *service.ThreadService, chat *service.ChatService) *ThreadHandler {
	return &ThreadHandler{threads: threads, chat: chat}
}

type createThreadRequest struct {
	VideoURL string `json:"video_url"`
}

func (h *ThreadHandler) Create(c *gin.Context) {
	var req createThreadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if strings.TrimSpace(req.VideoURL) == "" {
		response.Error(c, errcode.ErrInvalid, "video_url required")
		return
	}
	thread, video, err := h.threads.Create(c.Request.Context(), req.VideoURL)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{
		"thread_id": thread.ThreadID,
		"video_id":  video.VideoID,
		"title":     video.Title,
		"duration":  video.Duration,
		"summary":   video.Summary,
	})
}

func (h *ThreadHandler) List(c *gin.Context) {
	threads, err := h.threads.List(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	items := make([]gin.H, 0, len(threads))
	for _, thread := range threads {
		items = append(items, gin.H{
			"thread_id":  thread.ThreadID,
			"title":      thread.Title,
			"video_id":   thread.VideoID,
			"created_at": thread.Ctime,
		})
	}
	response.Success(c, items)
}

func (h *ThreadHandler) Delete(c *gin.Context) {
	threadID := c.Param("id")
	if err := h.threads.Delete(c.Request.Context(), threadID); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"success": true, "thread_id": threadID})
}

func (h *ThreadHandler) Messages(c *gin.Context) {
	threadID := c.Param("id")
	messages, err := h.threads.Messages(c.Request.Context(), threadID)
	if err != nil {
		handleError(c, err)
		return
	}
	items := make([]gin.H, 0, len(messages))
	for _, msg := range messages {
		var metadata interface{}
		if msg.Metadata != "" {
			_ = json.Unmarshal([]byte(msg.Metadata), &metadata)
		}
		items = append(items, gin.H{
			"message_id": msg.MessageID,
			"role":       msg.Sender,
			"content":    msg.Content,
			"metadata":   metadata,
			"created_at": msg.Ctime,
		})
	}
	response.Success(c, gin.H{"thread_id": threadID, "messages": items})
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

type streamEvent struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

// SendMessage streams the model reply as server-sent events. Errors before
// the first token surface as a plain json error; once the stream is open a
// terminal error event is emitted instead, so the client's parser can detect
// failure deterministically.
func (h *ThreadHandler) SendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	threadID := c.Param("id")

	started := false
	start := func() {
		if started {
			return
		}
		started = true
		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Writer.WriteHeader(http.StatusOK)
	}
	emit := func(event streamEvent) error {
		data, err := json.Marshal(event)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", data); err != nil {
			return err
		}
		c.Writer.Flush()
		return nil
	}

	err := h.chat.StreamReply(c.Request.Context(), threadID, req.Content, func(token string) error {
		if token == "" {
			return nil
		}
		start()
		return emit(streamEvent{Type: "token", Content: token})
	})
	if err != nil {
		if !started {
			handleError(c, err)
			return
		}
		_ = emit(streamEvent{Type: "error", Error: "message generation failed"})
		return
	}
	start()
	_ = emit(streamEvent{Type: "end"})
}
