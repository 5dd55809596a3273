package ai

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type ManagerConfig struct {
	Timeout int
	// EmbedDimension is the expected vector width. The chunk table column
	// is fixed-width, so a provider returning a different size must fail
	// here instead of at insert time. 0 skips the check.
	EmbedDimension int
}

// Manager binds the configured generators and embedder to the pipeline's
// prompt templates.
type Manager struct {
	summarizer IGenerator
	chat       IChatStreamer
	embedder   IEmbedder
	cfg        ManagerConfig
}

func NewManager(summarizer IGenerator, chat IChatStreamer, embedder IEmbedder, cfg ManagerConfig) *Manager {
	return &Manager{
		summarizer: summarizer,
		chat:       chat,
		embedder:   embedder,
		cfg:        cfg,
	}
}

// SummarizeChapter produces the chapter synthesis for one parent window.
func (m *Manager) SummarizeChapter(ctx context.Context, section string) (string, error) {
	if m.summarizer == nil {
		return "", fmt.Errorf("summarizer not configured")
	}
	prompt := fmt.Sprintf("Summarize this specific video section in 2 sentences:\n\n%s", section)
	return m.generateText(ctx, m.summarizer, prompt)
}

// SummarizeVideo builds the ordered outline from the chapter syntheses and
// asks for the global summary. Outline order must match window order.
func (m *Manager) SummarizeVideo(ctx context.Context, chapters []string) (string, error) {
	if m.summarizer == nil {
		return "", fmt.Errorf("summarizer not configured")
	}
	prompt := fmt.Sprintf(
		"Here is an outline of a video based on its chapter summaries:\n\n- %s\n\nTask: Write a concise 5 Sentence Global Summary of the entire video based on this outline.",
		strings.Join(chapters, "\n- "),
	)
	return m.generateText(ctx, m.summarizer, prompt)
}

// ChatStream answers the conversation using the retrieved context block,
// streaming fragments through fn as they arrive.
func (m *Manager) ChatStream(ctx context.Context, contextBlock string, history []ChatMessage, fn StreamFunc) error {
	if m.chat == nil {
		return fmt.Errorf("chat streamer not configured")
	}
	system := fmt.Sprintf(`You are a helpful educational assistant.
Answer the user's question based on the following context derived from a video transcript.
If the answer is not in the context, say you don't know based on the video.

Context:
%s`, contextBlock)
	if m.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(m.cfg.Timeout)*time.Second)
		defer cancel()
	}
	return m.chat.GenerateStream(ctx, system, history, fn)
}

func (m *Manager) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if m.embedder == nil {
		return nil, fmt.Errorf("embedder not configured")
	}
	if len(texts) == 0 {
		return nil, nil
	}
	res, err := m.embedder.EmbedBatch(ctx, texts, TaskTypeDocument)
	if err != nil {
		return nil, err
	}
	if err := m.checkDimension(res); err != nil {
		return nil, err
	}
	return res, nil
}

func (m *Manager) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if m.embedder == nil {
		return nil, fmt.Errorf("embedder not configured")
	}
	res, err := m.embedder.EmbedBatch(ctx, []string{text}, TaskTypeQuery)
	if err != nil {
		return nil, err
	}
	if len(res) == 0 {
		return nil, fmt.Errorf("no embedding values returned")
	}
	if err := m.checkDimension(res); err != nil {
		return nil, err
	}
	return res[0], nil
}

func (m *Manager) checkDimension(vecs [][]float32) error {
	if m.cfg.EmbedDimension <= 0 {
		return nil
	}
	for _, vec := range vecs {
		if len(vec) != m.cfg.EmbedDimension {
			return fmt.Errorf("embedding dimension mismatch: got %d, want %d", len(vec), m.cfg.EmbedDimension)
		}
	}
	return nil
}

func (m *Manager) EmbeddingModelName() string {
	if m.embedder == nil {
		return ""
	}
	return m.embedder.ModelName()
}

func (m *Manager) generateText(ctx context.Context, gen IGenerator, prompt string) (string, error) {
	if m.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(m.cfg.Timeout)*time.Second)
		defer cancel()
	}
	resp, err := gen.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp)
	if text == "" {
		return "", fmt.Errorf("empty ai response")
	}
	return text, nil
}
