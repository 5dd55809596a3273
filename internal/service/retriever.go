package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/xxxsen/askyt/internal/model"
)

const contextDelimiter = "\n---\n"

// Retriever answers "what does the corpus say about this query" for a set of
// allowed videos. Hits come back grouped by narrative position instead of
// similarity rank so the model reads chunks in context.
type Retriever struct {
	chunks ChunkStore
	ai     AIPipeline
	topK   int
}

func NewRetriever(chunks ChunkStore, pipeline AIPipeline, topK int) *Retriever {
	if topK <= 0 {
		topK = 5
	}
	return &Retriever{chunks: chunks, ai: pipeline, topK: topK}
}

// Retrieve embeds the query, searches the allowed videos and serializes the
// hits. An empty allow list yields an empty context block, never an error;
// the caller treats missing context as "answer not known".
func (r *Retriever) Retrieve(ctx context.Context, query string, videoIDs []string) (string, []model.SearchHit, error) {
	if len(videoIDs) == 0 {
		return "", nil, nil
	}
	queryVec, err := r.ai.EmbedQuery(ctx, query)
	if err != nil {
		return "", nil, err
	}
	hits, err := r.chunks.Search(ctx, queryVec, videoIDs, r.topK)
	if err != nil {
		return "", nil, err
	}
	return GroupHits(hits), hits, nil
}

var whitespaceRe = regexp.MustCompile(`\s+`)

func normalizeWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// GroupHits clusters hits by first-seen video, then by first-seen chapter
// within each video, and renders one section per video. The ordering is
// stable across calls with the same input.
func GroupHits(hits []model.SearchHit) string {
	type chapterGroup struct {
		summary  string
		contents []string
	}
	type videoGroup struct {
		videoID  string
		order    []string
		chapters map[string]*chapterGroup
	}
	var videoOrder []string
	videos := make(map[string]*videoGroup)
	for _, hit := range hits {
		vg, ok := videos[hit.VideoID]
		if !ok {
			vg = &videoGroup{videoID: hit.VideoID, chapters: make(map[string]*chapterGroup)}
			videos[hit.VideoID] = vg
			videoOrder = append(videoOrder, hit.VideoID)
		}
		cg, ok := vg.chapters[hit.ChapterSummary]
		if !ok {
			cg = &chapterGroup{summary: hit.ChapterSummary}
			vg.chapters[hit.ChapterSummary] = cg
			vg.order = append(vg.order, hit.ChapterSummary)
		}
		if content := normalizeWhitespace(hit.Content); content != "" {
			cg.contents = append(cg.contents, content)
		}
	}

	var sections []string
	for _, videoID := range videoOrder {
		vg := videos[videoID]
		var sb strings.Builder
		fmt.Fprintf(&sb, "Video: %s\n", vg.videoID)
		for _, summary := range vg.order {
			cg := vg.chapters[summary]
			fmt.Fprintf(&sb, "Chapter: %s\n", cg.summary)
			for _, content := range cg.contents {
				sb.WriteString(content)
				sb.WriteString("\n")
			}
		}
		sections = append(sections, strings.TrimRight(sb.String(), "\n"))
	}
	return strings.Join(sections, contextDelimiter)
}
