package model

import "fmt"

// VideoChunk is a child window of a transcript, the unit that gets embedded
// and retrieved. ChapterSummary is duplicated across all chunks that share
// the same parent window.
type VideoChunk struct {
	ChunkID        string    `json:"chunk_id"`
	VideoID        string    `json:"video_id"`
	ParentIndex    int       `json:"parent_index"`
	ChunkIndex     int       `json:"chunk_index"`
	ChapterSummary string    `json:"chapter_summary"`
	Content        string    `json:"content"`
	Embedding      []float32 `json:"-"`
	Ctime          int64     `json:"ctime"`
}

func ChunkID(videoID string, parentIndex, chunkIndex int) string {
	return fmt.Sprintf("%s_P%d_C%d", videoID, parentIndex, chunkIndex)
}

// SearchHit is one similarity-search result converted from the store row.
type SearchHit struct {
	ChunkID        string  `json:"chunk_id"`
	VideoID        string  `json:"video_id"`
	ParentIndex    int     `json:"parent_index"`
	ChunkIndex     int     `json:"chunk_index"`
	ChapterSummary string  `json:"chapter_summary"`
	Content        string  `json:"content"`
	Distance       float64 `json:"distance"`
}
