package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/xxxsen/askyt/internal/model"
)

type ChunkRepo struct {
	db *sql.DB
}

func NewChunkRepo(db *sql.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

// UpsertBatch writes one embedding batch. Re-running ingestion for a video
// overwrites rows by chunk id instead of duplicating them.
func (r *ChunkRepo) UpsertBatch(ctx context.Context, chunks []model.VideoChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	var placeholders []string
	var args []interface{}
	for i, chunk := range chunks {
		base := i * 8
		placeholders = append(placeholders, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8))
		args = append(args,
			chunk.ChunkID,
			chunk.VideoID,
			chunk.ParentIndex,
			chunk.ChunkIndex,
			chunk.ChapterSummary,
			chunk.Content,
			pgvector.NewVector(chunk.Embedding),
			chunk.Ctime,
		)
	}
	query := fmt.Sprintf(`
		INSERT INTO video_chunks (chunk_id, video_id, parent_index, chunk_index, chapter_summary, content, embedding, ctime)
		VALUES %s
		ON CONFLICT (chunk_id) DO UPDATE SET
			video_id = EXCLUDED.video_id,
			parent_index = EXCLUDED.parent_index,
			chunk_index = EXCLUDED.chunk_index,
			chapter_summary = EXCLUDED.chapter_summary,
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding,
			ctime = EXCLUDED.ctime
	`, strings.Join(placeholders, ", "))
	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

// Search runs cosine similarity over the chunks of the allowed videos and
// returns the k nearest, closest first. An empty allow list matches nothing.
func (r *ChunkRepo) Search(ctx context.Context, queryVec []float32, videoIDs []string, k int) ([]model.SearchHit, error) {
	if len(videoIDs) == 0 || k <= 0 {
		return nil, nil
	}
	const query = `
		SELECT chunk_id, video_id, parent_index, chunk_index, chapter_summary, content, embedding <=> $1 AS distance
		FROM video_chunks
		WHERE video_id = ANY($2)
		ORDER BY distance
		LIMIT $3
	`
	rows, err := r.db.QueryContext(ctx, query, pgvector.NewVector(queryVec), pq.Array(videoIDs), k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var hits []model.SearchHit
	for rows.Next() {
		var hit model.SearchHit
		if err := rows.Scan(
			&hit.ChunkID,
			&hit.VideoID,
			&hit.ParentIndex,
			&hit.ChunkIndex,
			&hit.ChapterSummary,
			&hit.Content,
			&hit.Distance,
		); err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

func (r *ChunkRepo) DeleteByVideo(ctx context.Context, videoID string) error {
	const query = `DELETE FROM video_chunks WHERE video_id = $1`
	_, err := r.db.ExecContext(ctx, query, videoID)
	return err
}

// DeleteOrphans drops chunks whose video row is gone or still pending past
// the cutoff. Such rows are leftovers from ingestions that died mid-flight.
func (r *ChunkRepo) DeleteOrphans(ctx context.Context, maxCtime int64) (int64, error) {
	const query = `
		DELETE FROM video_chunks c
		WHERE c.ctime < $1 AND NOT EXISTS (
			SELECT 1 FROM videos v
			WHERE v.video_id = c.video_id AND v.state = $2
		)
	`
	res, err := r.db.ExecContext(ctx, query, maxCtime, model.VideoStateReady)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
