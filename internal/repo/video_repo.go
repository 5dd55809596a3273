package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"
	"github.com/jmoiron/sqlx"

	"github.com/xxxsen/askyt/internal/model"
	appErr "github.com/xxxsen/askyt/internal/pkg/errors"
)

type VideoRepo struct {
	db *sql.DB
}

func NewVideoRepo(db *sql.DB) *VideoRepo {
	return &VideoRepo{db: db}
}

var videoFields = []string{
	"video_id", "url", "title", "author_name", "thumbnail_url",
	"transcript", "duration", "summary", "state", "ctime", "mtime",
}

func (r *VideoRepo) GetByID(ctx context.Context, videoID string) (*model.Video, error) {
	where := map[string]interface{}{
		"video_id": videoID,
	}
	sqlStr, args, err := builder.BuildSelect("videos", where, videoFields)
	if err != nil {
		return nil, err
	}
	row := r.db.QueryRowContext(ctx, sqlx.Rebind(sqlx.DOLLAR, sqlStr), args...)
	video, err := scanVideo(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return video, nil
}

// Claim inserts the pending row for a video id if absent. It returns false
// when another caller holds the id already, which makes concurrent
// first-time ingestion of the same video race-safe.
func (r *VideoRepo) Claim(ctx context.Context, videoID, url string, now int64) (bool, error) {
	const query = `
		INSERT INTO videos (video_id, url, state, ctime, mtime)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (video_id) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, query, videoID, url, model.VideoStatePending, now, now)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// Finalize fills the claimed row and flips it to ready. The durable write
// happens only after every model/embedding/upsert call has succeeded.
func (r *VideoRepo) Finalize(ctx context.Context, video *model.Video) error {
	const query = `
		UPDATE videos SET
			title = $1,
			author_name = $2,
			thumbnail_url = $3,
			transcript = $4,
			duration = $5,
			summary = $6,
			state = $7,
			mtime = $8
		WHERE video_id = $9
	`
	res, err := r.db.ExecContext(ctx, query,
		video.Title,
		video.AuthorName,
		video.ThumbnailURL,
		video.Transcript,
		video.Duration,
		video.Summary,
		model.VideoStateReady,
		video.Mtime,
		video.VideoID,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func (r *VideoRepo) Delete(ctx context.Context, videoID string) error {
	const query = `DELETE FROM videos WHERE video_id = $1`
	_, err := r.db.ExecContext(ctx, query, videoID)
	return err
}

// ListStalePending returns ids of claims whose ingestion never finished.
func (r *VideoRepo) ListStalePending(ctx context.Context, maxMtime int64, limit int) ([]string, error) {
	const query = `
		SELECT video_id FROM videos
		WHERE state = $1 AND mtime < $2
		LIMIT $3
	`
	rows, err := r.db.QueryContext(ctx, query, model.VideoStatePending, maxMtime, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanVideo(row rowScanner) (*model.Video, error) {
	var video model.Video
	if err := row.Scan(
		&video.VideoID,
		&video.URL,
		&video.Title,
		&video.AuthorName,
		&video.ThumbnailURL,
		&video.Transcript,
		&video.Duration,
		&video.Summary,
		&video.State,
		&video.Ctime,
		&video.Mtime,
	); err != nil {
		return nil, err
	}
	return &video, nil
}
