package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"
	"github.com/jmoiron/sqlx"

	"github.com/xxxsen/askyt/internal/model"
	appErr "github.com/xxxsen/askyt/internal/pkg/errors"
)

type ThreadRepo struct {
	db *sql.DB
}

func NewThreadRepo(db *sql.DB) *ThreadRepo {
	return &ThreadRepo{db: db}
}

func (r *ThreadRepo) Create(ctx context.Context, thread *model.Thread) error {
	data := map[string]interface{}{
		"thread_id": thread.ThreadID,
		"video_id":  thread.VideoID,
		"title":     thread.Title,
		"ctime":     thread.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("threads", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, sqlx.Rebind(sqlx.DOLLAR, sqlStr), args...)
	return err
}

func (r *ThreadRepo) GetByID(ctx context.Context, threadID string) (*model.Thread, error) {
	where := map[string]interface{}{
		"thread_id": threadID,
	}
	sqlStr, args, err := builder.BuildSelect("threads", where, []string{"thread_id", "video_id", "title", "ctime"})
	if err != nil {
		return nil, err
	}
	row := r.db.QueryRowContext(ctx, sqlx.Rebind(sqlx.DOLLAR, sqlStr), args...)
	var thread model.Thread
	if err := row.Scan(&thread.ThreadID, &thread.VideoID, &thread.Title, &thread.Ctime); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return &thread, nil
}

func (r *ThreadRepo) List(ctx context.Context) ([]model.Thread, error) {
	where := map[string]interface{}{
		"_orderby": "ctime desc",
	}
	sqlStr, args, err := builder.BuildSelect("threads", where, []string{"thread_id", "video_id", "title", "ctime"})
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, sqlx.Rebind(sqlx.DOLLAR, sqlStr), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var threads []model.Thread
	for rows.Next() {
		var thread model.Thread
		if err := rows.Scan(&thread.ThreadID, &thread.VideoID, &thread.Title, &thread.Ctime); err != nil {
			return nil, err
		}
		threads = append(threads, thread)
	}
	return threads, rows.Err()
}

// Delete removes the thread and its messages in one transaction.
func (r *ThreadRepo) Delete(ctx context.Context, threadID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE thread_id = $1`, threadID); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM threads WHERE thread_id = $1`, threadID)
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
	return tx.Commit()
}
