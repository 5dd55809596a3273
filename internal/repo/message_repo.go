package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"
	"github.com/jmoiron/sqlx"

	"github.com/xxxsen/askyt/internal/model"
)

type MessageRepo struct {
	db *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

func (r *MessageRepo) Create(ctx context.Context, msg *model.Message) error {
	var metadata interface{}
	if msg.Metadata != "" {
		metadata = msg.Metadata
	}
	data := map[string]interface{}{
		"message_id": msg.MessageID,
		"thread_id":  msg.ThreadID,
		"sender":     msg.Sender,
		"content":    msg.Content,
		"metadata":   metadata,
		"ctime":      msg.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("messages", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, sqlx.Rebind(sqlx.DOLLAR, sqlStr), args...)
	return err
}

func (r *MessageRepo) ListByThread(ctx context.Context, threadID string) ([]model.Message, error) {
	// seq breaks ties between messages stamped in the same millisecond,
	// keeping insertion order.
	where := map[string]interface{}{
		"thread_id": threadID,
		"_orderby":  "ctime asc, seq asc",
	}
	sqlStr, args, err := builder.BuildSelect("messages", where, []string{"message_id", "thread_id", "sender", "content", "metadata", "ctime"})
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, sqlx.Rebind(sqlx.DOLLAR, sqlStr), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var messages []model.Message
	for rows.Next() {
		var msg model.Message
		var metadata sql.NullString
		if err := rows.Scan(&msg.MessageID, &msg.ThreadID, &msg.Sender, &msg.Content, &metadata, &msg.Ctime); err != nil {
			return nil, err
		}
		msg.Metadata = metadata.String
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}
