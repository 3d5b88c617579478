package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createMessage = `-- name: CreateMessage :one
INSERT INTO chat_messages (user_id, message, created_at)
VALUES ($1, $2, $3)
RETURNING id, user_id, message, created_at
`

type CreateMessageParams struct {
	UserID    pgtype.UUID
	Message   string
	CreatedAt pgtype.Timestamptz
}

func (q *Queries) CreateMessage(ctx context.Context, arg CreateMessageParams) (ChatMessage, error) {
	row := q.db.QueryRow(ctx, createMessage, arg.UserID, arg.Message, arg.CreatedAt)
	var i ChatMessage
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Message,
		&i.CreatedAt,
	)
	return i, err
}

const listRecentMessages = `-- name: ListRecentMessages :many
SELECT id, user_id, username, profile_picture, message, created_at
FROM (
    SELECT m.id, m.user_id, u.username, u.profile_picture, m.message, m.created_at
    FROM chat_messages m
    JOIN users u ON u.user_id = m.user_id
    WHERE m.created_at >= $1
    ORDER BY m.created_at DESC, m.id DESC
    LIMIT $2
) recent
ORDER BY created_at ASC, id ASC
`

type ListRecentMessagesParams struct {
	Since pgtype.Timestamptz
	Limit int32
}

// ListRecentMessages returns the newest Limit messages created at or after
// Since, oldest first.
func (q *Queries) ListRecentMessages(ctx context.Context, arg ListRecentMessagesParams) ([]ChatMessageRow, error) {
	rows, err := q.db.Query(ctx, listRecentMessages, arg.Since, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ChatMessageRow
	for rows.Next() {
		var i ChatMessageRow
		if err := rows.Scan(
			&i.ID,
			&i.UserID,
			&i.Username,
			&i.ProfilePicture,
			&i.Message,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteMessagesBefore = `-- name: DeleteMessagesBefore :execrows
DELETE FROM chat_messages
WHERE created_at < $1
`

func (q *Queries) DeleteMessagesBefore(ctx context.Context, before pgtype.Timestamptz) (int64, error) {
	result, err := q.db.Exec(ctx, deleteMessagesBefore, before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
