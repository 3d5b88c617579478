package database

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type User struct {
	UserID         pgtype.UUID
	Username       string
	Email          string
	ProfilePicture string
	IsAdmin        bool
	CreatedAt      pgtype.Timestamptz
}

type UserWithPassword struct {
	User
	HashedPassword string
}

type ChatMessage struct {
	ID        int64
	UserID    pgtype.UUID
	Message   string
	CreatedAt pgtype.Timestamptz
}

// ChatMessageRow is a chat message joined with its author.
type ChatMessageRow struct {
	ID             int64
	UserID         pgtype.UUID
	Username       string
	ProfilePicture string
	Message        string
	CreatedAt      pgtype.Timestamptz
}
