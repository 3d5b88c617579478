package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createUser = `-- name: CreateUser :one
INSERT INTO users (user_id, username, email, hashed_password, profile_picture)
VALUES ($1, $2, $3, $4, $5)
RETURNING user_id, username, email, profile_picture, is_admin, created_at
`

type CreateUserParams struct {
	UserID         pgtype.UUID
	Username       string
	Email          string
	HashedPassword string
	ProfilePicture string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, createUser,
		arg.UserID,
		arg.Username,
		arg.Email,
		arg.HashedPassword,
		arg.ProfilePicture,
	)
	var i User
	err := row.Scan(
		&i.UserID,
		&i.Username,
		&i.Email,
		&i.ProfilePicture,
		&i.IsAdmin,
		&i.CreatedAt,
	)
	return i, err
}

const getUserByID = `-- name: GetUserByID :one
SELECT user_id, username, email, profile_picture, is_admin, created_at
FROM users
WHERE user_id = $1
`

func (q *Queries) GetUserByID(ctx context.Context, userID pgtype.UUID) (User, error) {
	row := q.db.QueryRow(ctx, getUserByID, userID)
	var i User
	err := row.Scan(
		&i.UserID,
		&i.Username,
		&i.Email,
		&i.ProfilePicture,
		&i.IsAdmin,
		&i.CreatedAt,
	)
	return i, err
}

const getUserWithPasswordByEmail = `-- name: GetUserWithPasswordByEmail :one
SELECT user_id, username, email, profile_picture, is_admin, created_at, hashed_password
FROM users
WHERE email = $1
`

func (q *Queries) GetUserWithPasswordByEmail(ctx context.Context, email string) (UserWithPassword, error) {
	row := q.db.QueryRow(ctx, getUserWithPasswordByEmail, email)
	var i UserWithPassword
	err := row.Scan(
		&i.UserID,
		&i.Username,
		&i.Email,
		&i.ProfilePicture,
		&i.IsAdmin,
		&i.CreatedAt,
		&i.HashedPassword,
	)
	return i, err
}
