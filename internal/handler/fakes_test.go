package handler

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/Anonimus1221/hbuilds-chat/internal/auth"
	"github.com/Anonimus1221/hbuilds-chat/internal/database"
)

type fakeUsers struct {
	mu    sync.Mutex
	users []database.UserWithPassword
}

func (f *fakeUsers) CreateUser(_ context.Context, arg database.CreateUserParams) (database.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.users {
		switch {
		case u.Email == arg.Email:
			return database.User{}, &pgconn.PgError{Code: uniqueViolation, ConstraintName: "users_email_key"}
		case u.Username == arg.Username:
			return database.User{}, &pgconn.PgError{Code: uniqueViolation, ConstraintName: "users_username_key"}
		}
	}

	u := database.UserWithPassword{
		User: database.User{
			UserID:         arg.UserID,
			Username:       arg.Username,
			Email:          arg.Email,
			ProfilePicture: arg.ProfilePicture,
		},
		HashedPassword: arg.HashedPassword,
	}
	f.users = append(f.users, u)
	return u.User, nil
}

func (f *fakeUsers) GetUserByID(_ context.Context, userID pgtype.UUID) (database.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.UserID == userID {
			return u.User, nil
		}
	}
	return database.User{}, pgx.ErrNoRows
}

func (f *fakeUsers) GetUserWithPasswordByEmail(_ context.Context, email string) (database.UserWithPassword, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return database.UserWithPassword{}, pgx.ErrNoRows
}

// add stores a user with the given password and returns its ID.
func (f *fakeUsers) add(name, email, password string, admin bool) uuid.UUID {
	hash, err := auth.HashPassword(password)
	if err != nil {
		panic(err)
	}
	id := uuid.New()

	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = append(f.users, database.UserWithPassword{
		User: database.User{
			UserID:   pgtype.UUID{Bytes: id, Valid: true},
			Username: name,
			Email:    email,
			IsAdmin:  admin,
		},
		HashedPassword: hash,
	})
	return id
}

type fakeMessages struct {
	mu     sync.Mutex
	rows   []database.ChatMessageRow
	err    error
	purges int
}

func (f *fakeMessages) ListRecentMessages(_ context.Context, arg database.ListRecentMessagesParams) ([]database.ChatMessageRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}

	var out []database.ChatMessageRow
	for _, r := range f.rows {
		if !r.CreatedAt.Time.Before(arg.Since.Time) {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b database.ChatMessageRow) int { return a.CreatedAt.Time.Compare(b.CreatedAt.Time) })
	if len(out) > int(arg.Limit) {
		out = out[len(out)-int(arg.Limit):]
	}
	return out, nil
}

func (f *fakeMessages) DeleteMessagesBefore(_ context.Context, before pgtype.Timestamptz) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.purges++

	kept := f.rows[:0]
	var deleted int64
	for _, r := range f.rows {
		if r.CreatedAt.Time.Before(before.Time) {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	f.rows = kept
	return deleted, nil
}

func (f *fakeMessages) add(id int64, username, text string, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, database.ChatMessageRow{
		ID:        id,
		Username:  username,
		Message:   text,
		CreatedAt: pgtype.Timestamptz{Time: at, Valid: true},
	})
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

var errDatabaseDown = errors.New("database down")
