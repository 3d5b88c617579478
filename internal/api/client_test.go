package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Anonimus1221/hbuilds-chat/internal/model"
)

func TestMessages(t *testing.T) {
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, PathMessages, r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		_ = json.NewEncoder(w).Encode([]model.HistoryRecord{
			{ID: 1, UserName: "Bob", Message: "hi", CreatedAt: created},
		})
	}))
	defer srv.Close()

	records, err := New(srv.URL+"/", "secret").Messages(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Bob", records[0].UserName)
	assert.True(t, created.Equal(records[0].CreatedAt))
}

func TestServerErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"message field", http.StatusUnauthorized, `{"success":false,"message":"Invalid email or password."}`, "Invalid email or password."},
		{"error field", http.StatusInternalServerError, `{"error":"could not load messages"}`, "could not load messages"},
		{"no body", http.StatusBadGateway, ``, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := New(srv.URL, "").Login(context.Background(), "a@b.c", "pw")

			var apiErr *Error
			require.True(t, errors.As(err, &apiErr), "got %v", err)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.wantMsg, apiErr.Message)
		})
	}
}

func TestLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)

		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "bob@example.com", in["email"])

		_ = json.NewEncoder(w).Encode(LoginResult{
			Response: Response{Success: true},
			Token:    "tok",
			User:     model.Identity{Name: "Bob"},
		})
	}))
	defer srv.Close()

	res, err := New(srv.URL, "").Login(context.Background(), "bob@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "tok", res.Token)
	assert.Equal(t, "Bob", res.User.Name)
}
