// Package api is a client for the chat server's REST endpoints.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Anonimus1221/hbuilds-chat/internal/model"
)

const (
	PathLogin    = "/auth/login"
	PathRegister = "/register"
	PathMessages = "/api/chat/messages"
)

// Error is a failure reported by the server.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Response is the success/message envelope used by the server.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

type LoginResult struct {
	Response
	Token string         `json:"token"`
	User  model.Identity `json:"user"`
}

// Client talks to a chat server. The zero HTTP field uses
// http.DefaultClient.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
	}
}

func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	var res LoginResult
	err := c.do(ctx, http.MethodPost, PathLogin, map[string]string{
		"email":    email,
		"password": password,
	}, &res)
	if err != nil {
		return LoginResult{}, err
	}
	return res, nil
}

func (c *Client) Register(ctx context.Context, name, email, password string) error {
	var res Response
	return c.do(ctx, http.MethodPost, PathRegister, map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
	}, &res)
}

// Messages fetches the chat history, oldest first.
func (c *Client) Messages(ctx context.Context) ([]model.HistoryRecord, error) {
	var records []model.HistoryRecord
	if err := c.do(ctx, http.MethodGet, PathMessages, nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		p, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("could not encode request body: %w", err)
		}
		body = bytes.NewReader(p)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("could not build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}

	res, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		apiErr := &Error{Status: res.StatusCode}
		var r Response
		if err := json.NewDecoder(res.Body).Decode(&r); err == nil {
			apiErr.Message = r.Message
			if apiErr.Message == "" {
				apiErr.Message = r.Error
			}
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("could not decode %s response: %w", path, err)
	}
	return nil
}
