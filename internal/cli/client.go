package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/hyperjump/kiku/internal/models"
)

// DefaultServerURL is where the server listens without a config.
const DefaultServerURL = "http://localhost:5000"

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Client talks to a running kiku server.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for baseURL. Generation can take a while, so the timeout is generous.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: 2 * time.Minute},
	}
}

// Upload sends a document for ingestion and returns its asset id.
func (c *Client) Upload(ctx context.Context, filename string, content []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return "", err
	}
	if _, err := fw.Write(content); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}
	var out struct {
		AssetID string `json:"asset_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/documents/process", mw.FormDataContentType(), &body, &out); err != nil {
		return "", err
	}
	return out.AssetID, nil
}

// Asset fetches a stored document.
func (c *Client) Asset(ctx context.Context, assetID string) (*models.Asset, error) {
	var asset models.Asset
	if err := c.do(ctx, http.MethodGet, "/api/documents/"+url.PathEscape(assetID), "", nil, &asset); err != nil {
		return nil, err
	}
	return &asset, nil
}

// StartChat opens a session bound to assetID and returns the chat id.
func (c *Client) StartChat(ctx context.Context, assetID string) (string, error) {
	var out struct {
		ChatID string `json:"chat_id"`
	}
	if err := c.postJSON(ctx, "/api/chat/start", map[string]string{"asset_id": assetID}, &out); err != nil {
		return "", err
	}
	return out.ChatID, nil
}

// SendMessage asks a question within a chat and returns the bot response.
func (c *Client) SendMessage(ctx context.Context, chatID, message string) (string, error) {
	var out struct {
		Response string `json:"response"`
	}
	if err := c.postJSON(ctx, "/api/chat/message", map[string]string{"chat_id": chatID, "message": message}, &out); err != nil {
		return "", err
	}
	return out.Response, nil
}

// History returns the exchanges of a chat.
func (c *Client) History(ctx context.Context, chatID string) ([]*models.HistoryEntry, error) {
	var out struct {
		History []*models.HistoryEntry `json:"history"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/chat/"+url.PathEscape(chatID)+"/history", "", nil, &out); err != nil {
		return nil, err
	}
	return out.History, nil
}

// Status returns the raw /api/status payload.
func (c *Client) Status(ctx context.Context) (map[string]interface{}, error) {
	var out map[string]interface{}
	if err := c.do(ctx, http.MethodGet, "/api/status", "", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// WatchList returns the watched inbox directories.
func (c *Client) WatchList(ctx context.Context) ([]string, error) {
	var out struct {
		Directories []string `json:"directories"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/watch/directories", "", nil, &out); err != nil {
		return nil, err
	}
	return out.Directories, nil
}

// WatchAdd starts watching path and ingests the files already in it.
func (c *Client) WatchAdd(ctx context.Context, path string) error {
	return c.postJSON(ctx, "/api/watch/directories", map[string]interface{}{"path": path, "sync": true}, nil)
}

// WatchRemove stops watching path.
func (c *Client) WatchRemove(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, "/api/watch/directories?path="+url.QueryEscape(path), "", nil, nil)
}

func (c *Client) postJSON(ctx context.Context, path string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, path, "application/json", bytes.NewReader(body), out)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(resp.Body)
		var e struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(b))
		if json.Unmarshal(b, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
