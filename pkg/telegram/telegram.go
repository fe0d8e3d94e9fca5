// Package telegram is a minimal bot API client: webhook update types,
// outbound messages, and file downloads for photo inputs.
package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-pkgz/lgr"

	"github.com/umputun/eventscope/pkg/config"
)

// Update is an incoming webhook payload
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

// Message is one inbound message
type Message struct {
	MessageID int64       `json:"message_id"`
	From      *User       `json:"from"`
	Chat      Chat        `json:"chat"`
	Text      string      `json:"text"`
	Caption   string      `json:"caption"`
	Photo     []PhotoSize `json:"photo"`
}

// User identifies the sender
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Chat identifies the conversation
type Chat struct {
	ID int64 `json:"id"`
}

// PhotoSize is one size variant of an uploaded photo
type PhotoSize struct {
	FileID   string `json:"file_id"`
	FileSize int64  `json:"file_size"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

// LargestPhoto picks the highest-resolution variant, photos arrive as a list
// of sizes and the last is not guaranteed to be the biggest
func LargestPhoto(photos []PhotoSize) (PhotoSize, bool) {
	if len(photos) == 0 {
		return PhotoSize{}, false
	}
	best := photos[0]
	for _, p := range photos[1:] {
		if p.Width*p.Height > best.Width*best.Height {
			best = p
		}
	}
	return best, true
}

// Client talks to the Telegram bot API
type Client struct {
	cfg    config.TelegramConfig
	client *http.Client
}

// NewClient creates a bot API client from config
func NewClient(cfg config.TelegramConfig) *Client {
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// SendMessage posts a markdown message to a chat
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	form := url.Values{}
	form.Set("chat_id", fmt.Sprintf("%d", chatID))
	form.Set("text", text)
	form.Set("parse_mode", "Markdown")

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", c.cfg.Endpoint, c.cfg.Token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram status %d: %s", resp.StatusCode, body)
	}
	return nil
}

// Download fetches the file bytes for a file id: getFile for the path, then
// the file endpoint for the content
func (c *Client) Download(ctx context.Context, fileID string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/bot%s/getFile?file_id=%s", c.cfg.Endpoint, c.cfg.Token, url.QueryEscape(fileID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get file info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("telegram status %d", resp.StatusCode)
	}

	var info struct {
		OK     bool `json:"ok"`
		Result struct {
			FilePath string `json:"file_path"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode file info: %w", err)
	}
	if !info.OK || info.Result.FilePath == "" {
		return nil, fmt.Errorf("no file path for %s", fileID)
	}

	fileURL := fmt.Sprintf("%s/file/bot%s/%s", c.cfg.Endpoint, c.cfg.Token, info.Result.FilePath)
	fileReq, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create file request: %w", err)
	}

	fileResp, err := c.client.Do(fileReq)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer fileResp.Body.Close()

	if fileResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("telegram file status %d", fileResp.StatusCode)
	}

	data, err := io.ReadAll(fileResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	lgr.Printf("[DEBUG] downloaded telegram file %s, %d bytes", fileID, len(data))
	return data, nil
}
