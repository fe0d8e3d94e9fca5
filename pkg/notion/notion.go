// Package notion persists extracted events to a Notion database. Series
// expansions become one page per session, linked by series metadata.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/repeater/v2"

	"github.com/umputun/eventscope/pkg/config"
	"github.com/umputun/eventscope/pkg/domain"
)

const notionVersion = "2022-06-28"

// ErrNotConfigured is returned when the database id or token is missing,
// callers surface it as a configuration problem rather than a save failure
var ErrNotConfigured = errors.New("notion database not configured")

// Client saves events to a Notion database over the REST API
type Client struct {
	cfg    config.NotionConfig
	client *http.Client
	now    func() time.Time
}

// NewClient creates a Notion client from config
func NewClient(cfg config.NotionConfig) *Client {
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		now:    time.Now,
	}
}

// Save persists one expansion: a single page for one session, one page per
// session with series metadata otherwise. Series saves are independent per
// session, a partial series is a success as long as at least one page landed.
func (c *Client) Save(ctx context.Context, candidate domain.EventCandidate, exp domain.Expansion) (domain.SaveResult, error) {
	if c.cfg.Token == "" || c.cfg.DatabaseID == "" {
		return domain.SaveResult{}, ErrNotConfigured
	}
	if len(exp.Sessions) == 0 {
		return domain.SaveResult{}, fmt.Errorf("expansion has no sessions")
	}

	if c.cfg.DryRun {
		return c.dryRunSave(exp), nil
	}

	result := domain.SaveResult{
		SeriesID:      exp.SeriesID,
		TotalSessions: len(exp.Sessions),
		Title:         exp.DisplayTitle,
	}

	var failures []error
	for _, session := range exp.Sessions {
		props := c.buildProperties(candidate, session, exp.SeriesID)
		pageID, err := c.createPage(ctx, props)
		if err != nil {
			lgr.Printf("[WARN] failed to create session %d of %d: %v", session.Number, session.Total, err)
			failures = append(failures, fmt.Errorf("session %d: %w", session.Number, err))
			continue
		}
		result.AllPageIDs = append(result.AllPageIDs, pageID)
		result.AllURLs = append(result.AllURLs, pageURL(pageID))
		lgr.Printf("[INFO] created notion page %s for %q", pageID, session.Title)
	}

	if len(result.AllPageIDs) == 0 {
		return domain.SaveResult{}, fmt.Errorf("failed to create any session records: %w", errors.Join(failures...))
	}

	result.PageID = result.AllPageIDs[0]
	result.URL = result.AllURLs[0]
	result.CreatedSessions = len(result.AllPageIDs)
	return result, nil
}

// dryRunSave logs what would be created and synthesizes page ids so the rest
// of the flow behaves like a real save
func (c *Client) dryRunSave(exp domain.Expansion) domain.SaveResult {
	result := domain.SaveResult{
		SeriesID:        exp.SeriesID,
		TotalSessions:   len(exp.Sessions),
		CreatedSessions: len(exp.Sessions),
		Title:           exp.DisplayTitle,
	}
	for _, session := range exp.Sessions {
		id := fmt.Sprintf("dry-run-session-%d-%s", session.Number, exp.SeriesID)
		if !exp.IsSeries() {
			id = "dry-run-page-id"
		}
		result.AllPageIDs = append(result.AllPageIDs, id)
		result.AllURLs = append(result.AllURLs, pageURL(id))
		lgr.Printf("[INFO] dry-run: would create %q at %s", session.Title, session.Date)
	}
	result.PageID = result.AllPageIDs[0]
	result.URL = result.AllURLs[0]
	return result
}

// createPage posts one page to the Notion API, retrying transient failures
func (c *Client) createPage(ctx context.Context, props map[string]interface{}) (string, error) {
	body, err := json.Marshal(map[string]interface{}{
		"parent":     map[string]string{"database_id": c.cfg.DatabaseID},
		"properties": props,
	})
	if err != nil {
		return "", fmt.Errorf("marshal page: %w", err)
	}

	var pageID string
	retrier := repeater.NewBackoff(5, 100*time.Millisecond, repeater.WithMaxDelay(3*time.Second))
	err = retrier.Do(ctx, func() error {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint+"/v1/pages", bytes.NewReader(body))
		if reqErr != nil {
			return fmt.Errorf("create request: %w: %w", reqErr, errPermanent)
		}
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
		req.Header.Set("Notion-Version", notionVersion)
		req.Header.Set("Content-Type", "application/json")

		resp, doErr := c.client.Do(req)
		if doErr != nil {
			return fmt.Errorf("notion request failed: %w", doErr) // network errors retry
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("notion status %d", resp.StatusCode) // transient, retry
		}
		if resp.StatusCode != http.StatusOK {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return fmt.Errorf("notion status %d: %s: %w", resp.StatusCode, msg, errPermanent)
		}

		var page struct {
			ID string `json:"id"`
		}
		if decErr := json.NewDecoder(resp.Body).Decode(&page); decErr != nil {
			return fmt.Errorf("decode page response: %w: %w", decErr, errPermanent)
		}
		pageID = page.ID
		return nil
	}, errPermanent)
	if err != nil {
		return "", err
	}
	return pageID, nil
}

// errPermanent marks errors the retrier should not retry
var errPermanent = errors.New("permanent failure")

// pageURL derives the public page URL from a page id
func pageURL(pageID string) string {
	return "https://www.notion.so/" + strings.ReplaceAll(pageID, "-", "")
}
