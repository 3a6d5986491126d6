// Package lms fetches subject source documents from the learning management
// service.
package lms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/target/quiz-pipeline/config"
	apperrors "github.com/target/quiz-pipeline/internal/errors"
)

const maxDocumentBytes = 4 * 1024 * 1024 // refuse to slurp unbounded bodies

// ClientOptions configures an LMS client.
type ClientOptions struct {
	Config config.LMSConfig
	Logger *slog.Logger

	// HTTPClient overrides the default client; useful for tests.
	HTTPClient *http.Client
}

// Client fetches subject documents over HTTP. It implements
// core.DocumentSource.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates an LMS client from configuration.
func NewClient(opts ClientOptions) (*Client, error) {
	baseURL := strings.TrimRight(opts.Config.BaseURL, "/")
	if baseURL == "" {
		return nil, errors.New("lms base URL is required")
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Config.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL: baseURL,
		http:    httpClient,
		logger:  logger.With("component", "lms_client"),
	}, nil
}

// subjectResponse is the LMS envelope for a subject document.
type subjectResponse struct {
	Data struct {
		Content string `json:"content"`
	} `json:"data"`
}

// FetchDocument returns the source material for a subject. A missing subject
// maps to a not_found AppError so callers can drop the work instead of
// retrying it.
func (c *Client) FetchDocument(ctx context.Context, subjectID int64) (string, error) {
	url := fmt.Sprintf("%s/subjects/%d", c.baseURL, subjectID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build lms request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch subject %d: %w", subjectID, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.ErrorContext(ctx, "failed to close lms response body", "err", cerr)
		}
	}()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", apperrors.NotFoundf("subject %d does not exist", subjectID)
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("fetch subject %d: unexpected status %d", subjectID, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return "", fmt.Errorf("read subject %d body: %w", subjectID, err)
	}

	var payload subjectResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("decode subject %d body: %w", subjectID, err)
	}
	if payload.Data.Content == "" {
		return "", fmt.Errorf("subject %d has empty content", subjectID)
	}
	return payload.Data.Content, nil
}
