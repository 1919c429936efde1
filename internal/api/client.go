// Package api is the REST client for the library service.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/mmcdole/libraryhub/internal/config"
	"github.com/mmcdole/libraryhub/internal/domain"
)

const (
	defaultTimeout   = 30 * time.Second
	baseRetryDelay   = 500 * time.Millisecond
	maxRetryDelay    = 2 * time.Second
	requestIDHeader  = "X-Request-Id"
	maxErrorBodySize = 200
)

// Client talks to the library service. It implements the repository
// interfaces in the domain package.
type Client struct {
	conn   *resty.Client
	logger *slog.Logger
}

type noToken struct{}

func (noToken) Token() string { return "" }

// New creates a client for cfg.URL. tokens supplies the bearer token for
// every request; nil sends requests unauthenticated.
func New(cfg config.ServerConfig, tokens domain.TokenSource, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if tokens == nil {
		tokens = noToken{}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	conn := resty.New().
		SetBaseURL(strings.TrimRight(cfg.URL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetLogger(restyLogger{logger}).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(baseRetryDelay).
		SetRetryMaxWaitTime(maxRetryDelay).
		AddRetryCondition(retryIdempotent)

	conn.OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
		if tok := tokens.Token(); tok != "" {
			r.SetAuthToken(tok)
		}
		if r.Header.Get(requestIDHeader) == "" {
			r.SetHeader(requestIDHeader, uuid.NewString())
		}
		return nil
	})

	return &Client{conn: conn, logger: logger}
}

// retryIdempotent retries GETs on transport failures and 5xx responses.
// Writes are never retried.
func retryIdempotent(r *resty.Response, err error) bool {
	if r == nil || r.Request == nil || r.Request.Method != http.MethodGet {
		return false
	}
	return err != nil || r.StatusCode() >= http.StatusInternalServerError
}

// request describes one call to the service
type request struct {
	method     string
	path       string
	pathParams map[string]string
	body       any
	result     any
}

func (c *Client) do(ctx context.Context, req request) error {
	r := c.conn.R().SetContext(ctx)
	if req.pathParams != nil {
		r.SetPathParams(req.pathParams)
	}
	if req.body != nil {
		r.SetBody(req.body)
	}

	start := time.Now()
	resp, err := r.Execute(req.method, req.path)
	if err != nil {
		c.logger.Error("request failed", "method", req.method, "path", req.path, "error", err)
		return fmt.Errorf("%w: %w", domain.ErrServerOffline, err)
	}

	c.logger.Debug("request completed",
		"method", req.method,
		"path", req.path,
		"status", resp.StatusCode(),
		"requestID", resp.Request.Header.Get(requestIDHeader),
		"duration", time.Since(start),
	)

	switch {
	case resp.StatusCode() == http.StatusUnauthorized:
		return domain.ErrAuthFailed
	case !resp.IsSuccess():
		return &domain.APIError{
			Method:     req.method,
			Path:       expandPath(req.path, req.pathParams),
			StatusCode: resp.StatusCode(),
			Message:    errorMessage(resp.Body()),
		}
	}

	if req.result == nil || len(resp.Body()) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), req.result); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", req.method, req.path, err)
	}
	return nil
}

func expandPath(path string, params map[string]string) string {
	for k, v := range params {
		path = strings.ReplaceAll(path, "{"+k+"}", v)
	}
	return path
}

// errorMessage extracts a short message from an error response body.
func errorMessage(body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorBodySize {
		msg = msg[:maxErrorBodySize]
	}
	return msg
}

func idParam(id domain.ID) map[string]string {
	return map[string]string{"id": id.String()}
}

// restyLogger routes resty's internal messages to slog so nothing is
// written to the terminal the TUI owns.
type restyLogger struct {
	logger *slog.Logger
}

func (l restyLogger) Errorf(format string, v ...interface{}) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "resty")
}

func (l restyLogger) Warnf(format string, v ...interface{}) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "resty")
}

func (l restyLogger) Debugf(format string, v ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "resty")
}
