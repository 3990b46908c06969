// Package upstream fetches the store's published schedule from the
// hours API the booking clients read from.
package upstream

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

	"github.com/codeGROOVE-dev/retry"

	"storehours/internal/domain"
)

const (
	hoursPath     = "/store-times"
	overridesPath = "/store-overrides"
)

type Config struct {
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	username   string
	password   string
	log        *slog.Logger
}

func New(cfg Config, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		username:   cfg.Username,
		password:   cfg.Password,
		log:        log.With(slog.String("component", "upstream")),
	}
}

// Hours fetches the weekly recurring rows.
func (c *Client) Hours(ctx context.Context) ([]domain.StoreHours, error) {
	var out []domain.StoreHours
	if err := c.getJSON(ctx, hoursPath, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Overrides fetches the date-specific exceptions.
func (c *Client) Overrides(ctx context.Context) ([]domain.StoreOverride, error) {
	var out []domain.StoreOverride
	if err := c.getJSON(ctx, overridesPath, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.code)
}

func (e *statusError) transient() bool {
	return e.code == http.StatusTooManyRequests || e.code >= 500
}

func (c *Client) getJSON(ctx context.Context, path string, dst any) error {
	err := retry.Do(
		func() error {
			err := c.getJSONOnce(ctx, path, dst)
			if err == nil {
				return nil
			}
			var se *statusError
			if errors.As(err, &se) && !se.transient() {
				return retry.Unrecoverable(err)
			}
			return err
		},
		retry.Context(ctx),
		retry.Attempts(4),
		retry.Delay(200*time.Millisecond),
		retry.MaxDelay(5*time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.log.Warn("retrying upstream request",
				slog.String("path", path),
				slog.Uint64("attempt", uint64(n)+1),
				slog.Any("err", err),
			)
		}),
	)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	return nil
}

func (c *Client) getJSONOnce(ctx context.Context, path string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return &statusError{code: resp.StatusCode}
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}
