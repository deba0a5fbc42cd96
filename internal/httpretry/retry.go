package httpretry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"coinenrich/internal/logging"
	"coinenrich/internal/services"
)

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
}

// OK reports whether the status is 2xx.
func (r *Response) OK() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Policy configures pacing and retries for one remote service.
type Policy struct {
	Stage       string
	MaxAttempts int
	BaseDelay   time.Duration
	Limiter     *rate.Limiter
	Sleeper     func(time.Duration)
	Logger      *slog.Logger
}

// NewLimiter returns a limiter admitting one request per interval. A
// non-positive interval disables pacing.
func NewLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// RetryableStatus reports whether a status code is worth another attempt.
func RetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// Do sends the request built by newRequest until it yields a non-retryable
// response or the attempt budget is spent. The last response is returned even
// when its status is retryable; only transport failures become errors.
func (p Policy) Do(ctx context.Context, client *http.Client, op string, newRequest func(context.Context) (*http.Request, error)) (*Response, error) {
	attempts := max(p.MaxAttempts, 1)
	if client == nil {
		client = http.DefaultClient
	}
	logger := p.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if p.Limiter != nil {
			if err := p.Limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}
		req, err := newRequest(ctx)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}

		started := time.Now()
		resp, err := client.Do(req)
		latency := time.Since(started)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			lastErr = fmt.Errorf("execute request (latency=%v): %w", latency, err)
			if attempt >= attempts {
				break
			}
			delay := p.backoff(attempt)
			logger.Warn("request failed, retrying",
				logging.String("operation", op),
				logging.Int("attempt", attempt),
				logging.Int("max_attempts", attempts),
				logging.Duration("backoff", delay),
				logging.Error(err),
				logging.String(logging.FieldEventType, "http_retry"),
				logging.String(logging.FieldErrorHint, "check network connectivity"),
			)
			if err := p.sleep(ctx, delay); err != nil {
				return nil, err
			}
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("read response body: %w", readErr)
			if attempt >= attempts {
				break
			}
			if err := p.sleep(ctx, p.backoff(attempt)); err != nil {
				return nil, err
			}
			continue
		}

		result := &Response{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Header:     resp.Header,
			Body:       body,
		}
		logger.Debug("http response",
			logging.String("operation", op),
			logging.Int("status", resp.StatusCode),
			logging.Duration("latency", latency),
			logging.Int("attempt", attempt),
		)
		if RetryableStatus(resp.StatusCode) && attempt < attempts {
			delay, ok := parseRetryAfter(resp.Header.Get("Retry-After"))
			if !ok {
				delay = p.backoff(attempt)
			}
			logger.Warn("remote service throttled or failed, retrying",
				logging.String("operation", op),
				logging.Int("status", resp.StatusCode),
				logging.Int("attempt", attempt),
				logging.Int("max_attempts", attempts),
				logging.Duration("backoff", delay),
				logging.String(logging.FieldEventType, "http_retry"),
				logging.String(logging.FieldErrorHint, "lower the request rate or raise request_delay_ms"),
			)
			if err := p.sleep(ctx, delay); err != nil {
				return nil, err
			}
			continue
		}
		return result, nil
	}

	if lastErr == nil {
		lastErr = errors.New("request failed")
	}
	return nil, services.Wrap(services.ErrTransient, p.Stage, op, fmt.Sprintf("failed after %d attempts", attempts), lastErr)
}

// backoff returns BaseDelay * 2^attempt.
func (p Policy) backoff(attempt int) time.Duration {
	if p.BaseDelay <= 0 {
		return 0
	}
	return p.BaseDelay * time.Duration(1<<uint(min(attempt, 16)))
}

func (p Policy) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if p.Sleeper != nil {
		p.Sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// parseRetryAfter accepts a positive number of seconds.
func parseRetryAfter(value string) (time.Duration, bool) {
	seconds, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || seconds <= 0 {
		return 0, false
	}
	return time.Duration(seconds) * time.Second, true
}
