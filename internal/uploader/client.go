package uploader

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

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/RMahshie/apscanner/pkg/models"
)

var (
	// ErrRejected means the server refused the reading; retrying will not help
	ErrRejected    = errors.New("uploader: reading rejected")
	ErrCircuitOpen = errors.New("uploader: circuit breaker open")
	errServerError = errors.New("server error")
)

// BackoffConfig controls exponential backoff behaviour.
type BackoffConfig struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// Client posts readings to the suggestion server
type Client struct {
	serverURL string
	http      *http.Client
	backoff   BackoffConfig
	circuit   *gobreaker.CircuitBreaker
}

// Option configures a Client
type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

func WithBackoff(cfg BackoffConfig) Option {
	return func(cl *Client) { cl.backoff = cfg }
}

// WithBreaker replaces the default circuit breaker settings
func WithBreaker(st gobreaker.Settings) Option {
	return func(cl *Client) { cl.circuit = gobreaker.NewCircuitBreaker(st) }
}

// NewClient creates an uploader for the server at serverURL
func NewClient(serverURL string, opts ...Option) *Client {
	c := &Client{
		serverURL: strings.TrimRight(serverURL, "/"),
		http:      &http.Client{Timeout: 30 * time.Second},
		backoff: BackoffConfig{
			MaxRetries:      3,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     5 * time.Second,
		},
		circuit: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "upload",
			MaxRequests: 1,
			Interval:    1 * time.Minute,
			Timeout:     2 * time.Minute,
		}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type reply struct {
	status int
	body   []byte
}

// Upload posts a reading and returns the id and URL the server assigned.
// Transport errors and 5xx answers are retried with exponential backoff.
func (c *Client) Upload(ctx context.Context, r *models.Reading) (models.UploadReadingResponseBody, error) {
	var out models.UploadReadingResponseBody

	payload, err := json.Marshal(r)
	if err != nil {
		return out, fmt.Errorf("encode reading: %w", err)
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.backoff.InitialInterval
	eb.MaxInterval = c.backoff.MaxInterval
	eb.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, c.backoff.MaxRetries), ctx)

	notify := func(err error, wait time.Duration) {
		log.Warn().Err(err).Dur("retry_in", wait).Msg("Reading upload failed, retrying")
	}

	rep, err := backoff.RetryNotifyWithData(func() (reply, error) {
		return c.post(ctx, payload)
	}, policy, notify)
	if err != nil {
		return out, err
	}

	if err := json.Unmarshal(rep.body, &out); err != nil {
		return out, fmt.Errorf("decode upload response: %w", err)
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, payload []byte) (reply, error) {
	result, err := c.circuit.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serverURL+"/", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 {
			return nil, fmt.Errorf("%w: %d", errServerError, resp.StatusCode)
		}
		// 4xx is the caller's fault, not the server's; the breaker stays closed
		return reply{status: resp.StatusCode, body: body}, nil
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return reply{}, backoff.Permanent(fmt.Errorf("%w: %v", ErrCircuitOpen, err))
	}
	if err != nil {
		if ctx.Err() != nil {
			return reply{}, backoff.Permanent(ctx.Err())
		}
		return reply{}, err
	}

	rep := result.(reply)
	if rep.status < 200 || rep.status >= 300 {
		return reply{}, backoff.Permanent(fmt.Errorf("%w: %d: %s", ErrRejected, rep.status, bytes.TrimSpace(rep.body)))
	}
	return rep, nil
}
