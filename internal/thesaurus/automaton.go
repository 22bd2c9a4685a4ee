package thesaurus

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sony/gobreaker"
)

// AutomataError wraps a failure fetching or decoding a precompiled
// automaton file, preserving the originating cause (DNS, TLS, HTTP status,
// decode error) per spec.md §4.3.
type AutomataError struct {
	Source string
	Err    error
}

func (e *AutomataError) Error() string {
	return fmt.Sprintf("thesaurus: automaton %q: %v", e.Source, e.Err)
}

func (e *AutomataError) Unwrap() error { return e.Err }

// AutomatonFetcher loads precompiled thesaurus blobs from a local path or a
// remote URL, with a timeout, optional gzip decoding, retry-with-backoff on
// transient failures, and a circuit breaker so a persistently failing
// remote host stops being retried for a cooldown period rather than
// blocking every subsequent load attempt (§5: "every external call accepts
// or enforces a deadline").
type AutomatonFetcher struct {
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

// NewAutomatonFetcher creates a fetcher with the given per-request timeout.
func NewAutomatonFetcher(timeout time.Duration) *AutomatonFetcher {
	return &AutomatonFetcher{
		client: &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "thesaurus-automaton-fetch",
			MaxRequests: 1,
			Interval:    0,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		}),
	}
}

// Load fetches and deserializes the thesaurus at path, which may be a local
// filesystem path or an http(s) URL. MIME type / file extension drives
// gzip decoding.
func (f *AutomatonFetcher) Load(ctx context.Context, path string) (*Thesaurus, error) {
	var raw []byte
	var err error

	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		raw, err = f.fetchRemote(ctx, path)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, &AutomataError{Source: path, Err: err}
	}

	if strings.HasSuffix(path, ".gz") {
		raw, err = gunzip(raw)
		if err != nil {
			return nil, &AutomataError{Source: path, Err: fmt.Errorf("gzip decode: %w", err)}
		}
	}

	th := New("")
	if err := json.Unmarshal(raw, th); err != nil {
		return nil, &AutomataError{Source: path, Err: fmt.Errorf("decode: %w", err)}
	}
	return th, nil
}

func (f *AutomatonFetcher) fetchRemote(ctx context.Context, url string) ([]byte, error) {
	op := func() ([]byte, error) {
		result, err := f.breaker.Execute(func() (interface{}, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return nil, backoff.Permanent(err)
			}
			resp, err := f.client.Do(req)
			if err != nil {
				return nil, err
			}
			defer resp.Body.Close()
			if resp.StatusCode >= 500 {
				return nil, fmt.Errorf("server error: %s", resp.Status)
			}
			if resp.StatusCode >= 400 {
				return nil, backoff.Permanent(fmt.Errorf("client error: %s", resp.Status))
			}
			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return nil, err
			}
			if strings.Contains(resp.Header.Get("Content-Encoding"), "gzip") {
				body, err = gunzip(body)
				if err != nil {
					return nil, backoff.Permanent(err)
				}
			}
			return body, nil
		})
		if err != nil {
			return nil, err
		}
		return result.([]byte), nil
	}

	return backoff.Retry(ctx, op,
		backoff.WithMaxTries(3),
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
	)
}

func gunzip(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
