package requesthandler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
)

const (
	userAgent = "mobility-monitor/1.0"

	// error bodies are only kept for logging
	maxErrorBodyLength = 512
)

// ErrorReporter receives every failed request, eg. to show a screen wide error state.
// ctx is the context the request was made with.
type ErrorReporter interface {
	ReportError(ctx context.Context, err error)
}

type Config struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxElapsedTime  time.Duration
	RequestTimeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxElapsedTime:  30 * time.Second,
		RequestTimeout:  15 * time.Second,
	}
}

// RequestBuilder creates a fresh request for every attempt
type RequestBuilder func(ctx context.Context) (*http.Request, error)

type Handler struct {
	Config   Config
	Client   *http.Client
	Reporter ErrorReporter
}

func New(config Config, reporter ErrorReporter) *Handler {
	return &Handler{
		Config:   config,
		Client:   &http.Client{},
		Reporter: reporter,
	}
}

// MakeRequest runs the request, retrying network failures and overloaded upstream responses,
// and returns the body of the first successful response
func (h *Handler) MakeRequest(ctx context.Context, build RequestBuilder) ([]byte, error) {
	var body []byte

	operation := func() error {
		var err error
		body, err = h.attempt(ctx, build)
		if err == nil {
			return nil
		}

		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}

		var statusError *StatusError
		if errors.As(err, &statusError) && !statusError.Retryable() {
			return backoff.Permanent(err)
		}
		if !errors.Is(err, ErrNetwork) && statusError == nil {
			return backoff.Permanent(err)
		}

		return err
	}

	notify := func(err error, wait time.Duration) {
		log.Warn().Err(err).Dur("wait", wait).Msg("Request failed, retrying")
	}

	err := backoff.RetryNotify(operation, backoff.WithContext(backoff.WithMaxRetries(h.newBackOff(), h.Config.MaxRetries), ctx), notify)
	if err != nil {
		h.report(ctx, err)
		return nil, err
	}

	return body, nil
}

// MakeJSONRequest is MakeRequest followed by decoding the body into target
func (h *Handler) MakeJSONRequest(ctx context.Context, build RequestBuilder, decode func([]byte) error) error {
	body, err := h.MakeRequest(ctx, build)
	if err != nil {
		return err
	}

	if err := decode(body); err != nil {
		err = fmt.Errorf("%w: %v", ErrDecode, err)
		h.report(ctx, err)
		return err
	}

	return nil
}

// DecodeJSON returns a decode func for MakeJSONRequest
func DecodeJSON(target any) func([]byte) error {
	return func(body []byte) error {
		return json.Unmarshal(body, target)
	}
}

func (h *Handler) attempt(ctx context.Context, build RequestBuilder) ([]byte, error) {
	requestContext := ctx
	if h.Config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		requestContext, cancel = context.WithTimeout(ctx, h.Config.RequestTimeout)
		defer cancel()
	}

	req, err := build(requestContext)
	if err != nil {
		return nil, err
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", userAgent)
	}

	resp, err := h.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errorBody := string(body)
		if len(errorBody) > maxErrorBodyLength {
			errorBody = errorBody[:maxErrorBodyLength]
		}

		return nil, &StatusError{StatusCode: resp.StatusCode, Body: errorBody}
	}

	return body, nil
}

func (h *Handler) newBackOff() backoff.BackOff {
	retryBackoff := backoff.NewExponentialBackOff()
	if h.Config.InitialInterval > 0 {
		retryBackoff.InitialInterval = h.Config.InitialInterval
	}
	retryBackoff.MaxElapsedTime = h.Config.MaxElapsedTime
	retryBackoff.Reset()

	return retryBackoff
}

func (h *Handler) client() *http.Client {
	if h.Client == nil {
		return http.DefaultClient
	}

	return h.Client
}

func (h *Handler) report(ctx context.Context, err error) {
	if h.Reporter == nil || errors.Is(err, context.Canceled) {
		return
	}

	h.Reporter.ReportError(ctx, err)
}
