// Package oracle talks to hosted text-generation models.
//
// Callers treat every backend as best-effort: a failed call returns an
// error and the caller decides how to degrade. Nothing here retries.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/erazemk/nabava/internal/config"
	"github.com/erazemk/nabava/internal/metrics"
)

// Request is one completion request.
type Request struct {
	// System is an optional instruction sent ahead of the prompt.
	System string
	Prompt string
	// Purpose labels the call in metrics and logs.
	Purpose string
	// JSON asks the backend for a JSON object reply where supported.
	JSON bool
}

// Oracle produces text for a prompt.
type Oracle interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Func adapts a plain function to Oracle.
type Func func(ctx context.Context, req Request) (string, error)

func (f Func) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// ErrDisabled is returned by the disabled backend.
var ErrDisabled = errors.New("oracle disabled")

// ErrEmpty is returned when a backend answers with no text.
var ErrEmpty = errors.New("oracle returned no content")

// Disabled always fails, which makes every caller take its fallback path.
type Disabled struct{}

func (Disabled) Complete(context.Context, Request) (string, error) {
	return "", ErrDisabled
}

// Instrumented bounds every call with a timeout and records it in metrics.
type Instrumented struct {
	next    Oracle
	timeout time.Duration
	metrics *metrics.Metrics
}

// Instrument wraps next. A zero timeout leaves the caller's deadline alone.
func Instrument(next Oracle, timeout time.Duration, m *metrics.Metrics) *Instrumented {
	return &Instrumented{next: next, timeout: timeout, metrics: m}
}

func (o *Instrumented) Complete(ctx context.Context, req Request) (string, error) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := o.next.Complete(ctx, req)
	if err == nil && strings.TrimSpace(out) == "" {
		err = ErrEmpty
	}
	o.metrics.ObserveOracle(req.Purpose, time.Since(start), err)
	if err != nil {
		return "", fmt.Errorf("%s completion: %w", req.Purpose, err)
	}
	return out, nil
}

// New builds the backend selected by cfg, wrapped with timeout and metrics.
func New(ctx context.Context, cfg config.OracleConfig, m *metrics.Metrics) (Oracle, error) {
	var backend Oracle
	switch cfg.Provider {
	case config.OracleDisabled:
		backend = Disabled{}
	case config.OracleGemini:
		g, err := NewGemini(ctx, cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, err
		}
		backend = g
	case config.OracleOpenAI, "":
		o, err := NewOpenAI(cfg.APIKey, cfg.BaseURL, cfg.Model)
		if err != nil {
			return nil, err
		}
		backend = o
	default:
		return nil, fmt.Errorf("unknown oracle provider %q", cfg.Provider)
	}
	return Instrument(backend, cfg.Timeout, m), nil
}

// StripFences removes a surrounding markdown code fence, which models often
// add around JSON even when told not to.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = ""
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
