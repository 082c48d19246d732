package analysis

import (
	"context"
	"time"
)

// Provider sends a prompt to an AI backend and returns its raw text reply.
type Provider interface {
	Name() string
	// Enabled is true only when the provider has what it needs to make a call.
	Enabled() bool
	Analyze(ctx context.Context, prompt string) (string, error)
}

// ModelEntry is one entry of the ai.models configuration list.
type ModelEntry struct {
	Name    string `yaml:"name"`
	Enabled bool   `yaml:"enabled"`
	Model   string `yaml:"model,omitempty"`
	Key     string `yaml:"key,omitempty"`
	BaseURL string `yaml:"baseURL,omitempty"`
}

type options struct {
	retrier *Retrier
	timeout time.Duration
}

// Option customises providers built by BuildProviders and the New* constructors.
type Option func(*options)

func WithRetrier(r *Retrier) Option {
	return func(o *options) { o.retrier = r }
}

func WithHTTPTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

func applyOptions(opts []Option) options {
	o := options{timeout: 60 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}
	if o.retrier == nil {
		o.retrier = NewRetrier()
	}
	return o
}
