package reconx

import "time"

type Options struct {
	Concurrency     int
	MaxAttempts     int
	PollInterval    time.Duration
	PopTimeout      time.Duration
	RetryDelay      time.Duration
	ShutdownTimeout time.Duration
}

func defaultOptions() Options {
	return Options{
		Concurrency:     2,
		MaxAttempts:     5,
		PollInterval:    time.Second,
		PopTimeout:      2 * time.Second,
		RetryDelay:      30 * time.Second,
		ShutdownTimeout: 30 * time.Second,
	}
}

type Option func(*Options)

func WithConcurrency(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.Concurrency = n
		}
	}
}

func WithMaxAttempts(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.MaxAttempts = n
		}
	}
}

func WithPollInterval(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.PollInterval = d
		}
	}
}

// WithPopTimeout sets how long a worker blocks waiting for a task.
func WithPopTimeout(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.PopTimeout = d
		}
	}
}

func WithRetryDelay(d time.Duration) Option {
	return func(o *Options) {
		o.RetryDelay = d
	}
}

func WithShutdownTimeout(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.ShutdownTimeout = d
		}
	}
}
