package webdav

import "time"

const (
	defaultLockTimeout    = time.Hour
	defaultMaxLockTimeout = 2 * 24 * time.Hour
)

type config struct {
	prefix         string
	auth           IAuthenticator
	plugins        []IPlugin
	defaultTimeout time.Duration
	maxTimeout     time.Duration
}

type Option func(c *config)

// WithPrefix sets the URL path the handler is mounted on.
func WithPrefix(prefix string) Option {
	return func(c *config) {
		c.prefix = prefix
	}
}

func WithAuthenticator(a IAuthenticator) Option {
	return func(c *config) {
		c.auth = a
	}
}

func WithPlugins(ps ...IPlugin) Option {
	return func(c *config) {
		c.plugins = append(c.plugins, ps...)
	}
}

// WithLockTimeout sets the timeout used when LOCK names none and the upper
// bound of any requested timeout.
func WithLockTimeout(defaultTimeout time.Duration, maxTimeout time.Duration) Option {
	return func(c *config) {
		if defaultTimeout > 0 {
			c.defaultTimeout = defaultTimeout
		}
		if maxTimeout > 0 {
			c.maxTimeout = maxTimeout
		}
	}
}

func applyOpts(opts ...Option) *config {
	c := &config{
		prefix:         "/",
		defaultTimeout: defaultLockTimeout,
		maxTimeout:     defaultMaxLockTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.defaultTimeout > c.maxTimeout {
		c.defaultTimeout = c.maxTimeout
	}
	return c
}
