package server

type config struct {
	prefix        string
	maxUploadSize int64
}

type Option func(c *config)

// WithPrefix sets the path the webdav handler is mounted on.
func WithPrefix(prefix string) Option {
	return func(c *config) {
		c.prefix = prefix
	}
}

// WithMaxUploadSize rejects PUT bodies that declare a bigger length, 0
// disables the check.
func WithMaxUploadSize(sz int64) Option {
	return func(c *config) {
		c.maxUploadSize = sz
	}
}

func applyOpts(opts ...Option) *config {
	c := &config{prefix: "/"}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
