package client

import "time"

type config struct {
	Endpoint string
	User     string
	Password string
	Timeout  time.Duration
}

type Option func(*config)

func WithEndpoint(e string) Option {
	return func(c *config) {
		c.Endpoint = e
	}
}

func WithAuth(user string, pwd string) Option {
	return func(c *config) {
		c.User = user
		c.Password = pwd
	}
}

func WithTimeout(t time.Duration) Option {
	return func(c *config) {
		c.Timeout = t
	}
}
