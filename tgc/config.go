package tgc

import (
	"time"

	"github.com/xxxsen/tgdav/tgc/client"
)

type config struct {
	Thread        int
	RetryTimes    int
	RetryInterval time.Duration
	Client        client.IClient
}

type Option func(*config)

func WithClient(cli client.IClient) Option {
	return func(c *config) {
		c.Client = cli
	}
}

func WithThread(t int) Option {
	return func(c *config) {
		c.Thread = t
	}
}

func WithRetry(times int, interval time.Duration) Option {
	return func(c *config) {
		c.RetryTimes = times
		c.RetryInterval = interval
	}
}
