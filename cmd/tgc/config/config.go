package config

import (
	"encoding/json"
	"fmt"
	"os"
)

type Config struct {
	Endpoint string `json:"endpoint"`
	User     string `json:"user"`
	Password string `json:"password"`
	Thread   int    `json:"thread"`
	LogLevel string `json:"log_level"`
	Timeout  int64  `json:"timeout"` //秒
}

func Parse(f string) (*Config, error) {
	raw, err := os.ReadFile(f)
	if err != nil {
		return nil, fmt.Errorf("read file:%w", err)
	}
	c := &Config{
		Thread:   4,
		LogLevel: "debug",
		Timeout:  600,
	}
	if err := json.Unmarshal(raw, c); err != nil {
		return nil, fmt.Errorf("unmarshal file:%w", err)
	}
	if len(c.Endpoint) == 0 {
		return nil, fmt.Errorf("no endpoint found")
	}
	return c, nil
}
