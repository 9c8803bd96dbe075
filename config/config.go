package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

const (
	BackendMem = "mem"
	BackendDB  = "db"
)

type WebdavConfig struct {
	Prefix         string `json:"prefix" validate:"required,startswith=/"`
	Backend        string `json:"backend" validate:"oneof=mem db"`
	LockTimeout    int64  `json:"lock_timeout" validate:"gte=0"`     //秒, 0使用默认值
	MaxLockTimeout int64  `json:"max_lock_timeout" validate:"gte=0"` //秒
	PropCacheSize  int    `json:"prop_cache_size" validate:"gte=0"`
	OptionsCache   string `json:"options_cache_control"`
}

type BlobConfig struct {
	Kind              string      `json:"kind" validate:"required"`
	Args              interface{} `json:"args"`
	RotateStream      int         `json:"rotate_stream"`
	ReadCacheSize     int64       `json:"read_cache_size" validate:"gte=0"`
	ReadCacheKeyLimit int64       `json:"read_cache_key_limit" validate:"gte=0"`
	MaxUploadSize     int64       `json:"max_upload_size" validate:"gte=0"`
}

type PluginConfig struct {
	Name string      `json:"name" validate:"required"`
	Args interface{} `json:"args"`
}

type Config struct {
	Bind           string            `json:"bind" validate:"required"`
	LogInfo        logger.LogConfig  `json:"log_info"`
	DBFile         string            `json:"db_file"`
	UserInfo       map[string]string `json:"user_info"`
	AllowAnonymous bool              `json:"allow_anonymous"`
	Webdav         WebdavConfig      `json:"webdav"`
	Blob           BlobConfig        `json:"blob"`
	Plugins        []PluginConfig    `json:"plugins" validate:"dive"`
}

func defaultConfig() *Config {
	return &Config{
		Bind:   ":8901",
		DBFile: "./tgdav.db",
		Webdav: WebdavConfig{
			Prefix:  "/",
			Backend: BackendMem,
		},
		Blob: BlobConfig{
			Kind: "mem",
		},
	}
}

func Parse(f string) (*Config, error) {
	raw, err := os.ReadFile(f)
	if err != nil {
		return nil, fmt.Errorf("read file:%w", err)
	}
	c := defaultConfig()
	if err := json.Unmarshal(raw, c); err != nil {
		return nil, fmt.Errorf("decode json failed, err:%w", err)
	}
	if err := Validate(c); err != nil {
		return nil, fmt.Errorf("validate config failed, err:%w", err)
	}
	return c, nil
}
