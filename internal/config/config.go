// Package config defines the necessary types to configure the application.
// An example config file config.yaml is provided in the repository.
package config

import (
	"time"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
)

type Config struct {
	commoncfg.BaseConfig `mapstructure:",squash" yaml:",inline"`

	API        API        `yaml:"api"`
	Auth       Auth       `yaml:"auth"`
	TokenStore TokenStore `yaml:"tokenStore"`
	Refresher  Refresher  `yaml:"refresher"`
}

type API struct {
	BaseURL string        `yaml:"baseURL" default:"http://localhost:8000/"`
	Timeout time.Duration `yaml:"timeout" default:"30s"`
}

type Auth struct {
	RefreshTimeout  time.Duration `yaml:"refreshTimeout" default:"10s"`
	TokenAlgorithms []string      `yaml:"tokenAlgorithms"`
}

type TokenStoreType string

const (
	TokenStoreFile   TokenStoreType = "file"
	TokenStoreValKey TokenStoreType = "valkey"
	TokenStoreMemory TokenStoreType = "memory"
)

type TokenStore struct {
	Type   TokenStoreType `yaml:"type" default:"file"`
	File   FileStore      `yaml:"file"`
	ValKey ValKey         `yaml:"valkey"`
}

type FileStore struct {
	// Path of the session file. Empty means $HOME/.taskboard/session.yaml.
	Path string `yaml:"path"`
}

type ValKey struct {
	Host      commoncfg.SourceRef `yaml:"host"`
	User      commoncfg.SourceRef `yaml:"user"`
	Password  commoncfg.SourceRef `yaml:"password"`
	SecretRef commoncfg.SecretRef `yaml:"secretRef"`
	Prefix    string              `yaml:"prefix" default:"taskboard"`
}

type Refresher struct {
	Interval time.Duration `yaml:"interval" default:"5m"`
}
