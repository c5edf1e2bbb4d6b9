package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"agenthub/common"
)

var ClientConfig Config

type Config struct {
	BaseUrl       string `json:"baseUrl" yaml:"baseUrl" validate:"required,url"`
	Token         string `json:"token" yaml:"token"`
	DefaultFormat string `json:"defaultFormat,omitempty" yaml:"defaultFormat,omitempty"`
}

func init() {
	ClientConfig = Config{
		BaseUrl:       "https://api.agenthub.dev/v1",
		DefaultFormat: "table",
	}
}

// SetConfigJson overrides individual fields of the active config from a JSON
// document, e.g. passed on the command line.
func SetConfigJson(configJson string) error {
	zap.L().Info("Reset config: " + configJson)
	var clientConfig Config
	err := json.Unmarshal([]byte(configJson), &clientConfig)
	if err != nil {
		return err
	}
	if clientConfig.BaseUrl != "" {
		ClientConfig.BaseUrl = clientConfig.BaseUrl
	}
	if clientConfig.Token != "" {
		ClientConfig.Token = clientConfig.Token
	}
	if clientConfig.DefaultFormat != "" {
		ClientConfig.DefaultFormat = clientConfig.DefaultFormat
	}
	return nil
}

func GetConfigJson() string {
	marshal, _ := json.Marshal(ClientConfig)
	return string(marshal)
}

// DefaultPath is ~/.ahub/config.yml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, common.ConfigDirName, common.ConfigFileName), nil
}

func Load(path string) (*Config, error) {
	configByte, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var clientConfig Config
	if err := yaml.Unmarshal(configByte, &clientConfig); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	if err := validator.New().Struct(&clientConfig); err != nil {
		return nil, errors.Wrapf(err, "invalid config %s", path)
	}
	if clientConfig.DefaultFormat == "" {
		clientConfig.DefaultFormat = "table"
	}
	return &clientConfig, nil
}

func Save(path string, clientConfig *Config) error {
	if err := validator.New().Struct(clientConfig); err != nil {
		return errors.Wrap(err, "invalid config")
	}
	configByte, err := yaml.Marshal(clientConfig)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	return os.WriteFile(path, configByte, 0600)
}
