package main

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"agenthub/config"
)

type ConfigureCmd struct{}

func NewConfigureCmd() *ConfigureCmd {
	return &ConfigureCmd{}
}

// Configure writes the config file, keeping fields that were not passed.
func (c *ConfigureCmd) Configure(baseUrl string, token string) error {
	path, err := config.DefaultPath()
	if err != nil {
		return err
	}
	clientConfig := config.ClientConfig
	if existing, err := config.Load(path); err == nil {
		clientConfig = *existing
	}
	if baseUrl != "" {
		clientConfig.BaseUrl = baseUrl
	}
	if token != "" {
		clientConfig.Token = token
	}
	if clientConfig.Token == "" {
		return errors.New("no token configured, pass --token")
	}
	if err := config.Save(path, &clientConfig); err != nil {
		return err
	}
	zap.L().Sugar().Infof("wrote %s", path)
	return nil
}
