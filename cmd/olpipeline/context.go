package main

import (
	"go.uber.org/zap"

	"github.com/mitodl/ol-infrastructure-sub004/lib/settings"
)

// commandContext carries the loaded settings and the logger into each
// subcommand. Settings load lazily so commands that never touch them (help,
// list) work without a config file.
type commandContext struct {
	configFlag  *string
	verboseFlag *bool

	loaded *settings.Settings
	logger *zap.Logger
}

func newCommandContext(configFlag *string, verboseFlag *bool) *commandContext {
	return &commandContext{configFlag: configFlag, verboseFlag: verboseFlag}
}

func (c *commandContext) settings() (*settings.Settings, error) {
	if c.loaded != nil {
		return c.loaded, nil
	}
	s, err := settings.Load(*c.configFlag)
	if err != nil {
		return nil, err
	}
	c.loaded = s
	return s, nil
}

func (c *commandContext) log() *zap.Logger {
	if c.logger != nil {
		return c.logger
	}
	var err error
	if *c.verboseFlag {
		c.logger, err = zap.NewDevelopment()
	} else {
		c.logger = zap.NewNop()
	}
	if err != nil {
		c.logger = zap.NewNop()
	}
	return c.logger
}
