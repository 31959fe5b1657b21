// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/tomtom215/groovesync/internal/config"
	"github.com/tomtom215/groovesync/internal/logging"
)

// cli carries state shared by every subcommand. The configuration is
// loaded once in the root PersistentPreRunE.
type cli struct {
	configPath string
	cfg        *config.Config
	logFile    io.Closer
	out        io.Writer
}

func newRootCmd() *cobra.Command {
	c := &cli{out: os.Stdout}

	root := &cobra.Command{
		Use:           "groovesync-agent",
		Short:         "Keep a local library replica in sync with a Groovesync server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			c.out = cmd.OutOrStdout()
			return c.init()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.logFile != nil {
				_ = c.logFile.Close()
			}
		},
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "path to config.yaml (default: search the usual locations)")

	root.AddCommand(
		c.runCmd(),
		c.syncCmd(),
		c.statusCmd(),
		c.listenCmd(),
		c.replayCmd(),
		c.offlineCmd(),
	)
	return root
}

func (c *cli) init() error {
	var (
		cfg *config.Config
		err error
	)
	if c.configPath != "" {
		cfg, err = config.LoadFile(c.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	if err := cfg.ValidateClient(); err != nil {
		return fmt.Errorf("invalid agent configuration: %w", err)
	}
	c.cfg = cfg

	out, closer := logOutput(&cfg.Logging)
	c.logFile = closer
	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    out,
	})
	return nil
}

// logOutput returns stderr, or a size-rotated file when logging.file is
// set. The closer is nil for stderr.
func logOutput(cfg *config.LoggingConfig) (io.Writer, io.Closer) {
	if cfg.File == "" {
		return os.Stderr, nil
	}
	lj := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}
	return lj, lj
}
