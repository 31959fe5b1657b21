// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

/*
Package main is the Groovesync sync agent.

The agent keeps a local BadgerDB replica of the caller's library in step
with the server's change feed, and queues listen reports while the device
is offline.

	groovesync-agent run                    # periodic sync until SIGINT
	groovesync-agent sync --type track      # one run, selected types
	groovesync-agent sync --force           # ignore the recent-sync guard
	groovesync-agent status                 # cursors, queue and mode
	groovesync-agent listen 42 --tz UTC     # report one play
	groovesync-agent replay-listens         # flush the listen queue
	groovesync-agent offline on|off

Configuration comes from the same Koanf layers as the server: built-in
defaults, config.yaml (or --config), then SYNC_* environment variables.
When LOG_FILE is set, logs are written to a rotated file instead of stderr.
*/
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
