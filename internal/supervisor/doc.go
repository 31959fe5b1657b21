// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

/*
Package supervisor runs the long-lived parts of groovesync under suture v4.

Both binaries build a SupervisorTree. Each layer is its own child
supervisor, so a crash loop in one layer backs off only that layer:

	groovesync-server
	├── broker-layer    EmbeddedNATSService (nats.embedded only)
	├── realtime-layer  HubService, RelayService (nats.enabled only)
	└── api-layer       HTTPServerService

	groovesync-agent
	└── sync-layer      sync.Scheduler

Lifecycle events (start, failure, backoff, restart) are logged through
sutureslog, which writes to the zerolog-backed slog handler from the
logging package.

# Usage

	tree, err := supervisor.NewSupervisorTree("groovesync-server",
	    logging.NewSlogLogger(), supervisor.DefaultTreeConfig(),
	    supervisor.LayerRealtime, supervisor.LayerAPI)
	if err != nil {
	    return err
	}
	tree.Add(supervisor.LayerRealtime, services.NewHubService(hub))
	tree.Add(supervisor.LayerAPI, services.NewHTTPServerService(srv, 10*time.Second))
	return tree.Serve(ctx)

Service adapters live in the services subpackage.
*/
package supervisor
