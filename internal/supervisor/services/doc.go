// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

/*
Package services adapts groovesync components to suture.Service.

Each adapter turns a component's own lifecycle (ListenAndServe/Shutdown,
RunWithContext, a blocking consumer loop) into Serve(ctx) error and names
itself through fmt.Stringer for supervisor logs:

	HTTPServerService     *http.Server, drained with a bounded Shutdown
	HubService            websocket.Hub, disconnects sessions on stop
	RelayService          websocket.NATSRelay consumer loops
	EmbeddedNATSService   eventprocessor.EmbeddedServer shutdown and liveness

The agent's sync.Scheduler already implements suture.Service and is added
to the tree directly.

Adapters accept small interfaces rather than concrete types so they can be
tested without sockets or a broker.
*/
package services
