// Groovesync - Multi-device library sync and now-playing relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/groovesync

/*
Package auth provides bearer-token authentication for the HTTP API and the
socket endpoint.

Tokens are HS256-signed JWTs carrying the numeric user id. The same token
authenticates REST calls (Authorization: Bearer <token>) and the socket
handshake, where browsers cannot set headers and pass it as the token query
parameter instead.

Usage:

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
	    return err
	}
	mw := auth.NewMiddleware(jwtManager)
	r.With(mw.Authenticate).Get("/api/v1/sync/last-modified", h.LastModified)

Handlers read the caller with auth.UserIDFromContext.
*/
package auth
