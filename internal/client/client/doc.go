// Package client contains the networking side of the GophShare CLI.
//
// # Overview
//
// The package provides:
//  1. APIClient, a typed client for the REST API. Unauthenticated calls
//     (register, login, MFA verify-login, refresh, logout) use a plain
//     http.Client; every other call goes through an AuthTransport.
//  2. AuthTransport, an http.RoundTripper that injects the bearer access
//     credential, refreshes it on 401 through a single coalesced exchange
//     (golang.org/x/sync/singleflight) and replays the request at most
//     once. A failed refresh tears the session down and yields
//     common.ErrSessionExpired.
//  3. HealthClient, a grpc.health.v1 probe used by the ping command.
//  4. Local persistence bootstrap (InitDatabase, RunMigrations) for the
//     SQLite state file, applying embedded goose migrations.
//
// # Error Handling
//
// Error responses are decoded with apierr.Decode, so callers match the
// sentinels in internal/common with errors.Is. Transport failures wrap
// ErrUnavailable.
package client
