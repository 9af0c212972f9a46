// Package server hosts the reel publishing API behind a single HTTP server.
//
// The server builds a consistent middleware chain of request ids, logging,
// metrics, CORS, and security headers so handlers all share common
// protections and instrumentation.
package server
