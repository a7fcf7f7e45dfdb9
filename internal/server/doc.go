// Package server assembles the membership API behind a single HTTP server.
//
// The server builds a consistent middleware chain of request IDs, logging,
// security headers, CORS, and identity resolution so handlers all share
// common protections and instrumentation. Identity resolution is fail-open:
// requests that cannot be tied to an account proceed as anonymous and the
// handlers decide what anonymous callers may do.
package server
