// Package api hosts the HTTP handlers that front the membership REST API.
//
// The handlers assembled by Handler coordinate request validation, identity
// awareness, and response shaping while delegating persistence to
// storage.Repository implementations injected at construction time. Token
// issuance and verification are provided by an auth.TokenService passed into
// the handler; the package does not reach for globals or singletons and
// expects callers to supply fully configured dependencies.
//
// Identity resolution is deliberately tolerant: requests without a valid
// session are served as anonymous rather than rejected, and individual
// handlers decide through the auth guards whether anonymous access is
// acceptable. Authorization failures are never collapsed into authentication
// failures; the two map to distinct status codes.
package api
