// Package api hosts the HTTP handlers that front the reel publishing API.
//
// Handler coordinates request validation and response shaping while
// delegating the pipeline work to a reels.Service injected at construction
// time. The package does not reach for globals or singletons and expects
// callers to supply fully configured dependencies.
//
// Handlers assume upstream middleware from internal/server has already
// applied request ids, metrics, security headers, and logging. New routes
// should preserve that contract by leaning on the middleware guarantees
// established in the server stack.
package api
