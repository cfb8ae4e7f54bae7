// Package api composes the request security pipeline: per-route-class
// chains of rate limiting, payload sanitization, credential verification
// and admin whitelist checks in front of registered controllers.
package api
