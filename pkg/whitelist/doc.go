// Package whitelist resolves administrative privilege by looking up an
// email in the external whitelist store.
package whitelist
