// Package sanitize cleans inbound request payloads and rejects requests
// whose serialized form contains bare SQL keywords. It also exposes the
// field-level validators individual routes use for emails, phone numbers
// and passwords.
package sanitize
