// Package stealth builds the client fingerprint presented by a crawl run.
//
// A Profile is chosen once per run and applied to every page load of that
// run: the browser strategy turns it into device emulation settings plus an
// override script evaluated before any page script, and the plain-HTTP
// strategy uses its user agent and language preferences for request headers.
//
// Design decision: The profile is a plain value with no behavior tied to a
// browser library. Keeping go-rod out of this package lets the fingerprint
// rules be tested without a Chromium binary.
package stealth
