// Package client is the consumer side of the presence service: a websocket
// connection that survives transport loss, plus a local event bus that turns
// wire frames into typed events.
//
// The controller only guarantees a clean transport. Callers that care about
// rooms either re-issue their joins on the reconnected event or use
// Subscriptions, which does it for them.
package client
