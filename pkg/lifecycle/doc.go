// Package lifecycle provides decentralized service lifecycle management
// and cache broadcasting over redis pub/sub.
//
// A Manager publishes and subscribes to service lifecycle events
// (starting, started, ready, stopping, stopped). A CacheBroadcaster
// keeps per-module cache spaces in sync across service nodes: a write
// on one node is pushed to every subscriber, which is how navigation
// and content changes invalidate cached trees and settings everywhere.
// Service wraps a fiber app with lifecycle hooks, service registration
// and graceful shutdown; Builder assembles one fluently.
package lifecycle
