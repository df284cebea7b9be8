// Package connector implements the resilient streaming connector core.
//
// A Controller owns one persistent WebSocket session to a venue:
//   - Gates connection attempts through a circuit breaker
//   - Recovers from socket failures with exponential backoff
//   - Replays the subscription set after every reconnect
//   - Delivers price updates and lifecycle events through bounded,
//     drop-oldest buffers
//
// Venue-specific behavior (request construction, wire-message parsing,
// subscription messages) is supplied through the Adapter contract.
package connector
