// Package proc provides a minimal sequential-mailbox process runtime.
//
// This package handles:
//   - Spawning units of work that process messages strictly in order
//   - One-way, request/response, and out-of-band message delivery
//   - Exit notification (Watch) for failure propagation between units
package proc
