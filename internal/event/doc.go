// Package event provides a synchronous publish/subscribe bus and the event
// types exchanged between tasks, the template registry, orchestrators and
// the terminal UI.
//
// Tasks publish [TaskStatusChangedEvent] through their status broadcast
// component; orchestrators subscribe to it to learn when to advance.
// Handlers run synchronously on the publisher's goroutine, so a handler that
// needs to do real work should hand it off (orchestrators post to their
// event loop).
package event
