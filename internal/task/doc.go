// Package task implements the task abstraction orchestrators build on: a
// closed status model, the Task contract, a concrete Base task that delegates
// its work to a Strategy, a process-backed strategy, named components that
// observe status transitions, and the List registry that maps IDs to live
// tasks.
//
// # Lifecycle
//
//	PENDING --Start--> RUNNING --Finalize--> SUCCESS | FAILURE | CANCELED
//	   ^                  |
//	   |                  +--Stop--> CANCELED
//	   +------Reset-------+
//
// Dispose is terminal and idempotent; a disposed task is removed from the
// List it was built into.
package task
