// Package orchestrator runs a job: an ordered list of sections, each a set of
// task specs that run in parallel. A section starts only when every task in
// the previous section has succeeded; the first failure or cancellation ends
// the whole job.
//
// # Model
//
// The job is held as a grid of slots, one per task spec. A slot is
// unresolved until its template lookup starts, in flight while the template
// is being found and its task built, and resolved once it is bound to a
// concrete task ID. Construction of every slot begins when the job starts;
// a section is only considered once all of its slots are resolved.
//
// The status of a section is the status of its first task (in slot order)
// that has not succeeded, or SUCCESS when all have. This gives fail-fast
// semantics: PENDING starts the section, RUNNING waits, FAILURE or CANCELED
// finalizes the job, and SUCCESS moves on to the next section.
//
// # Concurrency
//
// An Orchestrator is not safe for concurrent use. All of its methods,
// including the continuations of asynchronous template lookups and the
// reactions to sub-task status changes, run on a single [Loop]. Callers post
// Start, Stop, Reset and Dispose to the same loop.
//
// # Rendering
//
// After every advancement the orchestrator recomputes an immutable [Grid]
// (one column per section, one row per slot) and hands it to its [Surface].
package orchestrator
