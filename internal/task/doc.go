// Package task runs mind-map generation and node expansion in the
// background and tracks each run as a persisted task.
//
// A Service persists a pending task, registers a Handle for it in the
// Registry and hands it to the Executor on its own goroutine. The Executor
// reports progress at fixed checkpoints, and those checkpoints are the only
// places a stop request is observed. Outbound generation calls go through a
// bounded Pool so a burst of tasks cannot flood the provider.
//
// The Registry only knows about work started by this process. After a
// restart the Reconciler fails whatever the previous process left active.
package task
