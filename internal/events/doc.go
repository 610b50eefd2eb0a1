// Package events carries task lifecycle notifications from the task engine
// to any interested component without coupling them together.
//
// The engine emits a TaskEvent on every state transition. Handlers register
// with an EventEmitter and receive events synchronously in registration
// order; a failing handler never prevents the others from running.
package events
