// Package store declares the persistence contracts used by the services and
// the task engine, the errors implementations must return, and a helper for
// running several store calls inside one transaction.
package store
