// Package postgres implements the store interfaces on PostgreSQL through
// database/sql and the pgx driver, and owns the embedded schema migrations.
//
// Every store accepts a store.DBTX so it can run either on the connection
// pool or inside a transaction obtained from store.RunInTransaction.
package postgres
