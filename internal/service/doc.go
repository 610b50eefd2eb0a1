// Package service contains the application use cases that sit between the
// HTTP handlers and the stores: user accounts, mind-map documents and the
// synchronous language-model operations.
//
// Services receive their stores and collaborators through constructors and
// never depend on a concrete database implementation. Background work lives
// in internal/task.
package service
