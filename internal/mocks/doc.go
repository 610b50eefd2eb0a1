// Package mocks provides shared test doubles for the store and generation
// interfaces.
//
// The stores are in-memory and safe for concurrent use, so the task engine
// can be exercised end to end without a database. Each double also exposes
// function fields that replace a single method when a test needs to inject
// a failure:
//
//	tasks := mocks.NewMockTaskStore()
//	tasks.UpdateProgressFn = func(ctx context.Context, id uuid.UUID, s domain.TaskStatus, p int) error {
//	    return errors.New("database unavailable")
//	}
package mocks
