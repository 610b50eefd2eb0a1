package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/mindmap-api/internal/domain"
)

// UserStore defines the interface for user data persistence.
type UserStore interface {
	// Create saves a new user. The caller must have set HashedPassword.
	// Returns ErrEmailExists or ErrUsernameExists on duplicates.
	Create(ctx context.Context, user *domain.User) error

	// GetByID returns ErrUserNotFound if the user does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetByEmail returns ErrUserNotFound if no user has the email.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// Update writes username and full name. Returns ErrUsernameExists if the
	// new username is taken.
	Update(ctx context.Context, user *domain.User) error

	// WithTx returns a UserStore that runs on tx.
	WithTx(tx *sql.Tx) UserStore
}
