package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/mindmap-api/internal/api/shared"
	"github.com/phrazzld/mindmap-api/internal/domain"
	"github.com/phrazzld/mindmap-api/internal/service"
	"github.com/phrazzld/mindmap-api/internal/service/auth"
	"github.com/phrazzld/mindmap-api/internal/store"
	"github.com/phrazzld/mindmap-api/internal/task"
)

// userValidationErrors are returned by domain.User validation with messages
// that are safe to show.
var userValidationErrors = []error{
	domain.ErrInvalidEmail,
	domain.ErrEmptyEmail,
	domain.ErrInvalidUsername,
	domain.ErrPasswordTooShort,
	domain.ErrPasswordTooLong,
}

func isAny(err error, targets ...error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// exposing the error itself.
func MapErrorToStatusCode(err error) int {
	switch {
	case isAny(err,
		auth.ErrInvalidToken,
		auth.ErrExpiredToken,
		auth.ErrTokenNotYetValid,
		auth.ErrWrongTokenType,
		auth.ErrMissingToken,
		service.ErrInvalidCredentials):
		return http.StatusUnauthorized

	case errors.Is(err, service.ErrInactiveUser):
		return http.StatusForbidden

	// A task that is not in a state the operation accepts is reported like
	// a missing one; the body says which.
	case isAny(err,
		store.ErrNotFound,
		domain.ErrNodeNotFound,
		domain.ErrTaskFinished,
		domain.ErrTaskActive,
		domain.ErrTaskNotStoppable,
		domain.ErrTaskNotRestartable):
		return http.StatusNotFound

	case errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict

	case isAny(err,
		domain.ErrValidation,
		domain.ErrInvalidInput,
		domain.ErrInvalidTaskKind,
		domain.ErrInvalidID,
		store.ErrInvalidEntity),
		isAny(err, userValidationErrors...):
		return http.StatusBadRequest

	case errors.Is(err, task.ErrShuttingDown):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a client-facing message for err. Validation
// failures built by the domain layer are passed through; everything else
// maps to a fixed string.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case isAny(err, auth.ErrInvalidToken, auth.ErrTokenNotYetValid, auth.ErrWrongTokenType):
		return "Invalid token"
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"
	case errors.Is(err, auth.ErrMissingToken):
		return "Authorization header required"
	case errors.Is(err, service.ErrInvalidCredentials):
		return "Incorrect email or password"
	case errors.Is(err, service.ErrInactiveUser):
		return "Inactive user"

	case errors.Is(err, store.ErrTaskNotFound):
		return "Task not found"
	case errors.Is(err, store.ErrMindMapNotFound):
		return "Mind map not found"
	case errors.Is(err, store.ErrUserNotFound):
		return "User not found"
	case errors.Is(err, domain.ErrNodeNotFound):
		return "Node not found"
	case errors.Is(err, store.ErrNotFound):
		return "Resource not found"

	case errors.Is(err, store.ErrEmailExists):
		return "Email already registered"
	case errors.Is(err, store.ErrUsernameExists):
		return "Username already taken"
	case errors.Is(err, store.ErrDuplicate):
		return "Resource already exists"

	case errors.Is(err, domain.ErrTaskFinished):
		return "Task has already finished"
	case errors.Is(err, domain.ErrTaskActive):
		return "Task is still pending or running"
	case errors.Is(err, domain.ErrTaskNotStoppable):
		return "Task cannot be stopped"
	case errors.Is(err, domain.ErrTaskNotRestartable):
		return "Task cannot be restarted"

	case isAny(err, domain.ErrValidation, domain.ErrInvalidInput, domain.ErrInvalidTaskKind):
		return capitalize(err.Error())
	case errors.Is(err, domain.ErrInvalidID):
		return "Invalid ID"
	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid entity data"
	case isAny(err, userValidationErrors...):
		return capitalize(err.Error())

	case errors.Is(err, task.ErrShuttingDown):
		return "Server is shutting down"

	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError writes the status and safe message for err and logs err.
// For 5xx responses a non-empty fallback replaces the generic message.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if status >= http.StatusInternalServerError && fallback != "" && status != http.StatusServiceUnavailable {
		message = fallback
	}

	var opts []shared.ResponseOption
	if status == http.StatusUnauthorized {
		opts = append(opts, shared.WithElevatedLogLevel())
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err, opts...)
}

// HandleValidationError writes a 400 for a failed struct validation or a
// malformed body.
func HandleValidationError(w http.ResponseWriter, r *http.Request, err error) {
	shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
}

// SanitizeValidationError describes the first failed field of a validator
// error. Other errors collapse to a generic message.
func SanitizeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Sprintf("Invalid %s: %s", fieldName(fe), validationTagMessage(fe.Tag(), fe.Param()))
	}
	if isAny(err, domain.ErrValidation, domain.ErrInvalidInput) {
		return capitalize(err.Error())
	}
	if errors.Is(err, shared.ErrEmptyBody) {
		return "Request body is required"
	}
	return "Invalid request format"
}

// fieldName returns the JSON path of fe. Segments without a json name, such
// as the top-level type and embedded structs, keep their Go name and are
// dropped.
func fieldName(fe validator.FieldError) string {
	parts := strings.Split(fe.Namespace(), ".")
	kept := parts[:0]
	for _, p := range parts {
		if p != "" && unicode.IsUpper(rune(p[0])) {
			continue
		}
		kept = append(kept, p)
	}
	if len(kept) == 0 {
		return fe.Field()
	}
	return strings.Join(kept, ".")
}

func validationTagMessage(tag, param string) string {
	switch tag {
	case "required":
		return "required field"
	case "email":
		return "invalid email format"
	case "min", "gte":
		return "must be at least " + param
	case "max", "lte":
		return "must be at most " + param
	case "oneof":
		return "must be one of " + param
	case "uuid":
		return "must be a UUID"
	default:
		return "validation failed"
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
