package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phrazzld/mindmap-api/internal/api/shared"
	"github.com/phrazzld/mindmap-api/internal/domain"
	"github.com/phrazzld/mindmap-api/internal/service"
	"github.com/phrazzld/mindmap-api/internal/service/auth"
	"github.com/phrazzld/mindmap-api/internal/store"
	"github.com/phrazzld/mindmap-api/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapErrorToStatusCode(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"expired token", auth.ErrExpiredToken, http.StatusUnauthorized, "Token expired"},
		{"bad credentials", service.ErrInvalidCredentials, http.StatusUnauthorized, "Incorrect email or password"},
		{"inactive user", service.ErrInactiveUser, http.StatusForbidden, "Inactive user"},
		{"task not found", fmt.Errorf("load: %w", store.ErrTaskNotFound), http.StatusNotFound, "Task not found"},
		{"mind map not found", store.ErrMindMapNotFound, http.StatusNotFound, "Mind map not found"},
		{"node not found", fmt.Errorf("%w: n1", domain.ErrNodeNotFound), http.StatusNotFound, "Node not found"},
		{"email exists", store.ErrEmailExists, http.StatusConflict, "Email already registered"},
		{"username exists", store.ErrUsernameExists, http.StatusConflict, "Username already taken"},
		{"task finished", domain.ErrTaskFinished, http.StatusNotFound, "Task has already finished"},
		{"task active", domain.ErrTaskActive, http.StatusNotFound, "Task is still pending or running"},
		{"not stoppable", domain.ErrTaskNotStoppable, http.StatusNotFound, "Task cannot be stopped"},
		{"not restartable", domain.ErrTaskNotRestartable, http.StatusNotFound, "Task cannot be restarted"},
		{
			"invalid input",
			fmt.Errorf("%w: depth must be between 1 and 5", domain.ErrInvalidInput),
			http.StatusBadRequest,
			"Invalid task input: depth must be between 1 and 5",
		},
		{"invalid id", domain.ErrInvalidID, http.StatusBadRequest, "Invalid ID"},
		{"user validation", domain.ErrInvalidUsername, http.StatusBadRequest, "Username must be 3-50 characters"},
		{"shutting down", task.ErrShuttingDown, http.StatusServiceUnavailable, "Server is shutting down"},
		{"unknown", errors.New("pq: connection refused"), http.StatusInternalServerError, "An unexpected error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, MapErrorToStatusCode(tt.err))
			assert.Equal(t, tt.message, GetSafeErrorMessage(tt.err))
		})
	}
}

func TestHandleAPIErrorHidesInternals(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req = req.WithContext(shared.WithTraceID(req.Context(), "trace-42"))
	rr := httptest.NewRecorder()

	HandleAPIError(rr, req, errors.New(`insert into tasks failed: password=swordfish`), "Failed to create task")

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	body := decodeBody[shared.ErrorResponse](t, rr)
	assert.Equal(t, "Failed to create task", body.Error)
	assert.Equal(t, "trace-42", body.TraceID)
	assert.NotContains(t, rr.Body.String(), "swordfish")
}

func TestSanitizeValidationError(t *testing.T) {
	t.Run("validator errors use json names", func(t *testing.T) {
		err := shared.ValidateRequest(&GenerateMindMapRequest{Topic: "x", Style: "fancy"})
		require.Error(t, err)
		assert.Equal(t, "Invalid style: must be one of comprehensive simple detailed", SanitizeValidationError(err))
	})

	t.Run("nested fields", func(t *testing.T) {
		err := shared.ValidateRequest(&ExpandNodeTaskRequest{Request: NodeExpansionRequest{ExpansionTopic: "x"}})
		require.Error(t, err)
		assert.Equal(t, "Invalid request.node_id: required field", SanitizeValidationError(err))
	})

	t.Run("embedded structs are flattened", func(t *testing.T) {
		err := shared.ValidateRequest(&GenerateMindMapTaskRequest{})
		require.Error(t, err)
		assert.Equal(t, "Invalid topic: required field", SanitizeValidationError(err))
	})

	t.Run("empty body", func(t *testing.T) {
		assert.Equal(t, "Request body is required", SanitizeValidationError(shared.ErrEmptyBody))
	})

	t.Run("anything else", func(t *testing.T) {
		assert.Equal(t, "Invalid request format", SanitizeValidationError(errors.New("invalid character '}'")))
	})
}
