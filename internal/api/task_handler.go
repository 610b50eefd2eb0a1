package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/phrazzld/mindmap-api/internal/api/shared"
	"github.com/phrazzld/mindmap-api/internal/domain"
	"github.com/phrazzld/mindmap-api/internal/platform/logger"
)

// TaskService is the part of the task engine the handlers drive.
type TaskService interface {
	Create(ctx context.Context, ownerID uuid.UUID, input domain.TaskInput, opts ...domain.TaskOption) (*domain.Task, error)
	Get(ctx context.Context, id, ownerID uuid.UUID) (*domain.Task, error)
	List(ctx context.Context, ownerID uuid.UUID, limit int) ([]*domain.Task, error)
	Stop(ctx context.Context, id, ownerID uuid.UUID) error
	Restart(ctx context.Context, id, ownerID uuid.UUID) (*domain.Task, error)
	Delete(ctx context.Context, id, ownerID uuid.UUID) error
}

// TaskHandler serves /api/tasks. Creation returns 202 immediately; clients
// poll GET /api/tasks/{id} for progress and the result.
type TaskHandler struct {
	tasks  TaskService
	logger *slog.Logger
}

// NewTaskHandler creates a TaskHandler.
func NewTaskHandler(tasks TaskService, logger *slog.Logger) *TaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskHandler{
		tasks:  tasks,
		logger: logger.With(slog.String("component", "task_handler")),
	}
}

// CreateGenerateMindMap handles POST /api/tasks/generate-mindmap.
func (h *TaskHandler) CreateGenerateMindMap(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	userID, ok := requireUser(w, r, log)
	if !ok {
		return
	}

	var req GenerateMindMapTaskRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	h.create(w, r, userID, req.toInput(), req.TaskDisplay)
}

// CreateExpandNode handles POST /api/tasks/expand-node.
func (h *TaskHandler) CreateExpandNode(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	userID, ok := requireUser(w, r, log)
	if !ok {
		return
	}

	var req ExpandNodeTaskRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	input := &domain.ExpandNodeInput{
		Request:      req.Request.toDomain(),
		CurrentNodes: req.CurrentNodes,
	}
	h.create(w, r, userID, input, req.TaskDisplay)
}

func (h *TaskHandler) create(w http.ResponseWriter, r *http.Request, userID uuid.UUID, input domain.TaskInput, display TaskDisplay) {
	t, err := h.tasks.Create(r.Context(), userID, input, display.option())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create task")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusAccepted, TaskCreatedResponse{TaskID: t.ID, Status: t.Status})
}

// List handles GET /api/tasks?limit=N.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	userID, ok := requireUser(w, r, log)
	if !ok {
		return
	}

	// Zero means the service default; the service also caps large values.
	limit, err := queryInt(r, "limit", 0, 1, 1000)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	tasks, err := h.tasks.List(r.Context(), userID, limit)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list tasks")
		return
	}
	if tasks == nil {
		tasks = []*domain.Task{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, tasks)
}

// Get handles GET /api/tasks/{id}.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, taskID, ok := handleUserIDAndPathUUID(w, r, "id", logger.FromContextOrDefault(r.Context(), h.logger))
	if !ok {
		return
	}

	t, err := h.tasks.Get(r.Context(), taskID, userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get task")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, t)
}

// Stop handles POST /api/tasks/{id}/stop.
func (h *TaskHandler) Stop(w http.ResponseWriter, r *http.Request) {
	userID, taskID, ok := handleUserIDAndPathUUID(w, r, "id", logger.FromContextOrDefault(r.Context(), h.logger))
	if !ok {
		return
	}

	if err := h.tasks.Stop(r.Context(), taskID, userID); err != nil {
		HandleAPIError(w, r, err, "Failed to stop task")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, TaskIDResponse{TaskID: taskID})
}

// Restart handles POST /api/tasks/{id}/restart.
func (h *TaskHandler) Restart(w http.ResponseWriter, r *http.Request) {
	userID, taskID, ok := handleUserIDAndPathUUID(w, r, "id", logger.FromContextOrDefault(r.Context(), h.logger))
	if !ok {
		return
	}

	replacement, err := h.tasks.Restart(r.Context(), taskID, userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to restart task")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusAccepted, TaskRestartResponse{
		OriginalTaskID: taskID,
		NewTaskID:      replacement.ID,
	})
}

// Delete handles DELETE /api/tasks/{id}.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, taskID, ok := handleUserIDAndPathUUID(w, r, "id", logger.FromContextOrDefault(r.Context(), h.logger))
	if !ok {
		return
	}

	if err := h.tasks.Delete(r.Context(), taskID, userID); err != nil {
		HandleAPIError(w, r, err, "Failed to delete task")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, TaskIDResponse{TaskID: taskID})
}
