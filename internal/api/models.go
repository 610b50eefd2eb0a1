package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/mindmap-api/internal/domain"
	"github.com/phrazzld/mindmap-api/internal/generation"
)

// Auth

// RegisterRequest is the body of POST /api/auth/register.
type RegisterRequest struct {
	Email    string `json:"email"     validate:"required,email"`
	Username string `json:"username"  validate:"required,min=3,max=50"`
	Password string `json:"password"  validate:"required,min=8,max=72"`
	FullName string `json:"full_name" validate:"max=100"`
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// TokenResponse is returned by a successful login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	// ExpiresAt is an RFC 3339 timestamp.
	ExpiresAt string `json:"expires_at"`
}

// UpdateProfileRequest is the body of PUT /api/auth/me.
type UpdateProfileRequest struct {
	Username *string `json:"username"  validate:"omitempty,min=3,max=50"`
	FullName *string `json:"full_name" validate:"omitempty,max=100"`
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	FullName  string    `json:"full_name,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func userToResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		FullName:  u.FullName,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}

// Generation inputs, shared by the task and synchronous endpoints.

// GenerateMindMapRequest asks for a mind map about Topic.
type GenerateMindMapRequest struct {
	Topic       string `json:"topic"       validate:"required,max=200"`
	Description string `json:"description" validate:"max=1000"`
	Depth       int    `json:"depth"       validate:"omitempty,min=1,max=5"`
	Style       string `json:"style"       validate:"omitempty,oneof=comprehensive simple detailed"`
}

func (r GenerateMindMapRequest) toInput() *domain.GenerateMindMapInput {
	return &domain.GenerateMindMapInput{
		Topic:       r.Topic,
		Description: r.Description,
		Depth:       r.Depth,
		Style:       r.Style,
	}
}

// NodeExpansionRequest asks for children of NodeID.
type NodeExpansionRequest struct {
	NodeID         string `json:"node_id"         validate:"required"`
	ExpansionTopic string `json:"expansion_topic" validate:"required,max=200"`
	Context        string `json:"context"         validate:"max=1000"`
	MaxChildren    int    `json:"max_children"    validate:"omitempty,min=1,max=20"`
	Nested         bool   `json:"nested"`
}

func (r NodeExpansionRequest) toDomain() domain.NodeExpansionRequest {
	return domain.NodeExpansionRequest{
		NodeID:         r.NodeID,
		ExpansionTopic: r.ExpansionTopic,
		Context:        r.Context,
		MaxChildren:    r.MaxChildren,
		Nested:         r.Nested,
	}
}

// Tasks

// TaskDisplay optionally overrides the derived task title and description.
type TaskDisplay struct {
	TaskTitle       string `json:"task_title"       validate:"max=200"`
	TaskDescription string `json:"task_description" validate:"max=1000"`
}

func (d TaskDisplay) option() domain.TaskOption {
	return domain.WithDisplay(d.TaskTitle, d.TaskDescription)
}

// GenerateMindMapTaskRequest is the body of POST /api/tasks/generate-mindmap.
type GenerateMindMapTaskRequest struct {
	GenerateMindMapRequest
	TaskDisplay
}

// ExpandNodeTaskRequest is the body of POST /api/tasks/expand-node.
type ExpandNodeTaskRequest struct {
	Request      NodeExpansionRequest `json:"request"       validate:"required"`
	CurrentNodes []domain.Node        `json:"current_nodes"`
	TaskDisplay
}

// TaskCreatedResponse acknowledges a submitted task.
type TaskCreatedResponse struct {
	TaskID uuid.UUID         `json:"task_id"`
	Status domain.TaskStatus `json:"status"`
}

// TaskIDResponse is returned by stop and delete.
type TaskIDResponse struct {
	TaskID uuid.UUID `json:"task_id"`
}

// TaskRestartResponse names the stopped task and its replacement.
type TaskRestartResponse struct {
	OriginalTaskID uuid.UUID `json:"original_task_id"`
	NewTaskID      uuid.UUID `json:"new_task_id"`
}

// Mind maps

// CreateMindMapRequest is the body of POST /api/mindmaps.
type CreateMindMapRequest struct {
	Title       string        `json:"title"       validate:"required,max=200"`
	Description string        `json:"description" validate:"max=1000"`
	Nodes       []domain.Node `json:"nodes"`
	Edges       []domain.Edge `json:"edges"`
	Layout      string        `json:"layout"      validate:"omitempty,oneof=hierarchical radial force"`
	Theme       string        `json:"theme"       validate:"max=50"`
	IsPublic    bool          `json:"is_public"`
}

// UpdateMindMapRequest is the body of PUT /api/mindmaps/{id}. Omitted
// fields are left unchanged.
type UpdateMindMapRequest struct {
	Title       *string       `json:"title"       validate:"omitempty,min=1,max=200"`
	Description *string       `json:"description" validate:"omitempty,max=1000"`
	Nodes       []domain.Node `json:"nodes"`
	Edges       []domain.Edge `json:"edges"`
	Layout      *string       `json:"layout"      validate:"omitempty,oneof=hierarchical radial force"`
	Theme       *string       `json:"theme"       validate:"omitempty,max=50"`
	IsPublic    *bool         `json:"is_public"`
}

// ExpandNodeResponse lists what an expansion added to a stored map.
type ExpandNodeResponse struct {
	MindMapID uuid.UUID     `json:"mindmap_id"`
	Version   int           `json:"version"`
	NewNodes  []domain.Node `json:"new_nodes"`
	NewEdges  []domain.Edge `json:"new_edges"`
}

// SuggestTopicsResponse wraps related-topic suggestions.
type SuggestTopicsResponse struct {
	Query       string                       `json:"query"`
	Suggestions []generation.TopicSuggestion `json:"suggestions"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database,omitempty"`
}
