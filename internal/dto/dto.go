package dto

import (
	"time"
)

// CreateNodeRequest - запрос на создание узла.
// Без parent_id создаётся корень нового арендатора
type CreateNodeRequest struct {
	Name     string         `json:"name" validate:"required,min=1,max=200"`
	Kind     string         `json:"kind" validate:"required,oneof=ROOT_CLASS BUSINESS_UNIT DEPARTMENT"`
	ParentID *string        `json:"parent_id" validate:"omitempty,uuid"`
	Metadata map[string]any `json:"metadata"`
}

// UpdateNodeRequest - запрос на переименование и/или перенос узла
type UpdateNodeRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=200"`
	ParentID *string `json:"parent_id" validate:"omitempty,uuid"`
}

// CreateUserRequest - запрос на создание сотрудника в узле
type CreateUserRequest struct {
	FullName string `json:"full_name" validate:"required,min=1,max=200"`
	Position string `json:"position" validate:"required,min=1,max=200"`
}

// NodeResponse - ответ с данными узла
type NodeResponse struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Kind        string         `json:"kind"`
	ParentID    *string        `json:"parent_id"`
	Path        string         `json:"path"`
	Level       int            `json:"level"`
	AncestorIDs []string       `json:"ancestor_ids"`
	TenantID    string         `json:"tenant_id"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedBy   string         `json:"created_by"`
	UpdatedBy   string         `json:"updated_by"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// UserResponse - ответ с данными сотрудника
type UserResponse struct {
	ID           string    `json:"id"`
	FullName     string    `json:"full_name"`
	Position     string    `json:"position"`
	EntityID     string    `json:"entity_id"`
	EntityIDPath []string  `json:"entity_id_path"`
	TenantID     string    `json:"tenant_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// ErrorResponse - стандартный ответ с ошибкой
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
