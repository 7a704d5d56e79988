package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/org-hierarchy-engine/internal/domain"
	"github.com/org-hierarchy-engine/internal/dto"
	"github.com/org-hierarchy-engine/internal/service"
)

// Заголовки, которыми слой аутентификации передаёт контекст запроса
const (
	headerTenantID = "X-Tenant-ID"
	headerActorID  = "X-Actor-ID"
)

type NodeHandler struct {
	nodeService service.NodeService
	userService service.UserService
	validator   *validator.Validate
	logger      *slog.Logger
}

func NewNodeHandler(
	nodeService service.NodeService,
	userService service.UserService,
	logger *slog.Logger,
) *NodeHandler {
	return &NodeHandler{
		nodeService: nodeService,
		userService: userService,
		validator:   validator.New(),
		logger:      logger,
	}
}

func (h *NodeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "validation error", err.Error())
		return
	}

	// Для корня заголовок арендатора не нужен: запрос основывает нового
	tenantID := r.Header.Get(headerTenantID)
	if req.ParentID != nil && tenantID == "" {
		h.respondError(w, http.StatusBadRequest, "missing X-Tenant-ID header", "")
		return
	}

	node, err := h.nodeService.Create(r.Context(), tenantID, h.actor(r), &req)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, h.toNodeResponse(node))
}

func (h *NodeHandler) GetByID(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	tenantID, ok := h.tenant(w, r)
	if !ok {
		return
	}

	node, err := h.nodeService.GetByID(r.Context(), tenantID, id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, h.toNodeResponse(node))
}

func (h *NodeHandler) GetChildren(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	tenantID, ok := h.tenant(w, r)
	if !ok {
		return
	}

	children, err := h.nodeService.GetChildren(r.Context(), tenantID, id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, h.toNodeResponses(children))
}

func (h *NodeHandler) GetSubtree(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	tenantID, ok := h.tenant(w, r)
	if !ok {
		return
	}

	nodes, err := h.nodeService.GetSubtree(r.Context(), tenantID, id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, h.toNodeResponses(nodes))
}

func (h *NodeHandler) GetAncestors(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	tenantID, ok := h.tenant(w, r)
	if !ok {
		return
	}

	ancestors, err := h.nodeService.GetAncestors(r.Context(), tenantID, id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, h.toNodeResponses(ancestors))
}

// Update обрабатывает PATCH: parent_id означает перенос, name - переименование.
// При наличии обоих полей сначала выполняется перенос
func (h *NodeHandler) Update(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	tenantID, ok := h.tenant(w, r)
	if !ok {
		return
	}

	var req dto.UpdateNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "validation error", err.Error())
		return
	}

	if req.Name == nil && req.ParentID == nil {
		h.respondError(w, http.StatusBadRequest, "nothing to update", "")
		return
	}

	actor := h.actor(r)
	var node *domain.Node

	if req.ParentID != nil {
		parentID, err := uuid.Parse(*req.ParentID)
		if err != nil {
			h.respondError(w, http.StatusBadRequest, "invalid parent_id", err.Error())
			return
		}

		node, err = h.nodeService.Move(r.Context(), tenantID, id, &parentID, actor)
		if err != nil {
			h.handleServiceError(w, err)
			return
		}
	}

	if req.Name != nil {
		var err error
		node, err = h.nodeService.Rename(r.Context(), tenantID, id, *req.Name, actor)
		if err != nil {
			h.handleServiceError(w, err)
			return
		}
	}

	h.respondJSON(w, http.StatusOK, h.toNodeResponse(node))
}

func (h *NodeHandler) Delete(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	tenantID, ok := h.tenant(w, r)
	if !ok {
		return
	}

	if err := h.nodeService.Delete(r.Context(), tenantID, id, h.actor(r)); err != nil {
		h.handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *NodeHandler) CreateUser(w http.ResponseWriter, r *http.Request, nodeID uuid.UUID) {
	tenantID, ok := h.tenant(w, r)
	if !ok {
		return
	}

	var req dto.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "validation error", err.Error())
		return
	}

	user, err := h.userService.Create(r.Context(), tenantID, nodeID, h.actor(r), &req)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, h.toUserResponse(user))
}

func (h *NodeHandler) GetUsers(w http.ResponseWriter, r *http.Request, nodeID uuid.UUID) {
	tenantID, ok := h.tenant(w, r)
	if !ok {
		return
	}

	users, err := h.userService.GetByNode(r.Context(), tenantID, nodeID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	resp := make([]dto.UserResponse, len(users))
	for i := range users {
		resp[i] = h.toUserResponse(&users[i])
	}
	h.respondJSON(w, http.StatusOK, resp)
}

func (h *NodeHandler) DeleteUser(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	tenantID, ok := h.tenant(w, r)
	if !ok {
		return
	}

	if err := h.userService.Delete(r.Context(), tenantID, id, h.actor(r)); err != nil {
		h.handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *NodeHandler) tenant(w http.ResponseWriter, r *http.Request) (string, bool) {
	tenantID := r.Header.Get(headerTenantID)
	if tenantID == "" {
		h.respondError(w, http.StatusBadRequest, "missing X-Tenant-ID header", "")
		return "", false
	}
	return tenantID, true
}

func (h *NodeHandler) actor(r *http.Request) string {
	if actor := r.Header.Get(headerActorID); actor != "" {
		return actor
	}
	return "system"
}

func (h *NodeHandler) toNodeResponse(node *domain.Node) dto.NodeResponse {
	resp := dto.NodeResponse{
		ID:          node.ID.String(),
		Name:        node.Name,
		Kind:        string(node.Kind),
		Path:        node.Path,
		Level:       node.Level,
		AncestorIDs: node.AncestorIDs,
		TenantID:    node.TenantID,
		Metadata:    node.Metadata,
		CreatedBy:   node.CreatedBy,
		UpdatedBy:   node.UpdatedBy,
		CreatedAt:   node.CreatedAt,
		UpdatedAt:   node.UpdatedAt,
	}

	if node.ParentID != nil {
		parentID := node.ParentID.String()
		resp.ParentID = &parentID
	}

	return resp
}

func (h *NodeHandler) toNodeResponses(nodes []domain.Node) []dto.NodeResponse {
	resp := make([]dto.NodeResponse, len(nodes))
	for i := range nodes {
		resp[i] = h.toNodeResponse(&nodes[i])
	}
	return resp
}

func (h *NodeHandler) toUserResponse(user *domain.OrgUser) dto.UserResponse {
	return dto.UserResponse{
		ID:           user.ID.String(),
		FullName:     user.FullName,
		Position:     user.Position,
		EntityID:     user.EntityID.String(),
		EntityIDPath: user.EntityIDPath,
		TenantID:     user.TenantID,
		CreatedAt:    user.CreatedAt,
	}
}

func (h *NodeHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNodeNotFound):
		h.respondError(w, http.StatusNotFound, "node not found", "")
	case errors.Is(err, domain.ErrUserNotFound):
		h.respondError(w, http.StatusNotFound, "user not found", "")
	case errors.Is(err, domain.ErrDuplicateNodeName):
		h.respondError(w, http.StatusConflict, "node with this name already exists in the same parent", "")
	case errors.Is(err, domain.ErrCyclicMove):
		h.respondError(w, http.StatusConflict, "moving node would create a cycle", "")
	case errors.Is(err, domain.ErrSecondRoot):
		h.respondError(w, http.StatusConflict, "tenant already has a root node", "")
	case errors.Is(err, domain.ErrHasActiveChildren):
		h.respondError(w, http.StatusConflict, "node has active children", "")
	case errors.Is(err, domain.ErrHasActiveUsers):
		h.respondError(w, http.StatusConflict, "node has active users assigned", "")
	default:
		h.logger.Error("internal error", slog.Any("error", err))
		h.respondError(w, http.StatusInternalServerError, "internal server error", "")
	}
}

func (h *NodeHandler) respondJSON(w http.ResponseWriter, status int, data any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", slog.Any("error", err))
	}
}

func (h *NodeHandler) respondError(w http.ResponseWriter, status int, errMsg, details string) {
	w.WriteHeader(status)
	resp := dto.ErrorResponse{Error: errMsg}
	if details != "" {
		resp.Message = details
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to encode error response", slog.Any("error", err))
	}
}
