package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/org-hierarchy-engine/internal/middleware"
)

// Router настраивает маршруты API
type Router struct {
	mux         *http.ServeMux
	logger      *slog.Logger
	nodeHandler *NodeHandler
}

// NewRouter создаёт новый роутер
func NewRouter(nodeHandler *NodeHandler, logger *slog.Logger) *Router {
	return &Router{
		mux:         http.NewServeMux(),
		logger:      logger,
		nodeHandler: nodeHandler,
	}
}

// Setup настраивает все маршруты
func (r *Router) Setup() http.Handler {
	// Регистрируем обработчики
	r.mux.HandleFunc("/nodes/", r.nodesRouter)
	r.mux.HandleFunc("/users/", r.usersRouter)

	// Health check
	r.mux.HandleFunc("/health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Применяем middleware
	handler := middleware.ContentType(r.mux)
	handler = middleware.Logger(r.logger)(handler)
	handler = middleware.Recoverer(r.logger)(handler)

	return handler
}

// nodesRouter обрабатывает все запросы к /nodes/
func (r *Router) nodesRouter(w http.ResponseWriter, req *http.Request) {
	path := strings.TrimPrefix(req.URL.Path, "/nodes")
	path = strings.Trim(path, "/")

	// POST /nodes/ - создание узла
	if path == "" && req.Method == http.MethodPost {
		r.nodeHandler.Create(w, req)
		return
	}

	// Разбираем путь: {id} или {id}/{children|subtree|ancestors|users}
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] == "" {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}

	id, err := uuid.Parse(parts[0])
	if err != nil {
		http.Error(w, `{"error":"invalid node id"}`, http.StatusBadRequest)
		return
	}

	if len(parts) == 1 {
		// /nodes/{id}
		switch req.Method {
		case http.MethodGet:
			r.nodeHandler.GetByID(w, req, id)
		case http.MethodPatch:
			r.nodeHandler.Update(w, req, id)
		case http.MethodDelete:
			r.nodeHandler.Delete(w, req, id)
		default:
			http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
		}
		return
	}

	if len(parts) == 2 {
		switch parts[1] {
		case "children":
			if req.Method == http.MethodGet {
				r.nodeHandler.GetChildren(w, req, id)
				return
			}
		case "subtree":
			if req.Method == http.MethodGet {
				r.nodeHandler.GetSubtree(w, req, id)
				return
			}
		case "ancestors":
			if req.Method == http.MethodGet {
				r.nodeHandler.GetAncestors(w, req, id)
				return
			}
		case "users":
			// /nodes/{id}/users - сотрудники узла
			switch req.Method {
			case http.MethodPost:
				r.nodeHandler.CreateUser(w, req, id)
				return
			case http.MethodGet:
				r.nodeHandler.GetUsers(w, req, id)
				return
			}
		default:
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
			return
		}
		http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
		return
	}

	http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
}

// usersRouter обрабатывает все запросы к /users/
func (r *Router) usersRouter(w http.ResponseWriter, req *http.Request) {
	path := strings.TrimPrefix(req.URL.Path, "/users")
	path = strings.Trim(path, "/")

	parts := strings.Split(path, "/")
	if len(parts) != 1 || parts[0] == "" {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}

	id, err := uuid.Parse(parts[0])
	if err != nil {
		http.Error(w, `{"error":"invalid user id"}`, http.StatusBadRequest)
		return
	}

	if req.Method == http.MethodDelete {
		r.nodeHandler.DeleteUser(w, req, id)
		return
	}
	http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
}
