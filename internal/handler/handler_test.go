package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/org-hierarchy-engine/internal/domain"
	"github.com/org-hierarchy-engine/internal/dto"
	"github.com/org-hierarchy-engine/internal/handler"
	"github.com/org-hierarchy-engine/internal/service"
)

type mockNodeRepo struct {
	nodes map[uuid.UUID]*domain.Node
}

func newMockNodeRepo() *mockNodeRepo {
	return &mockNodeRepo{nodes: make(map[uuid.UUID]*domain.Node)}
}

func (m *mockNodeRepo) visible(n *domain.Node, tenantID string) bool {
	return n.TenantID == tenantID && n.Status == domain.StatusActive
}

func (m *mockNodeRepo) Create(ctx context.Context, node *domain.Node) error {
	node.CreatedAt = time.Now()
	copied := *node
	m.nodes[node.ID] = &copied
	return nil
}

func (m *mockNodeRepo) GetByID(ctx context.Context, tenantID string, id uuid.UUID) (*domain.Node, error) {
	if n, ok := m.nodes[id]; ok && m.visible(n, tenantID) {
		copied := *n
		return &copied, nil
	}
	return nil, domain.ErrNodeNotFound
}

func (m *mockNodeRepo) GetChildren(ctx context.Context, tenantID string, parentID uuid.UUID) ([]domain.Node, error) {
	var children []domain.Node
	for _, n := range m.nodes {
		if n.ParentID != nil && *n.ParentID == parentID && m.visible(n, tenantID) {
			children = append(children, *n)
		}
	}
	return children, nil
}

func (m *mockNodeRepo) GetDescendants(ctx context.Context, tenantID string, ancestorID uuid.UUID) ([]domain.Node, error) {
	var nodes []domain.Node
	for _, n := range m.nodes {
		if m.visible(n, tenantID) && n.ID != ancestorID && n.IsUnder(ancestorID) {
			nodes = append(nodes, *n)
		}
	}
	return nodes, nil
}

func (m *mockNodeRepo) GetByIDs(ctx context.Context, tenantID string, ids []string) ([]domain.Node, error) {
	var nodes []domain.Node
	for _, id := range ids {
		parsed, err := uuid.Parse(id)
		if err != nil {
			continue
		}
		if n, ok := m.nodes[parsed]; ok && m.visible(n, tenantID) {
			nodes = append(nodes, *n)
		}
	}
	return nodes, nil
}

func (m *mockNodeRepo) Update(ctx context.Context, node *domain.Node) error {
	copied := *node
	m.nodes[node.ID] = &copied
	return nil
}

func (m *mockNodeRepo) ExistsByNameAndParent(ctx context.Context, tenantID, name string, parentID *uuid.UUID, excludeID *uuid.UUID) (bool, error) {
	for _, n := range m.nodes {
		if !m.visible(n, tenantID) || n.Name != name {
			continue
		}
		sameParent := (parentID == nil && n.ParentID == nil) ||
			(parentID != nil && n.ParentID != nil && *parentID == *n.ParentID)
		if sameParent && (excludeID == nil || n.ID != *excludeID) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockNodeRepo) CountActiveChildren(ctx context.Context, tenantID string, parentID uuid.UUID) (int64, error) {
	var count int64
	for _, n := range m.nodes {
		if n.ParentID != nil && *n.ParentID == parentID && m.visible(n, tenantID) {
			count++
		}
	}
	return count, nil
}

type mockUserRepo struct {
	users map[uuid.UUID]*domain.OrgUser
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[uuid.UUID]*domain.OrgUser)}
}

func (m *mockUserRepo) Create(ctx context.Context, user *domain.OrgUser) error {
	user.CreatedAt = time.Now()
	copied := *user
	m.users[user.ID] = &copied
	return nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, tenantID string, id uuid.UUID) (*domain.OrgUser, error) {
	if u, ok := m.users[id]; ok && u.TenantID == tenantID && u.Status == domain.StatusActive {
		copied := *u
		return &copied, nil
	}
	return nil, domain.ErrUserNotFound
}

func (m *mockUserRepo) GetByEntityID(ctx context.Context, tenantID string, entityID uuid.UUID) ([]domain.OrgUser, error) {
	var users []domain.OrgUser
	for _, u := range m.users {
		if u.EntityID == entityID && u.TenantID == tenantID && u.Status == domain.StatusActive {
			users = append(users, *u)
		}
	}
	return users, nil
}

func (m *mockUserRepo) Update(ctx context.Context, user *domain.OrgUser) error {
	copied := *user
	m.users[user.ID] = &copied
	return nil
}

func (m *mockUserRepo) CountActiveReferencing(ctx context.Context, tenantID string, entityID uuid.UUID) (int64, error) {
	var count int64
	target := entityID.String()
	for _, u := range m.users {
		if u.TenantID != tenantID || u.Status != domain.StatusActive {
			continue
		}
		for _, id := range u.EntityIDPath {
			if id == target {
				count++
				break
			}
		}
	}
	return count, nil
}

type testServer struct {
	server *httptest.Server
}

func setupTestServer(_ *testing.T) *testServer {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	nodeRepo := newMockNodeRepo()
	userRepo := newMockUserRepo()

	nodeService := service.NewNodeService(nodeRepo, userRepo)
	userService := service.NewUserService(userRepo, nodeRepo)

	nodeHandler := handler.NewNodeHandler(nodeService, userService, logger)
	router := handler.NewRouter(nodeHandler, logger)

	return &testServer{server: httptest.NewServer(router.Setup())}
}

func (ts *testServer) Close() {
	ts.server.Close()
}

func doJSON(method, url, tenantID string, body map[string]any) (*http.Response, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if tenantID != "" {
		req.Header.Set("X-Tenant-ID", tenantID)
	}
	req.Header.Set("X-Actor-ID", "tester")
	return http.DefaultClient.Do(req)
}

func decodeNode(t *testing.T, resp *http.Response) dto.NodeResponse {
	t.Helper()
	var node dto.NodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&node); err != nil {
		t.Fatalf("failed to decode node response: %v", err)
	}
	return node
}

func createRoot(t *testing.T, ts *testServer, name string) dto.NodeResponse {
	t.Helper()
	resp, err := doJSON(http.MethodPost, ts.server.URL+"/nodes/", "", map[string]any{
		"name": name,
		"kind": "ROOT_CLASS",
	})
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create root: expected %d, got %d", http.StatusCreated, resp.StatusCode)
	}
	return decodeNode(t, resp)
}

func createChild(t *testing.T, ts *testServer, tenantID, name, parentID string) dto.NodeResponse {
	t.Helper()
	resp, err := doJSON(http.MethodPost, ts.server.URL+"/nodes/", tenantID, map[string]any{
		"name":      name,
		"kind":      "DEPARTMENT",
		"parent_id": parentID,
	})
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create child %q: expected %d, got %d", name, http.StatusCreated, resp.StatusCode)
	}
	return decodeNode(t, resp)
}

func TestHealthCheck(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.Close()

	resp, err := http.Get(ts.server.URL + "/health")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected %d, got %d", http.StatusOK, resp.StatusCode)
	}
}

func TestCreateRoot_ReturnsTenant(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.Close()

	root := createRoot(t, ts, "Acme")

	if root.TenantID != root.ID {
		t.Errorf("tenant id %q, want own id %q", root.TenantID, root.ID)
	}
	if root.Path != "Acme" || root.Level != 0 {
		t.Errorf("root path %q level %d, want \"Acme\" and 0", root.Path, root.Level)
	}
}

func TestCreateChild_RequiresTenantHeader(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.Close()

	root := createRoot(t, ts, "Acme")

	resp, err := doJSON(http.MethodPost, ts.server.URL+"/nodes/", "", map[string]any{
		"name":      "Sales",
		"kind":      "DEPARTMENT",
		"parent_id": root.ID,
	})
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}
}

func TestGetNode_CrossTenantNotFound(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.Close()

	rootA := createRoot(t, ts, "Acme")
	rootB := createRoot(t, ts, "Globex")

	resp, err := doJSON(http.MethodGet, ts.server.URL+"/nodes/"+rootA.ID, rootB.TenantID, nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	// Чужой арендатор получает not found, а не forbidden
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected %d, got %d", http.StatusNotFound, resp.StatusCode)
	}
}

func TestPatch_MoveWithCascade(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.Close()

	root := createRoot(t, ts, "R")
	a := createChild(t, ts, root.TenantID, "A", root.ID)
	b := createChild(t, ts, root.TenantID, "B", a.ID)
	d := createChild(t, ts, root.TenantID, "D", root.ID)

	resp, err := doJSON(http.MethodPatch, ts.server.URL+"/nodes/"+a.ID, root.TenantID, map[string]any{
		"parent_id": d.ID,
	})
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected %d, got %d", http.StatusOK, resp.StatusCode)
	}

	moved := decodeNode(t, resp)
	if moved.Path != "R > D > A" || moved.Level != 2 {
		t.Errorf("moved path %q level %d, want \"R > D > A\" and 2", moved.Path, moved.Level)
	}

	// Потомок пересчитан каскадом
	respB, err := doJSON(http.MethodGet, ts.server.URL+"/nodes/"+b.ID, root.TenantID, nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer respB.Body.Close()

	bAfter := decodeNode(t, respB)
	if bAfter.Path != "R > D > A > B" {
		t.Errorf("B path %q, want %q", bAfter.Path, "R > D > A > B")
	}
}

func TestPatch_CyclicMoveConflict(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.Close()

	root := createRoot(t, ts, "R")
	a := createChild(t, ts, root.TenantID, "A", root.ID)
	b := createChild(t, ts, root.TenantID, "B", a.ID)

	resp, err := doJSON(http.MethodPatch, ts.server.URL+"/nodes/"+a.ID, root.TenantID, map[string]any{
		"parent_id": b.ID,
	})
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected %d, got %d", http.StatusConflict, resp.StatusCode)
	}
}

func TestPatch_RenamePropagates(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.Close()

	root := createRoot(t, ts, "R")
	a := createChild(t, ts, root.TenantID, "A", root.ID)
	b := createChild(t, ts, root.TenantID, "B", a.ID)

	resp, err := doJSON(http.MethodPatch, ts.server.URL+"/nodes/"+a.ID, root.TenantID, map[string]any{
		"name": "A2",
	})
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected %d, got %d", http.StatusOK, resp.StatusCode)
	}

	respB, err := doJSON(http.MethodGet, ts.server.URL+"/nodes/"+b.ID, root.TenantID, nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer respB.Body.Close()

	bAfter := decodeNode(t, respB)
	if bAfter.Path != "R > A2 > B" {
		t.Errorf("B path %q, want %q", bAfter.Path, "R > A2 > B")
	}
}

func TestDelete_GuardedThenSucceeds(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.Close()

	root := createRoot(t, ts, "R")
	a := createChild(t, ts, root.TenantID, "A", root.ID)
	b := createChild(t, ts, root.TenantID, "B", a.ID)

	resp, err := doJSON(http.MethodDelete, ts.server.URL+"/nodes/"+a.ID, root.TenantID, nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("delete with active child: expected %d, got %d", http.StatusConflict, resp.StatusCode)
	}

	for _, id := range []string{b.ID, a.ID} {
		resp, err := doJSON(http.MethodDelete, ts.server.URL+"/nodes/"+id, root.TenantID, nil)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNoContent {
			t.Errorf("bottom-up delete: expected %d, got %d", http.StatusNoContent, resp.StatusCode)
		}
	}
}

func TestCreateUser_CopiesAncestorChain(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.Close()

	root := createRoot(t, ts, "R")
	a := createChild(t, ts, root.TenantID, "A", root.ID)

	resp, err := doJSON(http.MethodPost, ts.server.URL+"/nodes/"+a.ID+"/users", root.TenantID, map[string]any{
		"full_name": "Ivan Petrov",
		"position":  "engineer",
	})
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected %d, got %d", http.StatusCreated, resp.StatusCode)
	}

	var user dto.UserResponse
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		t.Fatalf("failed to decode user response: %v", err)
	}
	if user.EntityID != a.ID {
		t.Errorf("user entity %q, want %q", user.EntityID, a.ID)
	}
	if len(user.EntityIDPath) != 2 || user.EntityIDPath[0] != root.ID || user.EntityIDPath[1] != a.ID {
		t.Errorf("user chain %v, want [%s %s]", user.EntityIDPath, root.ID, a.ID)
	}

	// Узел с активным сотрудником не удаляется
	respDel, err := doJSON(http.MethodDelete, ts.server.URL+"/nodes/"+a.ID, root.TenantID, nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	respDel.Body.Close()
	if respDel.StatusCode != http.StatusConflict {
		t.Errorf("expected %d, got %d", http.StatusConflict, respDel.StatusCode)
	}

	// После вывода сотрудника удаление проходит
	respUser, err := doJSON(http.MethodDelete, ts.server.URL+"/users/"+user.ID, root.TenantID, nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	respUser.Body.Close()
	if respUser.StatusCode != http.StatusNoContent {
		t.Errorf("expected %d, got %d", http.StatusNoContent, respUser.StatusCode)
	}

	respDel2, err := doJSON(http.MethodDelete, ts.server.URL+"/nodes/"+a.ID, root.TenantID, nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	respDel2.Body.Close()
	if respDel2.StatusCode != http.StatusNoContent {
		t.Errorf("expected %d, got %d", http.StatusNoContent, respDel2.StatusCode)
	}
}

func TestInvalidNodeID(t *testing.T) {
	ts := setupTestServer(t)
	defer ts.Close()

	resp, err := doJSON(http.MethodGet, ts.server.URL+"/nodes/not-a-uuid", "some-tenant", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}
}
