package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/org-hierarchy-engine/internal/domain"
	"github.com/org-hierarchy-engine/internal/dto"
	"github.com/org-hierarchy-engine/internal/repository"
	"gorm.io/datatypes"
)

// UserService определяет интерфейс бизнес-логики для сотрудников
type UserService interface {
	Create(ctx context.Context, tenantID string, nodeID uuid.UUID, actor string, req *dto.CreateUserRequest) (*domain.OrgUser, error)
	GetByID(ctx context.Context, tenantID string, id uuid.UUID) (*domain.OrgUser, error)
	GetByNode(ctx context.Context, tenantID string, nodeID uuid.UUID) ([]domain.OrgUser, error)
	Delete(ctx context.Context, tenantID string, id uuid.UUID, actor string) error
}

type userService struct {
	userRepo repository.UserRepository
	nodeRepo repository.NodeRepository
}

// NewUserService создаёт новый экземпляр сервиса
func NewUserService(userRepo repository.UserRepository, nodeRepo repository.NodeRepository) UserService {
	return &userService{
		userRepo: userRepo,
		nodeRepo: nodeRepo,
	}
}

func (s *userService) Create(ctx context.Context, tenantID string, nodeID uuid.UUID, actor string, req *dto.CreateUserRequest) (*domain.OrgUser, error) {
	// Узел должен существовать, быть активным и принадлежать арендатору
	node, err := s.nodeRepo.GetByID(ctx, tenantID, nodeID)
	if err != nil {
		return nil, err
	}

	// Цепочка предков копируется на момент создания и при последующих
	// переносах узла не обновляется - это зафиксированный контракт
	chain := make(datatypes.JSONSlice[string], len(node.AncestorIDs))
	copy(chain, node.AncestorIDs)

	user := &domain.OrgUser{
		ID:           uuid.New(),
		FullName:     strings.TrimSpace(req.FullName),
		Position:     strings.TrimSpace(req.Position),
		EntityID:     node.ID,
		EntityIDPath: chain,
		TenantID:     tenantID,
		Status:       domain.StatusActive,
		CreatedBy:    actor,
		UpdatedBy:    actor,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

func (s *userService) GetByID(ctx context.Context, tenantID string, id uuid.UUID) (*domain.OrgUser, error) {
	return s.userRepo.GetByID(ctx, tenantID, id)
}

func (s *userService) GetByNode(ctx context.Context, tenantID string, nodeID uuid.UUID) ([]domain.OrgUser, error) {
	if _, err := s.nodeRepo.GetByID(ctx, tenantID, nodeID); err != nil {
		return nil, err
	}
	return s.userRepo.GetByEntityID(ctx, tenantID, nodeID)
}

func (s *userService) Delete(ctx context.Context, tenantID string, id uuid.UUID, actor string) error {
	user, err := s.userRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		return err
	}

	user.Status = domain.StatusRetired
	user.UpdatedBy = actor
	return s.userRepo.Update(ctx, user)
}
