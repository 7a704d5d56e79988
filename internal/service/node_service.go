package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/org-hierarchy-engine/internal/domain"
	"github.com/org-hierarchy-engine/internal/dto"
	"github.com/org-hierarchy-engine/internal/repository"
)

// NodeService определяет интерфейс бизнес-логики для узлов иерархии
type NodeService interface {
	Create(ctx context.Context, tenantID, actor string, req *dto.CreateNodeRequest) (*domain.Node, error)
	Rename(ctx context.Context, tenantID string, id uuid.UUID, newName, actor string) (*domain.Node, error)
	Move(ctx context.Context, tenantID string, id uuid.UUID, newParentID *uuid.UUID, actor string) (*domain.Node, error)
	Delete(ctx context.Context, tenantID string, id uuid.UUID, actor string) error
	GetByID(ctx context.Context, tenantID string, id uuid.UUID) (*domain.Node, error)
	GetChildren(ctx context.Context, tenantID string, id uuid.UUID) ([]domain.Node, error)
	GetSubtree(ctx context.Context, tenantID string, id uuid.UUID) ([]domain.Node, error)
	GetAncestors(ctx context.Context, tenantID string, id uuid.UUID) ([]domain.Node, error)
}

type nodeService struct {
	nodeRepo repository.NodeRepository
	userRepo repository.UserRepository
	locks    *tenantLocks
}

// NewNodeService создаёт новый экземпляр сервиса
func NewNodeService(nodeRepo repository.NodeRepository, userRepo repository.UserRepository) NodeService {
	return &nodeService{
		nodeRepo: nodeRepo,
		userRepo: userRepo,
		locks:    newTenantLocks(),
	}
}

func (s *nodeService) Create(ctx context.Context, tenantID, actor string, req *dto.CreateNodeRequest) (*domain.Node, error) {
	name := strings.TrimSpace(req.Name)
	id := uuid.New()

	node := &domain.Node{
		ID:        id,
		Name:      name,
		Kind:      domain.NodeKind(req.Kind),
		Metadata:  req.Metadata,
		Status:    domain.StatusActive,
		CreatedBy: actor,
		UpdatedBy: actor,
	}

	if req.ParentID == nil {
		// Корень без родителя основывает нового арендатора:
		// его собственный id строкой становится tenant_id всего дерева
		node.TenantID = id.String()
		node.Path, node.Level, node.AncestorIDs = domain.DeriveRoot(name, id)
	} else {
		parentID, err := uuid.Parse(*req.ParentID)
		if err != nil {
			return nil, domain.ErrNodeNotFound
		}

		// Родитель должен существовать, быть активным и принадлежать арендатору
		parent, err := s.nodeRepo.GetByID(ctx, tenantID, parentID)
		if err != nil {
			return nil, err
		}

		// Проверяем уникальность имени в пределах родителя
		exists, err := s.nodeRepo.ExistsByNameAndParent(ctx, tenantID, name, &parentID, nil)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, domain.ErrDuplicateNodeName
		}

		node.ParentID = &parentID
		node.TenantID = parent.TenantID
		node.Path, node.Level, node.AncestorIDs = domain.DeriveChild(name, id, parent)
	}

	// Проверка на цикл не нужна: новый узел ещё не может быть ничьим предком
	if err := s.nodeRepo.Create(ctx, node); err != nil {
		return nil, err
	}

	return node, nil
}

func (s *nodeService) Rename(ctx context.Context, tenantID string, id uuid.UUID, newName, actor string) (*domain.Node, error) {
	// Переименование каскадирует по потомкам - сериализуем в пределах арендатора
	unlock := s.locks.acquire(tenantID)
	defer unlock()

	node, err := s.nodeRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(newName)

	exists, err := s.nodeRepo.ExistsByNameAndParent(ctx, tenantID, name, node.ParentID, &id)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrDuplicateNodeName
	}

	node.Name = name
	node.UpdatedBy = actor

	// Пересчитываем собственный path; level и цепочка предков не меняются
	if node.ParentID == nil {
		node.Path = name
	} else {
		parent, err := s.nodeRepo.GetByID(ctx, tenantID, *node.ParentID)
		if err != nil {
			return nil, err
		}
		node.Path, node.Level, node.AncestorIDs = domain.DeriveChild(name, id, parent)
	}

	if err := s.nodeRepo.Update(ctx, node); err != nil {
		return nil, err
	}

	// Старое имя зашито в path всех потомков
	if err := s.cascade(ctx, node, actor); err != nil {
		return nil, err
	}

	return node, nil
}

func (s *nodeService) Move(ctx context.Context, tenantID string, id uuid.UUID, newParentID *uuid.UUID, actor string) (*domain.Node, error) {
	unlock := s.locks.acquire(tenantID)
	defer unlock()

	node, err := s.nodeRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	// Политика единственного корня: существующий узел арендатора
	// не может стать вторым корнем
	if newParentID == nil {
		return nil, domain.ErrSecondRoot
	}

	parent, err := s.nodeRepo.GetByID(ctx, tenantID, *newParentID)
	if err != nil {
		return nil, err
	}

	// Защита от цикла до первой записи: цель не может быть самим узлом
	// или его потомком
	cyclic, err := s.wouldCycle(ctx, tenantID, id, *newParentID)
	if err != nil {
		return nil, err
	}
	if cyclic {
		return nil, domain.ErrCyclicMove
	}

	exists, err := s.nodeRepo.ExistsByNameAndParent(ctx, tenantID, node.Name, newParentID, &id)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrDuplicateNodeName
	}

	node.ParentID = newParentID
	node.UpdatedBy = actor
	node.Path, node.Level, node.AncestorIDs = domain.DeriveChild(node.Name, id, parent)

	if err := s.nodeRepo.Update(ctx, node); err != nil {
		return nil, err
	}

	if err := s.cascade(ctx, node, actor); err != nil {
		return nil, err
	}

	return node, nil
}

func (s *nodeService) Delete(ctx context.Context, tenantID string, id uuid.UUID, actor string) error {
	unlock := s.locks.acquire(tenantID)
	defer unlock()

	node, err := s.nodeRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		return err
	}

	// Удаление блокируется активными детьми и активными сотрудниками,
	// чья цепочка ссылается на узел
	children, err := s.nodeRepo.CountActiveChildren(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if children > 0 {
		return domain.ErrHasActiveChildren
	}

	users, err := s.userRepo.CountActiveReferencing(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if users > 0 {
		return domain.ErrHasActiveUsers
	}

	// Запись не удаляется физически, а выводится из оборота
	node.Status = domain.StatusRetired
	node.UpdatedBy = actor
	return s.nodeRepo.Update(ctx, node)
}

func (s *nodeService) GetByID(ctx context.Context, tenantID string, id uuid.UUID) (*domain.Node, error) {
	return s.nodeRepo.GetByID(ctx, tenantID, id)
}

func (s *nodeService) GetChildren(ctx context.Context, tenantID string, id uuid.UUID) ([]domain.Node, error) {
	if _, err := s.nodeRepo.GetByID(ctx, tenantID, id); err != nil {
		return nil, err
	}
	return s.nodeRepo.GetChildren(ctx, tenantID, id)
}

// GetSubtree возвращает всех активных потомков узла. Выборка идёт по вхождению
// id в цепочку предков, а не по префиксу path: материализованный путь не
// однозначен, когда имя узла содержит разделитель
func (s *nodeService) GetSubtree(ctx context.Context, tenantID string, id uuid.UUID) ([]domain.Node, error) {
	if _, err := s.nodeRepo.GetByID(ctx, tenantID, id); err != nil {
		return nil, err
	}
	return s.nodeRepo.GetDescendants(ctx, tenantID, id)
}

// GetAncestors разворачивает цепочку предков напрямую из ancestor_ids,
// без рекурсивных запросов. Узлы возвращаются в порядке от корня к самому узлу
func (s *nodeService) GetAncestors(ctx context.Context, tenantID string, id uuid.UUID) ([]domain.Node, error) {
	node, err := s.nodeRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	nodes, err := s.nodeRepo.GetByIDs(ctx, tenantID, node.AncestorIDs)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]domain.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID.String()] = n
	}

	ordered := make([]domain.Node, 0, len(node.AncestorIDs))
	for _, aid := range node.AncestorIDs {
		if n, ok := byID[aid]; ok {
			ordered = append(ordered, n)
		}
	}
	return ordered, nil
}
