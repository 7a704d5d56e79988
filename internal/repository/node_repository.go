package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/org-hierarchy-engine/internal/domain"
	"gorm.io/gorm"
)

// NodeRepository определяет интерфейс для работы с узлами иерархии.
// Все выборки отфильтрованы по арендатору и активности записи
type NodeRepository interface {
	Create(ctx context.Context, node *domain.Node) error
	GetByID(ctx context.Context, tenantID string, id uuid.UUID) (*domain.Node, error)
	GetChildren(ctx context.Context, tenantID string, parentID uuid.UUID) ([]domain.Node, error)
	GetDescendants(ctx context.Context, tenantID string, ancestorID uuid.UUID) ([]domain.Node, error)
	GetByIDs(ctx context.Context, tenantID string, ids []string) ([]domain.Node, error)
	Update(ctx context.Context, node *domain.Node) error
	ExistsByNameAndParent(ctx context.Context, tenantID, name string, parentID *uuid.UUID, excludeID *uuid.UUID) (bool, error)
	CountActiveChildren(ctx context.Context, tenantID string, parentID uuid.UUID) (int64, error)
}

type nodeRepository struct {
	db *gorm.DB
}

// NewNodeRepository создаёт новый экземпляр репозитория
func NewNodeRepository(db *gorm.DB) NodeRepository {
	return &nodeRepository{db: db}
}

// scoped применяет обязательные фильтры арендатора и активности
func (r *nodeRepository) scoped(ctx context.Context, tenantID string) *gorm.DB {
	return r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Where("status = ?", domain.StatusActive)
}

func (r *nodeRepository) Create(ctx context.Context, node *domain.Node) error {
	return r.db.WithContext(ctx).Create(node).Error
}

func (r *nodeRepository) GetByID(ctx context.Context, tenantID string, id uuid.UUID) (*domain.Node, error) {
	var node domain.Node
	err := r.scoped(ctx, tenantID).Where("id = ?", id).First(&node).Error
	if err != nil {
		// Чужой арендатор неотличим от отсутствующей записи
		if err == gorm.ErrRecordNotFound {
			return nil, domain.ErrNodeNotFound
		}
		return nil, err
	}
	return &node, nil
}

func (r *nodeRepository) GetChildren(ctx context.Context, tenantID string, parentID uuid.UUID) ([]domain.Node, error) {
	var children []domain.Node
	err := r.scoped(ctx, tenantID).
		Where("parent_id = ?", parentID).
		Order("created_at ASC").
		Find(&children).Error
	return children, err
}

// GetDescendants возвращает активных потомков узла по вхождению его id в цепочку
// ancestor_ids; сам узел в выборку не входит. Поиск идёт по текстовому
// представлению JSON-массива: uuid в кавычках не содержит спецсимволов LIKE,
// поэтому шаблон однозначен и не зависит от содержимого имён в path.
// Префиксный поиск по самому path так не работает: имя узла может содержать
// и метасимволы LIKE, и сам разделитель
func (r *nodeRepository) GetDescendants(ctx context.Context, tenantID string, ancestorID uuid.UUID) ([]domain.Node, error) {
	var nodes []domain.Node
	err := r.scoped(ctx, tenantID).
		Where("CAST(ancestor_ids AS TEXT) LIKE ?", `%"`+ancestorID.String()+`"%`).
		Where("id != ?", ancestorID).
		Order("level ASC, path ASC").
		Find(&nodes).Error
	return nodes, err
}

func (r *nodeRepository) GetByIDs(ctx context.Context, tenantID string, ids []string) ([]domain.Node, error) {
	var nodes []domain.Node
	err := r.scoped(ctx, tenantID).
		Where("id IN ?", ids).
		Find(&nodes).Error
	return nodes, err
}

func (r *nodeRepository) Update(ctx context.Context, node *domain.Node) error {
	return r.db.WithContext(ctx).Save(node).Error
}

func (r *nodeRepository) ExistsByNameAndParent(ctx context.Context, tenantID, name string, parentID *uuid.UUID, excludeID *uuid.UUID) (bool, error) {
	var count int64
	query := r.scoped(ctx, tenantID).Model(&domain.Node{}).Where("name = ?", name)

	if parentID != nil {
		query = query.Where("parent_id = ?", *parentID)
	} else {
		query = query.Where("parent_id IS NULL")
	}

	if excludeID != nil {
		query = query.Where("id != ?", *excludeID)
	}

	err := query.Count(&count).Error
	return count > 0, err
}

func (r *nodeRepository) CountActiveChildren(ctx context.Context, tenantID string, parentID uuid.UUID) (int64, error) {
	var count int64
	err := r.scoped(ctx, tenantID).
		Model(&domain.Node{}).
		Where("parent_id = ?", parentID).
		Count(&count).Error
	return count, err
}
