package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/org-hierarchy-engine/internal/domain"
	"gorm.io/gorm"
)

// UserRepository определяет интерфейс для работы с сотрудниками
type UserRepository interface {
	Create(ctx context.Context, user *domain.OrgUser) error
	GetByID(ctx context.Context, tenantID string, id uuid.UUID) (*domain.OrgUser, error)
	GetByEntityID(ctx context.Context, tenantID string, entityID uuid.UUID) ([]domain.OrgUser, error)
	Update(ctx context.Context, user *domain.OrgUser) error
	CountActiveReferencing(ctx context.Context, tenantID string, entityID uuid.UUID) (int64, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository создаёт новый экземпляр репозитория
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) scoped(ctx context.Context, tenantID string) *gorm.DB {
	return r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Where("status = ?", domain.StatusActive)
}

func (r *userRepository) Create(ctx context.Context, user *domain.OrgUser) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) GetByID(ctx context.Context, tenantID string, id uuid.UUID) (*domain.OrgUser, error) {
	var user domain.OrgUser
	err := r.scoped(ctx, tenantID).Where("id = ?", id).First(&user).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEntityID(ctx context.Context, tenantID string, entityID uuid.UUID) ([]domain.OrgUser, error) {
	var users []domain.OrgUser
	err := r.scoped(ctx, tenantID).
		Where("entity_id = ?", entityID).
		Order("created_at ASC").
		Find(&users).Error
	return users, err
}

func (r *userRepository) Update(ctx context.Context, user *domain.OrgUser) error {
	return r.db.WithContext(ctx).Save(user).Error
}

// CountActiveReferencing считает активных сотрудников, в чьей снятой при создании
// цепочке entity_id_path встречается entityID. Поиск идёт по текстовому представлению
// JSON-массива: элементы хранятся в кавычках, поэтому шаблон '%"<uuid>"%' однозначен
// и одинаково работает в postgres (jsonb) и sqlite
func (r *userRepository) CountActiveReferencing(ctx context.Context, tenantID string, entityID uuid.UUID) (int64, error) {
	var count int64
	err := r.scoped(ctx, tenantID).
		Model(&domain.OrgUser{}).
		Where("CAST(entity_id_path AS TEXT) LIKE ?", `%"`+entityID.String()+`"%`).
		Count(&count).Error
	return count, err
}
