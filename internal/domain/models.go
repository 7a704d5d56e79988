package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// NodeKind - семантический тип узла; на структуру дерева не влияет
type NodeKind string

const (
	KindRootClass    NodeKind = "ROOT_CLASS"
	KindBusinessUnit NodeKind = "BUSINESS_UNIT"
	KindDepartment   NodeKind = "DEPARTMENT"
)

// EntityStatus - статус записи: активна или выведена из оборота (soft delete)
type EntityStatus string

const (
	StatusActive  EntityStatus = "active"
	StatusRetired EntityStatus = "retired"
)

// Node представляет узел организационной иерархии
type Node struct {
	ID          uuid.UUID                   `json:"id" gorm:"type:uuid;primaryKey"`
	Name        string                      `json:"name" gorm:"type:varchar(200);not null"`
	Kind        NodeKind                    `json:"kind" gorm:"type:varchar(32);not null"`
	ParentID    *uuid.UUID                  `json:"parent_id" gorm:"type:uuid;index"`
	Path        string                      `json:"path" gorm:"type:text;not null;index"`
	Level       int                         `json:"level" gorm:"not null"`
	AncestorIDs datatypes.JSONSlice[string] `json:"ancestor_ids" gorm:"not null"`
	TenantID    string                      `json:"tenant_id" gorm:"type:varchar(36);not null;index"`
	Metadata    datatypes.JSONMap           `json:"metadata"`
	Status      EntityStatus                `json:"status" gorm:"type:varchar(16);not null;index"`
	CreatedBy   string                      `json:"created_by" gorm:"type:varchar(200);not null"`
	UpdatedBy   string                      `json:"updated_by" gorm:"type:varchar(200);not null"`
	CreatedAt   time.Time                   `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time                   `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName задаёт имя таблицы для GORM
func (Node) TableName() string {
	return "nodes"
}

// IsRoot сообщает, является ли узел корнем дерева арендатора
func (n *Node) IsRoot() bool {
	return n.ParentID == nil
}

// IsUnder проверяет принадлежность узла поддереву ancestorID по цепочке предков,
// без разбора строки path
func (n *Node) IsUnder(ancestorID uuid.UUID) bool {
	s := ancestorID.String()
	for _, id := range n.AncestorIDs {
		if id == s {
			return true
		}
	}
	return false
}

// OrgUser представляет сотрудника, закреплённого за узлом иерархии
type OrgUser struct {
	ID           uuid.UUID                   `json:"id" gorm:"type:uuid;primaryKey"`
	FullName     string                      `json:"full_name" gorm:"type:varchar(200);not null"`
	Position     string                      `json:"position" gorm:"type:varchar(200);not null"`
	EntityID     uuid.UUID                   `json:"entity_id" gorm:"type:uuid;not null;index"`
	EntityIDPath datatypes.JSONSlice[string] `json:"entity_id_path" gorm:"not null"`
	TenantID     string                      `json:"tenant_id" gorm:"type:varchar(36);not null;index"`
	Status       EntityStatus                `json:"status" gorm:"type:varchar(16);not null;index"`
	CreatedBy    string                      `json:"created_by" gorm:"type:varchar(200);not null"`
	UpdatedBy    string                      `json:"updated_by" gorm:"type:varchar(200);not null"`
	CreatedAt    time.Time                   `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time                   `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName задаёт имя таблицы для GORM
func (OrgUser) TableName() string {
	return "org_users"
}
