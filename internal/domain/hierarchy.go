package domain

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// PathSeparator - разделитель имён в материализованном пути
const PathSeparator = " > "

// DeriveRoot вычисляет path/level/ancestorIDs для корневого узла
func DeriveRoot(name string, id uuid.UUID) (string, int, datatypes.JSONSlice[string]) {
	return name, 0, datatypes.JSONSlice[string]{id.String()}
}

// DeriveChild вычисляет path/level/ancestorIDs узла от актуального снимка родителя.
// Функция чистая: вся валидация родителя выполняется до её вызова
func DeriveChild(name string, id uuid.UUID, parent *Node) (string, int, datatypes.JSONSlice[string]) {
	path := parent.Path + PathSeparator + name
	level := parent.Level + 1

	ancestors := make(datatypes.JSONSlice[string], 0, len(parent.AncestorIDs)+1)
	ancestors = append(ancestors, parent.AncestorIDs...)
	ancestors = append(ancestors, id.String())

	return path, level, ancestors
}
