package domain

import "errors"

// Определение бизнес-ошибок. Делятся на три класса для API:
// not found (404), структурный конфликт (409), конфликт зависимостей (409).
var (
	ErrNodeNotFound      = errors.New("node not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrDuplicateNodeName = errors.New("node with this name already exists in the same parent")
	ErrCyclicMove        = errors.New("moving node would create a cycle")
	ErrSecondRoot        = errors.New("tenant already has a root node")
	ErrHasActiveChildren = errors.New("node has active children")
	ErrHasActiveUsers    = errors.New("node has active users assigned")
)
