package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/org-hierarchy-engine/internal/domain"
)

// wouldCycle определяет, создаст ли назначение candidateParentID родителем movingID
// цикл в дереве. Обходом в ширину собираются активные потомки movingID;
// цикл есть, если цель - сам узел или один из них
func (s *nodeService) wouldCycle(ctx context.Context, tenantID string, movingID, candidateParentID uuid.UUID) (bool, error) {
	if candidateParentID == movingID {
		return true, nil
	}

	queue := []uuid.UUID{movingID}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		children, err := s.nodeRepo.GetChildren(ctx, tenantID, current)
		if err != nil {
			return false, err
		}
		for _, child := range children {
			if child.ID == candidateParentID {
				return true, nil
			}
			queue = append(queue, child.ID)
		}
	}
	return false, nil
}

// cascade пересчитывает path/level/ancestor_ids всех активных потомков узла,
// чьи собственные значения уже зафиксированы. Обход строго в ширину: каждый
// потомок выводится из уже обновлённого снимка своего родителя, поэтому второй
// проход не нужен, а повторный запуск на согласованном поддереве ничего не меняет
func (s *nodeService) cascade(ctx context.Context, root *domain.Node, actor string) error {
	queue := []*domain.Node{root}
	for len(queue) > 0 {
		parent := queue[0]
		queue = queue[1:]

		children, err := s.nodeRepo.GetChildren(ctx, parent.TenantID, parent.ID)
		if err != nil {
			return err
		}
		for i := range children {
			child := &children[i]
			child.Path, child.Level, child.AncestorIDs = domain.DeriveChild(child.Name, child.ID, parent)
			child.UpdatedBy = actor
			if err := s.nodeRepo.Update(ctx, child); err != nil {
				return err
			}
			queue = append(queue, child)
		}
	}
	return nil
}
