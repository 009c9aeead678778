package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"orgstruct-web/internal/models"
	"orgstruct-web/internal/utils"
)

// maxCreatePasses bounds the fixed-point loop. An acyclic hierarchy
// converges in depth+1 passes; anything still unresolved at the cap is
// cyclic or pathological input.
const maxCreatePasses = 10

// HierarchyCreator inserts hierarchical department batches parent-first.
// A flat insert cannot work when parent and child are both new in the same
// file: the child needs the parent's generated id. Each pass inserts every
// record whose parent is already persisted, then feeds the new ids into
// the next pass.
type HierarchyCreator struct {
	store OrgStore
	log   *logrus.Entry
}

func NewHierarchyCreator(store OrgStore) *HierarchyCreator {
	return &HierarchyCreator{
		store: store,
		log:   utils.GetLogger(),
	}
}

// CreateInHierarchy creates every record in toCreate, mutating codeToID
// with the generated ids as passes complete. On a stalled pass or an
// exhausted pass cap it returns a DependencyResolutionError along with the
// count created in earlier passes; those rows stay persisted.
func (hc *HierarchyCreator) CreateInHierarchy(ctx context.Context, orgID int64, toCreate []models.DepartmentRecord, codeToID map[string]int64) (int, error) {
	remaining := make([]models.DepartmentRecord, len(toCreate))
	copy(remaining, toCreate)

	createdCodes := map[string]bool{}
	createdCount := 0
	passes := 0

	for pass := 1; pass <= maxCreatePasses && len(remaining) > 0; pass++ {
		passes = pass

		var eligible, deferred []models.DepartmentRecord
		for _, r := range remaining {
			if r.ParentCode == "" || createdCodes[r.ParentCode] {
				eligible = append(eligible, r)
				continue
			}
			if _, ok := codeToID[r.ParentCode]; ok {
				eligible = append(eligible, r)
				continue
			}
			deferred = append(deferred, r)
		}

		if len(eligible) == 0 {
			return createdCount, &DependencyResolutionError{
				Unresolved: unresolvedFrom(remaining),
				Passes:     passes,
			}
		}

		res, err := hc.store.BatchInsertDepartments(ctx, orgID, eligible, codeToID)
		if err != nil {
			return createdCount, fmt.Errorf("failed to insert department batch (pass %d): %w", pass, err)
		}

		createdCount += res.AffectedRows
		for code, id := range res.IDsByCode {
			codeToID[code] = id
			createdCodes[code] = true
		}

		hc.log.WithFields(logrus.Fields{
			"org_id":    orgID,
			"pass":      pass,
			"created":   res.AffectedRows,
			"remaining": len(deferred),
		}).Debug("department creation pass complete")

		remaining = deferred
	}

	if len(remaining) > 0 {
		return createdCount, &DependencyResolutionError{
			Unresolved:   unresolvedFrom(remaining),
			Passes:       passes,
			PassLimitHit: true,
		}
	}

	return createdCount, nil
}

func unresolvedFrom(remaining []models.DepartmentRecord) []UnresolvedDependency {
	out := make([]UnresolvedDependency, 0, len(remaining))
	for _, r := range remaining {
		out = append(out, UnresolvedDependency{Code: r.Code, MissingParent: r.ParentCode})
	}
	return out
}
