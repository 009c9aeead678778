package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"orgstruct-web/internal/models"
	"orgstruct-web/internal/utils"
)

// ImportExecutor runs one reconciled import against the store: fetch
// existing keys, create departments in dependency order, apply updates,
// refresh key maps, then repeat for positions. All writes are sequential;
// parallel writes would race the hierarchical creation passes.
type ImportExecutor struct {
	store   OrgStore
	creator *HierarchyCreator
	log     *logrus.Entry

	// OnProgress, when set, is called after each stage with the number of
	// rows handled so far for that sheet.
	OnProgress func(stage string, done, total int)
}

func NewImportExecutor(store OrgStore) *ImportExecutor {
	return &ImportExecutor{
		store:   store,
		creator: NewHierarchyCreator(store),
		log:     utils.GetLogger(),
	}
}

// ExecuteImport performs the full sequence. Positions depend on
// departments, so departments always go first. On validation failure
// nothing was written and no result is produced; on mid-run failure the
// returned ImportError carries the partial result accumulated so far.
func (e *ImportExecutor) ExecuteImport(ctx context.Context, orgID int64, departments []models.DepartmentRecord, positions []models.PositionRecord) (*models.ImportResult, error) {
	result := &models.ImportResult{
		TotalDepartments: len(departments),
		TotalPositions:   len(positions),
	}

	deptIDs, err := e.store.GetDepartmentCodes(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch department codes: %w", err)
	}
	existingPosIDs, err := e.store.GetPositionCodes(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch position codes: %w", err)
	}

	if err := validateReferences(departments, positions, deptIDs, existingPosIDs); err != nil {
		return nil, err
	}

	deptCreates, deptUpdates := partitionDepartments(departments)

	created, err := e.creator.CreateInHierarchy(ctx, orgID, deptCreates, deptIDs)
	result.DepartmentsCreated = created
	if err != nil {
		return result, &ImportError{Stage: "department creation", Partial: result, Err: err}
	}
	e.progress("departments", created, len(departments))

	// Row-level updates tolerate individual failures: one broken row must
	// not sink the rest of the sheet.
	for _, r := range deptUpdates {
		if _, err := e.store.UpdateDepartmentByCode(ctx, orgID, r.Code, departmentChanges(r, deptIDs)); err != nil {
			e.log.WithFields(logrus.Fields{"org_id": orgID, "code": r.Code}).WithError(err).Warn("department update failed")
			result.Failures = append(result.Failures, models.RecordFailure{Sheet: "departments", Code: r.Code, Reason: err.Error()})
			continue
		}
		result.DepartmentsUpdated++
	}
	e.progress("departments", created+len(deptUpdates), len(departments))

	// Refresh so position rows see departments created above.
	deptIDs, err = e.store.GetDepartmentCodes(ctx, orgID)
	if err != nil {
		return result, &ImportError{Stage: "department refresh", Partial: result, Err: err}
	}

	posIDs, err := e.store.GetPositionCodes(ctx, orgID)
	if err != nil {
		return result, &ImportError{Stage: "position fetch", Partial: result, Err: err}
	}

	posCreates, posUpdates := partitionPositions(positions)

	// Positions are one flat batch: reporting chains are not re-resolved
	// across passes. A reports-to target created in this same batch is not
	// in posIDs yet and is stored as NULL; surfaced here rather than
	// silently dropped.
	batchCodes := map[string]bool{}
	for _, r := range posCreates {
		batchCodes[r.Code] = true
	}
	for _, r := range posCreates {
		if r.ReportsToCode != "" && batchCodes[r.ReportsToCode] {
			if _, exists := posIDs[r.ReportsToCode]; !exists {
				e.log.WithFields(logrus.Fields{
					"org_id":     orgID,
					"code":       r.Code,
					"reports_to": r.ReportsToCode,
				}).Warn("reports-to target is created in this same import; stored as null")
			}
		}
	}

	if len(posCreates) > 0 {
		res, err := e.store.BatchInsertPositions(ctx, orgID, posCreates, deptIDs, posIDs)
		if err != nil {
			return result, &ImportError{Stage: "position creation", Partial: result, Err: err}
		}
		result.PositionsCreated = res.AffectedRows
		for code, id := range res.IDsByCode {
			posIDs[code] = id
		}
	}
	e.progress("positions", result.PositionsCreated, len(positions))

	for _, r := range posUpdates {
		if _, err := e.store.UpdatePositionByCode(ctx, orgID, r.Code, positionChanges(r, deptIDs, posIDs)); err != nil {
			e.log.WithFields(logrus.Fields{"org_id": orgID, "code": r.Code}).WithError(err).Warn("position update failed")
			result.Failures = append(result.Failures, models.RecordFailure{Sheet: "positions", Code: r.Code, Reason: err.Error()})
			continue
		}
		result.PositionsUpdated++
	}
	e.progress("positions", result.PositionsCreated+len(posUpdates), len(positions))

	e.log.WithFields(logrus.Fields{
		"org_id":              orgID,
		"departments_created": result.DepartmentsCreated,
		"departments_updated": result.DepartmentsUpdated,
		"positions_created":   result.PositionsCreated,
		"positions_updated":   result.PositionsUpdated,
		"failures":            len(result.Failures),
	}).Info("import completed")

	return result, nil
}

func (e *ImportExecutor) progress(stage string, done, total int) {
	if e.OnProgress != nil {
		e.OnProgress(stage, done, total)
	}
}

// validateReferences checks referential integrity before any write:
// every position's department code and every department's parent code
// must resolve to the store or to this same batch.
func validateReferences(departments []models.DepartmentRecord, positions []models.PositionRecord, existingDepts, existingPositions map[string]int64) error {
	batchDepts := map[string]bool{}
	for _, d := range departments {
		batchDepts[d.Code] = true
	}
	batchPositions := map[string]bool{}
	for _, p := range positions {
		batchPositions[p.Code] = true
	}

	verr := &ValidationError{}

	for _, d := range departments {
		if d.ParentCode == "" {
			continue
		}
		if _, ok := existingDepts[d.ParentCode]; ok {
			continue
		}
		if batchDepts[d.ParentCode] {
			continue
		}
		verr.MissingParentRefs = append(verr.MissingParentRefs, MissingRef{Code: d.Code, MissingCode: d.ParentCode, SourceRow: d.SourceRow})
	}

	for _, p := range positions {
		if _, ok := existingDepts[p.DepartmentCode]; ok {
			continue
		}
		if batchDepts[p.DepartmentCode] {
			continue
		}
		verr.MissingDepartmentRefs = append(verr.MissingDepartmentRefs, MissingRef{Code: p.Code, MissingCode: p.DepartmentCode, SourceRow: p.SourceRow})
	}

	for _, p := range positions {
		if p.ReportsToCode == "" {
			continue
		}
		if _, ok := existingPositions[p.ReportsToCode]; ok {
			continue
		}
		if batchPositions[p.ReportsToCode] {
			continue
		}
		verr.MissingReportsToRefs = append(verr.MissingReportsToRefs, MissingRef{Code: p.Code, MissingCode: p.ReportsToCode, SourceRow: p.SourceRow})
	}

	if len(verr.MissingParentRefs) > 0 || len(verr.MissingDepartmentRefs) > 0 || len(verr.MissingReportsToRefs) > 0 {
		return verr
	}
	return nil
}

func partitionDepartments(records []models.DepartmentRecord) (creates, updates []models.DepartmentRecord) {
	for _, r := range records {
		if r.Operation == models.OperationUpdate {
			updates = append(updates, r)
		} else {
			creates = append(creates, r)
		}
	}
	return creates, updates
}

func partitionPositions(records []models.PositionRecord) (creates, updates []models.PositionRecord) {
	for _, r := range records {
		if r.Operation == models.OperationUpdate {
			updates = append(updates, r)
		} else {
			creates = append(creates, r)
		}
	}
	return creates, updates
}

func departmentChanges(r models.DepartmentRecord, deptIDs map[string]int64) map[string]interface{} {
	changes := map[string]interface{}{
		"name": r.Name,
	}
	if r.ParentCode == "" {
		changes["parent_id"] = nil
	} else if id, ok := deptIDs[r.ParentCode]; ok {
		changes["parent_id"] = id
	}
	if len(r.Metadata) > 0 {
		if raw, err := json.Marshal(r.Metadata); err == nil {
			changes["metadata"] = string(raw)
		}
	}
	return changes
}

func positionChanges(r models.PositionRecord, deptIDs, posIDs map[string]int64) map[string]interface{} {
	changes := map[string]interface{}{
		"title":            r.Title,
		"is_manager":       r.IsManager,
		"incumbents_count": r.IncumbentsCount,
		"is_active":        r.IsActive,
	}
	if id, ok := deptIDs[r.DepartmentCode]; ok {
		changes["department_id"] = id
	}
	if r.ReportsToCode == "" {
		changes["reports_to_id"] = nil
	} else if id, ok := posIDs[r.ReportsToCode]; ok {
		changes["reports_to_id"] = id
	} else {
		changes["reports_to_id"] = nil
	}
	return changes
}
