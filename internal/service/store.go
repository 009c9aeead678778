package service

import (
	"context"

	"orgstruct-web/internal/models"
)

// OrgStore is the data-store boundary the import engine writes through.
// The executor receives it as a constructor argument so tests can inject
// a fake store; no package-level client is held anywhere.
type OrgStore interface {
	GetDepartmentCodes(ctx context.Context, orgID int64) (map[string]int64, error)
	GetPositionCodes(ctx context.Context, orgID int64) (map[string]int64, error)

	// BatchInsertDepartments inserts all records in one write. Parent ids
	// are resolved from codeToID; records whose ParentCode is empty are
	// inserted as roots.
	BatchInsertDepartments(ctx context.Context, orgID int64, records []models.DepartmentRecord, codeToID map[string]int64) (*models.BatchResult, error)

	// BatchInsertPositions inserts all records in one write. Department
	// ids come from departmentIDs; ReportsToCode is looked up in
	// positionIDs and stored as NULL when absent.
	BatchInsertPositions(ctx context.Context, orgID int64, records []models.PositionRecord, departmentIDs, positionIDs map[string]int64) (*models.BatchResult, error)

	UpdateDepartmentByCode(ctx context.Context, orgID int64, code string, changes map[string]interface{}) (int64, error)
	UpdatePositionByCode(ctx context.Context, orgID int64, code string, changes map[string]interface{}) (int64, error)
}
