package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orgstruct-web/internal/models"
)

func TestExecuteImportHappyPath(t *testing.T) {
	store := newFakeStore()
	store.depts["OPS"] = 1
	store.positions["OPS-MGR"] = 2
	executor := NewImportExecutor(store)

	departments := []models.DepartmentRecord{
		{Code: "ENG", Name: "Engineering", Operation: models.OperationCreate},
		{Code: "ENG-BE", Name: "Backend", ParentCode: "ENG", Operation: models.OperationCreate},
		{Code: "OPS", Name: "Operations Renamed", Operation: models.OperationUpdate},
	}
	positions := []models.PositionRecord{
		{Code: "BE-DEV", Title: "Backend Developer", DepartmentCode: "ENG-BE", Operation: models.OperationCreate},
		{Code: "OPS-MGR", Title: "Operations Manager", DepartmentCode: "OPS", Operation: models.OperationUpdate},
	}

	result, err := executor.ExecuteImport(context.Background(), 1, departments, positions)
	require.NoError(t, err)

	assert.Equal(t, 2, result.DepartmentsCreated)
	assert.Equal(t, 1, result.DepartmentsUpdated)
	assert.Equal(t, 1, result.PositionsCreated)
	assert.Equal(t, 1, result.PositionsUpdated)
	assert.Empty(t, result.Failures)
	assert.Equal(t, []string{"OPS"}, store.deptUpdates)
	assert.Equal(t, []string{"OPS-MGR"}, store.posUpdates)
}

func TestExecuteImportValidationAbortsBeforeWrites(t *testing.T) {
	store := newFakeStore()
	executor := NewImportExecutor(store)

	positions := []models.PositionRecord{
		{Code: "DEV", Title: "Developer", DepartmentCode: "GHOST", SourceRow: 2, Operation: models.OperationCreate},
	}

	result, err := executor.ExecuteImport(context.Background(), 1, nil, positions)
	assert.Nil(t, result)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.MissingDepartmentRefs, 1)
	assert.Equal(t, "GHOST", verr.MissingDepartmentRefs[0].MissingCode)
	assert.Equal(t, 2, verr.MissingDepartmentRefs[0].SourceRow)

	assert.Empty(t, store.deptBatches)
	assert.Empty(t, store.posBatches)
}

func TestExecuteImportValidationAcceptsBatchReferences(t *testing.T) {
	store := newFakeStore()
	executor := NewImportExecutor(store)

	// Department and reports-to targets exist only in this same upload.
	departments := []models.DepartmentRecord{
		{Code: "ENG", Name: "Engineering", Operation: models.OperationCreate},
	}
	positions := []models.PositionRecord{
		{Code: "LEAD", Title: "Lead", DepartmentCode: "ENG", Operation: models.OperationCreate},
		{Code: "DEV", Title: "Developer", DepartmentCode: "ENG", ReportsToCode: "LEAD", Operation: models.OperationCreate},
	}

	result, err := executor.ExecuteImport(context.Background(), 1, departments, positions)
	require.NoError(t, err)
	assert.Equal(t, 2, result.PositionsCreated)

	// LEAD had no id yet when the flat batch went in, so DEV's reporting
	// line is stored as null rather than re-resolved.
	assert.Equal(t, []string{"DEV"}, store.unresolvedReportsTo)
}

func TestExecuteImportUpdateFailuresDoNotAbort(t *testing.T) {
	store := newFakeStore()
	store.depts["A"] = 1
	store.depts["B"] = 2
	store.depts["C"] = 3
	store.deptUpdateErr["B"] = errors.New("update departments by code failed (connection): timeout")
	executor := NewImportExecutor(store)

	departments := []models.DepartmentRecord{
		{Code: "A", Name: "A2", Operation: models.OperationUpdate},
		{Code: "B", Name: "B2", Operation: models.OperationUpdate},
		{Code: "C", Name: "C2", Operation: models.OperationUpdate},
	}

	result, err := executor.ExecuteImport(context.Background(), 1, departments, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, result.DepartmentsUpdated)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "B", result.Failures[0].Code)
	assert.Equal(t, "departments", result.Failures[0].Sheet)
}

func TestExecuteImportPositionInsertFailureCarriesPartialResult(t *testing.T) {
	store := newFakeStore()
	store.posInsertErr = errors.New("duplicate entry 'DEV' for key 'positions.code'")
	executor := NewImportExecutor(store)

	departments := []models.DepartmentRecord{
		{Code: "ENG", Name: "Engineering", Operation: models.OperationCreate},
	}
	positions := []models.PositionRecord{
		{Code: "DEV", Title: "Developer", DepartmentCode: "ENG", Operation: models.OperationCreate},
	}

	result, err := executor.ExecuteImport(context.Background(), 1, departments, positions)

	var ierr *ImportError
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, "position creation", ierr.Stage)
	require.NotNil(t, ierr.Partial)
	assert.Equal(t, 1, ierr.Partial.DepartmentsCreated, "department work before the failure is reported")
	assert.Same(t, result, ierr.Partial)
}

func TestExecuteImportDependencyErrorAborts(t *testing.T) {
	store := newFakeStore()
	executor := NewImportExecutor(store)

	departments := []models.DepartmentRecord{
		{Code: "X", Name: "X", ParentCode: "Y", Operation: models.OperationCreate},
		{Code: "Y", Name: "Y", ParentCode: "X", Operation: models.OperationCreate},
	}

	_, err := executor.ExecuteImport(context.Background(), 1, departments, nil)

	var ierr *ImportError
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, "department creation", ierr.Stage)

	var depErr *DependencyResolutionError
	assert.ErrorAs(t, err, &depErr)
}

func TestExecuteImportProgressCallback(t *testing.T) {
	store := newFakeStore()
	executor := NewImportExecutor(store)

	var stages []string
	executor.OnProgress = func(stage string, done, total int) {
		stages = append(stages, stage)
	}

	departments := []models.DepartmentRecord{
		{Code: "ENG", Name: "Engineering", Operation: models.OperationCreate},
	}

	_, err := executor.ExecuteImport(context.Background(), 1, departments, nil)
	require.NoError(t, err)
	assert.Contains(t, stages, "departments")
	assert.Contains(t, stages, "positions")
}

func TestClassify(t *testing.T) {
	existing := map[string]int64{"ENG": 1}

	assert.Equal(t, models.OperationUpdate, Classify("ENG", existing))
	assert.Equal(t, models.OperationCreate, Classify("OPS", existing))

	departments := []models.DepartmentRecord{{Code: "ENG"}, {Code: "OPS"}}
	ClassifyDepartments(departments, existing)
	assert.Equal(t, models.OperationUpdate, departments[0].Operation)
	assert.Equal(t, models.OperationCreate, departments[1].Operation)

	positions := []models.PositionRecord{{Code: "ENG"}}
	ClassifyPositions(positions, map[string]int64{})
	assert.Equal(t, models.OperationCreate, positions[0].Operation)
}
