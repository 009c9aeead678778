package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orgstruct-web/internal/models"
)

func newMockRepo(t *testing.T) (*OrgRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewOrgRepository(sqlx.NewDb(db, "mysql")), mock
}

func TestGetDepartmentCodes(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT code, id FROM departments WHERE organization_id").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"code", "id"}).
			AddRow("ENG", 10).
			AddRow("OPS", 11))

	codes, err := repo.GetDepartmentCodes(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"ENG": 10, "OPS": 11}, codes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchInsertDepartments(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("INSERT INTO departments").
		WillReturnResult(sqlmock.NewResult(20, 2))
	mock.ExpectQuery("SELECT code, id FROM departments WHERE organization_id = \\? AND code IN").
		WillReturnRows(sqlmock.NewRows([]string{"code", "id"}).
			AddRow("ENG", 20).
			AddRow("ENG-BE", 21))

	records := []models.DepartmentRecord{
		{Code: "ENG", Name: "Engineering"},
		{Code: "ENG-BE", Name: "Backend", ParentCode: "ENG", Metadata: map[string]string{"location": "HQ"}},
	}
	result, err := repo.BatchInsertDepartments(context.Background(), 1, records, map[string]int64{})
	require.NoError(t, err)

	assert.Equal(t, 2, result.AffectedRows)
	assert.Equal(t, map[string]int64{"ENG": 20, "ENG-BE": 21}, result.IDsByCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchInsertDepartmentsChunked(t *testing.T) {
	repo, mock := newMockRepo(t)
	repo.InsertBatchSize = 2

	// Three records with a cap of two: two INSERT statements, one lookup.
	mock.ExpectExec("INSERT INTO departments").
		WillReturnResult(sqlmock.NewResult(20, 2))
	mock.ExpectExec("INSERT INTO departments").
		WillReturnResult(sqlmock.NewResult(22, 1))
	mock.ExpectQuery("SELECT code, id FROM departments WHERE organization_id = \\? AND code IN").
		WillReturnRows(sqlmock.NewRows([]string{"code", "id"}).
			AddRow("ENG", 20).
			AddRow("OPS", 21).
			AddRow("FIN", 22))

	records := []models.DepartmentRecord{
		{Code: "ENG", Name: "Engineering"},
		{Code: "OPS", Name: "Operations"},
		{Code: "FIN", Name: "Finance"},
	}
	result, err := repo.BatchInsertDepartments(context.Background(), 1, records, map[string]int64{})
	require.NoError(t, err)

	assert.Equal(t, 3, result.AffectedRows)
	assert.Len(t, result.IDsByCode, 3)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchInsertDepartmentsEmpty(t *testing.T) {
	repo, _ := newMockRepo(t)

	result, err := repo.BatchInsertDepartments(context.Background(), 1, nil, nil)
	require.NoError(t, err)
	assert.Zero(t, result.AffectedRows)
	assert.Empty(t, result.IDsByCode)
}

func TestBatchInsertPositionsUnknownDepartment(t *testing.T) {
	repo, _ := newMockRepo(t)

	records := []models.PositionRecord{
		{Code: "DEV", Title: "Developer", DepartmentCode: "GHOST"},
	}
	_, err := repo.BatchInsertPositions(context.Background(), 1, records, map[string]int64{}, map[string]int64{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GHOST")
}

func TestUpdateDepartmentByCodeDeterministicColumnOrder(t *testing.T) {
	repo, mock := newMockRepo(t)

	// Columns sort alphabetically regardless of map iteration order.
	mock.ExpectExec("UPDATE departments SET metadata = \\?, name = \\?, parent_id = \\? WHERE organization_id = \\? AND code = \\?").
		WithArgs(`{"location":"HQ"}`, "Engineering", int64(5), int64(1), "ENG").
		WillReturnResult(sqlmock.NewResult(0, 1))

	affected, err := repo.UpdateDepartmentByCode(context.Background(), 1, "ENG", map[string]interface{}{
		"name":      "Engineering",
		"parent_id": int64(5),
		"metadata":  `{"location":"HQ"}`,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateByCodeNoChanges(t *testing.T) {
	repo, _ := newMockRepo(t)

	affected, err := repo.UpdatePositionByCode(context.Background(), 1, "DEV", nil)
	require.NoError(t, err)
	assert.Zero(t, affected)
}

func TestClassifyStoreError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind StoreErrorKind
	}{
		{"duplicate key", errors.New("Error 1062: Duplicate entry 'ENG' for key 'departments.code'"), StoreErrDuplicateKey},
		{"foreign key", errors.New("Error 1452: Cannot add or update a child row: a foreign key constraint fails"), StoreErrForeignKey},
		{"connection refused", errors.New("dial tcp 127.0.0.1:3306: connect: connection refused"), StoreErrConnection},
		{"invalid connection", errors.New("invalid connection"), StoreErrConnection},
		{"unknown", errors.New("Error 1205: Lock wait timeout exceeded"), StoreErrUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyStoreError("test op", tt.err)

			var serr *StoreError
			require.ErrorAs(t, err, &serr)
			assert.Equal(t, tt.kind, serr.Kind)
			assert.Equal(t, "test op", serr.Op)
			assert.ErrorIs(t, err, tt.err)
		})
	}

	assert.NoError(t, classifyStoreError("noop", nil))
}
