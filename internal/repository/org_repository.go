package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"

	"orgstruct-web/internal/models"
)

// OrgRepository is the MySQL-backed store for organization structure.
// It satisfies the import engine's OrgStore interface.
type OrgRepository struct {
	db *sqlx.DB

	// InsertBatchSize caps the rows per INSERT statement so one oversized
	// upload cannot produce a statement beyond the server's packet limit.
	// Zero means no cap.
	InsertBatchSize int
}

func NewOrgRepository(db *sqlx.DB) *OrgRepository {
	return &OrgRepository{db: db}
}

type codeID struct {
	Code string `db:"code"`
	ID   int64  `db:"id"`
}

func (r *OrgRepository) FindOrganization(ctx context.Context, id int64) (*models.Organization, error) {
	var org models.Organization
	query := "SELECT * FROM organizations WHERE id = ? LIMIT 1"
	if err := r.db.GetContext(ctx, &org, query, id); err != nil {
		return nil, err
	}
	return &org, nil
}

// GetDepartmentCodes fetches the code→id map for one organization in a
// single query. Callers treat the map as a point-in-time snapshot.
func (r *OrgRepository) GetDepartmentCodes(ctx context.Context, orgID int64) (map[string]int64, error) {
	var rows []codeID
	query := "SELECT code, id FROM departments WHERE organization_id = ?"
	if err := r.db.SelectContext(ctx, &rows, query, orgID); err != nil {
		return nil, classifyStoreError("fetch department codes", err)
	}

	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Code] = row.ID
	}
	return out, nil
}

func (r *OrgRepository) GetPositionCodes(ctx context.Context, orgID int64) (map[string]int64, error) {
	var rows []codeID
	query := "SELECT code, id FROM positions WHERE organization_id = ?"
	if err := r.db.SelectContext(ctx, &rows, query, orgID); err != nil {
		return nil, classifyStoreError("fetch position codes", err)
	}

	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Code] = row.ID
	}
	return out, nil
}

type departmentInsertRow struct {
	OrganizationID int64          `db:"organization_id"`
	Code           string         `db:"code"`
	Name           string         `db:"name"`
	ParentID       sql.NullInt64  `db:"parent_id"`
	Metadata       sql.NullString `db:"metadata"`
}

// BatchInsertDepartments inserts all records in multi-row writes, chunked
// by InsertBatchSize, and re-selects the generated ids by code (MySQL has
// no RETURNING clause).
func (r *OrgRepository) BatchInsertDepartments(ctx context.Context, orgID int64, records []models.DepartmentRecord, codeToID map[string]int64) (*models.BatchResult, error) {
	if len(records) == 0 {
		return &models.BatchResult{IDsByCode: map[string]int64{}}, nil
	}

	rows := make([]departmentInsertRow, 0, len(records))
	codes := make([]string, 0, len(records))
	for _, rec := range records {
		row := departmentInsertRow{
			OrganizationID: orgID,
			Code:           rec.Code,
			Name:           rec.Name,
		}
		if rec.ParentCode != "" {
			if id, ok := codeToID[rec.ParentCode]; ok {
				row.ParentID = sql.NullInt64{Int64: id, Valid: true}
			}
		}
		if len(rec.Metadata) > 0 {
			raw, err := json.Marshal(rec.Metadata)
			if err != nil {
				return nil, fmt.Errorf("failed to encode metadata for %s: %w", rec.Code, err)
			}
			row.Metadata = sql.NullString{String: string(raw), Valid: true}
		}
		rows = append(rows, row)
		codes = append(codes, rec.Code)
	}

	query := `INSERT INTO departments (organization_id, code, name, parent_id, metadata)
	          VALUES (:organization_id, :code, :name, :parent_id, :metadata)`
	var affected int64
	for start, end := 0, 0; start < len(rows); start = end {
		end = r.chunkEnd(start, len(rows))
		result, err := r.db.NamedExecContext(ctx, query, rows[start:end])
		if err != nil {
			return nil, classifyStoreError("batch insert departments", err)
		}
		n, _ := result.RowsAffected()
		affected += n
	}

	ids, err := r.selectIDs(ctx, "departments", orgID, codes)
	if err != nil {
		return nil, err
	}

	return &models.BatchResult{AffectedRows: int(affected), IDsByCode: ids}, nil
}

type positionInsertRow struct {
	OrganizationID  int64         `db:"organization_id"`
	Code            string        `db:"code"`
	Title           string        `db:"title"`
	DepartmentID    int64         `db:"department_id"`
	ReportsToID     sql.NullInt64 `db:"reports_to_id"`
	IsManager       bool          `db:"is_manager"`
	IncumbentsCount int           `db:"incumbents_count"`
	IsActive        bool          `db:"is_active"`
}

// BatchInsertPositions inserts all records in multi-row writes, chunked by
// InsertBatchSize. ReportsToCode falls back to NULL when absent from
// positionIDs.
func (r *OrgRepository) BatchInsertPositions(ctx context.Context, orgID int64, records []models.PositionRecord, departmentIDs, positionIDs map[string]int64) (*models.BatchResult, error) {
	if len(records) == 0 {
		return &models.BatchResult{IDsByCode: map[string]int64{}}, nil
	}

	rows := make([]positionInsertRow, 0, len(records))
	codes := make([]string, 0, len(records))
	for _, rec := range records {
		deptID, ok := departmentIDs[rec.DepartmentCode]
		if !ok {
			return nil, fmt.Errorf("position %s references unknown department %s", rec.Code, rec.DepartmentCode)
		}
		row := positionInsertRow{
			OrganizationID:  orgID,
			Code:            rec.Code,
			Title:           rec.Title,
			DepartmentID:    deptID,
			IsManager:       rec.IsManager,
			IncumbentsCount: rec.IncumbentsCount,
			IsActive:        rec.IsActive,
		}
		if rec.ReportsToCode != "" {
			if id, ok := positionIDs[rec.ReportsToCode]; ok {
				row.ReportsToID = sql.NullInt64{Int64: id, Valid: true}
			}
		}
		rows = append(rows, row)
		codes = append(codes, rec.Code)
	}

	query := `INSERT INTO positions (organization_id, code, title, department_id, reports_to_id, is_manager, incumbents_count, is_active)
	          VALUES (:organization_id, :code, :title, :department_id, :reports_to_id, :is_manager, :incumbents_count, :is_active)`
	var affected int64
	for start, end := 0, 0; start < len(rows); start = end {
		end = r.chunkEnd(start, len(rows))
		result, err := r.db.NamedExecContext(ctx, query, rows[start:end])
		if err != nil {
			return nil, classifyStoreError("batch insert positions", err)
		}
		n, _ := result.RowsAffected()
		affected += n
	}

	ids, err := r.selectIDs(ctx, "positions", orgID, codes)
	if err != nil {
		return nil, err
	}

	return &models.BatchResult{AffectedRows: int(affected), IDsByCode: ids}, nil
}

func (r *OrgRepository) chunkEnd(start, total int) int {
	if r.InsertBatchSize <= 0 || start+r.InsertBatchSize > total {
		return total
	}
	return start + r.InsertBatchSize
}

func (r *OrgRepository) selectIDs(ctx context.Context, table string, orgID int64, codes []string) (map[string]int64, error) {
	query, args, err := sqlx.In(
		fmt.Sprintf("SELECT code, id FROM %s WHERE organization_id = ? AND code IN (?)", table),
		orgID, codes,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build id lookup: %w", err)
	}

	var rows []codeID
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, classifyStoreError("fetch inserted ids", err)
	}

	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Code] = row.ID
	}
	return out, nil
}

func (r *OrgRepository) UpdateDepartmentByCode(ctx context.Context, orgID int64, code string, changes map[string]interface{}) (int64, error) {
	return r.updateByCode(ctx, "departments", orgID, code, changes)
}

func (r *OrgRepository) UpdatePositionByCode(ctx context.Context, orgID int64, code string, changes map[string]interface{}) (int64, error) {
	return r.updateByCode(ctx, "positions", orgID, code, changes)
}

func (r *OrgRepository) updateByCode(ctx context.Context, table string, orgID int64, code string, changes map[string]interface{}) (int64, error) {
	if len(changes) == 0 {
		return 0, nil
	}

	cols := sortedKeys(changes)
	sets := make([]string, 0, len(cols))
	args := make([]interface{}, 0, len(cols)+2)
	for _, col := range cols {
		sets = append(sets, col+" = ?")
		args = append(args, changes[col])
	}
	args = append(args, orgID, code)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE organization_id = ? AND code = ?", table, strings.Join(sets, ", "))
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, classifyStoreError("update "+table+" by code", err)
	}

	affected, _ := result.RowsAffected()
	return affected, nil
}

// ListDepartments returns a paginated department listing for one
// organization, optionally filtered by code/name search.
func (r *OrgRepository) ListDepartments(ctx context.Context, orgID int64, limit, offset int, search string) ([]models.Department, int, error) {
	where := "WHERE organization_id = ?"
	args := []interface{}{orgID}
	if search != "" {
		where += " AND (code LIKE ? OR name LIKE ?)"
		pattern := "%" + search + "%"
		args = append(args, pattern, pattern)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM departments "+where, args...); err != nil {
		return nil, 0, classifyStoreError("count departments", err)
	}

	var departments []models.Department
	query := "SELECT * FROM departments " + where + " ORDER BY code LIMIT ? OFFSET ?"
	args = append(args, limit, offset)
	if err := r.db.SelectContext(ctx, &departments, query, args...); err != nil {
		return nil, 0, classifyStoreError("list departments", err)
	}

	return departments, total, nil
}

func (r *OrgRepository) ListPositions(ctx context.Context, orgID int64, limit, offset int, search string) ([]models.Position, int, error) {
	where := "WHERE organization_id = ?"
	args := []interface{}{orgID}
	if search != "" {
		where += " AND (code LIKE ? OR title LIKE ?)"
		pattern := "%" + search + "%"
		args = append(args, pattern, pattern)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM positions "+where, args...); err != nil {
		return nil, 0, classifyStoreError("count positions", err)
	}

	var positions []models.Position
	query := "SELECT * FROM positions " + where + " ORDER BY code LIMIT ? OFFSET ?"
	args = append(args, limit, offset)
	if err := r.db.SelectContext(ctx, &positions, query, args...); err != nil {
		return nil, 0, classifyStoreError("list positions", err)
	}

	return positions, total, nil
}

// sortedKeys keeps generated UPDATE statements deterministic.
func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
