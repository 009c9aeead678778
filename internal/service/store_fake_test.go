package service

import (
	"context"
	"fmt"

	"orgstruct-web/internal/models"
)

// fakeStore is an in-memory OrgStore recording every write so tests can
// assert on batch composition and ordering.
type fakeStore struct {
	depts     map[string]int64
	positions map[string]int64
	nextID    int64

	deptBatches [][]models.DepartmentRecord
	posBatches  [][]models.PositionRecord

	deptUpdates []string
	posUpdates  []string

	// unresolvedReportsTo lists inserted positions whose reports-to code
	// was absent from positionIDs at insert time.
	unresolvedReportsTo []string

	deptInsertErr error
	posInsertErr  error
	deptUpdateErr map[string]error
	posUpdateErr  map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		depts:         map[string]int64{},
		positions:     map[string]int64{},
		nextID:        100,
		deptUpdateErr: map[string]error{},
		posUpdateErr:  map[string]error{},
	}
}

func (s *fakeStore) GetDepartmentCodes(ctx context.Context, orgID int64) (map[string]int64, error) {
	out := make(map[string]int64, len(s.depts))
	for k, v := range s.depts {
		out[k] = v
	}
	return out, nil
}

func (s *fakeStore) GetPositionCodes(ctx context.Context, orgID int64) (map[string]int64, error) {
	out := make(map[string]int64, len(s.positions))
	for k, v := range s.positions {
		out[k] = v
	}
	return out, nil
}

func (s *fakeStore) BatchInsertDepartments(ctx context.Context, orgID int64, records []models.DepartmentRecord, codeToID map[string]int64) (*models.BatchResult, error) {
	if s.deptInsertErr != nil {
		return nil, s.deptInsertErr
	}
	batch := make([]models.DepartmentRecord, len(records))
	copy(batch, records)
	s.deptBatches = append(s.deptBatches, batch)

	ids := map[string]int64{}
	for _, r := range records {
		s.nextID++
		s.depts[r.Code] = s.nextID
		ids[r.Code] = s.nextID
	}
	return &models.BatchResult{AffectedRows: len(records), IDsByCode: ids}, nil
}

func (s *fakeStore) BatchInsertPositions(ctx context.Context, orgID int64, records []models.PositionRecord, departmentIDs, positionIDs map[string]int64) (*models.BatchResult, error) {
	if s.posInsertErr != nil {
		return nil, s.posInsertErr
	}
	batch := make([]models.PositionRecord, len(records))
	copy(batch, records)
	s.posBatches = append(s.posBatches, batch)

	ids := map[string]int64{}
	for _, r := range records {
		if _, ok := departmentIDs[r.DepartmentCode]; !ok {
			return nil, fmt.Errorf("position %s references unknown department %s", r.Code, r.DepartmentCode)
		}
		if r.ReportsToCode != "" {
			if _, ok := positionIDs[r.ReportsToCode]; !ok {
				s.unresolvedReportsTo = append(s.unresolvedReportsTo, r.Code)
			}
		}
		s.nextID++
		s.positions[r.Code] = s.nextID
		ids[r.Code] = s.nextID
	}
	return &models.BatchResult{AffectedRows: len(records), IDsByCode: ids}, nil
}

func (s *fakeStore) UpdateDepartmentByCode(ctx context.Context, orgID int64, code string, changes map[string]interface{}) (int64, error) {
	if err := s.deptUpdateErr[code]; err != nil {
		return 0, err
	}
	s.deptUpdates = append(s.deptUpdates, code)
	return 1, nil
}

func (s *fakeStore) UpdatePositionByCode(ctx context.Context, orgID int64, code string, changes map[string]interface{}) (int64, error) {
	if err := s.posUpdateErr[code]; err != nil {
		return 0, err
	}
	s.posUpdates = append(s.posUpdates, code)
	return 1, nil
}
