package service

import "orgstruct-web/internal/models"

// Classify decides create vs update for one code against the code set
// fetched from the store. Pure function; the executor does not re-check
// mid-run except where the hierarchy creator extends the map itself.
func Classify(code string, existing map[string]int64) models.OperationType {
	if _, ok := existing[code]; ok {
		return models.OperationUpdate
	}
	return models.OperationCreate
}

// ClassifyDepartments stamps the operation on every department record.
func ClassifyDepartments(records []models.DepartmentRecord, existing map[string]int64) {
	for i := range records {
		records[i].Operation = Classify(records[i].Code, existing)
	}
}

// ClassifyPositions stamps the operation on every position record.
func ClassifyPositions(records []models.PositionRecord, existing map[string]int64) {
	for i := range records {
		records[i].Operation = Classify(records[i].Code, existing)
	}
}
