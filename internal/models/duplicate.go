package models

// ResolutionStrategy is the recommended or chosen way to collapse a
// duplicate group down to a single row.
type ResolutionStrategy string

const (
	StrategyKeepFirst ResolutionStrategy = "keep_first"
	StrategyKeepLast  ResolutionStrategy = "keep_last"
	StrategyMerge     ResolutionStrategy = "merge"
	StrategyKeepAll   ResolutionStrategy = "keep_all"
)

// DepartmentDuplicateGroup holds all department rows sharing one code.
// Candidates are ordered by completeness score, most complete first;
// ties keep the original row order.
type DepartmentDuplicateGroup struct {
	Key                 string             `json:"key"`
	Candidates          []DepartmentRecord `json:"candidates"`
	RecommendedStrategy ResolutionStrategy `json:"recommended_strategy"`
	IsAutoResolvable    bool               `json:"is_auto_resolvable"`
}

// PositionDuplicateGroup holds all position rows sharing one code.
type PositionDuplicateGroup struct {
	Key                 string             `json:"key"`
	Candidates          []PositionRecord   `json:"candidates"`
	RecommendedStrategy ResolutionStrategy `json:"recommended_strategy"`
	IsAutoResolvable    bool               `json:"is_auto_resolvable"`
}

// DepartmentDuplicates summarizes duplicate detection for the department
// sheet. TotalDuplicates counts the extra rows beyond one kept row per
// group; TotalAffectedRows counts every row in a group.
type DepartmentDuplicates struct {
	Groups            []DepartmentDuplicateGroup `json:"groups"`
	TotalDuplicates   int                        `json:"total_duplicates"`
	TotalAffectedRows int                        `json:"total_affected_rows"`
	AutoResolvable    int                        `json:"auto_resolvable"`
}

// PositionDuplicates summarizes duplicate detection for the position sheet.
type PositionDuplicates struct {
	Groups            []PositionDuplicateGroup `json:"groups"`
	TotalDuplicates   int                      `json:"total_duplicates"`
	TotalAffectedRows int                      `json:"total_affected_rows"`
	AutoResolvable    int                      `json:"auto_resolvable"`
}

// DetectionResult is the advisory output shown to the user before an
// import is executed. It never fails and never mutates the parsed rows.
type DetectionResult struct {
	Departments   DepartmentDuplicates `json:"departments"`
	Positions     PositionDuplicates   `json:"positions"`
	HasDuplicates bool                 `json:"has_duplicates"`
}

// DuplicateResolution is the user- or auto-selected outcome for one group.
// MergedDepartment/MergedPosition are set only for the merge strategy.
type DuplicateResolution struct {
	Sheet            string             `json:"sheet"` // "departments" or "positions"
	Key              string             `json:"key"`
	Strategy         ResolutionStrategy `json:"strategy"`
	KeepRows         []int              `json:"keep_rows"`
	RemoveRows       []int              `json:"remove_rows"`
	MergedDepartment *DepartmentRecord  `json:"merged_department,omitempty"`
	MergedPosition   *PositionRecord    `json:"merged_position,omitempty"`
}
