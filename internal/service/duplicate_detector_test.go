package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orgstruct-web/internal/models"
)

func TestDetectDuplicatesNoDuplicates(t *testing.T) {
	detector := NewDuplicateDetector()

	result := detector.DetectDuplicates(models.ImportRows{
		Departments: []models.DepartmentRecord{
			{Code: "ENG", Name: "Engineering", SourceRow: 2},
			{Code: "OPS", Name: "Operations", SourceRow: 3},
		},
	})

	assert.False(t, result.HasDuplicates)
	assert.Empty(t, result.Departments.Groups)
	assert.Zero(t, result.Departments.TotalDuplicates)
}

func TestDetectDuplicatesIdenticalRowsAutoResolve(t *testing.T) {
	detector := NewDuplicateDetector()

	result := detector.DetectDuplicates(models.ImportRows{
		Departments: []models.DepartmentRecord{
			{Code: "ENG", Name: "Engineering", ParentCode: "CORP", SourceRow: 2},
			{Code: "ENG", Name: "Engineering", ParentCode: "CORP", SourceRow: 5},
		},
	})

	require.Len(t, result.Departments.Groups, 1)
	group := result.Departments.Groups[0]
	assert.Equal(t, "ENG", group.Key)
	assert.Equal(t, models.StrategyKeepFirst, group.RecommendedStrategy)
	assert.True(t, group.IsAutoResolvable)
	assert.Equal(t, 1, result.Departments.AutoResolvable)
	assert.Equal(t, 1, result.Departments.TotalDuplicates)
	assert.Equal(t, 2, result.Departments.TotalAffectedRows)
}

func TestDetectDuplicatesComplementaryRowsRecommendMerge(t *testing.T) {
	detector := NewDuplicateDetector()

	result := detector.DetectDuplicates(models.ImportRows{
		Departments: []models.DepartmentRecord{
			{Code: "ENG", Name: "Engineering", ParentCode: "CORP", SourceRow: 2},
			{Code: "ENG", Name: "Engineering", Metadata: map[string]string{"location": "HQ"}, SourceRow: 3},
		},
	})

	require.Len(t, result.Departments.Groups, 1)
	group := result.Departments.Groups[0]
	assert.Equal(t, models.StrategyMerge, group.RecommendedStrategy)
	assert.False(t, group.IsAutoResolvable)
}

func TestDetectDuplicatesConflictingRowsRecommendKeepLast(t *testing.T) {
	detector := NewDuplicateDetector()

	result := detector.DetectDuplicates(models.ImportRows{
		Departments: []models.DepartmentRecord{
			{Code: "ENG", Name: "Engineering", ParentCode: "CORP", SourceRow: 2},
			{Code: "ENG", Name: "Engineering", ParentCode: "OPS", SourceRow: 3},
		},
	})

	require.Len(t, result.Departments.Groups, 1)
	assert.Equal(t, models.StrategyKeepLast, result.Departments.Groups[0].RecommendedStrategy)
}

func TestDetectDuplicatesThreeCandidates(t *testing.T) {
	detector := NewDuplicateDetector()

	result := detector.DetectDuplicates(models.ImportRows{
		Positions: []models.PositionRecord{
			{Code: "DEV", Title: "Developer", DepartmentCode: "ENG", SourceRow: 2},
			{Code: "DEV", Title: "Developer", DepartmentCode: "ENG", ReportsToCode: "LEAD", IncumbentsCount: 4, SourceRow: 3},
			{Code: "DEV", Title: "Developer", DepartmentCode: "ENG", SourceRow: 4},
		},
	})

	require.Len(t, result.Positions.Groups, 1)
	group := result.Positions.Groups[0]
	assert.Equal(t, 2, result.Positions.TotalDuplicates)
	assert.Equal(t, 3, result.Positions.TotalAffectedRows)

	// The most complete candidate ranks first.
	assert.Equal(t, 3, group.Candidates[0].SourceRow)
}

func TestDetectDuplicatesPositionsComplementaryRecommendMerge(t *testing.T) {
	detector := NewDuplicateDetector()

	// A zero incumbents count is what a blank cell parses to, so it must
	// not conflict with the populated count on the other row.
	result := detector.DetectDuplicates(models.ImportRows{
		Positions: []models.PositionRecord{
			{Code: "DEV", Title: "Developer", DepartmentCode: "ENG", ReportsToCode: "LEAD", SourceRow: 2},
			{Code: "DEV", Title: "Developer", DepartmentCode: "ENG", IncumbentsCount: 3, SourceRow: 3},
		},
	})

	require.Len(t, result.Positions.Groups, 1)
	group := result.Positions.Groups[0]
	assert.Equal(t, models.StrategyMerge, group.RecommendedStrategy)
	assert.False(t, group.IsAutoResolvable)
}

func TestDetectDuplicatesPositionsConflictingCountsRecommendKeepLast(t *testing.T) {
	detector := NewDuplicateDetector()

	result := detector.DetectDuplicates(models.ImportRows{
		Positions: []models.PositionRecord{
			{Code: "DEV", Title: "Developer", DepartmentCode: "ENG", IncumbentsCount: 3, SourceRow: 2},
			{Code: "DEV", Title: "Developer", DepartmentCode: "ENG", IncumbentsCount: 4, SourceRow: 3},
		},
	})

	require.Len(t, result.Positions.Groups, 1)
	assert.Equal(t, models.StrategyKeepLast, result.Positions.Groups[0].RecommendedStrategy)
}

func TestApplyResolutionsDefaultsToRecommendation(t *testing.T) {
	detector := NewDuplicateDetector()

	rows := models.ImportRows{
		Departments: []models.DepartmentRecord{
			{Code: "ENG", Name: "Engineering", SourceRow: 2},
			{Code: "ENG", Name: "Engineering", SourceRow: 3},
			{Code: "OPS", Name: "Operations", SourceRow: 4},
		},
	}

	// No explicit resolutions: identical rows collapse to the first.
	out := detector.ApplyResolutions(rows, nil)
	require.Len(t, out.Departments, 2)
	assert.Equal(t, 2, out.Departments[0].SourceRow)
	assert.Equal(t, "OPS", out.Departments[1].Code)
}

func TestApplyResolutionsKeepLast(t *testing.T) {
	detector := NewDuplicateDetector()

	rows := models.ImportRows{
		Departments: []models.DepartmentRecord{
			{Code: "ENG", Name: "Engineering", ParentCode: "CORP", SourceRow: 2},
			{Code: "ENG", Name: "Engineering", ParentCode: "OPS", SourceRow: 5},
		},
	}

	out := detector.ApplyResolutions(rows, []models.DuplicateResolution{
		{Sheet: "departments", Key: "ENG", Strategy: models.StrategyKeepLast},
	})
	require.Len(t, out.Departments, 1)
	assert.Equal(t, 5, out.Departments[0].SourceRow)
	assert.Equal(t, "OPS", out.Departments[0].ParentCode)
}

func TestApplyResolutionsMergeCombinesFields(t *testing.T) {
	detector := NewDuplicateDetector()

	rows := models.ImportRows{
		Departments: []models.DepartmentRecord{
			{Code: "ENG", Name: "Engineering", ParentCode: "CORP", SourceRow: 2},
			{Code: "ENG", Name: "Engineering", Metadata: map[string]string{"location": "HQ"}, SourceRow: 3},
		},
	}

	out := detector.ApplyResolutions(rows, []models.DuplicateResolution{
		{Sheet: "departments", Key: "ENG", Strategy: models.StrategyMerge},
	})
	require.Len(t, out.Departments, 1)
	merged := out.Departments[0]
	assert.Equal(t, "CORP", merged.ParentCode)
	assert.Equal(t, "HQ", merged.Metadata["location"])
}

func TestApplyResolutionsMergePositionsFillsBlankFields(t *testing.T) {
	detector := NewDuplicateDetector()

	rows := models.ImportRows{
		Positions: []models.PositionRecord{
			{Code: "DEV", Title: "Developer", DepartmentCode: "ENG", ReportsToCode: "LEAD", SourceRow: 2},
			{Code: "DEV", Title: "Developer", DepartmentCode: "ENG", IncumbentsCount: 3, SourceRow: 3},
		},
	}

	out := detector.ApplyResolutions(rows, []models.DuplicateResolution{
		{Sheet: "positions", Key: "DEV", Strategy: models.StrategyMerge},
	})
	require.Len(t, out.Positions, 1)
	merged := out.Positions[0]
	assert.Equal(t, "LEAD", merged.ReportsToCode)
	assert.Equal(t, 3, merged.IncumbentsCount, "zero count reads as unpopulated and takes the filled value")
}

func TestApplyResolutionsKeepRowsSubset(t *testing.T) {
	detector := NewDuplicateDetector()

	rows := models.ImportRows{
		Positions: []models.PositionRecord{
			{Code: "DEV", Title: "Developer", DepartmentCode: "ENG", SourceRow: 2},
			{Code: "DEV", Title: "Senior Developer", DepartmentCode: "ENG", SourceRow: 3},
		},
	}

	out := detector.ApplyResolutions(rows, []models.DuplicateResolution{
		{Sheet: "positions", Key: "DEV", Strategy: models.StrategyKeepFirst, KeepRows: []int{3}},
	})
	require.Len(t, out.Positions, 1)
	assert.Equal(t, "Senior Developer", out.Positions[0].Title)
}

func TestApplyResolutionsKeepAllPassesRowsThrough(t *testing.T) {
	detector := NewDuplicateDetector()

	rows := models.ImportRows{
		Departments: []models.DepartmentRecord{
			{Code: "ENG", Name: "Engineering", SourceRow: 2},
			{Code: "ENG", Name: "Engineering Duplicate", SourceRow: 3},
		},
	}

	out := detector.ApplyResolutions(rows, []models.DuplicateResolution{
		{Sheet: "departments", Key: "ENG", Strategy: models.StrategyKeepAll},
	})
	assert.Len(t, out.Departments, 2)
}

func TestApplyResolutionsPreservesInput(t *testing.T) {
	detector := NewDuplicateDetector()

	rows := models.ImportRows{
		Departments: []models.DepartmentRecord{
			{Code: "ENG", Name: "Engineering", SourceRow: 2},
			{Code: "ENG", Name: "Engineering", SourceRow: 3},
		},
	}

	_ = detector.ApplyResolutions(rows, nil)
	assert.Len(t, rows.Departments, 2, "input rows are not mutated")
}
