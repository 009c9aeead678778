package service

import (
	"sort"

	"orgstruct-web/internal/models"
)

// DuplicateDetector scans parsed workbook rows for repeated natural keys
// and recommends a resolution per group. It is purely advisory: input is
// never mutated and a result is always produced.
type DuplicateDetector struct{}

func NewDuplicateDetector() *DuplicateDetector {
	return &DuplicateDetector{}
}

// DetectDuplicates groups rows by code per sheet. A code appearing three
// times yields one group with three candidates.
func (d *DuplicateDetector) DetectDuplicates(rows models.ImportRows) *models.DetectionResult {
	result := &models.DetectionResult{
		Departments: d.detectDepartmentDuplicates(rows.Departments),
		Positions:   d.detectPositionDuplicates(rows.Positions),
	}
	result.HasDuplicates = len(result.Departments.Groups) > 0 || len(result.Positions.Groups) > 0
	return result
}

func (d *DuplicateDetector) detectDepartmentDuplicates(records []models.DepartmentRecord) models.DepartmentDuplicates {
	out := models.DepartmentDuplicates{Groups: []models.DepartmentDuplicateGroup{}}

	byCode := map[string][]models.DepartmentRecord{}
	var order []string
	for _, r := range records {
		if _, seen := byCode[r.Code]; !seen {
			order = append(order, r.Code)
		}
		byCode[r.Code] = append(byCode[r.Code], r)
	}

	for _, code := range order {
		candidates := byCode[code]
		if len(candidates) < 2 {
			continue
		}

		ranked := make([]models.DepartmentRecord, len(candidates))
		copy(ranked, candidates)
		sort.SliceStable(ranked, func(i, j int) bool {
			return departmentScore(ranked[i]) > departmentScore(ranked[j])
		})

		group := models.DepartmentDuplicateGroup{Key: code, Candidates: ranked}
		switch {
		case allDepartmentsIdentical(candidates):
			group.RecommendedStrategy = models.StrategyKeepFirst
			group.IsAutoResolvable = true
			out.AutoResolvable++
		case departmentsMergeable(candidates):
			group.RecommendedStrategy = models.StrategyMerge
		default:
			group.RecommendedStrategy = models.StrategyKeepLast
		}

		out.Groups = append(out.Groups, group)
		out.TotalDuplicates += len(candidates) - 1
		out.TotalAffectedRows += len(candidates)
	}

	return out
}

func (d *DuplicateDetector) detectPositionDuplicates(records []models.PositionRecord) models.PositionDuplicates {
	out := models.PositionDuplicates{Groups: []models.PositionDuplicateGroup{}}

	byCode := map[string][]models.PositionRecord{}
	var order []string
	for _, r := range records {
		if _, seen := byCode[r.Code]; !seen {
			order = append(order, r.Code)
		}
		byCode[r.Code] = append(byCode[r.Code], r)
	}

	for _, code := range order {
		candidates := byCode[code]
		if len(candidates) < 2 {
			continue
		}

		ranked := make([]models.PositionRecord, len(candidates))
		copy(ranked, candidates)
		sort.SliceStable(ranked, func(i, j int) bool {
			return positionScore(ranked[i]) > positionScore(ranked[j])
		})

		group := models.PositionDuplicateGroup{Key: code, Candidates: ranked}
		switch {
		case allPositionsIdentical(candidates):
			group.RecommendedStrategy = models.StrategyKeepFirst
			group.IsAutoResolvable = true
			out.AutoResolvable++
		case positionsMergeable(candidates):
			group.RecommendedStrategy = models.StrategyMerge
		default:
			group.RecommendedStrategy = models.StrategyKeepLast
		}

		out.Groups = append(out.Groups, group)
		out.TotalDuplicates += len(candidates) - 1
		out.TotalAffectedRows += len(candidates)
	}

	return out
}

// ApplyResolutions collapses duplicate groups so that at most one row per
// code remains. Groups without an explicit resolution fall back to their
// recommended strategy, so unresolved duplicates never reach the executor.
// A keep_all resolution is honored verbatim; the caller owns the fallout.
func (d *DuplicateDetector) ApplyResolutions(rows models.ImportRows, resolutions []models.DuplicateResolution) models.ImportRows {
	detection := d.DetectDuplicates(rows)

	byKey := map[string]models.DuplicateResolution{}
	for _, res := range resolutions {
		byKey[res.Sheet+"/"+res.Key] = res
	}

	out := models.ImportRows{}

	deptGroups := map[string]models.DepartmentDuplicateGroup{}
	for _, g := range detection.Departments.Groups {
		deptGroups[g.Key] = g
	}
	deptEmitted := map[string]bool{}
	for _, r := range rows.Departments {
		group, isDup := deptGroups[r.Code]
		if !isDup {
			out.Departments = append(out.Departments, r)
			continue
		}

		res, ok := byKey["departments/"+r.Code]
		if !ok {
			res = models.DuplicateResolution{Strategy: group.RecommendedStrategy}
		}
		if res.Strategy == models.StrategyKeepAll {
			out.Departments = append(out.Departments, r)
			continue
		}
		if len(res.KeepRows) > 0 {
			if containsRow(res.KeepRows, r.SourceRow) {
				out.Departments = append(out.Departments, r)
			}
			continue
		}
		if deptEmitted[r.Code] {
			continue
		}
		deptEmitted[r.Code] = true

		switch res.Strategy {
		case models.StrategyMerge:
			if res.MergedDepartment != nil {
				out.Departments = append(out.Departments, *res.MergedDepartment)
			} else {
				out.Departments = append(out.Departments, mergeDepartments(group.Candidates))
			}
		case models.StrategyKeepLast:
			out.Departments = append(out.Departments, lastDepartmentByRow(group.Candidates))
		default: // keep_first
			out.Departments = append(out.Departments, firstDepartmentByRow(group.Candidates))
		}
	}

	posGroups := map[string]models.PositionDuplicateGroup{}
	for _, g := range detection.Positions.Groups {
		posGroups[g.Key] = g
	}
	posEmitted := map[string]bool{}
	for _, r := range rows.Positions {
		group, isDup := posGroups[r.Code]
		if !isDup {
			out.Positions = append(out.Positions, r)
			continue
		}

		res, ok := byKey["positions/"+r.Code]
		if !ok {
			res = models.DuplicateResolution{Strategy: group.RecommendedStrategy}
		}
		if res.Strategy == models.StrategyKeepAll {
			out.Positions = append(out.Positions, r)
			continue
		}
		if len(res.KeepRows) > 0 {
			if containsRow(res.KeepRows, r.SourceRow) {
				out.Positions = append(out.Positions, r)
			}
			continue
		}
		if posEmitted[r.Code] {
			continue
		}
		posEmitted[r.Code] = true

		switch res.Strategy {
		case models.StrategyMerge:
			if res.MergedPosition != nil {
				out.Positions = append(out.Positions, *res.MergedPosition)
			} else {
				out.Positions = append(out.Positions, mergePositions(group.Candidates))
			}
		case models.StrategyKeepLast:
			out.Positions = append(out.Positions, lastPositionByRow(group.Candidates))
		default: // keep_first
			out.Positions = append(out.Positions, firstPositionByRow(group.Candidates))
		}
	}

	return out
}

// departmentScore counts populated optional fields; metadata counts one
// per key so richer rows rank higher.
func departmentScore(r models.DepartmentRecord) int {
	score := 0
	if r.ParentCode != "" {
		score++
	}
	score += len(r.Metadata)
	return score
}

// positionScore counts populated optional fields. A zero incumbents count
// is what a blank cell parses to, so zero counts as unpopulated.
func positionScore(r models.PositionRecord) int {
	score := 0
	if r.ReportsToCode != "" {
		score++
	}
	if r.IncumbentsCount > 0 {
		score++
	}
	return score
}

func departmentsEqual(a, b models.DepartmentRecord) bool {
	if a.Code != b.Code || a.Name != b.Name || a.ParentCode != b.ParentCode {
		return false
	}
	if len(a.Metadata) != len(b.Metadata) {
		return false
	}
	for k, v := range a.Metadata {
		if b.Metadata[k] != v {
			return false
		}
	}
	return true
}

func positionsEqual(a, b models.PositionRecord) bool {
	return a.Code == b.Code &&
		a.Title == b.Title &&
		a.DepartmentCode == b.DepartmentCode &&
		a.ReportsToCode == b.ReportsToCode &&
		a.IsManager == b.IsManager &&
		a.IncumbentsCount == b.IncumbentsCount &&
		a.IsActive == b.IsActive
}

func allDepartmentsIdentical(candidates []models.DepartmentRecord) bool {
	for _, c := range candidates[1:] {
		if !departmentsEqual(candidates[0], c) {
			return false
		}
	}
	return true
}

func allPositionsIdentical(candidates []models.PositionRecord) bool {
	for _, c := range candidates[1:] {
		if !positionsEqual(candidates[0], c) {
			return false
		}
	}
	return true
}

// departmentsMergeable reports whether candidates only differ by presence:
// no field carries two distinct non-empty values.
func departmentsMergeable(candidates []models.DepartmentRecord) bool {
	if conflictingString(candidates, func(r models.DepartmentRecord) string { return r.Name }) {
		return false
	}
	if conflictingString(candidates, func(r models.DepartmentRecord) string { return r.ParentCode }) {
		return false
	}
	seen := map[string]string{}
	for _, c := range candidates {
		for k, v := range c.Metadata {
			if v == "" {
				continue
			}
			if prev, ok := seen[k]; ok && prev != v {
				return false
			}
			seen[k] = v
		}
	}
	return true
}

func positionsMergeable(candidates []models.PositionRecord) bool {
	if conflictingPosString(candidates, func(r models.PositionRecord) string { return r.Title }) {
		return false
	}
	if conflictingPosString(candidates, func(r models.PositionRecord) string { return r.DepartmentCode }) {
		return false
	}
	if conflictingPosString(candidates, func(r models.PositionRecord) string { return r.ReportsToCode }) {
		return false
	}
	count := -1
	for _, c := range candidates {
		if c.IncumbentsCount == 0 {
			continue
		}
		if count >= 0 && c.IncumbentsCount != count {
			return false
		}
		count = c.IncumbentsCount
	}
	for _, c := range candidates[1:] {
		if c.IsManager != candidates[0].IsManager || c.IsActive != candidates[0].IsActive {
			return false
		}
	}
	return true
}

func conflictingString(candidates []models.DepartmentRecord, field func(models.DepartmentRecord) string) bool {
	value := ""
	for _, c := range candidates {
		v := field(c)
		if v == "" {
			continue
		}
		if value != "" && v != value {
			return true
		}
		value = v
	}
	return false
}

func conflictingPosString(candidates []models.PositionRecord, field func(models.PositionRecord) string) bool {
	value := ""
	for _, c := range candidates {
		v := field(c)
		if v == "" {
			continue
		}
		if value != "" && v != value {
			return true
		}
		value = v
	}
	return false
}

// mergeDepartments builds the field-wise union, preferring the first
// non-empty value scanning candidates from highest completeness rank.
// Candidates must already be ranked.
func mergeDepartments(ranked []models.DepartmentRecord) models.DepartmentRecord {
	merged := ranked[0]
	for _, c := range ranked[1:] {
		if merged.Name == "" {
			merged.Name = c.Name
		}
		if merged.ParentCode == "" {
			merged.ParentCode = c.ParentCode
		}
		for k, v := range c.Metadata {
			if v == "" {
				continue
			}
			if merged.Metadata == nil {
				merged.Metadata = map[string]string{}
			}
			if _, ok := merged.Metadata[k]; !ok {
				merged.Metadata[k] = v
			}
		}
	}
	return merged
}

func mergePositions(ranked []models.PositionRecord) models.PositionRecord {
	merged := ranked[0]
	for _, c := range ranked[1:] {
		if merged.Title == "" {
			merged.Title = c.Title
		}
		if merged.DepartmentCode == "" {
			merged.DepartmentCode = c.DepartmentCode
		}
		if merged.ReportsToCode == "" {
			merged.ReportsToCode = c.ReportsToCode
		}
		if merged.IncumbentsCount == 0 {
			merged.IncumbentsCount = c.IncumbentsCount
		}
	}
	return merged
}

func firstDepartmentByRow(candidates []models.DepartmentRecord) models.DepartmentRecord {
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.SourceRow < best.SourceRow {
			best = c
		}
	}
	return best
}

func lastDepartmentByRow(candidates []models.DepartmentRecord) models.DepartmentRecord {
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.SourceRow > best.SourceRow {
			best = c
		}
	}
	return best
}

func firstPositionByRow(candidates []models.PositionRecord) models.PositionRecord {
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.SourceRow < best.SourceRow {
			best = c
		}
	}
	return best
}

func lastPositionByRow(candidates []models.PositionRecord) models.PositionRecord {
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.SourceRow > best.SourceRow {
			best = c
		}
	}
	return best
}

func containsRow(rows []int, row int) bool {
	for _, r := range rows {
		if r == row {
			return true
		}
	}
	return false
}
