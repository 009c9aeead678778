package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"orgstruct-web/internal/models"
)

const (
	departmentSheet = "Departments"
	positionSheet   = "Positions"
)

var departmentHeaders = []string{"Code", "Name", "Parent Code", "Description", "Location"}

var positionHeaders = []string{"Code", "Title", "Department Code", "Reports To", "Is Manager", "Incumbents", "Is Active"}

type ExcelService struct{}

func NewExcelService() *ExcelService {
	return &ExcelService{}
}

// ParseOrgWorkbook reads the Departments and Positions sheets of an
// uploaded workbook. Rows that fail required-field validation are
// collected as errors instead of aborting the parse, so the caller can
// produce a full error report.
func (s *ExcelService) ParseOrgWorkbook(filePath string) (*models.WorkbookParseResult, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	result := &models.WorkbookParseResult{
		ValidationErrors: []models.RowError{},
		ImportTime:       time.Now(),
	}

	if err := s.parseDepartmentSheet(f, result); err != nil {
		return nil, err
	}
	if err := s.parsePositionSheet(f, result); err != nil {
		return nil, err
	}

	result.ValidCount = len(result.Rows.Departments) + len(result.Rows.Positions)
	result.ErrorCount = len(result.ValidationErrors)

	return result, nil
}

func (s *ExcelService) parseDepartmentSheet(f *excelize.File, result *models.WorkbookParseResult) error {
	rows, err := f.GetRows(departmentSheet)
	if err != nil {
		return fmt.Errorf("workbook is missing the %q sheet: %w", departmentSheet, err)
	}
	if len(rows) < 1 {
		return fmt.Errorf("sheet %q has no header row", departmentSheet)
	}
	if len(rows[0]) < 2 {
		return fmt.Errorf("invalid header format on sheet %q. Expected columns: %v", departmentSheet, departmentHeaders)
	}

	for i := 1; i < len(rows); i++ {
		row := rows[i]

		// Skip completely empty rows
		if len(row) == 0 || row[0] == "" {
			continue
		}

		sourceRow := i + 1
		code := strings.TrimSpace(getCellValue(row, 0))
		name := strings.TrimSpace(getCellValue(row, 1))
		parentCode := strings.TrimSpace(getCellValue(row, 2))
		description := strings.TrimSpace(getCellValue(row, 3))
		location := strings.TrimSpace(getCellValue(row, 4))

		rowErrors := validateDepartmentRow(sourceRow, code, name, parentCode)
		if len(rowErrors) > 0 {
			result.ValidationErrors = append(result.ValidationErrors, rowErrors...)
			result.TotalRows++
			continue
		}

		record := models.DepartmentRecord{
			Code:       code,
			Name:       name,
			ParentCode: parentCode,
			SourceRow:  sourceRow,
		}
		if description != "" || location != "" {
			record.Metadata = map[string]string{}
			if description != "" {
				record.Metadata["description"] = description
			}
			if location != "" {
				record.Metadata["location"] = location
			}
		}

		result.Rows.Departments = append(result.Rows.Departments, record)
		result.TotalRows++
	}

	return nil
}

func (s *ExcelService) parsePositionSheet(f *excelize.File, result *models.WorkbookParseResult) error {
	rows, err := f.GetRows(positionSheet)
	if err != nil {
		// A departments-only workbook is valid input.
		return nil
	}
	if len(rows) < 1 {
		return nil
	}
	if len(rows[0]) < 3 {
		return fmt.Errorf("invalid header format on sheet %q. Expected columns: %v", positionSheet, positionHeaders)
	}

	for i := 1; i < len(rows); i++ {
		row := rows[i]

		if len(row) == 0 || row[0] == "" {
			continue
		}

		sourceRow := i + 1
		code := strings.TrimSpace(getCellValue(row, 0))
		title := strings.TrimSpace(getCellValue(row, 1))
		departmentCode := strings.TrimSpace(getCellValue(row, 2))
		reportsTo := strings.TrimSpace(getCellValue(row, 3))
		isManagerStr := strings.TrimSpace(getCellValue(row, 4))
		incumbentsStr := strings.TrimSpace(getCellValue(row, 5))
		isActiveStr := strings.TrimSpace(getCellValue(row, 6))

		rowErrors := validatePositionRow(sourceRow, code, title, departmentCode, isManagerStr, incumbentsStr, isActiveStr)
		if len(rowErrors) > 0 {
			result.ValidationErrors = append(result.ValidationErrors, rowErrors...)
			result.TotalRows++
			continue
		}

		incumbents := 0
		if incumbentsStr != "" {
			incumbents, _ = strconv.Atoi(incumbentsStr)
		}

		isActive := true
		if isActiveStr != "" {
			isActive = parseBoolValue(isActiveStr)
		}

		result.Rows.Positions = append(result.Rows.Positions, models.PositionRecord{
			Code:            code,
			Title:           title,
			DepartmentCode:  departmentCode,
			ReportsToCode:   reportsTo,
			IsManager:       parseBoolValue(isManagerStr),
			IncumbentsCount: incumbents,
			IsActive:        isActive,
			SourceRow:       sourceRow,
		})
		result.TotalRows++
	}

	return nil
}

func validateDepartmentRow(rowNum int, code, name, parentCode string) []models.RowError {
	var errors []models.RowError

	if code == "" {
		errors = append(errors, models.RowError{
			Sheet: departmentSheet, Row: rowNum, Code: code,
			Field: "Code", Message: "Code is required", Value: code,
		})
	} else if len(code) > 50 {
		errors = append(errors, models.RowError{
			Sheet: departmentSheet, Row: rowNum, Code: code,
			Field: "Code", Message: "Code cannot exceed 50 characters", Value: code,
		})
	}

	if name == "" {
		errors = append(errors, models.RowError{
			Sheet: departmentSheet, Row: rowNum, Code: code,
			Field: "Name", Message: "Name is required", Value: name,
		})
	} else if len(name) > 200 {
		errors = append(errors, models.RowError{
			Sheet: departmentSheet, Row: rowNum, Code: code,
			Field: "Name", Message: "Name cannot exceed 200 characters", Value: name,
		})
	}

	if parentCode == code && code != "" {
		errors = append(errors, models.RowError{
			Sheet: departmentSheet, Row: rowNum, Code: code,
			Field: "Parent Code", Message: "Department cannot be its own parent", Value: parentCode,
		})
	}

	return errors
}

func validatePositionRow(rowNum int, code, title, departmentCode, isManagerStr, incumbentsStr, isActiveStr string) []models.RowError {
	var errors []models.RowError

	if code == "" {
		errors = append(errors, models.RowError{
			Sheet: positionSheet, Row: rowNum, Code: code,
			Field: "Code", Message: "Code is required", Value: code,
		})
	} else if len(code) > 50 {
		errors = append(errors, models.RowError{
			Sheet: positionSheet, Row: rowNum, Code: code,
			Field: "Code", Message: "Code cannot exceed 50 characters", Value: code,
		})
	}

	if title == "" {
		errors = append(errors, models.RowError{
			Sheet: positionSheet, Row: rowNum, Code: code,
			Field: "Title", Message: "Title is required", Value: title,
		})
	}

	if departmentCode == "" {
		errors = append(errors, models.RowError{
			Sheet: positionSheet, Row: rowNum, Code: code,
			Field: "Department Code", Message: "Department Code is required", Value: departmentCode,
		})
	}

	if isManagerStr != "" && !isBooleanLike(isManagerStr) {
		errors = append(errors, models.RowError{
			Sheet: positionSheet, Row: rowNum, Code: code,
			Field: "Is Manager", Message: "Is Manager must be Yes/No, Y/N, 1/0, or true/false", Value: isManagerStr,
		})
	}

	if incumbentsStr != "" {
		if n, err := strconv.Atoi(incumbentsStr); err != nil || n < 0 {
			errors = append(errors, models.RowError{
				Sheet: positionSheet, Row: rowNum, Code: code,
				Field: "Incumbents", Message: "Incumbents must be a non-negative whole number", Value: incumbentsStr,
			})
		}
	}

	if isActiveStr != "" && !isBooleanLike(isActiveStr) {
		errors = append(errors, models.RowError{
			Sheet: positionSheet, Row: rowNum, Code: code,
			Field: "Is Active", Message: "Is Active must be Yes/No, Y/N, 1/0, or true/false", Value: isActiveStr,
		})
	}

	return errors
}

// GenerateOrgTemplate creates the template workbook users fill in for an
// organization-structure import.
func (s *ExcelService) GenerateOrgTemplate(outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()

	deptIndex, err := f.NewSheet(departmentSheet)
	if err != nil {
		return err
	}
	if _, err := f.NewSheet(positionSheet); err != nil {
		return err
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})

	for i, header := range departmentHeaders {
		cell := fmt.Sprintf("%s1", getColumnName(i))
		f.SetCellValue(departmentSheet, cell, header)
	}
	f.SetCellStyle(departmentSheet, "A1", fmt.Sprintf("%s1", getColumnName(len(departmentHeaders)-1)), headerStyle)

	deptSamples := [][]interface{}{
		{"ENG", "Engineering", "", "Product development", "HQ"},
		{"ENG-BE", "Backend", "ENG", "Server teams", "HQ"},
		{"ENG-FE", "Frontend", "ENG", "", "Remote"},
		{"OPS", "Operations", "", "", ""},
	}
	for rowIdx, rowData := range deptSamples {
		for colIdx, value := range rowData {
			cell := fmt.Sprintf("%s%d", getColumnName(colIdx), rowIdx+2)
			f.SetCellValue(departmentSheet, cell, value)
		}
	}

	for i, header := range positionHeaders {
		cell := fmt.Sprintf("%s1", getColumnName(i))
		f.SetCellValue(positionSheet, cell, header)
	}
	f.SetCellStyle(positionSheet, "A1", fmt.Sprintf("%s1", getColumnName(len(positionHeaders)-1)), headerStyle)

	posSamples := [][]interface{}{
		{"ENG-LEAD", "Engineering Lead", "ENG", "", "Yes", 1, "Yes"},
		{"BE-DEV", "Backend Developer", "ENG-BE", "ENG-LEAD", "No", 4, "Yes"},
		{"FE-DEV", "Frontend Developer", "ENG-FE", "ENG-LEAD", "No", 3, "Yes"},
	}
	for rowIdx, rowData := range posSamples {
		for colIdx, value := range rowData {
			cell := fmt.Sprintf("%s%d", getColumnName(colIdx), rowIdx+2)
			f.SetCellValue(positionSheet, cell, value)
		}
	}

	deptWidths := []float64{15, 30, 15, 35, 15}
	for i, width := range deptWidths {
		colName := getColumnName(i)
		f.SetColWidth(departmentSheet, colName, colName, width)
	}
	posWidths := []float64{15, 30, 18, 15, 12, 12, 12}
	for i, width := range posWidths {
		colName := getColumnName(i)
		f.SetColWidth(positionSheet, colName, colName, width)
	}

	// Instructions live on their own sheet so the data sheets stay
	// parseable as-is.
	instructionsSheet := "Instructions"
	if _, err := f.NewSheet(instructionsSheet); err != nil {
		return err
	}
	instructions := []string{
		"Instructions:",
		"1. Code: unique identifier per department/position within the organization",
		"2. Parent Code / Reports To: reference other rows by Code, not by name",
		"3. Parents may appear anywhere in the file; ordering does not matter",
		"4. Rows whose Code already exists are updated instead of created",
		"",
		"Note: Do not modify the header rows. Fill data starting from row 2.",
	}
	for i, instruction := range instructions {
		f.SetCellValue(instructionsSheet, fmt.Sprintf("A%d", i+1), instruction)
	}
	f.SetColWidth(instructionsSheet, "A", "A", 80)

	f.SetActiveSheet(deptIndex)
	f.DeleteSheet("Sheet1")

	return f.SaveAs(outputPath)
}

// GenerateImportErrorReport creates an Excel report with the validation
// errors of one parsed workbook.
func (s *ExcelService) GenerateImportErrorReport(result *models.WorkbookParseResult, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Import Errors"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}

	headers := []string{"Sheet", "Row Number", "Code", "Field", "Error Message", "Invalid Value"}
	for i, header := range headers {
		cell := fmt.Sprintf("%s1", getColumnName(i))
		f.SetCellValue(sheetName, cell, header)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#FFE6E6"}, Pattern: 1},
	})
	f.SetCellStyle(sheetName, "A1", fmt.Sprintf("%s1", getColumnName(len(headers)-1)), headerStyle)

	for rowIdx, rowError := range result.ValidationErrors {
		row := rowIdx + 2
		values := []interface{}{
			rowError.Sheet,
			rowError.Row,
			rowError.Code,
			rowError.Field,
			rowError.Message,
			rowError.Value,
		}
		for colIdx, value := range values {
			cell := fmt.Sprintf("%s%d", getColumnName(colIdx), row)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	widths := []float64{15, 12, 20, 18, 50, 25}
	for i, width := range widths {
		colName := getColumnName(i)
		f.SetColWidth(sheetName, colName, colName, width)
	}

	// Summary section
	summaryStartRow := len(result.ValidationErrors) + 4
	f.SetCellValue(sheetName, fmt.Sprintf("A%d", summaryStartRow), "Import Summary")
	f.SetCellValue(sheetName, fmt.Sprintf("A%d", summaryStartRow+1), "Total Rows Processed:")
	f.SetCellValue(sheetName, fmt.Sprintf("B%d", summaryStartRow+1), result.TotalRows)
	f.SetCellValue(sheetName, fmt.Sprintf("A%d", summaryStartRow+2), "Valid Rows:")
	f.SetCellValue(sheetName, fmt.Sprintf("B%d", summaryStartRow+2), result.ValidCount)
	f.SetCellValue(sheetName, fmt.Sprintf("A%d", summaryStartRow+3), "Errors Found:")
	f.SetCellValue(sheetName, fmt.Sprintf("B%d", summaryStartRow+3), result.ErrorCount)

	summaryStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	f.SetCellStyle(sheetName, fmt.Sprintf("A%d", summaryStartRow), fmt.Sprintf("A%d", summaryStartRow), summaryStyle)

	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	return f.SaveAs(outputPath)
}

// Helper functions
func getCellValue(row []string, index int) string {
	if index < len(row) {
		return row[index]
	}
	return ""
}

func isBooleanLike(s string) bool {
	switch strings.ToLower(s) {
	case "yes", "no", "y", "n", "1", "0", "true", "false":
		return true
	}
	return false
}

func parseBoolValue(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "1", "true":
		return true
	}
	return false
}

func getColumnName(index int) string {
	result := ""
	for index >= 0 {
		result = string(rune('A'+(index%26))) + result
		index = index/26 - 1
	}
	return result
}
