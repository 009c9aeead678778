package main

import (
	"fmt"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// Generates sample workbooks for manual testing of the import flow: one
// clean file with a multi-level department chain, and one exercising
// duplicates and forward parent references.
func main() {
	headerStyle := func(f *excelize.File) int {
		style, _ := f.NewStyle(&excelize.Style{
			Font: &excelize.Font{Bold: true},
			Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
		})
		return style
	}

	deptHeaders := []string{"Code", "Name", "Parent Code", "Description", "Location"}
	posHeaders := []string{"Code", "Title", "Department Code", "Reports To", "Is Manager", "Incumbents", "Is Active"}

	f := excelize.NewFile()
	defer f.Close()

	deptIndex, err := f.NewSheet("Departments")
	if err != nil {
		fmt.Printf("Error creating sheet: %v\n", err)
		return
	}
	if _, err := f.NewSheet("Positions"); err != nil {
		fmt.Printf("Error creating sheet: %v\n", err)
		return
	}

	writeRows(f, "Departments", deptHeaders, [][]interface{}{
		{"CORP", "Corporate", "", "Holding level", "HQ"},
		{"ENG", "Engineering", "CORP", "Product development", "HQ"},
		{"ENG-BE", "Backend", "ENG", "Server teams", "HQ"},
		{"ENG-BE-PLAT", "Platform", "ENG-BE", "Infra and tooling", "HQ"},
		{"OPS", "Operations", "CORP", "", "Warehouse"},
	})
	writeRows(f, "Positions", posHeaders, [][]interface{}{
		{"CTO", "Chief Technology Officer", "ENG", "", "Yes", 1, "Yes"},
		{"ENG-LEAD", "Engineering Lead", "ENG", "CTO", "Yes", 2, "Yes"},
		{"BE-DEV", "Backend Developer", "ENG-BE", "ENG-LEAD", "No", 6, "Yes"},
		{"PLAT-DEV", "Platform Engineer", "ENG-BE-PLAT", "ENG-LEAD", "No", 3, "Yes"},
		{"OPS-MGR", "Operations Manager", "OPS", "", "Yes", 1, "Yes"},
	})
	f.SetCellStyle("Departments", "A1", "E1", headerStyle(f))
	f.SetCellStyle("Positions", "A1", "G1", headerStyle(f))

	f.SetActiveSheet(deptIndex)
	f.DeleteSheet("Sheet1")

	outputPath1 := filepath.Join("storage", "uploads", "test_org_structure.xlsx")
	if err := f.SaveAs(outputPath1); err != nil {
		fmt.Printf("Error saving file: %v\n", err)
		return
	}
	fmt.Printf("Test file 1 created: %s\n", outputPath1)

	// Second file: duplicate codes and a child listed before its parent.
	f2 := excelize.NewFile()
	defer f2.Close()

	deptIndex2, err := f2.NewSheet("Departments")
	if err != nil {
		fmt.Printf("Error creating sheet: %v\n", err)
		return
	}
	if _, err := f2.NewSheet("Positions"); err != nil {
		fmt.Printf("Error creating sheet: %v\n", err)
		return
	}

	writeRows(f2, "Departments", deptHeaders, [][]interface{}{
		{"SALES-EU", "Sales Europe", "SALES", "", "Berlin"},
		{"SALES", "Sales", "", "Revenue org", ""},
		{"SALES", "Sales", "", "Revenue org", "HQ"},
		{"SALES-US", "Sales Americas", "SALES", "", ""},
	})
	writeRows(f2, "Positions", posHeaders, [][]interface{}{
		{"AE", "Account Executive", "SALES-EU", "SALES-HEAD", "No", 4, "Yes"},
		{"SALES-HEAD", "Head of Sales", "SALES", "", "Yes", 1, "Yes"},
		{"AE", "Account Executive", "SALES-EU", "", "No", 0, "Yes"},
	})
	f2.SetCellStyle("Departments", "A1", "E1", headerStyle(f2))
	f2.SetCellStyle("Positions", "A1", "G1", headerStyle(f2))

	f2.SetActiveSheet(deptIndex2)
	f2.DeleteSheet("Sheet1")

	outputPath2 := filepath.Join("storage", "uploads", "test_org_duplicates.xlsx")
	if err := f2.SaveAs(outputPath2); err != nil {
		fmt.Printf("Error saving file 2: %v\n", err)
		return
	}
	fmt.Printf("Test file 2 created: %s\n", outputPath2)
}

func writeRows(f *excelize.File, sheet string, headers []string, rows [][]interface{}) {
	for i, header := range headers {
		cell := fmt.Sprintf("%s1", columnName(i))
		f.SetCellValue(sheet, cell, header)
	}
	for rowIdx, rowData := range rows {
		for colIdx, value := range rowData {
			cell := fmt.Sprintf("%s%d", columnName(colIdx), rowIdx+2)
			f.SetCellValue(sheet, cell, value)
		}
	}
	for i := range headers {
		col := columnName(i)
		f.SetColWidth(sheet, col, col, 20)
	}
}

func columnName(index int) string {
	result := ""
	for index >= 0 {
		result = string(rune('A'+(index%26))) + result
		index = index/26 - 1
	}
	return result
}
