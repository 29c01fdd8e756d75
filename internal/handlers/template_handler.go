package handlers

import (
	"encoding/csv"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"license-console-service/internal/models"
)

// TemplateHandler serves downloadable import templates
type TemplateHandler struct{}

// NewTemplateHandler creates a new template handler
func NewTemplateHandler() *TemplateHandler {
	return &TemplateHandler{}
}

// GetImportTemplate returns the import template definition or file
// GET /api/v1/imports/:subject/template
func (h *TemplateHandler) GetImportTemplate(c *gin.Context) {
	subject := models.ImportSubjectType(c.Param("subject"))
	if !subject.IsValid() {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Success: false,
			Error:   models.Error{Code: "INVALID_SUBJECT_TYPE", Message: "Subject must be clubs or members"},
		})
		return
	}

	format := c.DefaultQuery("format", "json")
	template := models.TemplateFor(subject)

	switch format {
	case "csv":
		h.generateCSVTemplate(c, template)
	case "xlsx":
		h.generateXLSXTemplate(c, template)
	default:
		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"template": template,
		})
	}
}

// generateCSVTemplate generates and downloads a CSV template (headers only)
func (h *TemplateHandler) generateCSVTemplate(c *gin.Context, template models.ImportTemplate) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s_import_template.csv", template.Subject))

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	// Header row only, named so the wizard auto-maps every column
	headers := make([]string, len(template.Columns))
	for i, col := range template.Columns {
		headers[i] = col.Name
	}
	writer.Write(headers)
}

// generateXLSXTemplate generates and downloads an Excel template
func (h *TemplateHandler) generateXLSXTemplate(c *gin.Context, template models.ImportTemplate) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Import"
	f.SetSheetName("Sheet1", sheetName)

	// Style for header row
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	// Style for required columns
	requiredStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"C65911"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	for i, col := range template.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		headerText := col.Name
		if col.Required {
			headerText = col.Name + " *"
		}
		f.SetCellValue(sheetName, cell, headerText)

		if col.Required {
			f.SetCellStyle(sheetName, cell, cell, requiredStyle)
		} else {
			f.SetCellStyle(sheetName, cell, cell, headerStyle)
		}

		colName, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheetName, colName, colName, 20)
	}

	// Instructions sheet
	f.NewSheet("Instructions")
	f.SetCellValue("Instructions", "A1", fmt.Sprintf("%s import instructions", template.Subject))

	f.SetCellValue("Instructions", "A3", "COLUMN MAPPING:")
	f.SetCellValue("Instructions", "A4", "Column headers matching the names below are mapped automatically.")
	f.SetCellValue("Instructions", "A5", "Renamed columns can still be mapped manually in the import wizard.")

	f.SetCellValue("Instructions", "A7", "DATE FORMAT:")
	f.SetCellValue("Instructions", "A8", "Dates use ISO format (2006-01-02) unless a different format is picked in the wizard.")

	f.SetCellValue("Instructions", "A10", "Column Definitions:")
	f.SetCellValue("Instructions", "A11", "Column")
	f.SetCellValue("Instructions", "B11", "Description")
	f.SetCellValue("Instructions", "C11", "Required")
	f.SetCellValue("Instructions", "D11", "Example")

	for i, col := range template.Columns {
		row := i + 12
		f.SetCellValue("Instructions", fmt.Sprintf("A%d", row), col.Name)
		f.SetCellValue("Instructions", fmt.Sprintf("B%d", row), col.Description)
		required := "Optional"
		if col.Required {
			required = "Required"
		}
		f.SetCellValue("Instructions", fmt.Sprintf("C%d", row), required)
		f.SetCellValue("Instructions", fmt.Sprintf("D%d", row), col.Example)
	}

	f.SetColWidth("Instructions", "A", "A", 25)
	f.SetColWidth("Instructions", "B", "B", 60)
	f.SetColWidth("Instructions", "C", "C", 15)
	f.SetColWidth("Instructions", "D", "D", 40)

	sheetIdx, _ := f.GetSheetIndex(sheetName)
	f.SetActiveSheet(sheetIdx)

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s_import_template.xlsx", template.Subject))

	f.Write(c.Writer)
}
