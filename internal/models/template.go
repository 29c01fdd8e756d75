package models

// ImportTemplateColumn defines a column in the import template
type ImportTemplateColumn struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
	Example     string `json:"example"`
}

// ImportTemplate defines the downloadable file structure for a subject type
type ImportTemplate struct {
	Subject ImportSubjectType      `json:"subject"`
	Version string                 `json:"version"`
	Columns []ImportTemplateColumn `json:"columns"`
}

var templateExamples = map[string]string{
	"name":           "SV Blauweiss Hamburg",
	"short_name":     "SVBW",
	"city":           "Hamburg",
	"email":          "office@svbw.example.com",
	"phone":          "+49-40-5551234",
	"first_name":     "Anna",
	"last_name":      "Schmidt",
	"date_of_birth":  "1998-04-17",
	"license_number": "DE-2024-001234",
	"club_role":      "player",
}

// TemplateFor builds the import template for a subject type. Column names
// equal the canonical field keys so a file built from the template
// auto-maps completely.
func TemplateFor(subject ImportSubjectType) ImportTemplate {
	fields := FieldSpecsFor(subject)
	columns := make([]ImportTemplateColumn, len(fields))
	for i, field := range fields {
		columns[i] = ImportTemplateColumn{
			Name:        field.Key,
			Description: field.Label,
			Required:    field.Required,
			Example:     templateExamples[field.Key],
		}
	}
	return ImportTemplate{
		Subject: subject,
		Version: "1.0",
		Columns: columns,
	}
}
