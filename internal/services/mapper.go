// Package services contains the import wizard core: column mapping and the
// session state machine that drives header discovery, preview and commit.
package services

import (
	"strings"

	"license-console-service/internal/models"
)

// DeriveMapping auto-matches canonical fields against source file headers.
// A field maps to the first header equal to its key after trimming and
// case folding; unmatched fields are left out of the mapping. The result
// depends only on the inputs.
func DeriveMapping(fields []models.FieldSpec, headers []string) models.ColumnMapping {
	mapping := make(models.ColumnMapping, len(fields))
	for _, field := range fields {
		for _, header := range headers {
			if strings.EqualFold(strings.TrimSpace(header), strings.TrimSpace(field.Key)) {
				mapping[field.Key] = header
				break
			}
		}
	}
	return mapping
}

// IsMappingComplete reports whether every required field has a non-empty
// mapped header. Optional fields never block completeness.
func IsMappingComplete(mapping models.ColumnMapping, fields []models.FieldSpec) bool {
	for _, field := range fields {
		if !field.Required {
			continue
		}
		if strings.TrimSpace(mapping[field.Key]) == "" {
			return false
		}
	}
	return true
}

// ApplyMappingOverrides merges operator edits into a mapping. Overrides are
// keyed by field key; entries for unknown fields are ignored, an empty
// value unmaps the field. Two fields mapping to the same header is allowed.
func ApplyMappingOverrides(mapping models.ColumnMapping, fields []models.FieldSpec, overrides map[string]string) models.ColumnMapping {
	known := make(map[string]bool, len(fields))
	for _, field := range fields {
		known[field.Key] = true
	}

	merged := make(models.ColumnMapping, len(mapping))
	for key, header := range mapping {
		merged[key] = header
	}
	for key, header := range overrides {
		if !known[key] {
			continue
		}
		if strings.TrimSpace(header) == "" {
			delete(merged, key)
			continue
		}
		merged[key] = header
	}
	return merged
}
