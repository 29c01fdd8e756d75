package models

import "sort"

// ImportSubjectType represents the kind of entity being imported
type ImportSubjectType string

const (
	ImportSubjectClubs   ImportSubjectType = "clubs"
	ImportSubjectMembers ImportSubjectType = "members"
)

// IsValid reports whether the subject type is one of the known kinds
func (s ImportSubjectType) IsValid() bool {
	return s == ImportSubjectClubs || s == ImportSubjectMembers
}

// RequiresScope reports whether imports of this subject need a target club
func (s ImportSubjectType) RequiresScope() bool {
	return s == ImportSubjectMembers
}

// DateFormat represents the date-of-birth format used in member files
type DateFormat string

const (
	DateFormatISO      DateFormat = "YYYY-MM-DD"
	DateFormatSlashDMY DateFormat = "DD/MM/YYYY"
	DateFormatDashDMY  DateFormat = "DD-MM-YYYY"
	DateFormatDotDMY   DateFormat = "DD.MM.YYYY"
)

// DefaultDateFormat is used when the operator has not picked one
const DefaultDateFormat = DateFormatISO

// IsValid reports whether the date format is one of the supported set
func (d DateFormat) IsValid() bool {
	switch d {
	case DateFormatISO, DateFormatSlashDMY, DateFormatDashDMY, DateFormatDotDMY:
		return true
	}
	return false
}

// Layout returns the Go time layout for the format
func (d DateFormat) Layout() string {
	switch d {
	case DateFormatSlashDMY:
		return "02/01/2006"
	case DateFormatDashDMY:
		return "02-01-2006"
	case DateFormatDotDMY:
		return "02.01.2006"
	default:
		return "2006-01-02"
	}
}

// FieldSpec defines one canonical import field
type FieldSpec struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Required bool   `json:"required"`
}

// ColumnMapping maps a canonical field key to a source file header.
// A header may back more than one field; unmapped fields are absent or empty.
type ColumnMapping map[string]string

// RowKey identifies one source-file row in preview and commit payloads.
// Indices come from the import API and are not necessarily 0-based or
// contiguous after server-side filtering.
type RowKey int64

// RowAction is the operator's per-row decision
type RowAction string

const (
	RowActionCreate RowAction = "create"
	RowActionSkip   RowAction = "skip"
)

// IsValid reports whether the action is one of the known decisions
func (a RowAction) IsValid() bool {
	return a == RowActionCreate || a == RowActionSkip
}

// PreviewRow is one source-file row as validated by the import API
type PreviewRow struct {
	RowIndex  RowKey            `json:"rowIndex"`
	Data      map[string]string `json:"data"`
	Errors    []string          `json:"errors"`
	Duplicate bool              `json:"duplicate"`
}

// RowActionEntry is one ledger entry in commit order
type RowActionEntry struct {
	RowIndex RowKey    `json:"rowIndex"`
	Action   RowAction `json:"action"`
}

// RowActionLedger holds the create/skip decision for every previewed row.
// Validation errors and duplicate flags on a row are advisory only; the
// ledger never forces a skip.
type RowActionLedger struct {
	actions map[RowKey]RowAction
}

// NewRowActionLedger creates an empty ledger
func NewRowActionLedger() *RowActionLedger {
	return &RowActionLedger{actions: make(map[RowKey]RowAction)}
}

// Reset replaces the ledger contents with a create entry for every row in
// the given preview set. Entries for rows no longer previewed are dropped.
func (l *RowActionLedger) Reset(rows []PreviewRow) {
	l.actions = make(map[RowKey]RowAction, len(rows))
	for _, row := range rows {
		l.actions[row.RowIndex] = RowActionCreate
	}
}

// Set overwrites one row's decision. Rows outside the current preview set
// are rejected.
func (l *RowActionLedger) Set(index RowKey, action RowAction) bool {
	if _, ok := l.actions[index]; !ok {
		return false
	}
	l.actions[index] = action
	return true
}

// Get returns the decision for a row, if present
func (l *RowActionLedger) Get(index RowKey) (RowAction, bool) {
	action, ok := l.actions[index]
	return action, ok
}

// Len returns the number of ledger entries
func (l *RowActionLedger) Len() int {
	return len(l.actions)
}

// Entries emits the full ledger in ascending row-index order
func (l *RowActionLedger) Entries() []RowActionEntry {
	entries := make([]RowActionEntry, 0, len(l.actions))
	for index, action := range l.actions {
		entries = append(entries, RowActionEntry{RowIndex: index, Action: action})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].RowIndex < entries[j].RowIndex
	})
	return entries
}

// ClubImportFields returns the canonical field set for club imports
func ClubImportFields() []FieldSpec {
	return []FieldSpec{
		{Key: "name", Label: "Club name", Required: true},
		{Key: "short_name", Label: "Short name", Required: false},
		{Key: "city", Label: "City", Required: false},
		{Key: "email", Label: "Contact email", Required: false},
		{Key: "phone", Label: "Contact phone", Required: false},
	}
}

// MemberImportFields returns the canonical field set for member imports
func MemberImportFields() []FieldSpec {
	return []FieldSpec{
		{Key: "first_name", Label: "First name", Required: true},
		{Key: "last_name", Label: "Last name", Required: true},
		{Key: "date_of_birth", Label: "Date of birth", Required: true},
		{Key: "email", Label: "Email", Required: false},
		{Key: "license_number", Label: "License number", Required: false},
		{Key: "club_role", Label: "Club role", Required: false},
	}
}

// FieldSpecsFor returns the ordered field set for a subject type
func FieldSpecsFor(subject ImportSubjectType) []FieldSpec {
	if subject == ImportSubjectMembers {
		return MemberImportFields()
	}
	return ClubImportFields()
}
