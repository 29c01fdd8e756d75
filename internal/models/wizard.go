package models

// WizardState represents the import wizard's position in its lifecycle
type WizardState string

const (
	WizardStateIdle           WizardState = "idle"
	WizardStateHeaderPending  WizardState = "header_pending"
	WizardStateMappingReady   WizardState = "mapping_ready"
	WizardStatePreviewPending WizardState = "preview_pending"
	WizardStatePreviewReady   WizardState = "preview_ready"
	WizardStateCommitting     WizardState = "committing"
)

// WizardView is the read model of one wizard session, handed to the UI.
// It is a derived snapshot; the session itself owns all state.
type WizardView struct {
	ID              string            `json:"id"`
	SubjectType     ImportSubjectType `json:"subjectType"`
	ClubID          string            `json:"clubId,omitempty"`
	DateFormat      DateFormat        `json:"dateFormat"`
	State           WizardState       `json:"state"`
	FileName        string            `json:"fileName,omitempty"`
	Fields          []FieldSpec       `json:"fields"`
	Headers         []string          `json:"headers"`
	Mapping         ColumnMapping     `json:"mapping"`
	MappingComplete bool              `json:"mappingComplete"`
	Rows            []PreviewRow      `json:"rows"`
	Actions         []RowActionEntry  `json:"actions"`
}

// StartWizardRequest starts a new import wizard session
type StartWizardRequest struct {
	SubjectType ImportSubjectType `json:"subjectType" binding:"required"`
	ClubID      string            `json:"clubId,omitempty"`
	DateFormat  DateFormat        `json:"dateFormat,omitempty"`
}

// WizardTargetRequest changes the import target of an existing session.
// Any change of subject, scope or date format resets derived state.
type WizardTargetRequest struct {
	SubjectType ImportSubjectType `json:"subjectType" binding:"required"`
	ClubID      string            `json:"clubId,omitempty"`
	DateFormat  DateFormat        `json:"dateFormat,omitempty"`
}

// MappingUpdateRequest carries operator mapping overrides
type MappingUpdateRequest struct {
	Entries map[string]string `json:"entries" binding:"required"`
}

// RowActionRequest changes one row's commit decision
type RowActionRequest struct {
	Action RowAction `json:"action" binding:"required"`
}
