package models

import "time"

// AvailabilityTier is an interviewer's declared availability priority.
// It is reference data owned by the identity collaborator; this service
// only reads it, and only for auto-assignment ordering.
type AvailabilityTier string

const (
	TierHigh   AvailabilityTier = "high"
	TierMedium AvailabilityTier = "medium"
	TierLow    AvailabilityTier = "low"
)

// Interviewer mirrors an identity-store record. Rows are synced in by the
// identity collaborator and treated as immutable here.
type Interviewer struct {
	ID          string           `gorm:"type:uuid;primaryKey" json:"id"`
	DisplayName string           `gorm:"type:varchar(255);not null" json:"display_name"`
	Tier        AvailabilityTier `gorm:"type:varchar(16);not null;default:'medium';index" json:"tier"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// TableName returns the table name for GORM.
func (Interviewer) TableName() string {
	return "interviewers"
}

// InterviewMode enumerates the kinds of interview a booking can hold.
type InterviewMode string

const (
	ModePhone     InterviewMode = "phone"
	ModeVideo     InterviewMode = "video"
	ModeOnSite    InterviewMode = "onsite"
	ModeTechnical InterviewMode = "technical"
	ModePanel     InterviewMode = "panel"
)

// defaultModeDurations are the canonical durations applied when a caller
// proposes a booking without an explicit end time. Deployments can override
// them through the mode profile file (config.ModeProfiles).
var defaultModeDurations = map[InterviewMode]time.Duration{
	ModePhone:     30 * time.Minute,
	ModeVideo:     60 * time.Minute,
	ModeOnSite:    120 * time.Minute,
	ModeTechnical: 90 * time.Minute,
	ModePanel:     60 * time.Minute,
}

// Valid reports whether m is a known interview mode.
func (m InterviewMode) Valid() bool {
	_, ok := defaultModeDurations[m]
	return ok
}

// DefaultDuration returns the canonical duration for the mode, or zero for
// an unknown mode.
func (m InterviewMode) DefaultDuration() time.Duration {
	return defaultModeDurations[m]
}
