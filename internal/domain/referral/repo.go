package referral

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SearchFilter narrows referral searches. Zero fields are ignored; set
// fields combine with AND semantics. Name filters match as substrings,
// case-insensitively.
type SearchFilter struct {
	PatientNumber string
	FirstName     string
	LastName      string
	BarangayID    *uuid.UUID
	Status        Status
}

// SearchRow is a referral joined with the patient identity columns the
// list view displays.
type SearchRow struct {
	Referral
	PatientNumber    string `db:"patient_number" json:"patient_number"`
	PatientFirstName string `db:"first_name" json:"patient_first_name"`
	PatientLastName  string `db:"last_name" json:"patient_last_name"`
}

// Repository persists referrals. Implementations join an ambient
// transaction when the context carries one.
type Repository interface {
	Create(ctx context.Context, r *Referral) error
	GetByID(ctx context.Context, id uuid.UUID) (*Referral, error)
	GetByNumber(ctx context.Context, number string) (*Referral, error)
	// CountCreatedOn counts referrals created on the given calendar day.
	CountCreatedOn(ctx context.Context, day time.Time) (int, error)
	// UpdateStatus moves a referral to a new status, setting or clearing
	// the void reason.
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status, voidReason *string) error
	Search(ctx context.Context, filter SearchFilter, limit, offset int) ([]*SearchRow, int, error)
}

// VitalsRepository persists vitals snapshots. Rows are insert-only.
type VitalsRepository interface {
	Create(ctx context.Context, v *VitalsSnapshot) error
	GetByID(ctx context.Context, id uuid.UUID) (*VitalsSnapshot, error)
	// ListRecentByPatient returns the newest snapshots for a patient,
	// most recent first, capped at limit.
	ListRecentByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*VitalsSnapshot, error)
}

// StatusHistoryRepository records and reads the transition audit trail.
type StatusHistoryRepository interface {
	Add(ctx context.Context, c *StatusChange) error
	ListByReferral(ctx context.Context, referralID uuid.UUID) ([]*StatusChange, error)
}
