package referral

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/daveynmdz/wbhsms-cho-proj-sub001/internal/domain/directory"
	"github.com/daveynmdz/wbhsms-cho-proj-sub001/internal/platform/auth"
	"github.com/daveynmdz/wbhsms-cho-proj-sub001/internal/platform/db"
)

// transitionRoles is the allow-list for every lifecycle operation. Admin
// passes any check.
var transitionRoles = []string{
	auth.RoleDoctor,
	auth.RoleCommunityHealthWorker,
	auth.RoleDistrictHealthOfficer,
	auth.RoleRecordsOfficer,
}

// MaxRecentVitals bounds how many snapshots the detail view carries.
const MaxRecentVitals = 5

// Detail is the full read model for one referral: the row itself plus
// the joined records a reviewer needs on screen.
type Detail struct {
	Referral           *Referral           `json:"referral"`
	Patient            *directory.Patient  `json:"patient"`
	PatientAge         int                 `json:"patient_age"`
	IssuedBy           *directory.Employee `json:"issued_by,omitempty"`
	ReferredToFacility *directory.Facility `json:"referred_to_facility,omitempty"`
	Vitals             *VitalsSnapshot     `json:"vitals,omitempty"`
	RecentVitals       []*VitalsSnapshot   `json:"recent_vitals,omitempty"`
	History            []*StatusChange     `json:"history"`
}

// Service owns referral creation and the status lifecycle. Every
// operation takes the acting employee explicitly; authorization is a
// plain argument check, not ambient session state.
type Service struct {
	txs       db.Beginner
	referrals Repository
	vitals    VitalsRepository
	history   StatusHistoryRepository
	resolver  *Resolver
	patients  directory.PatientRepository
	employees directory.EmployeeRepository
	log       zerolog.Logger
	now       func() time.Time
}

func NewService(
	txs db.Beginner,
	referrals Repository,
	vitals VitalsRepository,
	history StatusHistoryRepository,
	resolver *Resolver,
	patients directory.PatientRepository,
	employees directory.EmployeeRepository,
	log zerolog.Logger,
) *Service {
	return &Service{
		txs:       txs,
		referrals: referrals,
		vitals:    vitals,
		history:   history,
		resolver:  resolver,
		patients:  patients,
		employees: employees,
		log:       log,
		now:       time.Now,
	}
}

// SetClock overrides the service clock. Test hook.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// Resolve previews the destination facilities for a patient, for the
// referral form.
func (s *Service) Resolve(ctx context.Context, actor auth.Actor, patientID uuid.UUID) (*ResolvedFacilities, error) {
	if !actor.HasRole(transitionRoles...) {
		return nil, ErrForbidden
	}
	return s.resolver.Resolve(ctx, patientID)
}

// Create validates a submission, resolves its destination, mints a
// referral number and persists the referral in active status, all inside
// one transaction. The optional vitals snapshot is inserted first so the
// referral row can reference it. A duplicate referral number from a
// concurrent same-day create is retried once with a fresh sequence.
func (s *Service) Create(ctx context.Context, actor auth.Actor, sub *Submission) (*Referral, error) {
	if !actor.HasRole(transitionRoles...) {
		return nil, ErrForbidden
	}

	ref, err := s.createOnce(ctx, actor, sub)
	if err != nil && IsUniqueViolation(err, "") {
		s.log.Warn().Str("patient_id", sub.PatientID.String()).
			Msg("referral number collision, retrying create")
		ref, err = s.createOnce(ctx, actor, sub)
	}
	return ref, err
}

func (s *Service) createOnce(ctx context.Context, actor auth.Actor, sub *Submission) (*Referral, error) {
	txCtx, tx, err := db.WithTx(ctx, s.txs)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	patient, err := s.patients.GetByID(txCtx, sub.PatientID)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return nil, ErrPatientNotFound
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}

	resolved, err := s.resolver.Resolve(txCtx, sub.PatientID)
	switch {
	case err == nil:
	case errors.Is(err, ErrLocationDataIncomplete):
		// A patient with no barangay on record can still be referred to
		// the city office or an external facility.
		city, cerr := s.resolver.facilities.GetMainCityOffice(txCtx)
		if cerr != nil {
			if errors.Is(cerr, directory.ErrNotFound) {
				s.log.Error().Msg("main city health office missing from facility directory")
				return nil, ErrMissingCityOffice
			}
			return nil, fmt.Errorf("find city office: %w", cerr)
		}
		resolved = &ResolvedFacilities{CityOffice: city}
	case errors.Is(err, ErrMissingCityOffice):
		s.log.Error().Msg("main city health office missing from facility directory")
		return nil, err
	default:
		return nil, err
	}

	if verr := Validate(sub, patient, resolved); !verr.Empty() {
		return nil, verr
	}

	now := s.now()

	var vitalsID *uuid.UUID
	if snap := BuildSnapshot(sub.Vitals); snap != nil {
		snap.ID = uuid.New()
		snap.PatientID = patient.ID
		snap.TakenAt = now
		if err := s.vitals.Create(txCtx, snap); err != nil {
			return nil, fmt.Errorf("insert vitals snapshot: %w", err)
		}
		vitalsID = &snap.ID
	}

	number, err := NewNumberGenerator(s.referrals).Next(txCtx, now)
	if err != nil {
		return nil, err
	}

	ref := &Referral{
		ID:                  uuid.New(),
		ReferralNumber:      number,
		PatientID:           patient.ID,
		ReferringFacilityID: actor.FacilityID,
		DestinationType:     sub.DestinationType,
		Reason:              sub.Reason,
		ChiefComplaint:      optional(sub.ChiefComplaint),
		Symptoms:            optional(sub.Symptoms),
		Assessment:          optional(sub.Assessment),
		ServiceID:           sub.ServiceID,
		VitalsID:            vitalsID,
		Status:              StatusActive,
		IssuedBy:            actor.EmployeeID,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	switch sub.DestinationType {
	case DestBarangayCenter:
		ref.ReferredToFacilityID = &resolved.BarangayCenter.ID
	case DestDistrictOffice:
		ref.ReferredToFacilityID = &resolved.DistrictOffice.ID
	case DestCityOffice:
		ref.ReferredToFacilityID = &resolved.CityOffice.ID
	case DestExternal:
		name := sub.ExternalFacility.Value()
		ref.ExternalFacilityName = &name
	}

	if err := s.referrals.Create(txCtx, ref); err != nil {
		return nil, fmt.Errorf("insert referral: %w", err)
	}

	if err := s.history.Add(txCtx, &StatusChange{
		ID:         uuid.New(),
		ReferralID: ref.ID,
		ToStatus:   StatusActive,
		ChangedBy:  actor.EmployeeID,
		ChangedAt:  now,
	}); err != nil {
		return nil, fmt.Errorf("record creation: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit referral: %w", err)
	}

	s.log.Info().
		Str("referral_number", ref.ReferralNumber).
		Str("destination_type", string(ref.DestinationType)).
		Str("issued_by", actor.EmployeeID.String()).
		Msg("referral created")

	return ref, nil
}

// Complete marks a referral completed from active or pending.
func (s *Service) Complete(ctx context.Context, actor auth.Actor, id uuid.UUID) (*Referral, error) {
	return s.transition(ctx, actor, id, StatusCompleted, nil)
}

// Void retires a referral from active or pending. The reason is
// mandatory; voiding replaces physical deletion.
func (s *Service) Void(ctx context.Context, actor auth.Actor, id uuid.UUID, reason string) (*Referral, error) {
	if trimmed := strings.TrimSpace(reason); trimmed == "" {
		verr := NewValidationError()
		verr.Add("void_reason", "a reason is required to void a referral")
		return nil, verr
	}
	r := strings.TrimSpace(reason)
	return s.transition(ctx, actor, id, StatusVoided, &r)
}

// Reactivate returns a voided referral to active. The only way out of
// voided; completed stays completed.
func (s *Service) Reactivate(ctx context.Context, actor auth.Actor, id uuid.UUID) (*Referral, error) {
	return s.transition(ctx, actor, id, StatusActive, nil)
}

func (s *Service) transition(ctx context.Context, actor auth.Actor, id uuid.UUID, to Status, voidReason *string) (*Referral, error) {
	if !actor.HasRole(transitionRoles...) {
		return nil, ErrForbidden
	}

	txCtx, tx, err := db.WithTx(ctx, s.txs)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	ref, err := s.referrals.GetByID(txCtx, id)
	if err != nil {
		return nil, err
	}

	if ref.Status == to {
		// Double submission of the same transition is benign.
		return ref, ErrAlreadyInState
	}
	if !allowedTransition(ref.Status, to) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, ref.Status, to)
	}

	from := ref.Status
	now := s.now()

	if err := s.referrals.UpdateStatus(txCtx, id, to, voidReason); err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	if err := s.history.Add(txCtx, &StatusChange{
		ID:         uuid.New(),
		ReferralID: id,
		FromStatus: from,
		ToStatus:   to,
		ChangedBy:  actor.EmployeeID,
		Reason:     voidReason,
		ChangedAt:  now,
	}); err != nil {
		return nil, fmt.Errorf("record transition: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transition: %w", err)
	}

	ref.Status = to
	ref.VoidReason = voidReason
	ref.UpdatedAt = now

	s.log.Info().
		Str("referral_number", ref.ReferralNumber).
		Str("from", string(from)).Str("to", string(to)).
		Str("changed_by", actor.EmployeeID.String()).
		Msg("referral status changed")

	return ref, nil
}

// allowedTransition encodes the lifecycle: active|pending may complete
// or void, voided may reactivate, completed is terminal.
func allowedTransition(from, to Status) bool {
	switch to {
	case StatusCompleted, StatusVoided:
		return from == StatusActive || from == StatusPending
	case StatusActive:
		return from == StatusVoided
	}
	return false
}

// Search lists referrals matching the filter, newest first.
func (s *Service) Search(ctx context.Context, actor auth.Actor, filter SearchFilter, limit, offset int) ([]*SearchRow, int, error) {
	if !actor.HasRole(transitionRoles...) {
		return nil, 0, ErrForbidden
	}
	return s.referrals.Search(ctx, filter, limit, offset)
}

// Detail assembles the full read model for one referral, including the
// patient's age at request time and their recent vitals.
func (s *Service) Detail(ctx context.Context, actor auth.Actor, id uuid.UUID) (*Detail, error) {
	if !actor.HasRole(transitionRoles...) {
		return nil, ErrForbidden
	}

	ref, err := s.referrals.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	patient, err := s.patients.GetByID(ctx, ref.PatientID)
	if err != nil {
		return nil, fmt.Errorf("load patient: %w", err)
	}

	d := &Detail{
		Referral:   ref,
		Patient:    patient,
		PatientAge: patient.AgeAt(s.now()),
	}

	// A dangling reference renders a sparser payload; any other failure
	// is a real fault and aborts the read.
	emp, err := s.employees.GetByID(ctx, ref.IssuedBy)
	switch {
	case err == nil:
		d.IssuedBy = emp
	case !errors.Is(err, directory.ErrNotFound):
		return nil, fmt.Errorf("load issuing employee: %w", err)
	}
	if ref.ReferredToFacilityID != nil {
		fac, err := s.resolver.facilities.GetByID(ctx, *ref.ReferredToFacilityID)
		switch {
		case err == nil:
			d.ReferredToFacility = fac
		case !errors.Is(err, directory.ErrNotFound):
			return nil, fmt.Errorf("load destination facility: %w", err)
		}
	}
	if ref.VitalsID != nil {
		v, err := s.vitals.GetByID(ctx, *ref.VitalsID)
		switch {
		case err == nil:
			d.Vitals = v
		case !errors.Is(err, ErrNotFound):
			return nil, fmt.Errorf("load vitals snapshot: %w", err)
		}
	}

	recent, err := s.vitals.ListRecentByPatient(ctx, ref.PatientID, MaxRecentVitals)
	if err != nil {
		return nil, fmt.Errorf("load recent vitals: %w", err)
	}
	d.RecentVitals = recent

	history, err := s.history.ListByReferral(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load status history: %w", err)
	}
	d.History = history

	return d, nil
}

func optional(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
