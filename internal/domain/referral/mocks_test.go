package referral

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/daveynmdz/wbhsms-cho-proj-sub001/internal/domain/directory"
	"github.com/daveynmdz/wbhsms-cho-proj-sub001/internal/platform/auth"
)

// fakeTx satisfies pgx.Tx for service tests. Only Commit and Rollback
// are ever called; the mock repositories ignore the ambient transaction.
type fakeTx struct{ pgx.Tx }

func (fakeTx) Commit(context.Context) error   { return nil }
func (fakeTx) Rollback(context.Context) error { return nil }

type fakeBeginner struct{}

func (fakeBeginner) Begin(context.Context) (pgx.Tx, error) { return fakeTx{}, nil }

// -- directory doubles --

type patientDir struct {
	byID map[uuid.UUID]*directory.Patient
}

func (d *patientDir) GetByID(_ context.Context, id uuid.UUID) (*directory.Patient, error) {
	if p, ok := d.byID[id]; ok {
		return p, nil
	}
	return nil, directory.ErrNotFound
}

func (d *patientDir) GetByNumber(_ context.Context, num string) (*directory.Patient, error) {
	for _, p := range d.byID {
		if p.PatientNumber == num {
			return p, nil
		}
	}
	return nil, directory.ErrNotFound
}

type facilityDir struct {
	byID map[uuid.UUID]*directory.Facility
}

func (d *facilityDir) GetByID(_ context.Context, id uuid.UUID) (*directory.Facility, error) {
	if f, ok := d.byID[id]; ok {
		return f, nil
	}
	return nil, directory.ErrNotFound
}

func (d *facilityDir) List(_ context.Context, _ directory.FacilityFilter) ([]*directory.Facility, error) {
	var out []*directory.Facility
	for _, f := range d.byID {
		out = append(out, f)
	}
	return out, nil
}

func (d *facilityDir) FindBarangayCenter(_ context.Context, barangayID uuid.UUID) (*directory.Facility, error) {
	var candidates []*directory.Facility
	for _, f := range d.byID {
		if f.Type == directory.FacilityBarangayCenter && f.Active &&
			f.BarangayID != nil && *f.BarangayID == barangayID {
			candidates = append(candidates, f)
		}
	}
	if len(candidates) == 0 {
		return nil, directory.ErrNotFound
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Name < candidates[j].Name })
	return candidates[0], nil
}

func (d *facilityDir) DistrictOfBarangay(_ context.Context, barangayID uuid.UUID) (string, error) {
	for _, f := range d.byID {
		if f.BarangayID != nil && *f.BarangayID == barangayID && f.District != nil {
			return *f.District, nil
		}
	}
	return "", directory.ErrNotFound
}

func (d *facilityDir) FindDistrictOffice(_ context.Context, district string) (*directory.Facility, error) {
	for _, f := range d.byID {
		if f.Type == directory.FacilityDistrictOffice && f.Active &&
			f.District != nil && *f.District == district {
			return f, nil
		}
	}
	return nil, directory.ErrNotFound
}

func (d *facilityDir) GetMainCityOffice(_ context.Context) (*directory.Facility, error) {
	for _, f := range d.byID {
		if f.Type == directory.FacilityCityOffice && f.IsMainOffice {
			return f, nil
		}
	}
	return nil, directory.ErrNotFound
}

type employeeDir struct {
	byID map[uuid.UUID]*directory.Employee
	err  error
}

func (d *employeeDir) GetByID(_ context.Context, id uuid.UUID) (*directory.Employee, error) {
	if d.err != nil {
		return nil, d.err
	}
	if e, ok := d.byID[id]; ok {
		return e, nil
	}
	return nil, directory.ErrNotFound
}

// -- referral store doubles --

type referralStore struct {
	rows       map[uuid.UUID]*Referral
	numbers    map[string]bool
	failCreate int
}

func newReferralStore() *referralStore {
	return &referralStore{rows: map[uuid.UUID]*Referral{}, numbers: map[string]bool{}}
}

func (s *referralStore) Create(_ context.Context, r *Referral) error {
	if s.failCreate > 0 {
		s.failCreate--
		return &pgconn.PgError{Code: "23505", ConstraintName: "referral_referral_number_key"}
	}
	if s.numbers[r.ReferralNumber] {
		return &pgconn.PgError{Code: "23505", ConstraintName: "referral_referral_number_key"}
	}
	cp := *r
	s.rows[r.ID] = &cp
	s.numbers[r.ReferralNumber] = true
	return nil
}

func (s *referralStore) GetByID(_ context.Context, id uuid.UUID) (*Referral, error) {
	if r, ok := s.rows[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (s *referralStore) GetByNumber(_ context.Context, number string) (*Referral, error) {
	for _, r := range s.rows {
		if r.ReferralNumber == number {
			cp := *r
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *referralStore) CountCreatedOn(_ context.Context, day time.Time) (int, error) {
	n := 0
	y, m, d := day.Date()
	for _, r := range s.rows {
		ry, rm, rd := r.CreatedAt.Date()
		if ry == y && rm == m && rd == d {
			n++
		}
	}
	return n, nil
}

func (s *referralStore) UpdateStatus(_ context.Context, id uuid.UUID, status Status, voidReason *string) error {
	r, ok := s.rows[id]
	if !ok {
		return ErrNotFound
	}
	r.Status = status
	r.VoidReason = voidReason
	return nil
}

func (s *referralStore) Search(_ context.Context, filter SearchFilter, limit, offset int) ([]*SearchRow, int, error) {
	var all []*SearchRow
	for _, r := range s.rows {
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		all = append(all, &SearchRow{Referral: *r})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := len(all)
	if offset >= len(all) {
		return nil, total, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, total, nil
}

type vitalsStore struct {
	rows map[uuid.UUID]*VitalsSnapshot
}

func newVitalsStore() *vitalsStore {
	return &vitalsStore{rows: map[uuid.UUID]*VitalsSnapshot{}}
}

func (s *vitalsStore) Create(_ context.Context, v *VitalsSnapshot) error {
	cp := *v
	s.rows[v.ID] = &cp
	return nil
}

func (s *vitalsStore) GetByID(_ context.Context, id uuid.UUID) (*VitalsSnapshot, error) {
	if v, ok := s.rows[id]; ok {
		cp := *v
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (s *vitalsStore) ListRecentByPatient(_ context.Context, patientID uuid.UUID, limit int) ([]*VitalsSnapshot, error) {
	var out []*VitalsSnapshot
	for _, v := range s.rows {
		if v.PatientID == patientID {
			cp := *v
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TakenAt.After(out[j].TakenAt) })
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

type historyStore struct {
	rows []*StatusChange
}

func (s *historyStore) Add(_ context.Context, c *StatusChange) error {
	cp := *c
	s.rows = append(s.rows, &cp)
	return nil
}

func (s *historyStore) ListByReferral(_ context.Context, referralID uuid.UUID) ([]*StatusChange, error) {
	var out []*StatusChange
	for _, c := range s.rows {
		if c.ReferralID == referralID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

// -- fixture --

type fixture struct {
	svc       *Service
	referrals *referralStore
	vitals    *vitalsStore
	history   *historyStore
	patients  *patientDir
	facility  *facilityDir
	employees *employeeDir

	actor      auth.Actor
	patient    *directory.Patient
	barangayID uuid.UUID
	center     *directory.Facility
	district   *directory.Facility
	cityOffice *directory.Facility
	now        time.Time
}

func newFixture() *fixture {
	barangayID := uuid.New()
	districtName := "District 1"

	center := &directory.Facility{
		ID: uuid.New(), Name: "Mabini Barangay Health Center",
		Type: directory.FacilityBarangayCenter, BarangayID: &barangayID,
		District: &districtName, Active: true,
	}
	districtOffice := &directory.Facility{
		ID: uuid.New(), Name: "District 1 Health Office",
		Type: directory.FacilityDistrictOffice, District: &districtName, Active: true,
	}
	cityOffice := &directory.Facility{
		ID: uuid.New(), Name: "City Health Office",
		Type: directory.FacilityCityOffice, IsMainOffice: true, Active: true,
	}

	patient := &directory.Patient{
		ID: uuid.New(), PatientNumber: "P-2026-0100",
		FirstName: "Maria", LastName: "Santos",
		BarangayID: &barangayID, Status: "active",
	}

	f := &fixture{
		referrals: newReferralStore(),
		vitals:    newVitalsStore(),
		history:   &historyStore{},
		patients:  &patientDir{byID: map[uuid.UUID]*directory.Patient{patient.ID: patient}},
		facility: &facilityDir{byID: map[uuid.UUID]*directory.Facility{
			center.ID: center, districtOffice.ID: districtOffice, cityOffice.ID: cityOffice,
		}},
		employees:  &employeeDir{byID: map[uuid.UUID]*directory.Employee{}},
		barangayID: barangayID,
		patient:    patient,
		center:     center,
		district:   districtOffice,
		cityOffice: cityOffice,
		now:        time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC),
	}

	f.actor = auth.Actor{EmployeeID: uuid.New(), Role: auth.RoleDoctor, FacilityID: cityOffice.ID}
	f.employees.byID[f.actor.EmployeeID] = &directory.Employee{
		ID: f.actor.EmployeeID, FirstName: "Jose", LastName: "Reyes",
		Role: auth.RoleDoctor, Active: true,
	}

	resolver := NewResolver(f.patients, f.facility)
	f.svc = NewService(fakeBeginner{}, f.referrals, f.vitals, f.history,
		resolver, f.patients, f.employees, zerolog.Nop())
	f.svc.SetClock(func() time.Time { return f.now })
	return f
}

// seedReferrals inserts n bare referrals created at the fixture clock.
func (f *fixture) seedReferrals(n int) {
	for i := 0; i < n; i++ {
		r := &Referral{
			ID: uuid.New(), ReferralNumber: FormatNumber(f.now, i+1), PatientID: f.patient.ID,
			DestinationType: DestCityOffice, Status: StatusActive,
			CreatedAt: f.now.Add(-time.Duration(n-i) * time.Minute),
		}
		f.referrals.rows[r.ID] = r
		f.referrals.numbers[r.ReferralNumber] = true
	}
}

func baseSubmission(f *fixture) *Submission {
	return &Submission{
		PatientID:       f.patient.ID,
		DestinationType: DestBarangayCenter,
		Reason:          "persistent cough, needs follow-up at local center",
	}
}

