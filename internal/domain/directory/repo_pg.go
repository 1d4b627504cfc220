package directory

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/daveynmdz/wbhsms-cho-proj-sub001/internal/platform/db"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func connFor(ctx context.Context, pool *pgxpool.Pool) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return pool
}

func mapNoRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// -- Patients --

type patientRepoPG struct {
	pool *pgxpool.Pool
}

func NewPatientRepo(pool *pgxpool.Pool) PatientRepository {
	return &patientRepoPG{pool: pool}
}

const patientCols = `id, patient_number, first_name, last_name, birth_date, barangay_id, status, created_at`

func (r *patientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return scanPatient(connFor(ctx, r.pool).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patient WHERE id = $1`, id))
}

func (r *patientRepoPG) GetByNumber(ctx context.Context, patientNumber string) (*Patient, error) {
	return scanPatient(connFor(ctx, r.pool).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patient WHERE patient_number = $1`, patientNumber))
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.PatientNumber, &p.FirstName, &p.LastName,
		&p.BirthDate, &p.BarangayID, &p.Status, &p.CreatedAt)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return &p, nil
}

// -- Facilities --

type facilityRepoPG struct {
	pool *pgxpool.Pool
}

func NewFacilityRepo(pool *pgxpool.Pool) FacilityRepository {
	return &facilityRepoPG{pool: pool}
}

const facilityCols = `id, name, type, district, barangay_id, is_main_office, active, created_at`

func (r *facilityRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Facility, error) {
	return scanFacility(connFor(ctx, r.pool).QueryRow(ctx,
		`SELECT `+facilityCols+` FROM facility WHERE id = $1`, id))
}

func (r *facilityRepoPG) List(ctx context.Context, filter FacilityFilter) ([]*Facility, error) {
	query := `SELECT ` + facilityCols + ` FROM facility WHERE 1=1`
	var args []interface{}

	if filter.Type != "" {
		args = append(args, filter.Type)
		query += ` AND type = $` + strconv.Itoa(len(args))
	}
	if filter.District != "" {
		args = append(args, filter.District)
		query += ` AND district = $` + strconv.Itoa(len(args))
	}
	if filter.BarangayID != nil {
		args = append(args, *filter.BarangayID)
		query += ` AND barangay_id = $` + strconv.Itoa(len(args))
	}
	if filter.ActiveOnly {
		query += ` AND active`
	}
	query += ` ORDER BY name`

	rows, err := connFor(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectFacilities(rows)
}

func (r *facilityRepoPG) FindBarangayCenter(ctx context.Context, barangayID uuid.UUID) (*Facility, error) {
	// Lowest name breaks the tie when the data layer holds more than one
	// active center in a barangay; the migration's partial unique index
	// should prevent that from happening.
	return scanFacility(connFor(ctx, r.pool).QueryRow(ctx, `
		SELECT `+facilityCols+` FROM facility
		WHERE type = $1 AND barangay_id = $2 AND active
		ORDER BY name LIMIT 1`,
		FacilityBarangayCenter, barangayID))
}

func (r *facilityRepoPG) DistrictOfBarangay(ctx context.Context, barangayID uuid.UUID) (string, error) {
	var district *string
	err := connFor(ctx, r.pool).QueryRow(ctx, `
		SELECT district FROM facility
		WHERE barangay_id = $1 AND district IS NOT NULL
		ORDER BY name LIMIT 1`, barangayID).Scan(&district)
	if err != nil {
		return "", mapNoRows(err)
	}
	if district == nil {
		return "", ErrNotFound
	}
	return *district, nil
}

func (r *facilityRepoPG) FindDistrictOffice(ctx context.Context, district string) (*Facility, error) {
	return scanFacility(connFor(ctx, r.pool).QueryRow(ctx, `
		SELECT `+facilityCols+` FROM facility
		WHERE type = $1 AND district = $2 AND active
		ORDER BY name LIMIT 1`,
		FacilityDistrictOffice, district))
}

func (r *facilityRepoPG) GetMainCityOffice(ctx context.Context) (*Facility, error) {
	return scanFacility(connFor(ctx, r.pool).QueryRow(ctx, `
		SELECT `+facilityCols+` FROM facility
		WHERE type = $1 AND is_main_office AND active
		LIMIT 1`,
		FacilityCityOffice))
}

func scanFacility(row pgx.Row) (*Facility, error) {
	var f Facility
	err := row.Scan(&f.ID, &f.Name, &f.Type, &f.District, &f.BarangayID,
		&f.IsMainOffice, &f.Active, &f.CreatedAt)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return &f, nil
}

func collectFacilities(rows pgx.Rows) ([]*Facility, error) {
	var facilities []*Facility
	for rows.Next() {
		var f Facility
		err := rows.Scan(&f.ID, &f.Name, &f.Type, &f.District, &f.BarangayID,
			&f.IsMainOffice, &f.Active, &f.CreatedAt)
		if err != nil {
			return nil, err
		}
		facilities = append(facilities, &f)
	}
	return facilities, rows.Err()
}

// -- Barangays --

type barangayRepoPG struct {
	pool *pgxpool.Pool
}

func NewBarangayRepo(pool *pgxpool.Pool) BarangayRepository {
	return &barangayRepoPG{pool: pool}
}

func (r *barangayRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Barangay, error) {
	var b Barangay
	err := connFor(ctx, r.pool).QueryRow(ctx,
		`SELECT id, name, district FROM barangay WHERE id = $1`, id).
		Scan(&b.ID, &b.Name, &b.District)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return &b, nil
}

func (r *barangayRepoPG) List(ctx context.Context) ([]*Barangay, error) {
	rows, err := connFor(ctx, r.pool).Query(ctx,
		`SELECT id, name, district FROM barangay ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var barangays []*Barangay
	for rows.Next() {
		var b Barangay
		if err := rows.Scan(&b.ID, &b.Name, &b.District); err != nil {
			return nil, err
		}
		barangays = append(barangays, &b)
	}
	return barangays, rows.Err()
}

// -- Employees --

type employeeRepoPG struct {
	pool *pgxpool.Pool
}

func NewEmployeeRepo(pool *pgxpool.Pool) EmployeeRepository {
	return &employeeRepoPG{pool: pool}
}

func (r *employeeRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Employee, error) {
	var e Employee
	err := connFor(ctx, r.pool).QueryRow(ctx,
		`SELECT id, first_name, last_name, role, facility_id, active FROM employee WHERE id = $1`, id).
		Scan(&e.ID, &e.FirstName, &e.LastName, &e.Role, &e.FacilityID, &e.Active)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return &e, nil
}

// -- Services --

type serviceRepoPG struct {
	pool *pgxpool.Pool
}

func NewServiceRepo(pool *pgxpool.Pool) ServiceRepository {
	return &serviceRepoPG{pool: pool}
}

func (r *serviceRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*CatalogService, error) {
	var s CatalogService
	err := connFor(ctx, r.pool).QueryRow(ctx,
		`SELECT id, name, description, active FROM service WHERE id = $1`, id).
		Scan(&s.ID, &s.Name, &s.Description, &s.Active)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return &s, nil
}

func (r *serviceRepoPG) List(ctx context.Context) ([]*CatalogService, error) {
	rows, err := connFor(ctx, r.pool).Query(ctx,
		`SELECT id, name, description, active FROM service WHERE active ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var services []*CatalogService
	for rows.Next() {
		var s CatalogService
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.Active); err != nil {
			return nil, err
		}
		services = append(services, &s)
	}
	return services, rows.Err()
}

