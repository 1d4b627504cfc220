package referral

import (
	"context"
	"errors"
	"strconv"
	"time"

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

// IsUniqueViolation reports whether err is a Postgres unique-constraint
// violation, optionally limited to one named constraint.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// -- Referrals --

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const referralCols = `id, referral_number, patient_id, referring_facility_id,
	referred_to_facility_id, external_facility_name, destination_type,
	referral_reason, chief_complaint, symptoms, assessment, service_id,
	vitals_id, status, void_reason, issued_by, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, ref *Referral) error {
	_, err := connFor(ctx, r.pool).Exec(ctx, `
		INSERT INTO referral (`+referralCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		ref.ID, ref.ReferralNumber, ref.PatientID, ref.ReferringFacilityID,
		ref.ReferredToFacilityID, ref.ExternalFacilityName, ref.DestinationType,
		ref.Reason, ref.ChiefComplaint, ref.Symptoms, ref.Assessment, ref.ServiceID,
		ref.VitalsID, ref.Status, ref.VoidReason, ref.IssuedBy, ref.CreatedAt, ref.UpdatedAt)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Referral, error) {
	return scanReferral(connFor(ctx, r.pool).QueryRow(ctx,
		`SELECT `+referralCols+` FROM referral WHERE id = $1`, id))
}

func (r *repoPG) GetByNumber(ctx context.Context, number string) (*Referral, error) {
	return scanReferral(connFor(ctx, r.pool).QueryRow(ctx,
		`SELECT `+referralCols+` FROM referral WHERE referral_number = $1`, number))
}

// CountCreatedOn counts referrals created on the given UTC calendar day.
// The day boundaries come from the caller's clock, not the DB session
// timezone, so the count always matches the date stamped into the
// referral number. A transaction-scoped advisory lock on the day
// serializes concurrent same-day mints; the unique index on
// referral_number stays as the backstop.
func (r *repoPG) CountCreatedOn(ctx context.Context, day time.Time) (int, error) {
	conn := connFor(ctx, r.pool)
	day = day.UTC()
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	if _, err := conn.Exec(ctx,
		`SELECT pg_advisory_xact_lock(hashtext('referral_number_' || $1::text))`,
		start.Format("2006-01-02")); err != nil {
		return 0, err
	}
	var n int
	err := conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM referral WHERE created_at >= $1 AND created_at < $2`,
		start, end).Scan(&n)
	return n, err
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status Status, voidReason *string) error {
	tag, err := connFor(ctx, r.pool).Exec(ctx,
		`UPDATE referral SET status = $2, void_reason = $3, updated_at = now() WHERE id = $1`,
		id, status, voidReason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) Search(ctx context.Context, filter SearchFilter, limit, offset int) ([]*SearchRow, int, error) {
	where := ` FROM referral r JOIN patient p ON p.id = r.patient_id WHERE 1=1`
	var args []interface{}
	if filter.PatientNumber != "" {
		args = append(args, filter.PatientNumber)
		where += ` AND p.patient_number = $` + strconv.Itoa(len(args))
	}
	if filter.FirstName != "" {
		args = append(args, "%"+filter.FirstName+"%")
		where += ` AND p.first_name ILIKE $` + strconv.Itoa(len(args))
	}
	if filter.LastName != "" {
		args = append(args, "%"+filter.LastName+"%")
		where += ` AND p.last_name ILIKE $` + strconv.Itoa(len(args))
	}
	if filter.BarangayID != nil {
		args = append(args, *filter.BarangayID)
		where += ` AND p.barangay_id = $` + strconv.Itoa(len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where += ` AND r.status = $` + strconv.Itoa(len(args))
	}

	conn := connFor(ctx, r.pool)

	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*)`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	cols := `r.id, r.referral_number, r.patient_id, r.referring_facility_id,
		r.referred_to_facility_id, r.external_facility_name, r.destination_type,
		r.referral_reason, r.chief_complaint, r.symptoms, r.assessment, r.service_id,
		r.vitals_id, r.status, r.void_reason, r.issued_by, r.created_at, r.updated_at,
		p.patient_number, p.first_name, p.last_name`
	args = append(args, limit, offset)
	query := `SELECT ` + cols + where +
		` ORDER BY r.created_at DESC LIMIT $` + strconv.Itoa(len(args)-1) +
		` OFFSET $` + strconv.Itoa(len(args))

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*SearchRow
	for rows.Next() {
		var sr SearchRow
		if err := rows.Scan(
			&sr.ID, &sr.ReferralNumber, &sr.PatientID, &sr.ReferringFacilityID,
			&sr.ReferredToFacilityID, &sr.ExternalFacilityName, &sr.DestinationType,
			&sr.Reason, &sr.ChiefComplaint, &sr.Symptoms, &sr.Assessment, &sr.ServiceID,
			&sr.VitalsID, &sr.Status, &sr.VoidReason, &sr.IssuedBy, &sr.CreatedAt, &sr.UpdatedAt,
			&sr.PatientNumber, &sr.PatientFirstName, &sr.PatientLastName,
		); err != nil {
			return nil, 0, err
		}
		out = append(out, &sr)
	}
	return out, total, rows.Err()
}

func scanReferral(row pgx.Row) (*Referral, error) {
	var ref Referral
	err := row.Scan(
		&ref.ID, &ref.ReferralNumber, &ref.PatientID, &ref.ReferringFacilityID,
		&ref.ReferredToFacilityID, &ref.ExternalFacilityName, &ref.DestinationType,
		&ref.Reason, &ref.ChiefComplaint, &ref.Symptoms, &ref.Assessment, &ref.ServiceID,
		&ref.VitalsID, &ref.Status, &ref.VoidReason, &ref.IssuedBy, &ref.CreatedAt, &ref.UpdatedAt,
	)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return &ref, nil
}

// -- Vitals --

type vitalsRepoPG struct {
	pool *pgxpool.Pool
}

func NewVitalsRepo(pool *pgxpool.Pool) VitalsRepository {
	return &vitalsRepoPG{pool: pool}
}

const vitalsCols = `id, patient_id, systolic_bp, diastolic_bp, heart_rate,
	respiratory_rate, temperature_c, weight_kg, height_cm, bmi, taken_at`

func (r *vitalsRepoPG) Create(ctx context.Context, v *VitalsSnapshot) error {
	_, err := connFor(ctx, r.pool).Exec(ctx, `
		INSERT INTO referral_vitals (`+vitalsCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		v.ID, v.PatientID, v.SystolicBP, v.DiastolicBP, v.HeartRate,
		v.RespiratoryRate, v.TemperatureC, v.WeightKG, v.HeightCM, v.BMI, v.TakenAt)
	return err
}

func (r *vitalsRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*VitalsSnapshot, error) {
	return scanVitals(connFor(ctx, r.pool).QueryRow(ctx,
		`SELECT `+vitalsCols+` FROM referral_vitals WHERE id = $1`, id))
}

func (r *vitalsRepoPG) ListRecentByPatient(ctx context.Context, patientID uuid.UUID, limit int) ([]*VitalsSnapshot, error) {
	rows, err := connFor(ctx, r.pool).Query(ctx,
		`SELECT `+vitalsCols+` FROM referral_vitals WHERE patient_id = $1 ORDER BY taken_at DESC LIMIT $2`,
		patientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*VitalsSnapshot
	for rows.Next() {
		var v VitalsSnapshot
		if err := rows.Scan(&v.ID, &v.PatientID, &v.SystolicBP, &v.DiastolicBP, &v.HeartRate,
			&v.RespiratoryRate, &v.TemperatureC, &v.WeightKG, &v.HeightCM, &v.BMI, &v.TakenAt); err != nil {
			return nil, err
		}
		out = append(out, &v)
	}
	return out, rows.Err()
}

func scanVitals(row pgx.Row) (*VitalsSnapshot, error) {
	var v VitalsSnapshot
	err := row.Scan(&v.ID, &v.PatientID, &v.SystolicBP, &v.DiastolicBP, &v.HeartRate,
		&v.RespiratoryRate, &v.TemperatureC, &v.WeightKG, &v.HeightCM, &v.BMI, &v.TakenAt)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return &v, nil
}

// -- Status history --

type historyRepoPG struct {
	pool *pgxpool.Pool
}

func NewStatusHistoryRepo(pool *pgxpool.Pool) StatusHistoryRepository {
	return &historyRepoPG{pool: pool}
}

const historyCols = `id, referral_id, from_status, to_status, changed_by, reason, changed_at`

func (r *historyRepoPG) Add(ctx context.Context, c *StatusChange) error {
	_, err := connFor(ctx, r.pool).Exec(ctx, `
		INSERT INTO referral_status_history (`+historyCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.ReferralID, c.FromStatus, c.ToStatus, c.ChangedBy, c.Reason, c.ChangedAt)
	return err
}

func (r *historyRepoPG) ListByReferral(ctx context.Context, referralID uuid.UUID) ([]*StatusChange, error) {
	rows, err := connFor(ctx, r.pool).Query(ctx,
		`SELECT `+historyCols+` FROM referral_status_history WHERE referral_id = $1 ORDER BY changed_at ASC`,
		referralID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*StatusChange
	for rows.Next() {
		var c StatusChange
		if err := rows.Scan(&c.ID, &c.ReferralID, &c.FromStatus, &c.ToStatus,
			&c.ChangedBy, &c.Reason, &c.ChangedAt); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}
