package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/debranko/obedio-yacht-crew-management-sub003/common/database"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/apperr"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/models"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// PostgresRosterRepo shifts, assignments and crew on Postgres
type PostgresRosterRepo struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresRosterRepo(db *sql.DB, logger *zap.Logger) *PostgresRosterRepo {
	return &PostgresRosterRepo{db: db, logger: logger}
}

var (
	_ ShiftRepository      = (*PostgresRosterRepo)(nil)
	_ AssignmentRepository = (*PostgresRosterRepo)(nil)
	_ CrewRepository       = (*PostgresRosterRepo)(nil)
)

const shiftColumns = `id, name, start_time, end_time, primary_count, backup_count, sort_order, COALESCE(color, '')`

func scanShift(row interface{ Scan(...any) error }) (models.Shift, error) {
	var s models.Shift
	err := row.Scan(&s.ID, &s.Name, &s.StartTime, &s.EndTime, &s.PrimaryCount, &s.BackupCount, &s.Order, &s.Color)
	return s, err
}

func (r *PostgresRosterRepo) ListShifts(ctx context.Context) ([]models.Shift, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+shiftColumns+` FROM shifts ORDER BY sort_order, start_time`)
	if err != nil {
		return nil, apperr.Transient("list shifts", err)
	}
	defer rows.Close()

	var out []models.Shift
	for rows.Next() {
		s, err := scanShift(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan shift: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PostgresRosterRepo) GetShift(ctx context.Context, id string) (*models.Shift, error) {
	s, err := scanShift(r.db.QueryRowContext(ctx, `SELECT `+shiftColumns+` FROM shifts WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("shift", id)
		}
		return nil, apperr.Transient("get shift", err)
	}
	return &s, nil
}

// ReplaceShifts upserts the catalog and drops shifts not in it
func (r *PostgresRosterRepo) ReplaceShifts(ctx context.Context, shifts []models.Shift) error {
	keep := make([]string, 0, len(shifts))
	for _, s := range shifts {
		keep = append(keep, s.ID)
	}
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM shifts WHERE NOT (id = ANY($1))`, pq.Array(keep)); err != nil {
			return fmt.Errorf("failed to delete shifts: %w", err)
		}
		for _, s := range shifts {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO shifts (id, name, start_time, end_time, primary_count, backup_count, sort_order, color)
				VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''))
				ON CONFLICT (id) DO UPDATE SET
					name = EXCLUDED.name,
					start_time = EXCLUDED.start_time,
					end_time = EXCLUDED.end_time,
					primary_count = EXCLUDED.primary_count,
					backup_count = EXCLUDED.backup_count,
					sort_order = EXCLUDED.sort_order,
					color = EXCLUDED.color
			`, s.ID, s.Name, s.StartTime, s.EndTime, s.PrimaryCount, s.BackupCount, s.Order, s.Color)
			if err != nil {
				return fmt.Errorf("failed to upsert shift %s: %w", s.ID, err)
			}
		}
		return nil
	})
}

const assignmentColumns = `to_char(date, 'YYYY-MM-DD'), shift_id, crew_id, type`

func (r *PostgresRosterRepo) queryAssignments(ctx context.Context, query string, args ...any) ([]models.Assignment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Transient("list assignments", err)
	}
	defer rows.Close()

	var out []models.Assignment
	for rows.Next() {
		var a models.Assignment
		if err := rows.Scan(&a.Date, &a.ShiftID, &a.CrewID, &a.Type); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *PostgresRosterRepo) ListByDate(ctx context.Context, date string) ([]models.Assignment, error) {
	return r.queryAssignments(ctx,
		`SELECT `+assignmentColumns+` FROM shift_assignments WHERE date = $1 ORDER BY shift_id, type, crew_id`, date)
}

func (r *PostgresRosterRepo) ListByDates(ctx context.Context, dates []string) ([]models.Assignment, error) {
	return r.queryAssignments(ctx,
		`SELECT `+assignmentColumns+` FROM shift_assignments WHERE date = ANY($1::date[]) ORDER BY date, shift_id, type, crew_id`,
		pq.Array(dates))
}

func (r *PostgresRosterRepo) ListRange(ctx context.Context, from, to string) ([]models.Assignment, error) {
	return r.queryAssignments(ctx,
		`SELECT `+assignmentColumns+` FROM shift_assignments WHERE date BETWEEN $1 AND $2 ORDER BY date, shift_id, type, crew_id`,
		from, to)
}

func (r *PostgresRosterRepo) ListByCrew(ctx context.Context, crewID, from, to string) ([]models.Assignment, error) {
	return r.queryAssignments(ctx,
		`SELECT `+assignmentColumns+` FROM shift_assignments WHERE crew_id = $1 AND date BETWEEN $2 AND $3 ORDER BY date, shift_id`,
		crewID, from, to)
}

// ReplaceByDate delete-by-date then bulk insert in one transaction
func (r *PostgresRosterRepo) ReplaceByDate(ctx context.Context, date string, list []models.Assignment) error {
	var deleted int64
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM shift_assignments WHERE date = $1`, date)
		if err != nil {
			return apperr.Transient("delete assignments", err)
		}
		deleted, _ = res.RowsAffected()

		for _, a := range list {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO shift_assignments (date, shift_id, crew_id, type) VALUES ($1, $2, $3, $4)`,
				date, a.ShiftID, a.CrewID, string(a.Type),
			); err != nil {
				return fmt.Errorf("failed to insert assignment %s: %w", a.Key(), err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.logger.Debug("Replaced assignments",
		zap.String("date", date),
		zap.Int64("deleted", deleted),
		zap.Int("inserted", len(list)),
	)
	return nil
}

const crewColumns = `id, name, COALESCE(department, ''), COALESCE(role, ''), status, COALESCE(shift, '')`

func scanCrew(row interface{ Scan(...any) error }) (models.CrewMember, error) {
	var c models.CrewMember
	var status string
	if err := row.Scan(&c.ID, &c.Name, &c.Department, &c.Role, &status, &c.Shift); err != nil {
		return c, err
	}
	c.Status = models.NormalizeCrewStatus(status)
	return c, nil
}

func (r *PostgresRosterRepo) ListCrew(ctx context.Context) ([]models.CrewMember, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+crewColumns+` FROM crew_members ORDER BY name, id`)
	if err != nil {
		return nil, apperr.Transient("list crew", err)
	}
	defer rows.Close()

	var out []models.CrewMember
	for rows.Next() {
		c, err := scanCrew(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan crew member: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresRosterRepo) GetCrew(ctx context.Context, id string) (*models.CrewMember, error) {
	c, err := scanCrew(r.db.QueryRowContext(ctx, `SELECT `+crewColumns+` FROM crew_members WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("crew member", id)
		}
		return nil, apperr.Transient("get crew member", err)
	}
	return &c, nil
}

func (r *PostgresRosterRepo) UpdateCrewStatus(ctx context.Context, id string, status models.CrewStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE crew_members SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return apperr.Transient("update crew status", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("crew member", id)
	}
	return nil
}
