package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/apperr"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/models"
)

// PostgresGuestsRepo guests and locations on Postgres
type PostgresGuestsRepo struct {
	db *sql.DB
}

func NewPostgresGuestsRepo(db *sql.DB) *PostgresGuestsRepo {
	return &PostgresGuestsRepo{db: db}
}

var (
	_ GuestRepository    = (*PostgresGuestsRepo)(nil)
	_ LocationRepository = (*PostgresGuestsRepo)(nil)
)

const guestColumns = `id, name, status, location_id, check_in_date, check_out_date`

func scanGuest(row interface{ Scan(...any) error }) (*models.Guest, error) {
	var g models.Guest
	var status string
	var locationID sql.NullString
	var checkIn, checkOut sql.NullTime
	if err := row.Scan(&g.ID, &g.Name, &status, &locationID, &checkIn, &checkOut); err != nil {
		return nil, err
	}
	g.Status = models.GuestStatus(status)
	g.LocationID = ptrString(locationID)
	if checkIn.Valid {
		g.CheckInDate = checkIn.Time
	}
	if checkOut.Valid {
		g.CheckOutDate = checkOut.Time
	}
	return &g, nil
}

func (r *PostgresGuestsRepo) GetGuest(ctx context.Context, id string) (*models.Guest, error) {
	g, err := scanGuest(r.db.QueryRowContext(ctx, `SELECT `+guestColumns+` FROM guests WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("guest", id)
		}
		return nil, apperr.Transient("get guest", err)
	}
	return g, nil
}

func (r *PostgresGuestsRepo) FindByLocation(ctx context.Context, locationID string) (*models.Guest, error) {
	g, err := scanGuest(r.db.QueryRowContext(ctx, `
		SELECT `+guestColumns+`
		FROM guests
		WHERE location_id = $1 AND status IN ('onboard', 'expected')
		ORDER BY (status = 'onboard') DESC, name
		LIMIT 1
	`, locationID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("guest at location", locationID)
		}
		return nil, apperr.Transient("find guest by location", err)
	}
	return g, nil
}

func (r *PostgresGuestsRepo) UpdateGuestStatus(ctx context.Context, id string, status models.GuestStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE guests SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return apperr.Transient("update guest status", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("guest", id)
	}
	return nil
}

func (r *PostgresGuestsRepo) GetLocation(ctx context.Context, id string) (*models.Location, error) {
	var l models.Location
	err := r.db.QueryRowContext(ctx, `SELECT id, name FROM locations WHERE id = $1`, id).Scan(&l.ID, &l.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("location", id)
		}
		return nil, apperr.Transient("get location", err)
	}
	return &l, nil
}
