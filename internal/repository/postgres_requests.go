package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/apperr"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// PostgresRequestsRepo active service requests and their history on Postgres
type PostgresRequestsRepo struct {
	db *sql.DB
}

func NewPostgresRequestsRepo(db *sql.DB) *PostgresRequestsRepo {
	return &PostgresRequestsRepo{db: db}
}

var (
	_ ServiceRequestRepository = (*PostgresRequestsRepo)(nil)
	_ HistoryRepository        = (*PostgresRequestsRepo)(nil)
)

func (r *PostgresRequestsRepo) InsertRequest(ctx context.Context, req *models.ServiceRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO service_requests (
			id, guest_id, guest_name, location_id, guest_cabin, priority, status, request_type,
			created_at, assigned_to, voice_transcript, voice_audio_url, category, notes, device_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), NULLIF($11, ''), NULLIF($12, ''), NULLIF($13, ''), NULLIF($14, ''), NULLIF($15, ''))
	`,
		req.ID, nullString(req.GuestID), req.GuestName, nullString(req.LocationID), req.GuestCabin,
		string(req.Priority), string(req.Status), string(req.RequestType), req.CreatedAt,
		req.AssignedTo, req.VoiceTranscript, req.VoiceAudioURL, req.Category, req.Notes, req.DeviceID,
	)
	if err != nil {
		return apperr.Transient("insert service request", err)
	}
	return nil
}

// UpdateRequest conditional on the stored status (compare-and-swap)
func (r *PostgresRequestsRepo) UpdateRequest(ctx context.Context, req *models.ServiceRequest, from ...models.RequestStatus) error {
	var accepted, completed sql.NullTime
	if req.AcceptedAt != nil {
		accepted = sql.NullTime{Time: *req.AcceptedAt, Valid: true}
	}
	if req.CompletedAt != nil {
		completed = sql.NullTime{Time: *req.CompletedAt, Valid: true}
	}

	query := `
		UPDATE service_requests
		SET status = $2, assigned_to = NULLIF($3, ''), accepted_at = $4, completed_at = $5
		WHERE id = $1`
	args := []any{req.ID, string(req.Status), req.AssignedTo, accepted, completed}
	if len(from) > 0 {
		statuses := make([]string, 0, len(from))
		for _, s := range from {
			statuses = append(statuses, string(s))
		}
		query += ` AND status = ANY($6)`
		args = append(args, pq.Array(statuses))
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return apperr.Transient("update service request", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	var current string
	err = r.db.QueryRowContext(ctx, `SELECT status FROM service_requests WHERE id = $1`, req.ID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("service request", req.ID)
	}
	if err != nil {
		return apperr.Transient("read service request status", err)
	}
	return fmt.Errorf("service request %s is %s: %w", req.ID, current, apperr.ErrConflict)
}

func (r *PostgresRequestsRepo) DeleteRequest(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM service_requests WHERE id = $1`, id); err != nil {
		return apperr.Transient("delete service request", err)
	}
	return nil
}

func (r *PostgresRequestsRepo) DeleteAllRequests(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM service_requests`); err != nil {
		return apperr.Transient("delete all service requests", err)
	}
	return nil
}

func (r *PostgresRequestsRepo) ListActive(ctx context.Context) ([]models.ServiceRequest, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, guest_id, guest_name, location_id, guest_cabin, priority, status,
			COALESCE(request_type, ''), created_at, accepted_at, completed_at,
			COALESCE(assigned_to, ''), COALESCE(voice_transcript, ''), COALESCE(voice_audio_url, ''),
			COALESCE(category, ''), COALESCE(notes, ''), COALESCE(device_id, '')
		FROM service_requests
		ORDER BY created_at
	`)
	if err != nil {
		return nil, apperr.Transient("list service requests", err)
	}
	defer rows.Close()

	var out []models.ServiceRequest
	for rows.Next() {
		var req models.ServiceRequest
		var guestID, locationID sql.NullString
		var priority, status, requestType string
		var accepted, completed sql.NullTime
		if err := rows.Scan(
			&req.ID, &guestID, &req.GuestName, &locationID, &req.GuestCabin, &priority, &status,
			&requestType, &req.CreatedAt, &accepted, &completed,
			&req.AssignedTo, &req.VoiceTranscript, &req.VoiceAudioURL,
			&req.Category, &req.Notes, &req.DeviceID,
		); err != nil {
			return nil, fmt.Errorf("failed to scan service request: %w", err)
		}
		req.GuestID = ptrString(guestID)
		req.LocationID = ptrString(locationID)
		req.Priority = models.Priority(priority)
		req.Status = models.RequestStatus(status)
		req.RequestType = models.RequestType(requestType)
		if accepted.Valid {
			t := accepted.Time
			req.AcceptedAt = &t
		}
		if completed.Valid {
			t := completed.Time
			req.CompletedAt = &t
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func (r *PostgresRequestsRepo) AppendHistory(ctx context.Context, e models.HistoryEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	payload, err := json.Marshal(e.Request)
	if err != nil {
		return fmt.Errorf("failed to marshal history request: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO service_request_history (id, request, completed_by, completed_at, duration_seconds)
		VALUES ($1, $2, $3, $4, $5)
	`, e.ID, payload, e.CompletedBy, e.CompletedAt, e.DurationSeconds)
	if err != nil {
		return apperr.Transient("append history", err)
	}
	return nil
}

func (r *PostgresRequestsRepo) ListHistory(ctx context.Context, filter HistoryFilter) ([]models.HistoryEntry, error) {
	var where []string
	var args []any
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		where = append(where, fmt.Sprintf("completed_at >= $%d", len(args)))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		where = append(where, fmt.Sprintf("completed_at <= $%d", len(args)))
	}
	if filter.CompletedBy != "" {
		args = append(args, filter.CompletedBy)
		where = append(where, fmt.Sprintf("completed_by = $%d", len(args)))
	}
	query := `SELECT id, request, completed_by, completed_at, duration_seconds FROM service_request_history`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY completed_at"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Transient("list history", err)
	}
	defer rows.Close()

	out := []models.HistoryEntry{}
	for rows.Next() {
		var e models.HistoryEntry
		var payload []byte
		if err := rows.Scan(&e.ID, &payload, &e.CompletedBy, &e.CompletedAt, &e.DurationSeconds); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		if err := json.Unmarshal(payload, &e.Request); err != nil {
			return nil, fmt.Errorf("failed to decode history request %s: %w", e.ID, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *PostgresRequestsRepo) ClearHistory(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM service_request_history`); err != nil {
		return apperr.Transient("clear history", err)
	}
	return nil
}
