package duty

import (
	"context"
	"fmt"

	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/models"
)

// ShiftReader reads the shift catalog
type ShiftReader interface {
	ListShifts(ctx context.Context) ([]models.Shift, error)
}

// AssignmentReader reads assignments for specific dates
type AssignmentReader interface {
	ListByDates(ctx context.Context, dates []string) ([]models.Assignment, error)
}

// CrewReader reads the crew roster
type CrewReader interface {
	ListCrew(ctx context.Context) ([]models.CrewMember, error)
}

// RepoSource builds snapshots from repositories
type RepoSource struct {
	shifts      ShiftReader
	assignments AssignmentReader
	crew        CrewReader
}

func NewRepoSource(shifts ShiftReader, assignments AssignmentReader, crew CrewReader) *RepoSource {
	return &RepoSource{shifts: shifts, assignments: assignments, crew: crew}
}

func (r *RepoSource) LoadSnapshot(ctx context.Context, dates []string) (Snapshot, error) {
	shifts, err := r.shifts.ListShifts(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list shifts: %w", err)
	}
	assignments, err := r.assignments.ListByDates(ctx, dates)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list assignments: %w", err)
	}
	crew, err := r.crew.ListCrew(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list crew: %w", err)
	}
	return Snapshot{Shifts: shifts, Assignments: assignments, Crew: crew}, nil
}
