package guest_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/apperr"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/guest"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/models"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var all = []models.GuestStatus{models.GuestExpected, models.GuestOnboard, models.GuestAshore, models.GuestDeparted}

var table = map[[2]models.GuestStatus]bool{
	{models.GuestExpected, models.GuestOnboard}:  true,
	{models.GuestExpected, models.GuestDeparted}: true,
	{models.GuestOnboard, models.GuestAshore}:    true,
	{models.GuestAshore, models.GuestOnboard}:    true,
	{models.GuestOnboard, models.GuestDeparted}:  true,
}

func TestTransitionTable_AllPairs(t *testing.T) {
	for _, from := range all {
		for _, to := range all {
			inTable := table[[2]models.GuestStatus{from, to}]
			err := guest.ValidateTransition(from, to, "Guest")
			switch {
			case from == to || inTable:
				assert.True(t, guest.IsValidTransition(from, to), "%s -> %s", from, to)
				assert.NoError(t, err)
			default:
				assert.False(t, guest.IsValidTransition(from, to), "%s -> %s", from, to)
				var invalid *apperr.InvalidTransitionError
				require.True(t, errors.As(err, &invalid), "%s -> %s", from, to)
				assert.Len(t, invalid.Allowed, len(guest.AllowedTransitions(from)))
				for _, allowed := range guest.AllowedTransitions(from) {
					assert.Contains(t, err.Error(), string(allowed))
				}
			}
		}
	}
}

func TestScenarioC_ExpectedToAshoreRejected(t *testing.T) {
	err := guest.ValidateTransition(models.GuestExpected, models.GuestAshore, "Mr. Reed")

	var invalid *apperr.InvalidTransitionError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, []models.GuestStatus{models.GuestOnboard, models.GuestDeparted}, guest.AllowedTransitions(models.GuestExpected))
	assert.Equal(t, []string{"onboard (check-in)", "departed (cancel)"}, invalid.Allowed)
	assert.Contains(t, err.Error(), "Mr. Reed")
}

func TestDepartedIsTerminal(t *testing.T) {
	assert.Empty(t, guest.AllowedTransitions(models.GuestDeparted))
	err := guest.ValidateTransition(models.GuestDeparted, models.GuestOnboard, "")
	assert.Contains(t, err.Error(), "allowed transitions: none")
}

func TestActionsAndDescriptions(t *testing.T) {
	assert.Equal(t, "check-in", guest.TransitionAction(models.GuestExpected, models.GuestOnboard))
	assert.Equal(t, "go-ashore", guest.TransitionAction(models.GuestOnboard, models.GuestAshore))
	assert.Equal(t, "", guest.TransitionAction(models.GuestAshore, models.GuestDeparted))
	assert.Equal(t, "Currently ashore", guest.Description(models.GuestAshore))
	assert.Equal(t, "Unknown status", guest.Description("lost"))
}

func TestValidateCheckInAndOut(t *testing.T) {
	now := time.Date(2024, 6, 10, 15, 0, 0, 0, time.UTC)
	in := time.Date(2024, 6, 9, 0, 0, 0, 0, time.UTC)

	assert.NoError(t, guest.ValidateCheckIn(in, now, now))
	assert.NoError(t, guest.ValidateCheckIn(in, time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), now), "check-out today is fine")
	assert.ErrorIs(t, guest.ValidateCheckIn(now, in, now), apperr.ErrInvalidInput)
	assert.ErrorIs(t, guest.ValidateCheckIn(in.AddDate(0, 0, -5), in, now), apperr.ErrInvalidInput)

	assert.NoError(t, guest.ValidateCheckOut(in, now))
	assert.ErrorIs(t, guest.ValidateCheckOut(now, in), apperr.ErrInvalidInput)
}

func TestService_UpdateStatus(t *testing.T) {
	repo := repository.NewMemoryGuestsRepo()
	now := time.Date(2024, 6, 10, 15, 0, 0, 0, time.UTC)
	repo.PutGuest(models.Guest{
		ID: "g1", Name: "Ms. Hart", Status: models.GuestExpected,
		CheckInDate: now.AddDate(0, 0, -1), CheckOutDate: now.AddDate(0, 0, 5),
	})
	svc := guest.NewService(repo, zap.NewNop())
	ctx := context.Background()

	_, err := svc.UpdateStatus(ctx, "g1", models.GuestAshore, now)
	assert.True(t, apperr.IsInvalidTransition(err))

	g, err := svc.UpdateStatus(ctx, "g1", models.GuestOnboard, now)
	require.NoError(t, err)
	assert.Equal(t, models.GuestOnboard, g.Status)

	stored, err := repo.GetGuest(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, models.GuestOnboard, stored.Status)

	_, err = svc.UpdateStatus(ctx, "missing", models.GuestOnboard, now)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = svc.UpdateStatus(ctx, "g1", "sailing", now)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestService_CheckInRejectedAfterCheckOutDate(t *testing.T) {
	repo := repository.NewMemoryGuestsRepo()
	now := time.Date(2024, 6, 10, 15, 0, 0, 0, time.UTC)
	repo.PutGuest(models.Guest{
		ID: "g2", Name: "Late", Status: models.GuestExpected,
		CheckInDate: now.AddDate(0, 0, -10), CheckOutDate: now.AddDate(0, 0, -2),
	})
	svc := guest.NewService(repo, zap.NewNop())

	_, err := svc.UpdateStatus(context.Background(), "g2", models.GuestOnboard, now)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}
