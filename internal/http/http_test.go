package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/duty"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/guest"
	httpapi "github.com/debranko/obedio-yacht-crew-management-sub003/internal/http"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/models"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/notifier"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/repository"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/request"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/roster"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type env struct {
	srv      *httptest.Server
	roster   *repository.MemoryRosterRepo
	guests   *repository.MemoryGuestsRepo
	requests *request.Lifecycle
	events   *notifier.Recorder
}

func newEnv(t *testing.T) *env {
	t.Helper()
	logger := zap.NewNop()
	ctx := context.Background()

	rosterRepo := repository.NewMemoryRosterRepo()
	require.NoError(t, rosterRepo.ReplaceShifts(ctx, []models.Shift{
		{ID: "day", Name: "Day", StartTime: "08:00", EndTime: "20:00", PrimaryCount: 1, Order: 1},
		{ID: "night", Name: "Night", StartTime: "20:00", EndTime: "08:00", PrimaryCount: 1, Order: 2},
	}))
	rosterRepo.PutCrew(
		models.CrewMember{ID: "A", Name: "Anna", Department: "Interior", Status: models.CrewOffDuty},
		models.CrewMember{ID: "B", Name: "Ben", Department: "Interior", Status: models.CrewOffDuty},
		models.CrewMember{ID: "C", Name: "Cleo", Department: "Interior", Status: models.CrewOffDuty},
	)
	require.NoError(t, rosterRepo.ReplaceByDate(ctx, "2024-06-01", []models.Assignment{
		{Date: "2024-06-01", ShiftID: "day", CrewID: "A", Type: models.AssignmentPrimary},
		{Date: "2024-06-01", ShiftID: "night", CrewID: "B", Type: models.AssignmentPrimary},
	}))

	guestsRepo := repository.NewMemoryGuestsRepo()
	guestsRepo.PutGuest(models.Guest{
		ID: "g1", Name: "Mr. Reed", Status: models.GuestExpected,
		CheckInDate: now.Add(-time.Hour), CheckOutDate: now.Add(72 * time.Hour),
	})

	events := &notifier.Recorder{}
	dutySvc := duty.NewService(duty.NewResolver("Interior"), duty.NewRepoSource(rosterRepo, rosterRepo, rosterRepo),
		store.NewMemoryKV(), events, nil, duty.ServiceConfig{Location: time.UTC}, logger)
	dutySvc.Clock = func() time.Time { return now }

	reqRepo := repository.NewMemoryRequestsRepo()
	lc := request.NewLifecycle(reqRepo, reqRepo, events, nil, request.Config{}, logger)

	validator := roster.NewAvailabilityValidator(rosterRepo, rosterRepo, rosterRepo)
	assignments := roster.NewAssignmentStore(rosterRepo, validator, dutySvc, events, logger)

	router := httpapi.NewRouter(logger)
	router.RegisterHealth()
	router.RegisterDutyRoutes(httpapi.NewDutyHandler(dutySvc, rosterRepo, rosterRepo, logger))
	router.RegisterRosterRoutes(httpapi.NewRosterHandler(assignments, validator, rosterRepo, rosterRepo, time.UTC, logger))
	router.RegisterGuestRoutes(httpapi.NewGuestHandler(guest.NewService(guestsRepo, logger), logger))
	router.RegisterRequestRoutes(httpapi.NewRequestHandler(lc, time.UTC, logger))

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &env{srv: srv, roster: rosterRepo, guests: guestsRepo, requests: lc, events: events}
}

type envelope struct {
	Code    int             `json:"code"`
	Type    string          `json:"type"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

func (e *env) do(t *testing.T, method, path string, body any) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.srv.URL+path, &buf)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	if resp.Header.Get("Content-Type") == "application/json" {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	}
	return resp.StatusCode, env
}

func TestHealth(t *testing.T) {
	e := newEnv(t)
	code, env := e.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, httpapi.ResultSuccess, env.Code)
}

func TestDutyStatus(t *testing.T) {
	e := newEnv(t)

	code, env := e.do(t, http.MethodGet, "/api/v1/duty/status", nil)
	require.Equal(t, http.StatusOK, code)
	var status models.DutyStatus
	require.NoError(t, json.Unmarshal(env.Result, &status))
	require.Len(t, status.OnDuty, 1)
	assert.Equal(t, "A", status.OnDuty[0].ID)
	assert.Equal(t, "night", status.NextShiftID)

	code, env = e.do(t, http.MethodGet, "/api/v1/duty/status?at=2024-06-01T22:00:00Z", nil)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Result, &status))
	require.Len(t, status.OnDuty, 1)
	assert.Equal(t, "B", status.OnDuty[0].ID)

	code, _ = e.do(t, http.MethodGet, "/api/v1/duty/status?at=tonight", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestCrewOverrideShowsEmergency(t *testing.T) {
	e := newEnv(t)

	code, _ := e.do(t, http.MethodPut, "/api/v1/crew/C/status", map[string]string{"status": "on-duty"})
	require.Equal(t, http.StatusOK, code)

	_, env := e.do(t, http.MethodGet, "/api/v1/duty/status", nil)
	var status models.DutyStatus
	require.NoError(t, json.Unmarshal(env.Result, &status))
	labels := map[string]string{}
	for _, m := range status.OnDuty {
		labels[m.ID] = m.ShiftLabel
	}
	assert.Equal(t, map[string]string{"A": "Day", "C": models.EmergencyShiftLabel}, labels)

	code, _ = e.do(t, http.MethodPut, "/api/v1/crew/C/status", map[string]string{"status": "sleeping"})
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = e.do(t, http.MethodPut, "/api/v1/crew/nobody/status", map[string]string{"status": "on-leave"})
	assert.Equal(t, http.StatusNotFound, code)
}

func TestReplaceShifts_RejectsBadClock(t *testing.T) {
	e := newEnv(t)
	code, _ := e.do(t, http.MethodPut, "/api/v1/shifts", []models.Shift{{ID: "x", StartTime: "25:00", EndTime: "08:00"}})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env := e.do(t, http.MethodGet, "/api/v1/shifts", nil)
	require.Equal(t, http.StatusOK, code)
	var shifts []models.Shift
	require.NoError(t, json.Unmarshal(env.Result, &shifts))
	assert.Len(t, shifts, 2)
}

func TestAssignmentsReplaceAndAvailability(t *testing.T) {
	e := newEnv(t)

	set := []models.Assignment{
		{ShiftID: "day", CrewID: "A", Type: models.AssignmentPrimary},
		{ShiftID: "day", CrewID: "C", Type: models.AssignmentBackup},
	}
	code, _ := e.do(t, http.MethodPut, "/api/v1/assignments/by-date/2024-06-03", set)
	require.Equal(t, http.StatusOK, code)

	code, env := e.do(t, http.MethodGet, "/api/v1/assignments?date=2024-06-03", nil)
	require.Equal(t, http.StatusOK, code)
	var list []models.Assignment
	require.NoError(t, json.Unmarshal(env.Result, &list))
	assert.Len(t, list, 2)

	code, env = e.do(t, http.MethodPost, "/api/v1/assignments/availability",
		map[string]string{"crewId": "A", "date": "2024-06-03", "shiftId": "night"})
	require.Equal(t, http.StatusOK, code)
	var avail roster.Availability
	require.NoError(t, json.Unmarshal(env.Result, &avail))
	assert.False(t, avail.IsAvailable)

	code, env = e.do(t, http.MethodPost, "/api/v1/assignments/availability/batch", []map[string]string{
		{"crewId": "B", "date": "2024-06-03", "shiftId": "night"},
		{"crewId": "A", "date": "2024-06-03", "shiftId": "day"},
	})
	require.Equal(t, http.StatusOK, code)
	var batch map[string]roster.Availability
	require.NoError(t, json.Unmarshal(env.Result, &batch))
	assert.True(t, batch["B|2024-06-03|night"].IsAvailable)
	assert.False(t, batch["A|2024-06-03|day"].IsAvailable)

	twoRoles := []models.Assignment{
		{ShiftID: "day", CrewID: "A", Type: models.AssignmentPrimary},
		{ShiftID: "day", CrewID: "A", Type: models.AssignmentBackup},
	}
	code, _ = e.do(t, http.MethodPut, "/api/v1/assignments/by-date/2024-06-03", twoRoles)
	assert.Equal(t, http.StatusConflict, code)

	twoShifts := []models.Assignment{
		{ShiftID: "day", CrewID: "C", Type: models.AssignmentPrimary},
		{ShiftID: "night", CrewID: "C", Type: models.AssignmentBackup},
	}
	code, _ = e.do(t, http.MethodPut, "/api/v1/assignments/by-date/2024-06-03", twoShifts)
	assert.Equal(t, http.StatusConflict, code)

	code, _ = e.do(t, http.MethodGet, "/api/v1/assignments?date=June", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = e.do(t, http.MethodGet, "/api/v1/crew/A/workload?from=2024-06-01&to=2024-06-30", nil)
	require.Equal(t, http.StatusOK, code)
	var wl roster.Workload
	require.NoError(t, json.Unmarshal(env.Result, &wl))
	assert.Equal(t, 2, wl.TotalAssignments)
}

func TestRosterExport(t *testing.T) {
	e := newEnv(t)
	resp, err := http.Get(e.srv.URL + "/api/v1/assignments/export?from=2024-06-01&to=2024-06-01")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "duty-roster.xlsx")
}

func TestGuestStatus_ScenarioC(t *testing.T) {
	e := newEnv(t)

	code, env := e.do(t, http.MethodPut, "/api/v1/guests/g1/status", map[string]string{"status": "ashore"})
	require.Equal(t, http.StatusConflict, code)
	var details struct {
		Allowed []string `json:"allowedTransitions"`
	}
	require.NoError(t, json.Unmarshal(env.Result, &details))
	assert.Equal(t, []string{"onboard (check-in)", "departed (cancel)"}, details.Allowed)
	assert.Contains(t, env.Message, "cannot change from \"expected\" to \"ashore\"")

	code, _ = e.do(t, http.MethodPut, "/api/v1/guests/missing/status", map[string]string{"status": "onboard"})
	assert.Equal(t, http.StatusNotFound, code)

	code, env = e.do(t, http.MethodGet, "/api/v1/guests/transitions?from=onboard", nil)
	require.Equal(t, http.StatusOK, code)
	var opts []map[string]string
	require.NoError(t, json.Unmarshal(env.Result, &opts))
	require.Len(t, opts, 2)
	assert.Equal(t, "go-ashore", opts[0]["action"])
}

func TestServiceRequestFlow(t *testing.T) {
	e := newEnv(t)

	code, env := e.do(t, http.MethodPost, "/api/v1/service-requests", map[string]any{"guestName": "Mr. Reed", "guestCabin": "Owner Suite"})
	require.Equal(t, http.StatusCreated, code)
	var created models.ServiceRequest
	require.NoError(t, json.Unmarshal(env.Result, &created))
	assert.Equal(t, models.StatusPending, created.Status)

	base := "/api/v1/service-requests/" + created.ID
	code, _ = e.do(t, http.MethodPut, base+"/complete", nil)
	assert.Equal(t, http.StatusConflict, code)

	code, _ = e.do(t, http.MethodPut, base+"/accept", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, code, "crew id required")

	code, _ = e.do(t, http.MethodPut, base+"/accept", map[string]string{"crewId": "A"})
	require.Equal(t, http.StatusOK, code)
	code, _ = e.do(t, http.MethodPut, base+"/delegate", map[string]string{"toCrewId": "B"})
	assert.Equal(t, http.StatusConflict, code)

	code, env = e.do(t, http.MethodPut, base+"/complete", nil)
	require.Equal(t, http.StatusOK, code)
	var completed models.ServiceRequest
	require.NoError(t, json.Unmarshal(env.Result, &completed))
	assert.Equal(t, models.StatusCompleted, completed.Status)

	code, env = e.do(t, http.MethodGet, "/api/v1/service-requests/history?completedBy=A", nil)
	require.Equal(t, http.StatusOK, code)
	var history []models.HistoryEntry
	require.NoError(t, json.Unmarshal(env.Result, &history))
	require.Len(t, history, 1)
	assert.Equal(t, created.ID, history[0].Request.ID)

	code, env = e.do(t, http.MethodGet, "/api/v1/service-requests?status=completed", nil)
	require.Equal(t, http.StatusOK, code)
	var active []models.ServiceRequest
	require.NoError(t, json.Unmarshal(env.Result, &active))
	assert.Len(t, active, 1)

	code, _ = e.do(t, http.MethodPut, "/api/v1/service-requests/nope/accept", map[string]string{"crewId": "A"})
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = e.do(t, http.MethodDelete, "/api/v1/service-requests/history", nil)
	require.Equal(t, http.StatusOK, code)
	code, env = e.do(t, http.MethodDelete, "/api/v1/service-requests/clear-all", nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"deleted":1}`, string(env.Result))
}

func TestHistoryFilterValidation(t *testing.T) {
	e := newEnv(t)
	code, _ := e.do(t, http.MethodGet, "/api/v1/service-requests/history?from=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	resp, err := http.Get(e.srv.URL + "/api/v1/service-requests/history/export")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
