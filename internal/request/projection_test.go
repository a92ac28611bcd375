package request_test

import (
	"testing"
	"time"

	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/models"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/request"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pendingRequest(id string, created time.Time) models.ServiceRequest {
	return models.ServiceRequest{ID: id, Status: models.StatusPending, Priority: models.PriorityNormal, CreatedAt: created}
}

func TestProjection_IssueOverlaysSnapshot(t *testing.T) {
	p := request.NewProjection()
	p.Reset([]models.ServiceRequest{pendingRequest("r1", t0), pendingRequest("r2", t0.Add(time.Second))})

	cmdID := p.Issue(request.Command{Kind: request.CommandAccept, RequestID: "r1", CrewID: "C1", IssuedAt: t0.Add(2 * time.Second)})
	require.NotEmpty(t, cmdID)

	view := p.View()
	require.Len(t, view, 2)
	assert.Equal(t, "r1", view[0].ID)
	assert.Equal(t, models.StatusAccepted, view[0].Status)
	assert.Equal(t, "C1", view[0].AssignedTo)
	assert.Equal(t, models.StatusPending, view[1].Status)
	assert.Len(t, p.Pending(), 1)
}

func TestProjection_FailDiscardsOverlay(t *testing.T) {
	p := request.NewProjection()
	p.Reset([]models.ServiceRequest{pendingRequest("r1", t0)})

	cmdID := p.Issue(request.Command{Kind: request.CommandAccept, RequestID: "r1", CrewID: "C1"})
	p.Fail(cmdID)

	view := p.View()
	require.Len(t, view, 1)
	assert.Equal(t, models.StatusPending, view[0].Status)
	assert.Empty(t, view[0].AssignedTo)
	assert.Empty(t, p.Pending())
}

func TestProjection_ConfirmUsesServerResult(t *testing.T) {
	p := request.NewProjection()
	p.Reset([]models.ServiceRequest{pendingRequest("r1", t0)})

	cmdID := p.Issue(request.Command{Kind: request.CommandDelegate, RequestID: "r1", CrewID: "C2"})
	accepted := t0.Add(3 * time.Second)
	server := pendingRequest("r1", t0)
	server.Status = models.StatusDelegated
	server.AssignedTo = "C2"
	server.AcceptedAt = &accepted
	p.Confirm(cmdID, &server)

	view := p.View()
	require.Len(t, view, 1)
	assert.Equal(t, accepted, *view[0].AcceptedAt)
	assert.Empty(t, p.Pending())
}

func TestProjection_ApplyIsIdempotent(t *testing.T) {
	p := request.NewProjection()
	created := pendingRequest("r1", t0)
	ev := models.Event{Type: models.EventRequestCreated, RequestID: "r1", Request: &created}

	p.Apply(ev)
	p.Apply(ev)
	assert.Len(t, p.View(), 1)

	accepted := created
	accepted.Status = models.StatusAccepted
	accepted.AssignedTo = "C1"
	acceptEv := models.Event{Type: models.EventRequestAccepted, RequestID: "r1", Request: &accepted}
	p.Apply(acceptEv)
	p.Apply(acceptEv)

	view := p.View()
	require.Len(t, view, 1)
	assert.Equal(t, models.StatusAccepted, view[0].Status)
}

func TestProjection_LateEventNeverMovesBackwards(t *testing.T) {
	p := request.NewProjection()
	completed := pendingRequest("r1", t0)
	completed.Status = models.StatusCompleted
	p.Reset([]models.ServiceRequest{completed})

	stale := pendingRequest("r1", t0)
	p.Apply(models.Event{Type: models.EventRequestCreated, RequestID: "r1", Request: &stale})

	view := p.View()
	require.Len(t, view, 1)
	assert.Equal(t, models.StatusCompleted, view[0].Status)
}

func TestProjection_RemovedStaysRemoved(t *testing.T) {
	p := request.NewProjection()
	p.Reset([]models.ServiceRequest{pendingRequest("r1", t0)})
	p.Issue(request.Command{Kind: request.CommandAccept, RequestID: "r1", CrewID: "C1"})

	p.Apply(models.Event{Type: models.EventRequestRemoved, RequestID: "r1"})
	assert.Empty(t, p.View())
	assert.Empty(t, p.Pending(), "commands on a removed request are dropped")

	again := pendingRequest("r1", t0)
	p.Apply(models.Event{Type: models.EventRequestCreated, RequestID: "r1", Request: &again})
	assert.Empty(t, p.View())
}

func TestProjection_EventConfirmingCommandDropsIt(t *testing.T) {
	p := request.NewProjection()
	p.Reset([]models.ServiceRequest{pendingRequest("r1", t0)})
	p.Issue(request.Command{Kind: request.CommandAccept, RequestID: "r1", CrewID: "C1"})

	// someone else won the race
	other := pendingRequest("r1", t0)
	other.Status = models.StatusDelegated
	other.AssignedTo = "C7"
	p.Apply(models.Event{Type: models.EventRequestDelegated, RequestID: "r1", Request: &other})

	assert.Empty(t, p.Pending())
	view := p.View()
	require.Len(t, view, 1)
	assert.Equal(t, "C7", view[0].AssignedTo)
}

func TestProjection_IllegalCommandIgnoredInView(t *testing.T) {
	p := request.NewProjection()
	p.Reset([]models.ServiceRequest{pendingRequest("r1", t0)})
	p.Issue(request.Command{Kind: request.CommandComplete, RequestID: "r1"})

	view := p.View()
	require.Len(t, view, 1)
	assert.Equal(t, models.StatusPending, view[0].Status)
}

func TestProjection_CancelHidesRequest(t *testing.T) {
	p := request.NewProjection()
	p.Reset([]models.ServiceRequest{pendingRequest("r1", t0)})
	p.Issue(request.Command{Kind: request.CommandCancel, RequestID: "r1"})
	assert.Empty(t, p.View())
}
