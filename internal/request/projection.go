package request

import (
	"sort"
	"sync"
	"time"

	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/models"

	"github.com/google/uuid"
)

// CommandKind optimistic client action
type CommandKind string

const (
	CommandAccept   CommandKind = "accept"
	CommandDelegate CommandKind = "delegate"
	CommandComplete CommandKind = "complete"
	CommandCancel   CommandKind = "cancel"
)

// Command an issued but unconfirmed action
type Command struct {
	ID        string
	Kind      CommandKind
	RequestID string
	CrewID    string
	IssuedAt  time.Time
}

func (c Command) target() models.RequestStatus {
	switch c.Kind {
	case CommandAccept:
		return models.StatusAccepted
	case CommandDelegate:
		return models.StatusDelegated
	case CommandComplete:
		return models.StatusCompleted
	default:
		return models.StatusCancelled
	}
}

// Projection client-side view: the authoritative snapshot with pending
// commands layered on top. Confirmed or failed commands are dropped; applying
// the same event twice changes nothing.
type Projection struct {
	mu            sync.Mutex
	authoritative map[string]models.ServiceRequest
	removed       map[string]bool
	pending       []Command
}

func NewProjection() *Projection {
	return &Projection{
		authoritative: map[string]models.ServiceRequest{},
		removed:       map[string]bool{},
	}
}

// Reset replaces the authoritative snapshot (initial load or poll fallback)
func (p *Projection) Reset(list []models.ServiceRequest) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.authoritative = make(map[string]models.ServiceRequest, len(list))
	p.removed = map[string]bool{}
	for _, r := range list {
		p.authoritative[r.ID] = *r.Clone()
	}
	p.reconcileLocked()
}

// Issue records an optimistic command and returns its id
func (p *Projection) Issue(cmd Command) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if cmd.ID == "" {
		cmd.ID = uuid.NewString()
	}
	if cmd.IssuedAt.IsZero() {
		cmd.IssuedAt = time.Now()
	}
	p.pending = append(p.pending, cmd)
	return cmd.ID
}

// Confirm the server accepted cmdID; req is its authoritative result
func (p *Projection) Confirm(cmdID string, req *models.ServiceRequest) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dropLocked(cmdID)
	if req != nil {
		p.mergeLocked(*req)
	}
}

// Fail discards the projection of cmdID
func (p *Projection) Fail(cmdID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dropLocked(cmdID)
}

// Apply reconciles one realtime event. Events never move a request backwards
// and a removed request stays removed.
func (p *Projection) Apply(ev models.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch ev.Type {
	case models.EventRequestRemoved:
		p.removed[ev.RequestID] = true
		delete(p.authoritative, ev.RequestID)
	case models.EventRequestCancelled:
		if ev.Request != nil {
			p.removed[ev.Request.ID] = true
			delete(p.authoritative, ev.Request.ID)
		}
	case models.EventRequestCreated, models.EventRequestAccepted, models.EventRequestDelegated, models.EventRequestCompleted:
		if ev.Request != nil {
			p.mergeLocked(*ev.Request)
		}
	}
	p.reconcileLocked()
}

// Pending unconfirmed commands
func (p *Projection) Pending() []Command {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Command(nil), p.pending...)
}

// View authoritative state with pending commands applied, oldest first.
// Commands that are illegal against the current state are ignored.
func (p *Projection) View() []models.ServiceRequest {
	p.mu.Lock()
	defer p.mu.Unlock()

	view := make(map[string]*models.ServiceRequest, len(p.authoritative))
	for id, r := range p.authoritative {
		view[id] = r.Clone()
	}
	for _, cmd := range p.pending {
		r, ok := view[cmd.RequestID]
		if !ok || !CanTransition(r.Status, cmd.target()) {
			continue
		}
		at := cmd.IssuedAt
		r.Status = cmd.target()
		switch cmd.Kind {
		case CommandAccept, CommandDelegate:
			r.AssignedTo = cmd.CrewID
			r.AcceptedAt = &at
		case CommandComplete:
			r.CompletedAt = &at
		case CommandCancel:
			delete(view, cmd.RequestID)
		}
	}

	out := make([]models.ServiceRequest, 0, len(view))
	for _, r := range view {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (p *Projection) mergeLocked(r models.ServiceRequest) {
	if p.removed[r.ID] {
		return
	}
	if cur, ok := p.authoritative[r.ID]; ok && rank(r.Status) < rank(cur.Status) {
		return
	}
	if r.Status == models.StatusCancelled {
		p.removed[r.ID] = true
		delete(p.authoritative, r.ID)
		return
	}
	p.authoritative[r.ID] = *r.Clone()
}

// reconcileLocked drops commands the authoritative state already reflects or can no longer take
func (p *Projection) reconcileLocked() {
	kept := p.pending[:0]
	for _, cmd := range p.pending {
		r, ok := p.authoritative[cmd.RequestID]
		if !ok {
			continue
		}
		if r.Status == cmd.target() {
			continue
		}
		if rank(r.Status) >= rank(cmd.target()) {
			continue
		}
		kept = append(kept, cmd)
	}
	p.pending = kept
}

func (p *Projection) dropLocked(cmdID string) {
	for i, cmd := range p.pending {
		if cmd.ID == cmdID {
			p.pending = append(p.pending[:i], p.pending[i+1:]...)
			return
		}
	}
}
