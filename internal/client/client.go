// Package client talks to the yachtcrew-core HTTP API and keeps an
// optimistic projection of the active service requests.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/apperr"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/models"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/request"

	"github.com/go-resty/resty/v2"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const resultSuccess = 2000

// envelope mirrors the server's Result wrapper
type envelope struct {
	Code    int             `json:"code"`
	Type    string          `json:"type"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// APIError non-success response from the server
type APIError struct {
	Status  int
	Message string
	Details json.RawMessage
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (%d): %s", e.Status, e.Message)
}

// Unwrap maps HTTP status onto the shared sentinel errors
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusNotFound:
		return apperr.ErrNotFound
	case http.StatusConflict:
		return apperr.ErrConflict
	}
	return nil
}

// Client yachtcrew-core API client
type Client struct {
	http       *resty.Client
	baseURL    string
	projection *request.Projection
	logger     *zap.Logger
}

func New(baseURL string, logger *zap.Logger) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	hc := resty.New().
		SetBaseURL(baseURL+"/api/v1").
		SetTimeout(10*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &Client{
		http:       hc,
		baseURL:    baseURL,
		projection: request.NewProjection(),
		logger:     logger,
	}
}

// Projection the local optimistic view
func (c *Client) Projection() *request.Projection {
	return c.projection
}

func (c *Client) DutyStatus(ctx context.Context) (*models.DutyStatus, error) {
	var status models.DutyStatus
	if err := c.do(ctx, http.MethodGet, "/duty/status", nil, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// ListRequests loads the active set and resets the projection with it
func (c *Client) ListRequests(ctx context.Context) ([]models.ServiceRequest, error) {
	var list []models.ServiceRequest
	if err := c.do(ctx, http.MethodGet, "/service-requests", nil, nil, &list); err != nil {
		return nil, err
	}
	c.projection.Reset(list)
	return list, nil
}

func (c *Client) Accept(ctx context.Context, id, crewID string) (*models.ServiceRequest, error) {
	cmd := request.Command{Kind: request.CommandAccept, RequestID: id, CrewID: crewID}
	return c.command(ctx, cmd, "accept", map[string]string{"crewId": crewID})
}

func (c *Client) Delegate(ctx context.Context, id, toCrewID string) (*models.ServiceRequest, error) {
	cmd := request.Command{Kind: request.CommandDelegate, RequestID: id, CrewID: toCrewID}
	return c.command(ctx, cmd, "delegate", map[string]string{"toCrewId": toCrewID})
}

func (c *Client) Complete(ctx context.Context, id, completedBy string) (*models.ServiceRequest, error) {
	cmd := request.Command{Kind: request.CommandComplete, RequestID: id, CrewID: completedBy}
	return c.command(ctx, cmd, "complete", map[string]string{"completedBy": completedBy})
}

func (c *Client) Cancel(ctx context.Context, id string) (*models.ServiceRequest, error) {
	cmd := request.Command{Kind: request.CommandCancel, RequestID: id}
	return c.command(ctx, cmd, "cancel", map[string]string{})
}

// History completed requests; from and to are YYYY-MM-DD and may be empty
func (c *Client) History(ctx context.Context, from, to string) ([]models.HistoryEntry, error) {
	query := map[string]string{}
	if from != "" {
		query["from"] = from
	}
	if to != "" {
		query["to"] = to
	}
	var entries []models.HistoryEntry
	if err := c.do(ctx, http.MethodGet, "/service-requests/history", query, nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// command issues cmd optimistically, then confirms or discards it
func (c *Client) command(ctx context.Context, cmd request.Command, action string, body any) (*models.ServiceRequest, error) {
	cmdID := c.projection.Issue(cmd)

	var req models.ServiceRequest
	path := "/service-requests/" + cmd.RequestID + "/" + action
	if err := c.do(ctx, http.MethodPut, path, nil, body, &req); err != nil {
		c.projection.Fail(cmdID)
		c.logger.Warn("Command rejected",
			zap.String("action", action),
			zap.String("request_id", cmd.RequestID),
			zap.Error(err),
		)
		return nil, err
	}
	c.projection.Confirm(cmdID, &req)
	return &req, nil
}

func (c *Client) do(ctx context.Context, method, path string, query map[string]string, body, out any) error {
	var env envelope
	r := c.http.R().
		SetContext(ctx).
		SetResult(&env).
		SetError(&env)
	if query != nil {
		r.SetQueryParams(query)
	}
	if body != nil {
		r.SetBody(body)
	}

	resp, err := r.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() || env.Code != resultSuccess {
		msg := env.Message
		if msg == "" {
			msg = resp.Status()
		}
		return &APIError{Status: resp.StatusCode(), Message: msg, Details: env.Result}
	}
	if out == nil || len(env.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", path, err)
	}
	return nil
}

// Watch streams realtime events into the projection until ctx is cancelled.
// fn, when set, sees every event after it has been applied.
func (c *Client) Watch(ctx context.Context, fn func(models.Event)) error {
	wsURL := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", wsURL, err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("websocket read: %w", err)
		}
		var ev models.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			c.logger.Warn("Dropping malformed event", zap.Error(err))
			continue
		}
		c.projection.Apply(ev)
		if fn != nil {
			fn(ev)
		}
	}
}
