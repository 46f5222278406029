package sales

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"pos_core/internal/config"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrMissingToken   = errors.New("sales token is required")
	ErrUnauthorized   = errors.New("sales unauthorized")
	ErrRateLimited    = errors.New("sales rate limited")
	ErrTicketNotFound = errors.New("held ticket not found")
)

type APIError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("sales api error: %s", e.Status)
	}
	return fmt.Sprintf("sales api error: %s: %s", e.Status, e.Body)
}

// API is the surface the cart ledger depends on. Each call is an atomic
// remote operation: it either succeeds fully or fails with no partial state.
type API interface {
	Hold(ctx context.Context, snapshot Snapshot, note string) (TicketRef, error)
	Resume(ctx context.Context, ticketID string) (Snapshot, error)
	Complete(ctx context.Context, sale Sale) (Receipt, error)
}

// Client is the HTTP implementation of API against the sales service.
type Client struct {
	http    *resty.Client
	storeID string
	logger  *zap.Logger
}

var _ API = (*Client)(nil)

func NewClient(cfg config.Config, logger *zap.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(cfg.SalesBaseURL).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json").
		SetTimeout(cfg.Timeout).
		SetRetryCount(1).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return resp != nil && resp.StatusCode() == http.StatusTooManyRequests
		})

	if cfg.APIToken != "" {
		httpClient.SetAuthScheme("Bearer")
		httpClient.SetAuthToken(cfg.APIToken)
	}

	return &Client{
		http:    httpClient,
		storeID: strings.TrimSpace(cfg.StoreID),
		logger:  logger.Named("sales"),
	}
}

// Hold persists a cart snapshot as a suspended ticket and returns its ref.
func (c *Client) Hold(ctx context.Context, snapshot Snapshot, note string) (TicketRef, error) {
	if err := c.checkAccess(); err != nil {
		return TicketRef{}, err
	}

	var ref TicketRef
	path := fmt.Sprintf("/stores/%s/tickets", c.storeID)
	err := c.doPost(ctx, path, holdRequest{Snapshot: snapshot, Note: note}, &ref)
	if err != nil {
		return TicketRef{}, err
	}

	c.logger.Info("cart held", zap.String("ticket_id", ref.ID), zap.Int("lines", len(snapshot.Lines)))
	return ref, nil
}

// Resume fetches a held ticket's snapshot. The ticket stays consumable until
// the resumed sale completes, so a crashed register can resume it again.
func (c *Client) Resume(ctx context.Context, ticketID string) (Snapshot, error) {
	if err := c.checkAccess(); err != nil {
		return Snapshot{}, err
	}
	if strings.TrimSpace(ticketID) == "" {
		return Snapshot{}, errors.New("ticket id is required")
	}

	var resp resumeResponse
	path := fmt.Sprintf("/stores/%s/tickets/%s", c.storeID, ticketID)
	if err := c.doGet(ctx, path, &resp); err != nil {
		return Snapshot{}, err
	}

	c.logger.Info("ticket resumed", zap.String("ticket_id", ticketID), zap.Int("lines", len(resp.Snapshot.Lines)))
	return resp.Snapshot, nil
}

// Complete posts a finished sale and returns the receipt reference.
func (c *Client) Complete(ctx context.Context, sale Sale) (Receipt, error) {
	if err := c.checkAccess(); err != nil {
		return Receipt{}, err
	}

	var receipt Receipt
	path := fmt.Sprintf("/stores/%s/sales", c.storeID)
	if err := c.doPost(ctx, path, sale, &receipt); err != nil {
		return Receipt{}, err
	}

	c.logger.Info("sale completed",
		zap.String("receipt_id", receipt.ID),
		zap.Float64("total", sale.Snapshot.Total),
	)
	return receipt, nil
}

func (c *Client) checkAccess() error {
	if strings.TrimSpace(c.http.Token) == "" {
		return ErrMissingToken
	}
	if c.storeID == "" {
		return errors.New("sales store id is required")
	}
	return nil
}

func (c *Client) doGet(ctx context.Context, path string, result any) error {
	resp, err := c.http.R().SetContext(ctx).SetResult(result).Get(path)
	if err != nil {
		return fmt.Errorf("sales request: %w", err)
	}
	if resp.IsError() {
		return apiErrorFromResponse(resp)
	}
	return nil
}

func (c *Client) doPost(ctx context.Context, path string, body, result any) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Idempotency-Key", uuid.NewString()).
		SetBody(body).
		SetResult(result).
		Post(path)
	if err != nil {
		return fmt.Errorf("sales request: %w", err)
	}
	if resp.IsError() {
		return apiErrorFromResponse(resp)
	}
	return nil
}

func apiErrorFromResponse(resp *resty.Response) error {
	body := strings.TrimSpace(resp.String())
	apiErr := &APIError{
		StatusCode: resp.StatusCode(),
		Status:     resp.Status(),
		Body:       body,
	}

	switch resp.StatusCode() {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrUnauthorized, apiErr.Error())
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrRateLimited, apiErr.Error())
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrTicketNotFound, apiErr.Error())
	default:
		return apiErr
	}
}
