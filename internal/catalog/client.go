package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"pos_core/internal/config"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

var (
	ErrMissingStoreID = errors.New("catalog store id is required")
	ErrMissingToken   = errors.New("catalog token is required")
	ErrUnauthorized   = errors.New("catalog unauthorized")
	ErrRateLimited    = errors.New("catalog rate limited")
	ErrNotFound       = errors.New("product not found")
)

type APIError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("catalog api error: %s", e.Status)
	}
	return fmt.Sprintf("catalog api error: %s: %s", e.Status, e.Body)
}

// Client reads product availability and pricing from the catalog service.
type Client struct {
	http    *resty.Client
	storeID string
	logger  *zap.Logger
}

func NewClient(cfg config.Config, logger *zap.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(cfg.CatalogBaseURL).
		SetHeader("Accept", "application/json").
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
		logger:  logger.Named("catalog"),
	}
}

// List returns every sellable product for the register's store, following
// pagination cursors until the catalog is exhausted.
func (c *Client) List(ctx context.Context) ([]Product, error) {
	if err := c.checkAccess(); err != nil {
		return nil, err
	}

	var products []Product
	cursor := ""

	for {
		var resp listResponse[productPayload]
		query := map[string]string{}
		if cursor != "" {
			query["cursor"] = cursor
		}
		path := fmt.Sprintf("/stores/%s/products", c.storeID)
		if err := c.doGet(ctx, path, query, &resp); err != nil {
			return nil, err
		}
		for _, item := range resp.Items {
			products = append(products, item.toProduct())
		}
		if resp.Paging.NextCursor == "" {
			break
		}
		cursor = resp.Paging.NextCursor
	}

	return products, nil
}

func (c *Client) Get(ctx context.Context, productID string) (Product, error) {
	if err := c.checkAccess(); err != nil {
		return Product{}, err
	}
	if strings.TrimSpace(productID) == "" {
		return Product{}, errors.New("product id is required")
	}

	var resp productPayload
	path := fmt.Sprintf("/stores/%s/products/%s", c.storeID, productID)
	if err := c.doGet(ctx, path, nil, &resp); err != nil {
		return Product{}, err
	}
	return resp.toProduct(), nil
}

// FindByBarcode resolves a scanned barcode to a product.
func (c *Client) FindByBarcode(ctx context.Context, barcode string) (Product, error) {
	if err := c.checkAccess(); err != nil {
		return Product{}, err
	}
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return Product{}, errors.New("barcode is empty")
	}

	var resp listResponse[productPayload]
	path := fmt.Sprintf("/stores/%s/products", c.storeID)
	if err := c.doGet(ctx, path, map[string]string{"barcode": barcode}, &resp); err != nil {
		return Product{}, err
	}
	if len(resp.Items) == 0 {
		return Product{}, fmt.Errorf("%w: barcode %s", ErrNotFound, barcode)
	}
	return resp.Items[0].toProduct(), nil
}

func (c *Client) checkAccess() error {
	if strings.TrimSpace(c.http.Token) == "" {
		return ErrMissingToken
	}
	if c.storeID == "" {
		return ErrMissingStoreID
	}
	return nil
}

func (c *Client) doGet(ctx context.Context, path string, query map[string]string, result any) error {
	req := c.http.R().SetContext(ctx).SetResult(result)
	if len(query) > 0 {
		req.SetQueryParams(query)
	}

	resp, err := req.Get(path)
	if err != nil {
		return fmt.Errorf("catalog request: %w", err)
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
		return fmt.Errorf("%w: %s", ErrNotFound, apiErr.Error())
	default:
		return apiErr
	}
}
