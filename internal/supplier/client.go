// Package supplier resolves supplier references against the user service.
package supplier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/utafrali/TradeCatalog/internal/domain"
	apperrors "github.com/utafrali/TradeCatalog/pkg/errors"
	"github.com/utafrali/TradeCatalog/pkg/httpclient"
)

const serviceName = "user-service"

// Directory looks up the users referenced as product suppliers. Unknown ids
// yield an error matching apperrors.ErrNotFound.
type Directory interface {
	Lookup(ctx context.Context, id string) (*domain.Supplier, error)
}

// Getter issues GET requests. *httpclient.CircuitBreakerClient satisfies it.
type Getter interface {
	Get(ctx context.Context, url string) (*http.Response, error)
}

// Client is a Directory backed by the user service's REST API.
type Client struct {
	http    Getter
	baseURL string
}

// NewClient creates a user service client rooted at baseURL.
func NewClient(getter Getter, baseURL string) *Client {
	return &Client{http: getter, baseURL: strings.TrimRight(baseURL, "/")}
}

type userResponse struct {
	Data struct {
		ID        string `json:"id"`
		Role      string `json:"role"`
		IsActive  *bool  `json:"is_active"`
		IsDeleted bool   `json:"is_deleted"`
	} `json:"data"`
}

// Lookup fetches user id. Transport failures and an open breaker surface as
// apperrors.ErrServiceUnavail.
func (c *Client) Lookup(ctx context.Context, id string) (*domain.Supplier, error) {
	resp, err := c.http.Get(ctx, c.baseURL+"/api/v1/users/"+url.PathEscape(id))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, apperrors.ServiceUnavailable("user directory unavailable", err)
	}

	if resp.StatusCode != http.StatusOK {
		err := httpclient.ParseResponseError(resp, serviceName)
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("supplier", id)
		}
		return nil, fmt.Errorf("lookup supplier %s: %w", id, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var body userResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", serviceName, err)
	}

	deleted := body.Data.IsDeleted || (body.Data.IsActive != nil && !*body.Data.IsActive)
	return &domain.Supplier{
		ID:        id,
		Role:      domain.ParseRole(body.Data.Role),
		IsDeleted: deleted,
	}, nil
}
