// Package notion writes leads into a Notion database.
package notion

import (
	"context"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Notion allows roughly three requests per second per integration.
const DefaultRPS = 3

// Client is the slice of the Notion API the lead sink needs.
type Client interface {
	QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
	CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error)
	UpdatePage(ctx context.Context, pageID string, req *notionapi.PageUpdateRequest) (*notionapi.Page, error)
}

type apiClient struct {
	api     *notionapi.Client
	limiter *rate.Limiter
}

// NewClient returns a throttled client for the integration token. A
// non-positive rps disables throttling.
func NewClient(token string, rps float64) Client {
	c := &apiClient{api: notionapi.NewClient(notionapi.Token(token))}
	if rps > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
	}
	return c
}

func (c *apiClient) throttle(ctx context.Context, op string) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return eris.Wrapf(err, "notion: %s: rate limit", op)
	}
	return nil
}

func (c *apiClient) QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	if err := c.throttle(ctx, "query"); err != nil {
		return nil, err
	}
	resp, err := c.api.Database.Query(ctx, notionapi.DatabaseID(dbID), req)
	return resp, eris.Wrapf(err, "notion: query database %s", dbID)
}

func (c *apiClient) CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	if err := c.throttle(ctx, "create"); err != nil {
		return nil, err
	}
	page, err := c.api.Page.Create(ctx, req)
	return page, eris.Wrap(err, "notion: create page")
}

func (c *apiClient) UpdatePage(ctx context.Context, pageID string, req *notionapi.PageUpdateRequest) (*notionapi.Page, error) {
	if err := c.throttle(ctx, "update"); err != nil {
		return nil, err
	}
	page, err := c.api.Page.Update(ctx, notionapi.PageID(pageID), req)
	return page, eris.Wrapf(err, "notion: update page %s", pageID)
}
