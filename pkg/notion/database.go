package notion

import (
	"context"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
)

// FindLeadPage returns the most recently submitted page carrying the
// fingerprint, or nil when the database has none.
func FindLeadPage(ctx context.Context, c Client, dbID, fingerprint string) (*notionapi.Page, error) {
	req := &notionapi.DatabaseQueryRequest{
		Filter: notionapi.PropertyFilter{
			Property: "Fingerprint",
			RichText: &notionapi.TextFilterCondition{Equals: fingerprint},
		},
		Sorts: []notionapi.SortObject{
			{Property: "Submitted", Direction: notionapi.SortOrderDESC},
		},
		PageSize: 1,
	}
	resp, err := c.QueryDatabase(ctx, dbID, req)
	if err != nil {
		return nil, eris.Wrap(err, "notion: find lead page")
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}
	return &resp.Results[0], nil
}
