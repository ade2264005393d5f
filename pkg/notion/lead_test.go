package notion

import (
	"context"
	"testing"
	"time"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/opterra/internal/model"
)

func testLead() model.Lead {
	return model.Lead{
		ID:          "lead-1",
		Contact:     model.Contact{Name: "Dana Ortiz", Email: "dana@example.com", Phone: "555-0100"},
		Fingerprint: "abc123",
		Action:      model.ActionReplaceSoon,
		RuleID:      "actuarial_expiry",
		HealthScore: 41,
		Urgency:     model.UrgencyHigh,
		Budget:      266.67,
		CreatedAt:   time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestUpsertLeadPage_Create(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "db-leads", fingerprintFilter("abc123")).
		Return(&notionapi.DatabaseQueryResponse{}, nil).Once()
	mc.On("CreatePage", ctx, mock.MatchedBy(func(req *notionapi.PageCreateRequest) bool {
		status, ok := req.Properties["Status"].(notionapi.StatusProperty)
		return ok && status.Status.Name == "New" &&
			req.Parent.DatabaseID == notionapi.DatabaseID("db-leads")
	})).Return(&notionapi.Page{ID: "page-9"}, nil).Once()

	id, err := UpsertLeadPage(ctx, mc, "db-leads", testLead())
	require.NoError(t, err)
	assert.Equal(t, "page-9", id)
	mc.AssertExpectations(t)
}

func TestUpsertLeadPage_UpdatesExisting(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "db-leads", fingerprintFilter("abc123")).
		Return(&notionapi.DatabaseQueryResponse{Results: []notionapi.Page{{ID: "page-1"}}}, nil).Once()
	mc.On("UpdatePage", ctx, "page-1", mock.MatchedBy(func(req *notionapi.PageUpdateRequest) bool {
		_, hasStatus := req.Properties["Status"]
		return !hasStatus
	})).Return(&notionapi.Page{ID: "page-1"}, nil).Once()

	id, err := UpsertLeadPage(ctx, mc, "db-leads", testLead())
	require.NoError(t, err)
	assert.Equal(t, "page-1", id)
	mc.AssertNotCalled(t, "CreatePage", mock.Anything, mock.Anything)
}

func TestUpsertLeadPage_CreateError(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "db-leads", fingerprintFilter("abc123")).
		Return(&notionapi.DatabaseQueryResponse{}, nil).Once()
	mc.On("CreatePage", ctx, mock.Anything).Return(nil, assert.AnError).Once()

	_, err := UpsertLeadPage(ctx, mc, "db-leads", testLead())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notion: create lead lead-1")
}

func TestUpsertLeadPage_QueryError(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "db-leads", fingerprintFilter("abc123")).
		Return(nil, assert.AnError).Once()

	_, err := UpsertLeadPage(ctx, mc, "db-leads", testLead())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notion: upsert lead")
}

func TestLeadProperties(t *testing.T) {
	props := LeadProperties(testLead())

	title := props["Name"].(notionapi.TitleProperty)
	assert.Equal(t, "Dana Ortiz", title.Title[0].Text.Content)
	assert.Equal(t, "dana@example.com", props["Email"].(notionapi.EmailProperty).Email)
	assert.Equal(t, "REPLACE_SOON", props["Action"].(notionapi.SelectProperty).Select.Name)
	assert.Equal(t, "HIGH", props["Urgency"].(notionapi.SelectProperty).Select.Name)
	assert.InDelta(t, 41, props["Health Score"].(notionapi.NumberProperty).Number, 0.001)
	assert.InDelta(t, 266.67, props["Budget"].(notionapi.NumberProperty).Number, 0.001)
	assert.Equal(t, "555-0100", props["Phone"].(notionapi.PhoneNumberProperty).PhoneNumber)

	// Optional columns are omitted when empty.
	assert.NotContains(t, props, "Zip")
	assert.NotContains(t, props, "Note")
}
