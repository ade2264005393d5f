package notion

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"

	"github.com/sells-group/opterra/internal/model"
)

// UpsertLeadPage writes the lead into the Notion lead database. A page that
// already carries the lead's fingerprint is updated in place so repeated
// submissions of the same assessment do not pile up.
func UpsertLeadPage(ctx context.Context, c Client, dbID string, lead model.Lead) (string, error) {
	existing, err := FindLeadPage(ctx, c, dbID, lead.Fingerprint)
	if err != nil {
		return "", eris.Wrap(err, "notion: upsert lead")
	}

	props := LeadProperties(lead)
	if existing != nil {
		pageID := string(existing.ID)
		if _, err := c.UpdatePage(ctx, pageID, &notionapi.PageUpdateRequest{Properties: props}); err != nil {
			return "", eris.Wrap(err, fmt.Sprintf("notion: update lead %s", lead.ID))
		}
		return pageID, nil
	}

	props["Status"] = notionapi.StatusProperty{
		Status: notionapi.Status{Name: "New"},
	}
	page, err := c.CreatePage(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(dbID),
		},
		Properties: props,
	})
	if err != nil {
		return "", eris.Wrap(err, fmt.Sprintf("notion: create lead %s", lead.ID))
	}
	return string(page.ID), nil
}

// LeadProperties maps a lead onto the lead database columns.
func LeadProperties(lead model.Lead) notionapi.Properties {
	created := notionapi.Date(lead.CreatedAt)
	props := notionapi.Properties{
		"Name": notionapi.TitleProperty{
			Type:  notionapi.PropertyTypeTitle,
			Title: richText(lead.Contact.Name),
		},
		"Email": notionapi.EmailProperty{
			Type:  notionapi.PropertyTypeEmail,
			Email: lead.Contact.Email,
		},
		"Action": notionapi.SelectProperty{
			Type:   notionapi.PropertyTypeSelect,
			Select: notionapi.Option{Name: string(lead.Action)},
		},
		"Urgency": notionapi.SelectProperty{
			Type:   notionapi.PropertyTypeSelect,
			Select: notionapi.Option{Name: string(lead.Urgency)},
		},
		"Rule": notionapi.RichTextProperty{
			Type:     notionapi.PropertyTypeRichText,
			RichText: richText(lead.RuleID),
		},
		"Health Score": notionapi.NumberProperty{
			Type:   notionapi.PropertyTypeNumber,
			Number: float64(lead.HealthScore),
		},
		"Budget": notionapi.NumberProperty{
			Type:   notionapi.PropertyTypeNumber,
			Number: lead.Budget,
		},
		"Fingerprint": notionapi.RichTextProperty{
			Type:     notionapi.PropertyTypeRichText,
			RichText: richText(lead.Fingerprint),
		},
		"Submitted": notionapi.DateProperty{
			Type: notionapi.PropertyTypeDate,
			Date: &notionapi.DateObject{Start: &created},
		},
	}
	if lead.Contact.Phone != "" {
		props["Phone"] = notionapi.PhoneNumberProperty{
			Type:        notionapi.PropertyTypePhoneNumber,
			PhoneNumber: lead.Contact.Phone,
		}
	}
	if lead.Contact.ZipCode != "" {
		props["Zip"] = notionapi.RichTextProperty{
			Type:     notionapi.PropertyTypeRichText,
			RichText: richText(lead.Contact.ZipCode),
		}
	}
	if lead.Note != "" {
		props["Note"] = notionapi.RichTextProperty{
			Type:     notionapi.PropertyTypeRichText,
			RichText: richText(lead.Note),
		}
	}
	return props
}

func richText(s string) []notionapi.RichText {
	return []notionapi.RichText{
		{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: s}},
	}
}
