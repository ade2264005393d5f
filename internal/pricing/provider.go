package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/opterra/internal/cost"
	"github.com/sells-group/opterra/internal/model"
	"github.com/sells-group/opterra/pkg/anthropic"
	"github.com/sells-group/opterra/pkg/perplexity"
)

// Provider quotes a single unit from an external source.
type Provider interface {
	Name() string
	Quote(ctx context.Context, key model.PriceKey) (Priced, error)
}

// Priced is a fetched quote together with what the lookup cost.
type Priced struct {
	Quote   model.PriceQuote
	CostUSD float64
}

const priceSystemPrompt = `You are a residential plumbing supply analyst. Given a water heater
description, report current United States pricing for the unit alone, excluding
installation. Respond with a single JSON object and nothing else:
{"retail": <number USD>, "wholesale": <number USD>, "confidence": <0..1>}
Use 0 for a figure you cannot estimate. Lower confidence when the model is
discontinued or you are extrapolating from similar units.`

func priceQuestion(key model.PriceKey) string {
	var b strings.Builder
	if key.IsModel() {
		fmt.Fprintf(&b, "Manufacturer: %s\nModel: %s\n", key.Manufacturer, key.Model)
	}
	if key.FuelType != "" {
		fmt.Fprintf(&b, "Type: %s\n", strings.ReplaceAll(string(key.FuelType), "_", " "))
	}
	if key.CapacityGallons > 0 {
		fmt.Fprintf(&b, "Capacity: %.0f gallons\n", key.CapacityGallons)
	}
	if key.Tier != "" {
		fmt.Fprintf(&b, "Product tier: %s\n", key.Tier)
	}
	return b.String()
}

type priceAnswer struct {
	Retail     float64  `json:"retail"`
	Wholesale  float64  `json:"wholesale"`
	Confidence *float64 `json:"confidence"`
}

// parseAnswer extracts the JSON object from a model reply. Models sometimes
// wrap it in prose or a code fence.
func parseAnswer(key model.PriceKey, text, source string, now time.Time) (model.PriceQuote, error) {
	start, end := strings.Index(text, "{"), strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return model.PriceQuote{}, eris.Errorf("pricing: no JSON object in %s reply", source)
	}
	var a priceAnswer
	if err := json.Unmarshal([]byte(text[start:end+1]), &a); err != nil {
		return model.PriceQuote{}, eris.Wrapf(err, "pricing: decode %s reply", source)
	}
	if a.Retail <= 0 && a.Wholesale <= 0 {
		return model.PriceQuote{}, eris.Errorf("pricing: %s returned no price for %s", source, key.ID())
	}
	conf := 0.6
	if a.Confidence != nil {
		conf = min(max(*a.Confidence, 0), 1)
	}
	return model.PriceQuote{
		Key:        key,
		Retail:     a.Retail,
		Wholesale:  max(a.Wholesale, 0),
		Confidence: conf,
		Source:     source,
		FetchedAt:  now,
	}, nil
}

// AnthropicLookup prices units with a Claude model.
type AnthropicLookup struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	calc      *cost.Calculator
	now       func() time.Time
}

// NewAnthropicLookup returns a Provider backed by client.
func NewAnthropicLookup(client anthropic.Client, model string, maxTokens int, calc *cost.Calculator) *AnthropicLookup {
	return &AnthropicLookup{
		client:    client,
		model:     model,
		maxTokens: int64(max(maxTokens, 128)),
		calc:      calc,
		now:       time.Now,
	}
}

// Name implements Provider.
func (l *AnthropicLookup) Name() string { return "anthropic" }

// Quote implements Provider.
func (l *AnthropicLookup) Quote(ctx context.Context, key model.PriceKey) (Priced, error) {
	temp := 0.0
	resp, err := l.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       l.model,
		MaxTokens:   l.maxTokens,
		System:      anthropic.CachedSystem(priceSystemPrompt),
		Messages:    []anthropic.Message{{Role: "user", Content: priceQuestion(key)}},
		Temperature: &temp,
	})
	if err != nil {
		return Priced{}, eris.Wrap(err, "pricing: anthropic lookup")
	}
	u := resp.Usage
	u.LogUsage(l.model, "price lookup")
	spend := l.calc.Claude(l.model, false,
		int(u.InputTokens), int(u.OutputTokens), int(u.CacheCreationInputTokens), int(u.CacheReadInputTokens))

	q, err := parseAnswer(key, resp.Text(), "anthropic:"+l.model, l.now().UTC())
	if err != nil {
		return Priced{CostUSD: spend}, err
	}
	return Priced{Quote: q, CostUSD: spend}, nil
}

// PerplexityLookup prices units with Perplexity's search-grounded models.
type PerplexityLookup struct {
	client perplexity.Client
	calc   *cost.Calculator
	now    func() time.Time
}

// NewPerplexityLookup returns a Provider backed by client.
func NewPerplexityLookup(client perplexity.Client, calc *cost.Calculator) *PerplexityLookup {
	return &PerplexityLookup{client: client, calc: calc, now: time.Now}
}

// Name implements Provider.
func (l *PerplexityLookup) Name() string { return "perplexity" }

// Quote implements Provider.
func (l *PerplexityLookup) Quote(ctx context.Context, key model.PriceKey) (Priced, error) {
	temp := 0.0
	resp, err := l.client.ChatCompletion(ctx, perplexity.ChatCompletionRequest{
		Messages: []perplexity.Message{
			{Role: "system", Content: priceSystemPrompt},
			{Role: "user", Content: priceQuestion(key)},
		},
		Temperature:   &temp,
		SearchRecency: perplexity.RecencyMonth,
	})
	if err != nil {
		return Priced{}, eris.Wrap(err, "pricing: perplexity lookup")
	}
	spend := l.calc.PerplexityQuery()
	if len(resp.Citations) > 0 {
		zap.L().Debug("pricing: perplexity citations",
			zap.String("key", key.ID()),
			zap.Strings("citations", resp.Citations),
		)
	}

	q, err := parseAnswer(key, resp.Text(), "perplexity", l.now().UTC())
	if err != nil {
		return Priced{CostUSD: spend}, err
	}
	return Priced{Quote: q, CostUSD: spend}, nil
}
