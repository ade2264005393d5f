// Package guidance turns assessment findings into short plain-language
// explanations. Explanations come from Claude when it is reachable and from
// a canned table otherwise.
package guidance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/opterra/internal/config"
	"github.com/sells-group/opterra/internal/metrics"
	"github.com/sells-group/opterra/internal/model"
	"github.com/sells-group/opterra/internal/resilience"
	"github.com/sells-group/opterra/pkg/anthropic"
)

const systemPrompt = `You explain water heater inspection findings to homeowners.
Write two or three short sentences in plain language covering what the
finding means for this unit and what to do next. Do not quote prices, do not
contradict the recommended action, and do not use headings or lists.`

// Guidance is the explanation for one finding.
type Guidance struct {
	Code     string         `json:"code"`
	Severity model.Severity `json:"severity"`
	Text     string         `json:"text"`
	Fallback bool           `json:"fallback"`
}

// Advisor explains findings. The zero value is not usable; see NewAdvisor.
type Advisor struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	timeout   time.Duration
	enabled   bool
	breaker   *resilience.Breaker
	metrics   *metrics.Collector
}

// NewAdvisor builds an Advisor. A nil client or a disabled config serves
// only fallback text.
func NewAdvisor(client anthropic.Client, ac config.AnthropicConfig, gc config.GuidanceConfig, m *metrics.Collector) *Advisor {
	timeout := time.Duration(gc.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	cb := resilience.FromGuidanceConfig(gc)
	cb.OnChange = func(from, to resilience.State) {
		zap.L().Warn("guidance: circuit breaker state change",
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	}
	return &Advisor{
		client:    client,
		model:     ac.Model,
		maxTokens: int64(max(ac.MaxTokens, 64)),
		timeout:   timeout,
		enabled:   gc.Enabled && client != nil,
		breaker:   resilience.NewBreaker(cb),
		metrics:   m,
	}
}

// Explain never fails. When the model cannot answer in time the fallback
// text for the finding is returned instead.
func (a *Advisor) Explain(ctx context.Context, result model.Result, f model.Finding) Guidance {
	g := Guidance{Code: f.Code, Severity: f.Severity}
	if !a.enabled {
		g.Text, g.Fallback = Fallback(f), true
		a.metrics.Guidance(true)
		return g
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	text, err := resilience.Guard(ctx, a.breaker, func(ctx context.Context) (string, error) {
		resp, err := a.client.CreateMessage(ctx, anthropic.MessageRequest{
			Model:     a.model,
			MaxTokens: a.maxTokens,
			System:    anthropic.CachedSystem(systemPrompt),
			Messages:  []anthropic.Message{{Role: "user", Content: prompt(result, f)}},
		})
		if err != nil {
			return "", err
		}
		resp.Usage.LogUsage(a.model, "guidance")
		if resp.Text() == "" {
			return "", eris.New("guidance: empty reply")
		}
		return resp.Text(), nil
	})
	if err != nil {
		zap.L().Debug("guidance: using fallback",
			zap.String("code", f.Code),
			zap.Error(err),
		)
		g.Text, g.Fallback = Fallback(f), true
		a.metrics.Guidance(true)
		return g
	}

	g.Text = text
	a.metrics.Guidance(false)
	return g
}

// ExplainPrimary explains the most severe finding, if any.
func (a *Advisor) ExplainPrimary(ctx context.Context, result model.Result) (Guidance, bool) {
	f, ok := result.PrimaryFinding()
	if !ok {
		return Guidance{}, false
	}
	return a.Explain(ctx, result, f), true
}

// Breaker exposes the circuit breaker for health reporting.
func (a *Advisor) Breaker() *resilience.Breaker { return a.breaker }

func prompt(r model.Result, f model.Finding) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Recommended action: %s (%s)\n", r.Verdict.Action, r.Verdict.Reason)
	fmt.Fprintf(&b, "Health score: %d/100\n", r.Metrics.HealthScore)
	fmt.Fprintf(&b, "Age: %.1f years (wear-adjusted %.1f)\n", r.Metrics.CalendarAge, r.Metrics.BioAge)
	fmt.Fprintf(&b, "Finding: %s, severity %s: %s\n", f.Code, f.Severity, f.Detail)
	return b.String()
}
