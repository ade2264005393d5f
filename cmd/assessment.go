package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/opterra/internal/guidance"
	"github.com/sells-group/opterra/internal/model"
	"github.com/sells-group/opterra/internal/pricing"
)

// assessment is one evaluated snapshot with its priced budget and, when
// requested, the explanation of its primary finding.
type assessment struct {
	Fingerprint string               `json:"fingerprint"`
	Snapshot    model.Snapshot       `json:"snapshot"`
	Result      model.Result         `json:"result"`
	Replacement *pricing.Replacement `json:"replacement,omitempty"`
	Guidance    *guidance.Guidance   `json:"guidance,omitempty"`
}

// prepareSnapshot anchors an undated snapshot to the start of today, so
// date outputs are populated and fingerprints roll over daily.
func prepareSnapshot(s model.Snapshot, now time.Time) model.Snapshot {
	if s.AsOf.IsZero() {
		s.AsOf = now.UTC().Truncate(24 * time.Hour)
	}
	return s
}

// runAssessment prices the snapshot when no replacement cost is supplied and
// runs the engine. The snapshot must already be prepared.
func runAssessment(ctx context.Context, env *appEnv, snap model.Snapshot) assessment {
	start := time.Now()
	fp := snap.Fingerprint()

	priced, repl := env.Pricing.Apply(ctx, snap, env.Engine.Params().MaxPSI)
	res := env.Engine.Assess(priced)

	env.Metrics.ObserveAssessment(string(res.Verdict.Action), res.Verdict.RuleID, res.Metrics.HealthScore, time.Since(start))

	return assessment{
		Fingerprint: fp,
		Snapshot:    priced,
		Result:      res,
		Replacement: repl,
	}
}

// explain attaches guidance for the primary finding.
func explain(ctx context.Context, env *appEnv, a *assessment) {
	if env.Advisor == nil {
		return
	}
	if g, ok := env.Advisor.ExplainPrimary(ctx, a.Result); ok {
		a.Guidance = &g
	}
}

// readSnapshot reads a snapshot from path, or stdin when path is "-". Stdin
// and .json files go through the strict JSON decoder, which rejects unknown
// fields; any other file is decoded as YAML.
func readSnapshot(path string, stdin io.Reader) (model.Snapshot, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return model.Snapshot{}, eris.Wrapf(err, "read snapshot %s", path)
	}

	var s model.Snapshot
	if path == "-" || strings.EqualFold(filepath.Ext(path), ".json") {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&s); err != nil {
			return model.Snapshot{}, eris.Wrapf(err, "parse snapshot %s", path)
		}
		return s, nil
	}

	if err := yaml.Unmarshal(data, &s); err != nil {
		return model.Snapshot{}, eris.Wrapf(err, "parse snapshot %s", path)
	}
	return s, nil
}
