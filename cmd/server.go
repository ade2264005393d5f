package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/sells-group/opterra/internal/model"
	"github.com/sells-group/opterra/internal/pricing"
	"github.com/sells-group/opterra/internal/store"
)

const maxBodyBytes = 1 << 20

// server exposes assessments, leads and prices over HTTP.
type server struct {
	env   *appEnv
	cache *lru.Cache[string, assessment] // nil disables memoization
	now   func() time.Time
}

func newServer(env *appEnv, cacheSize int) *server {
	s := &server{env: env, now: time.Now}
	if cacheSize > 0 {
		c, err := lru.New[string, assessment](cacheSize)
		if err != nil {
			zap.L().Warn("result cache disabled", zap.Error(err))
		} else {
			s.cache = c
		}
	}
	return s
}

// routes builds the chi router.
func (s *server) routes(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Cache"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)
	if s.env.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.env.Metrics.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/assess", s.assess)
		r.Post("/leads", s.createLead)
		r.Get("/leads", s.listLeads)
		r.Get("/leads/{id}", s.getLead)
		r.Get("/prices", s.price)
	})
	return r
}

// observe logs each request and records it on the collector under its
// route pattern.
func (s *server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		latency := time.Since(start)
		s.env.Metrics.HTTPRequest(route, r.Method, status, latency)

		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("latency", latency),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *server) health(w http.ResponseWriter, r *http.Request) {
	body := map[string]string{"status": "ok"}
	code := http.StatusOK

	if s.env.Store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.env.Store.Ping(ctx); err != nil {
			body["status"] = "degraded"
			body["store"] = "unreachable"
			code = http.StatusServiceUnavailable
		}
	}
	if s.env.Advisor != nil {
		body["guidance"] = s.env.Advisor.Breaker().State().String()
	}
	writeJSONResponse(w, code, body)
}

// evaluate returns the memoized assessment for the snapshot, running it on
// a miss.
func (s *server) evaluate(ctx context.Context, snap model.Snapshot) (assessment, bool) {
	snap = prepareSnapshot(snap, s.now())
	fp := snap.Fingerprint()

	if s.cache != nil {
		if a, ok := s.cache.Get(fp); ok {
			s.env.Metrics.CacheLookup(true)
			return a, true
		}
		s.env.Metrics.CacheLookup(false)
	}

	a := runAssessment(ctx, s.env, snap)
	if s.cache != nil {
		s.cache.Add(fp, a)
	}
	return a, false
}

func (s *server) assess(w http.ResponseWriter, r *http.Request) {
	var snap model.Snapshot
	if !decodeBody(w, r, &snap) {
		return
	}

	a, hit := s.evaluate(r.Context(), snap)
	if r.URL.Query().Get("explain") == "true" {
		explain(r.Context(), s.env, &a)
	}

	w.Header().Set("X-Cache", cacheHeader(hit))
	writeJSONResponse(w, http.StatusOK, a)
}

type leadRequest struct {
	Contact  model.Contact  `json:"contact"`
	Snapshot model.Snapshot `json:"snapshot"`
	Note     string         `json:"note"`
}

type leadResponse struct {
	Lead       model.Lead       `json:"lead"`
	Reminders  []model.Reminder `json:"reminders"`
	Assessment assessment       `json:"assessment"`
}

func (s *server) createLead(w http.ResponseWriter, r *http.Request) {
	if s.env.Dispatcher == nil {
		writeError(w, http.StatusServiceUnavailable, "lead delivery is not configured")
		return
	}

	var req leadRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.Contact.Name = strings.TrimSpace(req.Contact.Name)
	if req.Contact.Name == "" {
		writeError(w, http.StatusBadRequest, "contact.name is required")
		return
	}
	if _, err := mail.ParseAddress(req.Contact.Email); err != nil {
		writeError(w, http.StatusBadRequest, "contact.email is invalid")
		return
	}

	a, _ := s.evaluate(r.Context(), req.Snapshot)
	lead := s.env.Dispatcher.SubmitLead(r.Context(), leadFrom(req, a))
	reminders := s.env.Dispatcher.ScheduleReminders(r.Context(), lead.ID, a.Result.Maintenance)

	zap.L().Info("lead accepted",
		zap.String("lead_id", lead.ID),
		zap.String("action", string(lead.Action)),
		zap.Int("reminders", len(reminders)),
	)

	writeJSONResponse(w, http.StatusAccepted, leadResponse{
		Lead:       lead,
		Reminders:  reminders,
		Assessment: a,
	})
}

// leadFrom copies the verdict and budget of an assessment onto a lead.
func leadFrom(req leadRequest, a assessment) model.Lead {
	return model.Lead{
		Contact:     req.Contact,
		Fingerprint: a.Fingerprint,
		Action:      a.Result.Verdict.Action,
		RuleID:      a.Result.Verdict.RuleID,
		HealthScore: a.Result.Metrics.HealthScore,
		Urgency:     a.Result.Financial.Urgency,
		Budget:      a.Result.Financial.ReplacementCost,
		Note:        strings.TrimSpace(req.Note),
	}
}

func (s *server) getLead(w http.ResponseWriter, r *http.Request) {
	if s.env.Store == nil {
		writeError(w, http.StatusServiceUnavailable, "store is not configured")
		return
	}
	id := chi.URLParam(r, "id")
	lead, err := s.env.Store.GetLead(r.Context(), id)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, "lead not found")
			return
		}
		zap.L().Error("get lead", zap.String("lead_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	writeJSONResponse(w, http.StatusOK, lead)
}

func (s *server) listLeads(w http.ResponseWriter, r *http.Request) {
	if s.env.Store == nil {
		writeError(w, http.StatusServiceUnavailable, "store is not configured")
		return
	}
	q := r.URL.Query()
	filter := store.LeadFilter{
		Action:  model.Action(strings.ToUpper(q.Get("action"))),
		Urgency: model.Urgency(strings.ToUpper(q.Get("urgency"))),
	}
	if v := q.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be an RFC 3339 timestamp")
			return
		}
		filter.Since = t
	}
	for name, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		if v := q.Get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				writeError(w, http.StatusBadRequest, name+" must be a non-negative integer")
				return
			}
			*dst = n
		}
	}

	leads, err := s.env.Store.ListLeads(r.Context(), filter)
	if err != nil {
		zap.L().Error("list leads", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if leads == nil {
		leads = []model.Lead{}
	}
	writeJSONResponse(w, http.StatusOK, leads)
}

// price resolves a quote for the unit described by the query string.
func (s *server) price(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	unit := model.UnitProfile{
		FuelType:     model.ParseFuelType(q.Get("fuel_type")),
		Manufacturer: q.Get("manufacturer"),
		Model:        q.Get("model"),
		Tier:         model.Tier(q.Get("tier")),
	}
	if v := q.Get("capacity"); v != "" {
		c, err := strconv.ParseFloat(v, 64)
		if err != nil || c < 0 {
			writeError(w, http.StatusBadRequest, "capacity must be a non-negative number")
			return
		}
		unit.CapacityGallons = c
	}

	res := s.env.Pricing.Lookup(r.Context(), pricing.KeyFor(unit))
	writeJSONResponse(w, http.StatusOK, res)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func cacheHeader(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}

func writeJSONResponse(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSONResponse(w, code, map[string]string{"error": msg})
}
