package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"siiau-backend/internal/assert"
	"siiau-backend/internal/chrono"
	"siiau-backend/lib/catalog"
	"siiau-backend/lib/icalexport"
	"siiau-backend/lib/textutil"
	"siiau-backend/services/subscriptions"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("siiau.services.api")

const (
	defaultSearchLimit = 25
	maxSearchLimit     = 200
	suggestions        = 5
)

// Catalog provides the latest published catalog.
type Catalog interface {
	Snapshot() *catalog.Snapshot
}

type Options struct {
	Catalog       Catalog
	Subscriptions subscriptions.Store
	// Location is the timezone of the exported calendars, defaults to
	// chrono.Guadalajara.
	Location *time.Location
}

type handler struct {
	opts Options
}

// NewHandler returns the JSON api:
//
//	GET    /status
//	GET    /resolve?q=<token>[,<token>...][&q=<token>...]
//	GET    /search?q=<term>[&limit=<n>]
//	GET    /sections/{nrc}
//	GET    /sections/{nrc}/ical
//	GET    /ical?q=<token>[&q=<token>...]
//	GET    /subscriptions?user=<id>
//	POST   /subscriptions
//	DELETE /subscriptions?user=<id>&key=<nrc or subject code>
func NewHandler(opts Options) http.Handler {
	assert.NotNil(opts.Catalog, "catalog")
	if opts.Location == nil {
		opts.Location = chrono.Guadalajara()
	}

	h := handler{opts: opts}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", traced("status", h.status))
	mux.HandleFunc("GET /resolve", traced("resolve", h.resolve))
	mux.HandleFunc("GET /search", traced("search", h.search))
	mux.HandleFunc("GET /sections/{nrc}", traced("section", h.section))
	mux.HandleFunc("GET /sections/{nrc}/ical", traced("section_ical", h.sectionCalendar))
	mux.HandleFunc("GET /ical", traced("ical", h.calendar))
	mux.HandleFunc("GET /subscriptions", traced("list_subscriptions", h.listSubscriptions))
	mux.HandleFunc("POST /subscriptions", traced("subscribe", h.subscribe))
	mux.HandleFunc("DELETE /subscriptions", traced("unsubscribe", h.unsubscribe))
	return mux
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func traced(name string, fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), name)
		defer span.End()

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		fn(sw, r.WithContext(ctx))

		span.SetAttributes(attribute.Int("http.status_code", sw.status))
		if sw.status >= 500 {
			span.SetStatus(codes.Error, http.StatusText(sw.status))
		}
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, value any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(value)
	if err != nil {
		slog.WarnContext(r.Context(), "write response", "err", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= 500 {
		slog.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "err", err)
	}
	writeJSON(w, r, status, errorResponse{Error: err.Error()})
}

func queryTokens(r *http.Request) []string {
	var tokens []string
	for _, value := range r.URL.Query()["q"] {
		tokens = append(tokens, textutil.SplitList(value)...)
	}
	return tokens
}

type statusResponse struct {
	Sections int      `json:"sections"`
	Subjects int      `json:"subjects"`
	Groups   []string `json:"groups"`
	Digest   string   `json:"digest"`
}

func (h handler) status(w http.ResponseWriter, r *http.Request) {
	snapshot := h.opts.Catalog.Snapshot()
	writeJSON(w, r, http.StatusOK, statusResponse{
		Sections: snapshot.Len(),
		Subjects: len(snapshot.SubjectCodes()),
		Groups:   snapshot.Groups(),
		Digest:   snapshot.Digest(),
	})
}

type sectionsResponse struct {
	Sections    []catalog.Section `json:"sections"`
	Suggestions []string          `json:"suggestions,omitempty"`
}

func (h handler) resolveTokens(w http.ResponseWriter, r *http.Request) ([]catalog.Section, bool) {
	tokens := queryTokens(r)
	if len(tokens) == 0 {
		writeError(w, r, http.StatusBadRequest, fmt.Errorf("missing query parameter 'q'"))
		return nil, false
	}
	return h.opts.Catalog.Snapshot().Resolve(catalog.ParseQuery(tokens)), true
}

func (h handler) resolve(w http.ResponseWriter, r *http.Request) {
	sections, ok := h.resolveTokens(w, r)
	if !ok {
		return
	}
	if sections == nil {
		sections = []catalog.Section{}
	}
	writeJSON(w, r, http.StatusOK, sectionsResponse{Sections: sections})
}

func (h handler) search(w http.ResponseWriter, r *http.Request) {
	term := strings.TrimSpace(r.URL.Query().Get("q"))
	if term == "" {
		writeError(w, r, http.StatusBadRequest, fmt.Errorf("missing query parameter 'q'"))
		return
	}
	limit := defaultSearchLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, r, http.StatusBadRequest, fmt.Errorf("invalid limit %q", raw))
			return
		}
		limit = min(parsed, maxSearchLimit)
	}

	snapshot := h.opts.Catalog.Snapshot()
	res := sectionsResponse{Sections: snapshot.Search(term, limit)}
	if len(res.Sections) == 0 {
		res.Sections = []catalog.Section{}
		res.Suggestions = snapshot.Suggest(term, suggestions)
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (h handler) lookup(w http.ResponseWriter, r *http.Request) (catalog.Section, bool) {
	nrc := r.PathValue("nrc")
	section, ok := h.opts.Catalog.Snapshot().Section(nrc)
	if !ok {
		writeError(w, r, http.StatusNotFound, fmt.Errorf("unknown nrc %q", nrc))
		return catalog.Section{}, false
	}
	return section, true
}

func (h handler) section(w http.ResponseWriter, r *http.Request) {
	section, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, r, http.StatusOK, section)
}

func (h handler) writeCalendar(w http.ResponseWriter, r *http.Request, name string, sections []catalog.Section) {
	cal, skipped, err := icalexport.Export(sections, h.opts.Location)
	if errors.Is(err, icalexport.ErrNoEvents) {
		writeError(w, r, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	if skipped > 0 {
		slog.DebugContext(r.Context(), "skipped schedule entries", "count", skipped)
	}

	w.Header().Set("content-type", "text/calendar; charset=utf-8")
	w.Header().Set("content-disposition", fmt.Sprintf(`attachment; filename="%s.ics"`, name))
	w.WriteHeader(http.StatusOK)
	err = cal.SerializeTo(w)
	if err != nil {
		slog.WarnContext(r.Context(), "write calendar", "err", err)
	}
}

func (h handler) sectionCalendar(w http.ResponseWriter, r *http.Request) {
	section, ok := h.lookup(w, r)
	if !ok {
		return
	}
	h.writeCalendar(w, r, section.ID, []catalog.Section{section})
}

func (h handler) calendar(w http.ResponseWriter, r *http.Request) {
	sections, ok := h.resolveTokens(w, r)
	if !ok {
		return
	}
	h.writeCalendar(w, r, "horario", sections)
}

type subscriptionsResponse struct {
	Subscriptions []subscriptions.Subscription `json:"subscriptions"`
}

func (h handler) listSubscriptions(w http.ResponseWriter, r *http.Request) {
	user := strings.TrimSpace(r.URL.Query().Get("user"))
	if user == "" {
		writeError(w, r, http.StatusBadRequest, fmt.Errorf("missing query parameter 'user'"))
		return
	}
	subs, err := h.opts.Subscriptions.List(r.Context(), user)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	if subs == nil {
		subs = []subscriptions.Subscription{}
	}
	writeJSON(w, r, http.StatusOK, subscriptionsResponse{Subscriptions: subs})
}

type subscribeRequest struct {
	User      string `json:"user"`
	NRC       string `json:"nrc"`
	Threshold int    `json:"threshold"`
}

func (h handler) subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if req.Threshold == 0 {
		req.Threshold = 1
	}

	section, ok := h.opts.Catalog.Snapshot().Section(strings.TrimSpace(req.NRC))
	if !ok {
		writeError(w, r, http.StatusNotFound, fmt.Errorf("unknown nrc %q", req.NRC))
		return
	}
	sub, err := h.opts.Subscriptions.Subscribe(r.Context(), req.User, section, req.Threshold)
	if errors.Is(err, subscriptions.ErrInvalidThreshold) || errors.Is(err, subscriptions.ErrMissingUser) {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, r, http.StatusOK, sub)
}

type unsubscribeResponse struct {
	Removed int `json:"removed"`
}

func (h handler) unsubscribe(w http.ResponseWriter, r *http.Request) {
	user := strings.TrimSpace(r.URL.Query().Get("user"))
	key := strings.TrimSpace(r.URL.Query().Get("key"))
	if user == "" || key == "" {
		writeError(w, r, http.StatusBadRequest, fmt.Errorf("'user' and 'key' are required"))
		return
	}
	removed, err := h.opts.Subscriptions.Unsubscribe(r.Context(), user, key)
	if errors.Is(err, subscriptions.ErrNotSubscribed) {
		writeError(w, r, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, r, http.StatusOK, unsubscribeResponse{Removed: removed})
}
