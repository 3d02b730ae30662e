package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"siiau-backend/internal/assert"
	"siiau-backend/internal/telemetry"
	libcatalog "siiau-backend/lib/catalog"
	"siiau-backend/lib/htmlutil"
	"siiau-backend/lib/markup"
	"siiau-backend/lib/scrapers/siiau"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/singleflight"
)

var tracer = otel.Tracer("siiau.services.catalog")

var meter = otel.Meter("siiau.services.catalog")
var sectionsGauge, _ = meter.Int64Gauge("catalog.sections")
var refreshFailures, _ = meter.Int64Counter("catalog.refresh.failures")

const (
	report_fetch          = "refresh.fetch"
	report_decode         = "refresh.decode"
	report_empty_document = "refresh.empty-document"
	report_table_count    = "refresh.table-count-mismatch"
	report_build          = "refresh.build"
	report_published      = "refresh.published"
)

const (
	DefaultInterval       = time.Minute * 10
	DefaultRefreshTimeout = time.Minute
)

type ServiceOptions struct {
	Fetcher    siiau.Fetcher
	Request    siiau.FetchRequest
	Curriculum libcatalog.Curriculum
	// SubjectMarker is passed to every snapshot, see libcatalog.SnapshotOptions.
	SubjectMarker string
	// TextFilter defaults to markup.DefaultTextFilter.
	TextFilter markup.TextFilter
	// Interval between refreshes in Run, defaults to DefaultInterval.
	Interval time.Duration
	// RefreshTimeout bounds a single refresh started by Run.
	RefreshTimeout time.Duration
	// Telemetry defaults to telemetry.SlogAPI.
	Telemetry telemetry.API
}

// Service keeps the latest catalog snapshot. Readers never block, a refresh
// builds a whole new snapshot and swaps it in.
type Service struct {
	opts    ServiceOptions
	tel     telemetry.API
	current atomic.Pointer[libcatalog.Snapshot]
	flight  singleflight.Group
}

func NewService(opts ServiceOptions) *Service {
	assert.NotNil(opts.Fetcher, "fetcher")
	if opts.TextFilter == nil {
		opts.TextFilter = markup.DefaultTextFilter
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.RefreshTimeout <= 0 {
		opts.RefreshTimeout = DefaultRefreshTimeout
	}
	tel := opts.Telemetry
	if tel == nil {
		tel = telemetry.SlogAPI{}
	}

	s := &Service{opts: opts, tel: tel}
	s.current.Store(s.newSnapshot(nil))
	return s
}

func (s *Service) newSnapshot(sections []libcatalog.Section) *libcatalog.Snapshot {
	return libcatalog.NewSnapshot(sections, libcatalog.SnapshotOptions{
		Curriculum:    s.opts.Curriculum,
		SubjectMarker: s.opts.SubjectMarker,
		Telemetry:     s.tel,
	})
}

// Snapshot returns the currently published snapshot, it is never nil.
func (s *Service) Snapshot() *libcatalog.Snapshot {
	return s.current.Load()
}

func (s *Service) Resolve(q libcatalog.Query) []libcatalog.Section {
	return s.Snapshot().Resolve(q)
}

func (s *Service) Search(term string, limit int) []libcatalog.Section {
	return s.Snapshot().Search(term, limit)
}

func (s *Service) Suggest(term string, n int) []string {
	return s.Snapshot().Suggest(term, n)
}

type RefreshResult struct {
	Sections int
	Tables   int
	Digest   string
	// Changed is false when the new snapshot is identical to the previous one.
	Changed bool
	// Empty is true when the document had no tables at all.
	Empty bool
}

// Refresh downloads the course offering and publishes a new snapshot.
// Concurrent calls for the same term share a single download.
// On a transport or decode failure the previous snapshot stays published.
func (s *Service) Refresh(ctx context.Context) (RefreshResult, error) {
	key := fmt.Sprintf("%s/%s/%s", s.opts.Request.Term, s.opts.Request.Center, s.opts.Request.Major)
	res, err, _ := s.flight.Do(key, func() (any, error) {
		return s.refresh(ctx)
	})
	if err != nil {
		return RefreshResult{}, err
	}
	return res.(RefreshResult), nil
}

func (s *Service) fail(ctx context.Context, id string, err error) error {
	s.tel.ReportBroken(id, err, telemetry.KV{Key: "term", Value: s.opts.Request.Term})
	refreshFailures.Add(ctx, 1, metricAttrs(s.opts.Request))
	return err
}

func metricAttrs(req siiau.FetchRequest) metric.MeasurementOption {
	return metric.WithAttributes(
		attribute.String("term", req.Term),
		attribute.String("major", req.Major),
	)
}

func (s *Service) refresh(ctx context.Context) (RefreshResult, error) {
	ctx, span := tracer.Start(ctx, "Refresh")
	defer span.End()

	raw, err := s.opts.Fetcher.Fetch(ctx, s.opts.Request)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return RefreshResult{}, s.fail(ctx, report_fetch, err)
	}
	text, err := siiau.Decode(raw)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode failed")
		return RefreshResult{}, s.fail(ctx, report_decode, err)
	}

	tree := markup.ExtractReader(strings.NewReader(text), markup.WithTextFilter(s.opts.TextFilter))
	tables := len(tree.Tables())
	s.checkTableCount(ctx, text, tables)

	sections, err := libcatalog.BuildSections(tree, s.tel)
	result := RefreshResult{Tables: tables}
	if errors.Is(err, libcatalog.ErrEmptyDocument) {
		s.tel.ReportWarning(report_empty_document, telemetry.KV{Key: "bytes", Value: len(raw)})
		result.Empty = true
	} else if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "build failed")
		return RefreshResult{}, s.fail(ctx, report_build, err)
	}

	next := s.newSnapshot(sections)
	previous := s.current.Swap(next)

	result.Sections = next.Len()
	result.Digest = next.Digest()
	result.Changed = previous == nil || previous.Digest() != result.Digest

	sectionsGauge.Record(ctx, int64(result.Sections), metricAttrs(s.opts.Request))
	span.SetAttributes(
		attribute.Int("sections", result.Sections),
		attribute.Bool("changed", result.Changed),
	)
	s.tel.ReportCount(report_published, int64(result.Sections))
	return result, nil
}

// checkTableCount compares the number of top-level tables the extractor saw
// against an html5 parser, a difference usually means the page changed shape.
func (s *Service) checkTableCount(ctx context.Context, text string, extracted int) {
	parsed, err := htmlutil.CountTopLevelTables(ctx, strings.NewReader(text))
	if err != nil {
		slog.DebugContext(ctx, "count tables with goquery", "err", err)
		return
	}
	if parsed == extracted {
		return
	}

	captions, _ := htmlutil.TableCaptions(ctx, strings.NewReader(text))
	s.tel.ReportWarning(
		report_table_count,
		telemetry.KV{Key: "extracted", Value: extracted},
		telemetry.KV{Key: "parsed", Value: parsed},
		telemetry.KV{Key: "captions", Value: captions},
	)
}

func (s *Service) refreshOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.RefreshTimeout)
	defer cancel()

	res, err := s.Refresh(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "refresh catalog", "err", err)
		return
	}
	slog.InfoContext(
		ctx, "catalog refreshed",
		"sections", res.Sections,
		"changed", res.Changed,
	)
}

// Run refreshes the catalog every interval until ctx is cancelled. If
// immediate is set the first refresh happens right away.
func (s *Service) Run(ctx context.Context, immediate bool) {
	if immediate {
		s.refreshOnce(ctx)
	}

	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refreshOnce(ctx)
		}
	}
}
