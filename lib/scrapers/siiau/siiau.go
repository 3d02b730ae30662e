package siiau

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"siiau-backend/lib/restyutil"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/text/encoding/charmap"
)

var tracer = otel.Tracer("siiau.lib.scrapers.siiau")

const (
	DefaultBaseUrl   = "https://siiauescolar.siiau.udg.mx"
	DefaultTimeout   = time.Second * 30
	DefaultMaxRows   = 1000000
	DefaultUserAgent = "siiau-backend/1.0"
	offeringPath     = "/wal/sspseca.consulta_oferta"
)

var (
	ErrTransport = errors.New("transport failure")
	ErrDecode    = errors.New("decode failure")
)

// FetchRequest selects which part of the course offering to download.
type FetchRequest struct {
	// Term is the school cycle, e.g. "202520".
	Term string
	// Center is the campus code, empty means every campus.
	Center string
	// Major is the program code, e.g. "ICOM".
	Major string
	// MaxRows is the page size, 0 means DefaultMaxRows.
	MaxRows int
}

// Fetcher downloads the raw course-offering document.
type Fetcher interface {
	Fetch(ctx context.Context, req FetchRequest) ([]byte, error)
}

type ClientOptions struct {
	// BaseUrl defaults to DefaultBaseUrl.
	BaseUrl string
	// Timeout defaults to DefaultTimeout.
	Timeout time.Duration
	// VerifyTLS enables certificate verification, the portal is known
	// to serve an incomplete chain so it is off by default.
	VerifyTLS bool
	UserAgent string
	// Output receives request dumps when debug logging is on, can be nil.
	Output restyutil.InstrumentOutput
}

type Client struct {
	http    *resty.Client
	baseUrl string
}

func NewClient(opts ClientOptions) *Client {
	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultBaseUrl
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}

	client := resty.New().
		SetTimeout(opts.Timeout).
		SetHeader("User-Agent", opts.UserAgent).
		SetTLSClientConfig(&tls.Config{
			InsecureSkipVerify: !opts.VerifyTLS,
		})
	restyutil.InstrumentClient(client, tracer, opts.Output)

	return &Client{http: client, baseUrl: opts.BaseUrl}
}

// OfferingUrl builds the course offering query url for req.
func OfferingUrl(baseUrl string, req FetchRequest) (string, error) {
	link, err := url.Parse(baseUrl)
	if err != nil {
		return "", err
	}
	link = link.JoinPath(offeringPath)

	maxRows := req.MaxRows
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}

	// the portal expects the parameters in this exact order, so the query
	// is not built with url.Values (which sorts keys)
	link.RawQuery = fmt.Sprintf(
		"ciclop=%s&cup=%s&majrp=%s&mostrarp=%s",
		url.QueryEscape(req.Term),
		url.QueryEscape(req.Center),
		url.QueryEscape(req.Major),
		strconv.Itoa(maxRows),
	)
	return link.String(), nil
}

func (c *Client) Fetch(ctx context.Context, req FetchRequest) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "Fetch")
	defer span.End()
	span.SetAttributes(
		attribute.String("term", req.Term),
		attribute.String("center", req.Center),
		attribute.String("major", req.Major),
	)

	link, err := OfferingUrl(c.baseUrl, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid base url")
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}

	res, err := c.http.R().
		SetContext(ctx).
		Get(link)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	if res.IsError() {
		err = fmt.Errorf("%w: unexpected status %s", ErrTransport, res.Status())
		span.RecordError(err)
		span.SetStatus(codes.Error, "unexpected status")
		return nil, err
	}

	body := res.Body()
	span.SetAttributes(attribute.Int("bytes", len(body)))
	return body, nil
}

// Decode converts a Latin-1 encoded document into a utf-8 string.
func Decode(raw []byte) (string, error) {
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return string(decoded), nil
}
