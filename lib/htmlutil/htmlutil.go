package htmlutil

import (
	"context"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("siiau.lib.htmlutil")

// CountTopLevelTables parses r as an html5 document and counts the tables
// that are not nested inside another table.
func CountTopLevelTables(ctx context.Context, r io.Reader) (int, error) {
	_, span := tracer.Start(ctx, "CountTopLevelTables")
	defer span.End()

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse document")
		return 0, err
	}

	count := doc.Find("table").Not("table table").Length()
	span.SetAttributes(attribute.Int("tables", count))
	return count, nil
}

// TableCaptions returns the trimmed text of the first row of every top-level
// table, useful to tell apart the page layout tables in logs.
func TableCaptions(ctx context.Context, r io.Reader) ([]string, error) {
	_, span := tracer.Start(ctx, "TableCaptions")
	defer span.End()

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse document")
		return nil, err
	}

	var out []string
	doc.Find("table").Not("table table").Each(func(_ int, table *goquery.Selection) {
		first := table.Find("tr").First()
		out = append(out, strings.Join(strings.Fields(first.Text()), " "))
	})
	return out, nil
}
