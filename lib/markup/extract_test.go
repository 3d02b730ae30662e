package markup

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const offeringPage = `<html><body>
<table class="td1">
	<tr><th>CU</th><th>NRC</th></tr>
	<tr>
		<td>CUCEI</td><td><a href="#">216502</a></td><td>IL340</td><td>Intro to Systems</td>
		<td>D</td><td>4</td><td>40</td><td>3</td>
		<td><table><tr><td>01</td><td>0700-0855</td><td>. M . J . .</td><td>DEDX</td><td>A003</td><td>16/01/25 - 31/05/25</td></tr></table></td>
		<td><table><tr><td>01</td><td>PEREZ LOPEZ, JUAN</td></tr></table></td>
	</tr>
</table>
<table><tr><td>footer</td></tr></table>
</body></html>`

func TestExtractSyntheticEvents(t *testing.T) {
	events := []Event{
		StartTag("table"),
		StartTag("tr"),
		StartTag("td"), Text("a"), EndTag("td"),
		StartTag("td"),
		StartTag("table"),
		StartTag("tr"),
		StartTag("td"), Text("b"), EndTag("td"),
		StartTag("td"), Text("c"), EndTag("td"),
		EndTag("tr"),
		EndTag("table"),
		EndTag("td"),
		StartTag("td"), Text("d"), EndTag("td"),
		EndTag("tr"),
		EndTag("table"),
	}

	tree := Extract(events)
	require.Equal(t, `[[["a" [["b" "c"]] "d"]]]`, tree.String())
}

func TestExtractOfferingPage(t *testing.T) {
	tree := ExtractReader(strings.NewReader(offeringPage))

	tables := tree.Tables()
	require.Len(t, tables, 2)

	rows := tables[0].Rows()
	require.Len(t, rows, 2)
	require.Empty(t, rows[0].Children, "header cells are th and must not be captured")

	course := rows[1]
	expected := []string{"CUCEI", "216502", "IL340", "Intro to Systems", "D", "4", "40", "3"}
	if diff := cmp.Diff(expected, course.Values()); diff != "" {
		t.Fatalf("row values mismatch (-want +got):\n%s", diff)
	}

	nested := course.Tables()
	require.Len(t, nested, 2)
	require.Equal(t,
		[]string{"01", "0700-0855", ". M . J . .", "DEDX", "A003", "16/01/25 - 31/05/25"},
		nested[0].Rows()[0].Values(),
	)
	require.Equal(t, []string{"01", "PEREZ LOPEZ, JUAN"}, nested[1].Rows()[0].Values())
}

func TestTopLevelGroupsMatchTopLevelTables(t *testing.T) {
	cases := []struct {
		html   string
		tables int
	}{
		{html: ``, tables: 0},
		{html: `<p>no tables here</p>`, tables: 0},
		{html: `<table></table>`, tables: 1},
		{html: `<table><tr><td><table></table></td></tr></table><table></table>`, tables: 2},
		{html: `<div><table><tr><td>x</td></tr></table></div><table></table><table></table>`, tables: 3},
	}

	for _, test := range cases {
		tree := ExtractReader(strings.NewReader(test.html))
		require.Len(t, tree.Children, test.tables, test.html)
		require.Len(t, tree.Tables(), test.tables, test.html)
	}
}

func TestDefaultTextFilter(t *testing.T) {
	html := `<table><tr>
		<td>   </td>
		<td>\n</td>
		<td>ÁLGEBRA</td>
		<td>  kept  </td>
		<td>&nbsp;</td>
	</tr></table>`

	tree := ExtractReader(strings.NewReader(html))
	require.Equal(t, []string{"kept"}, tree.Tables()[0].Rows()[0].Values())
}

func TestPermissiveTextFilter(t *testing.T) {
	html := `<table><tr><td>ÁLGEBRA</td><td>\x</td></tr></table>`

	tree := ExtractReader(strings.NewReader(html), WithTextFilter(PermissiveTextFilter))
	require.Equal(t, []string{"ÁLGEBRA"}, tree.Tables()[0].Rows()[0].Values())
}

func TestTextOutsideCells(t *testing.T) {
	html := `<a>top</a><table><caption>caption</caption><tr><a>loose</a><td>in<b>bold</b>after</td></tr></table>`

	tree := ExtractReader(strings.NewReader(html))
	require.Equal(t, `[[["in"]]]`, tree.String())
}

func TestMalformedMarkup(t *testing.T) {
	cases := []struct {
		name     string
		html     string
		expected string
	}{
		{
			name:     "unclosed table",
			html:     `<table><tr><td>a</td>`,
			expected: `[[["a"]]]`,
		},
		{
			name:     "stray end tags",
			html:     `</tr></table></td><table><tr><td>a</td></tr></table></table>`,
			expected: `[[["a"]]]`,
		},
		{
			name:     "row outside of a table",
			html:     `<tr><td>x</td></tr><table><tr><td>a</td></tr></table>`,
			expected: `[[["a"]]]`,
		},
		{
			name:     "rows without end tags",
			html:     `<table><tr><td>a<tr><td>b</table>`,
			expected: `[[["a"] ["b"]]]`,
		},
		{
			name:     "row end tag does not close the enclosing table",
			html:     `<table><tr><td><table></tr><td>x</td></table></td></tr></table>`,
			expected: `[[[["x"]]]]`,
		},
	}

	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			require.NotPanics(t, func() {
				tree := ExtractReader(strings.NewReader(test.html))
				require.Equal(t, test.expected, tree.String())
			})
		})
	}
}

func TestTokenizeSelfClosing(t *testing.T) {
	events := Tokenize(strings.NewReader(`<td a="1"/>hi<!-- c -->`))
	require.Equal(t, []Event{
		StartTag("td", Attr{Key: "a", Val: "1"}),
		EndTag("td"),
		Text("hi"),
	}, events)
}
