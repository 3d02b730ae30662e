package markup

import (
	"io"
	"strings"
)

type options struct {
	filter TextFilter
}

type Option func(o *options)

// WithTextFilter replaces DefaultTextFilter.
func WithTextFilter(filter TextFilter) Option {
	return func(o *options) {
		o.filter = filter
	}
}

// Extractor rebuilds the nesting of table and tr elements out of a flat event
// stream. It keeps an explicit stack of the open containers, the top of the
// stack is where cell text is appended.
//
// The zero value is not usable, use NewExtractor.
type Extractor struct {
	root      *Node
	open      []*Node
	lastTag   string
	openCells int
	filter    TextFilter
}

func NewExtractor(opts ...Option) *Extractor {
	o := options{filter: DefaultTextFilter}
	for _, opt := range opts {
		opt(&o)
	}
	root := &Node{Kind: KindDocument}
	return &Extractor{
		root:   root,
		open:   []*Node{root},
		filter: o.filter,
	}
}

func (e *Extractor) top() *Node {
	return e.open[len(e.open)-1]
}

func (e *Extractor) push(kind NodeKind) {
	n := &Node{Kind: kind}
	parent := e.top()
	parent.Children = append(parent.Children, n)
	e.open = append(e.open, n)
}

// popTo closes containers up to and including the innermost one of the given
// kind. Nothing happens if no such container is open above the stop kind.
func (e *Extractor) popTo(kind NodeKind, stop NodeKind) {
	for i := len(e.open) - 1; i > 0; i-- {
		k := e.open[i].Kind
		if k == kind {
			e.open = e.open[:i]
			break
		}
		if k == stop {
			return
		}
	}
	if len(e.open) == 1 {
		e.openCells = 0
	}
}

// Step consumes a single event.
func (e *Extractor) Step(ev Event) {
	switch ev.Kind {
	case EventStartTag:
		name := strings.ToLower(ev.Name)
		e.lastTag = name
		switch name {
		case "table":
			e.push(KindTable)
		case "tr":
			// rows outside of any table have nothing to belong to
			if len(e.open) == 1 {
				return
			}
			// an unclosed row is implicitly closed by the next one
			if e.top().Kind == KindRow {
				e.open = e.open[:len(e.open)-1]
			}
			e.push(KindRow)
		case "td":
			e.openCells++
		}
	case EventEndTag:
		e.lastTag = ""
		switch strings.ToLower(ev.Name) {
		case "table":
			e.popTo(KindTable, KindDocument)
		case "tr":
			e.popTo(KindRow, KindTable)
		case "td":
			if e.openCells > 0 {
				e.openCells--
			}
		}
	case EventText:
		e.text(ev.Value)
	}
}

func (e *Extractor) text(value string) {
	switch e.lastTag {
	case "td":
	case "a":
		if e.openCells == 0 {
			return
		}
	default:
		return
	}
	// text outside of any table has no container to belong to
	if len(e.open) == 1 {
		return
	}
	value = strings.TrimSpace(value)
	if !e.filter(value) {
		return
	}
	parent := e.top()
	parent.Children = append(parent.Children, &Node{Kind: KindCell, Text: value})
}

// Tree returns the document node, its children are the top-level tables.
// It may be called at any point, containers that are still open are included.
func (e *Extractor) Tree() *Node {
	return e.root
}

// Extract runs a fresh Extractor over events.
func Extract(events []Event, opts ...Option) *Node {
	e := NewExtractor(opts...)
	for _, ev := range events {
		e.Step(ev)
	}
	return e.Tree()
}

// ExtractReader tokenizes r and extracts it without buffering the events.
func ExtractReader(r io.Reader, opts ...Option) *Node {
	e := NewExtractor(opts...)
	Stream(r, e.Step)
	return e.Tree()
}
