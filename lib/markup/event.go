package markup

import (
	"io"

	"golang.org/x/net/html"
)

type EventKind int

const (
	EventStartTag EventKind = iota
	EventEndTag
	EventText
)

type Attr struct {
	Key string
	Val string
}

// Event is one item of a flat markup stream. Name is set for tag events,
// Value for text events.
type Event struct {
	Kind  EventKind
	Name  string
	Attrs []Attr
	Value string
}

func StartTag(name string, attrs ...Attr) Event {
	return Event{Kind: EventStartTag, Name: name, Attrs: attrs}
}

func EndTag(name string) Event {
	return Event{Kind: EventEndTag, Name: name}
}

func Text(value string) Event {
	return Event{Kind: EventText, Value: value}
}

// Stream tokenizes r and hands every tag and text event to emit, comments and
// doctypes are dropped. Tokenizer errors other than EOF end the stream early,
// the events emitted up to that point are still valid.
func Stream(r io.Reader, emit func(Event)) {
	z := html.NewTokenizer(r)
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return
		case html.TextToken:
			emit(Text(string(z.Text())))
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			var attrs []Attr
			for hasAttr {
				var key, val []byte
				key, val, hasAttr = z.TagAttr()
				attrs = append(attrs, Attr{Key: string(key), Val: string(val)})
			}
			tag := string(name)
			emit(StartTag(tag, attrs...))
			if tt == html.SelfClosingTagToken {
				emit(EndTag(tag))
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			emit(EndTag(string(name)))
		}
	}
}

// Tokenize collects the whole event stream of r.
func Tokenize(r io.Reader) []Event {
	var events []Event
	Stream(r, func(ev Event) {
		events = append(events, ev)
	})
	return events
}
