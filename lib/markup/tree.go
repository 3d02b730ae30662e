package markup

import "strings"

type NodeKind int

const (
	KindDocument NodeKind = iota
	KindTable
	KindRow
	KindCell
)

func (k NodeKind) String() string {
	switch k {
	case KindDocument:
		return "document"
	case KindTable:
		return "table"
	case KindRow:
		return "row"
	case KindCell:
		return "cell"
	}
	return "unknown"
}

// Node is one element of an extracted table tree. Cells are leaves carrying
// Text, every other kind only carries Children.
type Node struct {
	Kind     NodeKind
	Text     string
	Children []*Node
}

func (n *Node) IsCell() bool {
	return n != nil && n.Kind == KindCell
}

// Tables returns the direct children of n that are tables.
func (n *Node) Tables() []*Node {
	return n.childrenOf(KindTable)
}

// Rows returns the direct children of n that are rows.
func (n *Node) Rows() []*Node {
	return n.childrenOf(KindRow)
}

func (n *Node) childrenOf(kind NodeKind) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for _, c := range n.Children {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

// Values returns the text of the direct cell children of n, in order.
func (n *Node) Values() []string {
	if n == nil {
		return nil
	}
	var out []string
	for _, c := range n.Children {
		if c.Kind == KindCell {
			out = append(out, c.Text)
		}
	}
	return out
}

// String renders the tree as nested brackets, cells are quoted.
// e.g. [["a" "b" [["c"]]]]
func (n *Node) String() string {
	var b strings.Builder
	n.write(&b)
	return b.String()
}

func (n *Node) write(b *strings.Builder) {
	if n == nil {
		b.WriteString("<nil>")
		return
	}
	if n.Kind == KindCell {
		b.WriteByte('"')
		b.WriteString(n.Text)
		b.WriteByte('"')
		return
	}
	b.WriteByte('[')
	for i, c := range n.Children {
		if i > 0 {
			b.WriteByte(' ')
		}
		c.write(b)
	}
	b.WriteByte(']')
}
