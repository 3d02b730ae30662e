package markup

import (
	"fmt"
	"strings"
	"testing"
)

func checkTree(n *Node, depth int) error {
	switch n.Kind {
	case KindCell:
		if len(n.Children) > 0 {
			return fmt.Errorf("cell %q has children", n.Text)
		}
		if !DefaultTextFilter(n.Text) {
			return fmt.Errorf("cell %q should have been filtered", n.Text)
		}
		return nil
	case KindDocument:
		if depth > 0 {
			return fmt.Errorf("nested document")
		}
		for _, c := range n.Children {
			if c.Kind != KindTable {
				return fmt.Errorf("top-level %s", c.Kind)
			}
		}
	}
	for _, c := range n.Children {
		err := checkTree(c, depth+1)
		if err != nil {
			return err
		}
	}
	return nil
}

func FuzzExtractReader(f *testing.F) {
	f.Add(offeringPage)
	f.Add(`<table><tr><td>a</td></table></tr></td>`)
	f.Add(`</table></tr><td>x</td><table>`)
	f.Add(`<table><tr><td><a href="#">link</a> tail</td></tr></table>`)
	f.Add(`<table><tr><td>\x</td><td>ñ</td><td/></tr></table>`)

	f.Fuzz(func(t *testing.T, input string) {
		tree := ExtractReader(strings.NewReader(input))
		if tree == nil {
			t.Fatal("nil tree")
		}
		err := checkTree(tree, 0)
		if err != nil {
			t.Fatalf("%v: %s", err, tree.String())
		}
	})
}
