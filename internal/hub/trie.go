// Package hub classifies visited pages as "hub" (index-like) or not, using
// a per-host URL-prefix trie: a page visited disproportionately more than
// its structural siblings or children is likely a landing page worth
// surfacing over deep, rarely visited sub-pages.
package hub

import (
	"strings"

	"github.com/hpungsan/retrace/internal/corpus"
)

// node is one path segment of a host's URL structure. The arena keeps
// parents as indexes, not pointers.
type node struct {
	seg      string
	v        int64
	parent   int
	children map[string]int
	hub      bool
}

// Trie is a per-host URL-prefix trie. Nodes are held in an arena slice in
// creation order; index 0 is the root.
type Trie struct {
	nodes []node
}

// NewTrie creates a trie with a bare root.
func NewTrie() *Trie {
	return &Trie{nodes: []node{{parent: -1, children: map[string]int{}}}}
}

// Len returns the node count, root included.
func (t *Trie) Len() int {
	return len(t.nodes)
}

// Insert walks/extends the trie along segments and returns the terminal
// node index. The terminal's visit weight is set only if it was never set
// before (newly created nodes, or nodes first created as intermediates
// with zero weight); revisits never overwrite it.
func (t *Trie) Insert(segments []string, visitCount int64) int {
	cur := 0
	for _, seg := range segments {
		next, ok := t.nodes[cur].children[seg]
		if !ok {
			next = len(t.nodes)
			t.nodes = append(t.nodes, node{
				seg:      seg,
				parent:   cur,
				children: map[string]int{},
			})
			t.nodes[cur].children[seg] = next
		}
		cur = next
	}
	if t.nodes[cur].v == 0 {
		t.nodes[cur].v = visitCount
	}
	return cur
}

// IsHub reports the classification of a node by index.
func (t *Trie) IsHub(idx int) bool {
	if idx < 0 || idx >= len(t.nodes) {
		return false
	}
	return t.nodes[idx].hub
}

// Classify applies the hub rule to every node in creation order. The root
// is never classified. ratio is the dominance threshold (2.0 by default
// config); all comparisons are strict, and zero-count divisions
// short-circuit to "not a hub".
func (t *Trie) Classify(ratio float64) {
	for i := 1; i < len(t.nodes); i++ {
		n := &t.nodes[i]

		if len(n.children) > 0 {
			// A node whose own visits dominate its children's average is a
			// hub relative to its children.
			var total int64
			for _, ci := range n.children {
				total += t.nodes[ci].v
			}
			avg := float64(total) / float64(len(n.children))
			if ratio*avg < float64(n.v) {
				n.hub = true
			}
			continue
		}

		// Leaf: compare against the sibling average (computed fresh,
		// including itself). A single child has nothing to compare
		// against: insufficient evidence, not a hub.
		p := t.nodes[n.parent]
		if len(p.children) <= 1 {
			continue
		}
		var total int64
		for _, ci := range p.children {
			total += t.nodes[ci].v
		}
		avg := float64(total) / float64(len(p.children))
		if float64(n.v) > ratio*avg {
			n.hub = true
		}
	}
}

// PathSegments splits a URL's path (plus a path-style fragment) into trie
// segments. Empty segments and pure anchor markers are discarded. Returns
// ok=false for URLs that are not real http(s) URLs; those pages are
// skipped, not fatal.
func PathSegments(rawURL string) ([]string, bool) {
	u, ok := corpus.ParseWebURL(rawURL)
	if !ok {
		return nil, false
	}

	p := u.Path
	if strings.HasPrefix(u.Fragment, "/") {
		// Single-page apps route under "#/..."; treat it as path.
		p += u.Fragment
	}

	parts := strings.Split(p, "/")
	segments := make([]string, 0, len(parts))
	for _, s := range parts {
		if s == "" || s == "#" {
			continue
		}
		segments = append(segments, s)
	}
	return segments, true
}
