package model

import (
	"slices"
	"strings"
)

// NodeID addresses a node of an origin Tree. IDs stay valid for the
// lifetime of the tree, including after renames and removals elsewhere.
type NodeID int

// Root is the implicit, unlabeled root of every tree.
const Root NodeID = 0

// PathSep separates labels in an origin path ("Tothymia/Silvanea").
const PathSep = "/"

type originNode struct {
	label    string
	parent   NodeID
	children []NodeID
	removed  bool
}

// Tree is the hierarchical origins catalog, stored as an arena of nodes.
// Labels are unique among siblings; records reference nodes by label.
// The zero value is an empty tree.
type Tree struct {
	nodes []originNode
}

// NewTree returns a tree holding only the root.
func NewTree() *Tree {
	return &Tree{nodes: []originNode{{parent: -1}}}
}

// valid reports whether id addresses a live node. An empty arena (the
// zero Tree) holds no addressable node; readers treat it as root-only.
func (t *Tree) valid(id NodeID) bool {
	return id >= 0 && int(id) < len(t.nodes) && !t.nodes[id].removed
}

// Label returns the label of id ("" for the root or an unknown id).
func (t *Tree) Label(id NodeID) string {
	if !t.valid(id) {
		return ""
	}
	return t.nodes[id].label
}

// Parent returns the parent of id, or -1 for the root.
func (t *Tree) Parent(id NodeID) NodeID {
	if !t.valid(id) {
		return -1
	}
	return t.nodes[id].parent
}

// Children returns the children of id in insertion order.
func (t *Tree) Children(id NodeID) []NodeID {
	if !t.valid(id) {
		return nil
	}
	return slices.Clone(t.nodes[id].children)
}

// Len returns the number of labeled nodes.
func (t *Tree) Len() int {
	n := 0
	for i := 1; i < len(t.nodes); i++ {
		if !t.nodes[i].removed {
			n++
		}
	}
	return n
}

func checkLabel(label string) error {
	if label == "" {
		return Errorf(KindValidation, "empty origin label")
	}
	if strings.Contains(label, PathSep) {
		return Errorf(KindValidation, "origin label %q must not contain %q", label, PathSep)
	}
	return nil
}

// Child returns the child of parent carrying label.
func (t *Tree) Child(parent NodeID, label string) (NodeID, bool) {
	if !t.valid(parent) {
		return -1, false
	}
	for _, c := range t.nodes[parent].children {
		if t.nodes[c].label == label {
			return c, true
		}
	}
	return -1, false
}

// Add creates a node labeled label under parent.
func (t *Tree) Add(parent NodeID, label string) (NodeID, error) {
	label = strings.TrimSpace(label)
	if err := checkLabel(label); err != nil {
		return -1, err
	}
	if len(t.nodes) == 0 {
		t.nodes = []originNode{{parent: -1}}
	}
	if !t.valid(parent) {
		return -1, Errorf(KindNotFound, "parent node not found")
	}
	if _, ok := t.Child(parent, label); ok {
		return -1, Errorf(KindDuplicateName, "node %q already exists under %q", label, t.Path(parent))
	}
	id := NodeID(len(t.nodes))
	t.nodes = append(t.nodes, originNode{label: label, parent: parent})
	t.nodes[parent].children = append(t.nodes[parent].children, id)
	return id, nil
}

// Rename changes the label of id, keeping sibling labels unique.
func (t *Tree) Rename(id NodeID, label string) error {
	label = strings.TrimSpace(label)
	if err := checkLabel(label); err != nil {
		return err
	}
	if id == Root || !t.valid(id) {
		return Errorf(KindNotFound, "node not found")
	}
	if label == t.nodes[id].label {
		return nil
	}
	if _, ok := t.Child(t.nodes[id].parent, label); ok {
		return Errorf(KindDuplicateName, "node %q already exists", label)
	}
	t.nodes[id].label = label
	return nil
}

// Remove detaches id and its whole subtree. It returns the labels of the
// removed nodes in pre-order.
func (t *Tree) Remove(id NodeID) []string {
	if id == Root || !t.valid(id) {
		return nil
	}
	p := t.nodes[id].parent
	t.nodes[p].children = slices.DeleteFunc(t.nodes[p].children, func(c NodeID) bool { return c == id })

	var removed []string
	var drop func(NodeID)
	drop = func(n NodeID) {
		removed = append(removed, t.nodes[n].label)
		for _, c := range t.nodes[n].children {
			drop(c)
		}
		t.nodes[n].removed = true
		t.nodes[n].children = nil
	}
	drop(id)
	return removed
}

// Lookup resolves a slash-separated path from the root. The empty path
// resolves to Root. Empty segments are ignored.
func (t *Tree) Lookup(path string) (NodeID, bool) {
	cur := Root
	for _, part := range strings.Split(path, PathSep) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		next, ok := t.Child(cur, part)
		if !ok {
			return -1, false
		}
		cur = next
	}
	return cur, true
}

// Path returns the slash-separated path of id ("" for the root).
func (t *Tree) Path(id NodeID) string {
	if !t.valid(id) {
		return ""
	}
	var parts []string
	for cur := id; cur != Root; cur = t.nodes[cur].parent {
		parts = append(parts, t.nodes[cur].label)
	}
	slices.Reverse(parts)
	return strings.Join(parts, PathSep)
}

// Walk visits every labeled node in pre-order. Returning false from fn
// skips the node's children.
func (t *Tree) Walk(fn func(id NodeID, depth int) bool) {
	if !t.valid(Root) {
		return
	}
	var visit func(NodeID, int)
	visit = func(n NodeID, depth int) {
		for _, c := range t.nodes[n].children {
			if fn(c, depth) {
				visit(c, depth+1)
			}
		}
	}
	visit(Root, 0)
}

// Find returns every node labeled label, in pre-order.
func (t *Tree) Find(label string) []NodeID {
	var ids []NodeID
	t.Walk(func(id NodeID, _ int) bool {
		if t.nodes[id].label == label {
			ids = append(ids, id)
		}
		return true
	})
	return ids
}

// HasLabel reports whether any node carries label.
func (t *Tree) HasLabel(label string) bool {
	return len(t.Find(label)) > 0
}

// Labels returns every node label, deduplicated and sorted.
func (t *Tree) Labels() []string {
	var out []string
	t.Walk(func(id NodeID, _ int) bool {
		out = append(out, t.nodes[id].label)
		return true
	})
	slices.Sort(out)
	return slices.Compact(out)
}

// Paths returns the full path of every node in pre-order.
func (t *Tree) Paths() []string {
	var out []string
	t.Walk(func(id NodeID, _ int) bool {
		out = append(out, t.Path(id))
		return true
	})
	return out
}

// Leaves returns the full path of every childless node in pre-order.
func (t *Tree) Leaves() []string {
	var out []string
	t.Walk(func(id NodeID, _ int) bool {
		if len(t.nodes[id].children) == 0 {
			out = append(out, t.Path(id))
		}
		return true
	})
	return out
}

// AmbiguousLabels returns the labels carried by more than one node, sorted.
func (t *Tree) AmbiguousLabels() []string {
	var all []string
	t.Walk(func(id NodeID, _ int) bool {
		all = append(all, t.nodes[id].label)
		return true
	})
	return Duplicates(all)
}

// Clone returns an independent copy of t. Node IDs are preserved.
func (t *Tree) Clone() *Tree {
	nodes := make([]originNode, len(t.nodes))
	for i, n := range t.nodes {
		n.children = slices.Clone(n.children)
		nodes[i] = n
	}
	return &Tree{nodes: nodes}
}

// LabelOf reduces an origin reference to its bare label: the last
// slash-separated segment, trimmed.
func LabelOf(ref string) string {
	if i := strings.LastIndex(ref, PathSep); i >= 0 {
		ref = ref[i+len(PathSep):]
	}
	return strings.TrimSpace(ref)
}
