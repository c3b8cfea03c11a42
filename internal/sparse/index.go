// Package sparse remaps string-identified score triples onto a dense integer
// grid and stores them as a compressed sparse matrix.
package sparse

import "sort"

// NodeIndex is a bijection between identifiers and dense zero-based codes.
// Codes follow ascending lexicographic order of the identifiers, so the same
// input always produces the same codes.
type NodeIndex struct {
	ids   []string
	codes map[string]int
}

// NewNodeIndex builds an index over the distinct values of ids.
func NewNodeIndex(ids []string) *NodeIndex {
	codes := make(map[string]int, len(ids))
	for _, id := range ids {
		codes[id] = 0
	}
	distinct := make([]string, 0, len(codes))
	for id := range codes {
		distinct = append(distinct, id)
	}
	sort.Strings(distinct)
	for i, id := range distinct {
		codes[id] = i
	}
	return &NodeIndex{ids: distinct, codes: codes}
}

// Len returns the number of distinct identifiers.
func (x *NodeIndex) Len() int {
	return len(x.ids)
}

// Code returns the code of id and whether it is indexed.
func (x *NodeIndex) Code(id string) (int, bool) {
	c, ok := x.codes[id]
	return c, ok
}

// ID returns the identifier for code. It panics if code is out of range.
func (x *NodeIndex) ID(code int) string {
	return x.ids[code]
}

// IDs returns the identifiers in code order. The slice must not be modified.
func (x *NodeIndex) IDs() []string {
	return x.ids
}
