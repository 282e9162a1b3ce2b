// Package selection parses and resolves element selection expressions.
//
// An expression is one of:
//
//	(empty)        nothing
//	*              every element
//	0, 3, 5..9     explicit indices and half-open ranges
//	@top, 2        elements flagged in the named bool channel
//
// Indices count the live elements of one kind in arena order.
package selection

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/chazu/facet/pkg/halfedge"
)

// ErrParse is wrapped by every Parse failure.
var ErrParse = errors.New("selection: parse error")

// Mode distinguishes the three shapes of an expression.
type Mode int

const (
	ModeNone Mode = iota
	ModeAll
	ModeExplicit
)

// FragmentKind tags a Fragment.
type FragmentKind int

const (
	FragmentSingle FragmentKind = iota
	FragmentRange
	FragmentGroup
)

// Fragment is one comma-separated item of an explicit expression.
type Fragment struct {
	Kind  FragmentKind
	Start uint32 // Single index, or range start
	End   uint32 // exclusive range end
	Group string
}

func (f Fragment) String() string {
	switch f.Kind {
	case FragmentRange:
		return fmt.Sprintf("%d..%d", f.Start, f.End)
	case FragmentGroup:
		return "@" + f.Group
	}
	return strconv.FormatUint(uint64(f.Start), 10)
}

func (f Fragment) matchesIndex(i int) bool {
	switch f.Kind {
	case FragmentSingle:
		return uint64(i) == uint64(f.Start)
	case FragmentRange:
		return uint64(i) >= uint64(f.Start) && uint64(i) < uint64(f.End)
	}
	return false
}

// Expression is a parsed selection.
type Expression struct {
	Mode      Mode
	Fragments []Fragment
}

// None selects nothing.
func None() Expression { return Expression{Mode: ModeNone} }

// All selects every element.
func All() Expression { return Expression{Mode: ModeAll} }

// Indices selects the given element indices.
func Indices(idx ...uint32) Expression {
	e := Expression{Mode: ModeExplicit}
	for _, i := range idx {
		e.Fragments = append(e.Fragments, Fragment{Kind: FragmentSingle, Start: i})
	}
	return e
}

// Group selects the elements flagged in the named bool channel.
func Group(name string) Expression {
	return Expression{Mode: ModeExplicit, Fragments: []Fragment{{Kind: FragmentGroup, Group: name}}}
}

// String returns the canonical text form; Parse(e.String()) == e.
func (e Expression) String() string {
	switch e.Mode {
	case ModeAll:
		return "*"
	case ModeExplicit:
		parts := make([]string, len(e.Fragments))
		for i, f := range e.Fragments {
			parts[i] = f.String()
		}
		return strings.Join(parts, ", ")
	}
	return ""
}

// Parse parses a selection expression. Whitespace around fragments and
// separators is ignored.
func Parse(input string) (Expression, error) {
	s := strings.TrimSpace(input)
	switch s {
	case "":
		return None(), nil
	case "*":
		return All(), nil
	}
	e := Expression{Mode: ModeExplicit}
	for _, part := range strings.Split(s, ",") {
		frag, err := parseFragment(strings.TrimSpace(part))
		if err != nil {
			return Expression{}, fmt.Errorf("%w: %q: %v", ErrParse, input, err)
		}
		e.Fragments = append(e.Fragments, frag)
	}
	return e, nil
}

// MustParse is like Parse but panics on error.
func MustParse(input string) Expression {
	e, err := Parse(input)
	if err != nil {
		panic(err)
	}
	return e
}

func parseFragment(s string) (Fragment, error) {
	if s == "" {
		return Fragment{}, errors.New("empty fragment")
	}
	if name, ok := strings.CutPrefix(s, "@"); ok {
		if !isGroupName(name) {
			return Fragment{}, fmt.Errorf("bad group name %q", name)
		}
		return Fragment{Kind: FragmentGroup, Group: name}, nil
	}
	if lo, hi, ok := strings.Cut(s, ".."); ok {
		start, err := parseIndex(lo)
		if err != nil {
			return Fragment{}, err
		}
		end, err := parseIndex(hi)
		if err != nil {
			return Fragment{}, err
		}
		if start > end {
			return Fragment{}, fmt.Errorf("range %d..%d is reversed", start, end)
		}
		return Fragment{Kind: FragmentRange, Start: start, End: end}, nil
	}
	i, err := parseIndex(s)
	if err != nil {
		return Fragment{}, err
	}
	return Fragment{Kind: FragmentSingle, Start: i}, nil
}

func parseIndex(s string) (uint32, error) {
	if s == "" {
		return 0, errors.New("missing index")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("unexpected %q", s)
		}
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("index %s out of range", s)
	}
	return uint32(n), nil
}

func isGroupName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r == '_':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// ResolveVertices returns the live vertices e selects, in arena order.
func ResolveVertices(m *halfedge.Mesh, e Expression) ([]halfedge.VertexID, error) {
	return resolve(m, e, m.Connectivity().VertexIDs())
}

// ResolveFaces returns the live faces e selects, in arena order.
func ResolveFaces(m *halfedge.Mesh, e Expression) ([]halfedge.FaceID, error) {
	return resolve(m, e, m.Connectivity().FaceIDs())
}

// ResolveHalfEdges returns the live halfedges e selects, in arena order.
func ResolveHalfEdges(m *halfedge.Mesh, e Expression) ([]halfedge.HalfEdgeID, error) {
	return resolve(m, e, m.Connectivity().HalfEdgeIDs())
}

func resolve[K halfedge.Key](m *halfedge.Mesh, e Expression, ids []K) ([]K, error) {
	switch e.Mode {
	case ModeNone:
		return nil, nil
	case ModeAll:
		return ids, nil
	}

	var groups []*halfedge.Channel[K, bool]
	for _, f := range e.Fragments {
		if f.Kind != FragmentGroup {
			continue
		}
		ch, err := halfedge.ChannelOf[K, bool](m, f.Group)
		if err != nil {
			return nil, fmt.Errorf("selection group @%s: %w", f.Group, err)
		}
		groups = append(groups, ch)
	}

	var out []K
	for i, id := range ids {
		if selected(e.Fragments, groups, i, id) {
			out = append(out, id)
		}
	}
	return out, nil
}

func selected[K halfedge.Key](frags []Fragment, groups []*halfedge.Channel[K, bool], i int, id K) bool {
	for _, f := range frags {
		if f.matchesIndex(i) {
			return true
		}
	}
	for _, g := range groups {
		if g.Value(id) {
			return true
		}
	}
	return false
}
