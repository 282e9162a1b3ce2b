package halfedge

import (
	"fmt"

	"github.com/chazu/facet/pkg/arena"
)

// ValidationSeverity says whether a finding breaks a mesh invariant or is
// only worth reporting.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // invariant broken
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	Element  fmt.Stringer // offending element, nil for mesh-level findings
	Message  string
	Severity ValidationSeverity
}

func (e ValidationError) Error() string {
	if e.Element == nil {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] %v: %s", e.Severity, e.Element, e.Message)
}

// Validate checks the halfedge invariants and returns every finding. An
// empty result means the mesh is valid. Validate never mutates the mesh.
func Validate(m *Mesh) []ValidationError {
	errs := validateReferences(m)
	if hasErrors(errs) {
		// Later checks dereference these handles.
		return errs
	}
	errs = append(errs, validateTwins(m)...)
	errs = append(errs, validateLoops(m)...)
	errs = append(errs, validateVertices(m)...)
	errs = append(errs, validateChannels(m)...)
	return errs
}

// Check returns the first error-severity finding of Validate, wrapped in
// ErrMalformedMesh, or nil.
func (m *Mesh) Check() error {
	for _, e := range Validate(m) {
		if e.Severity == SeverityError {
			return fmt.Errorf("%w: %v", ErrMalformedMesh, e)
		}
	}
	return nil
}

func hasErrors(errs []ValidationError) bool {
	for _, e := range errs {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}

func errorf(el fmt.Stringer, format string, args ...any) ValidationError {
	return ValidationError{Element: el, Message: fmt.Sprintf(format, args...), Severity: SeverityError}
}

// validateReferences checks that every stored handle points at a live
// element of the right kind.
func validateReferences(m *Mesh) []ValidationError {
	c := m.conn
	var errs []ValidationError
	for _, h := range c.HalfEdgeIDs() {
		he := c.MustHalfEdge(h)
		if !c.HasHalfEdge(he.Next) {
			errs = append(errs, errorf(h, "next %v does not exist", he.Next))
		}
		if !c.HasHalfEdge(he.Twin) {
			errs = append(errs, errorf(h, "twin %v does not exist", he.Twin))
		}
		if !c.HasVertex(he.Vertex) {
			errs = append(errs, errorf(h, "origin %v does not exist", he.Vertex))
		}
		if !he.Face.IsZero() && !c.HasFace(he.Face) {
			errs = append(errs, errorf(h, "face %v does not exist", he.Face))
		}
	}
	for _, v := range c.VertexIDs() {
		h := c.MustVertex(v).HalfEdge
		if h.IsZero() {
			continue
		}
		he, ok := c.HalfEdge(h)
		if !ok {
			errs = append(errs, errorf(v, "outgoing %v does not exist", h))
		} else if he.Vertex != v {
			errs = append(errs, errorf(v, "outgoing %v starts at %v", h, he.Vertex))
		}
	}
	for _, f := range c.FaceIDs() {
		h := c.MustFace(f).HalfEdge
		he, ok := c.HalfEdge(h)
		if !ok {
			errs = append(errs, errorf(f, "halfedge %v does not exist", h))
		} else if he.Face != f {
			errs = append(errs, errorf(f, "halfedge %v belongs to %v", h, he.Face))
		}
	}
	return errs
}

// validateTwins checks twin symmetry and that twins run in opposite
// directions.
func validateTwins(m *Mesh) []ValidationError {
	c := m.conn
	var errs []ValidationError
	for _, h := range c.HalfEdgeIDs() {
		he := c.MustHalfEdge(h)
		if he.Twin == h {
			errs = append(errs, errorf(h, "is its own twin"))
			continue
		}
		if back := c.MustHalfEdge(he.Twin).Twin; back != h {
			errs = append(errs, errorf(h, "twin of twin is %v", back))
			continue
		}
		if c.MustHalfEdge(he.Next).Vertex != c.MustHalfEdge(he.Twin).Vertex {
			errs = append(errs, errorf(h, "next does not start where the twin starts"))
		}
	}
	return errs
}

// validateLoops checks that face loops close, stay on their face, and cover
// every halfedge of the face, and that boundary loops close.
func validateLoops(m *Mesh) []ValidationError {
	c := m.conn
	var errs []ValidationError
	perFace := make(map[FaceID]int)
	for _, h := range c.HalfEdgeIDs() {
		if f := c.MustHalfEdge(h).Face; !f.IsZero() {
			perFace[f]++
		}
	}
	for _, f := range c.FaceIDs() {
		loop, err := c.FaceHalfEdges(f)
		if err != nil {
			errs = append(errs, errorf(f, "%v", err))
			continue
		}
		for _, h := range loop {
			if got := c.MustHalfEdge(h).Face; got != f {
				errs = append(errs, errorf(f, "loop reaches %v which belongs to %v", h, got))
				break
			}
		}
		if len(loop) != perFace[f] {
			errs = append(errs, errorf(f, "loop has %d halfedges but %d point at the face", len(loop), perFace[f]))
		}
		if len(loop) < 3 {
			errs = append(errs, ValidationError{Element: f, Message: fmt.Sprintf("has only %d edges", len(loop)), Severity: SeverityWarning})
		}
	}
	seen := make(map[HalfEdgeID]bool)
	for _, h := range c.HalfEdgeIDs() {
		if seen[h] || !c.IsBoundary(h) {
			continue
		}
		loop, err := c.HalfEdgeLoop(h)
		if err != nil {
			errs = append(errs, errorf(h, "%v", err))
			continue
		}
		for _, lh := range loop {
			seen[lh] = true
			if !c.IsBoundary(lh) {
				errs = append(errs, errorf(h, "boundary loop reaches face halfedge %v", lh))
				break
			}
		}
	}
	return errs
}

// validateVertices checks that rotating around each vertex closes and stays
// on the vertex.
func validateVertices(m *Mesh) []ValidationError {
	c := m.conn
	var errs []ValidationError
	perVertex := make(map[VertexID]int)
	for _, h := range c.HalfEdgeIDs() {
		perVertex[c.MustHalfEdge(h).Vertex]++
	}
	for _, v := range c.VertexIDs() {
		if c.MustVertex(v).HalfEdge.IsZero() {
			if perVertex[v] > 0 {
				errs = append(errs, errorf(v, "has %d outgoing halfedges but stores none", perVertex[v]))
				continue
			}
			errs = append(errs, ValidationError{Element: v, Message: "is isolated", Severity: SeverityWarning})
			continue
		}
		out, err := c.OutgoingHalfEdges(v)
		if err != nil {
			errs = append(errs, errorf(v, "%v", err))
			continue
		}
		for _, h := range out {
			if origin := c.MustHalfEdge(h).Vertex; origin != v {
				errs = append(errs, errorf(v, "rotation reaches %v which starts at %v", h, origin))
				break
			}
		}
		if len(out) != perVertex[v] {
			errs = append(errs, errorf(v, "rotation visits %d of %d outgoing halfedges", len(out), perVertex[v]))
		}
	}
	return errs
}

// validateChannels checks that no channel keeps entries for deleted
// elements.
func validateChannels(m *Mesh) []ValidationError {
	var errs []ValidationError
	for _, info := range m.Channels() {
		ch := m.channels.channels[channelKey{info.Kind, info.Name}]
		kind := info.Kind
		n := ch.staleKeys(func(h arena.Handle) bool { return m.conn.contains(kind, h) })
		if n > 0 {
			errs = append(errs, errorf(nil, "%s channel %q has %d entries for deleted elements", info.Kind, info.Name, n))
		}
	}
	return errs
}
