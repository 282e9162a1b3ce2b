package halfedge

import (
	"fmt"

	"github.com/chazu/facet/pkg/arena"
	"github.com/chazu/facet/pkg/vecmath"
)

// NormalMode selects how render buffers derive normals.
type NormalMode int

const (
	NormalsSmooth NormalMode = iota
	NormalsFlat
)

func (n NormalMode) String() string {
	if n == NormalsFlat {
		return "flat"
	}
	return "smooth"
}

// GenerationConfig holds per-mesh settings read by buffer generation.
type GenerationConfig struct {
	Normals NormalMode
}

// Mesh is connectivity plus its channel registry. The vertex "position"
// channel is always registered.
type Mesh struct {
	conn      *Connectivity
	channels  *channelRegistry
	positions *Channel[VertexID, vecmath.Vec3]

	Config GenerationConfig
}

// New returns an empty mesh.
func New() *Mesh {
	return newMesh(newConnectivity())
}

func newMesh(conn *Connectivity) *Mesh {
	m := &Mesh{conn: conn, channels: newChannelRegistry()}
	pos := NewChannel[VertexID](vecmath.Vec3{})
	pos.bind(m.aliveFunc(KindVertex))
	m.channels.channels[channelKey{KindVertex, ChannelPosition}] = pos
	m.positions = pos
	return m
}

// aliveFunc reads m.conn on every call, so a channel bound to m follows
// the connectivity committed by Replace.
func (m *Mesh) aliveFunc(kind ElementKind) func(arena.Handle) bool {
	return func(h arena.Handle) bool { return m.conn.contains(kind, h) }
}

// Connectivity returns the mesh's element storage.
func (m *Mesh) Connectivity() *Connectivity {
	return m.conn
}

func (m *Mesh) NumVertices() int  { return m.conn.NumVertices() }
func (m *Mesh) NumHalfEdges() int { return m.conn.NumHalfEdges() }
func (m *Mesh) NumFaces() int     { return m.conn.NumFaces() }

// NumEdges returns the number of undirected edges.
func (m *Mesh) NumEdges() int {
	return len(m.conn.Edges())
}

// Positions returns the vertex position channel.
func (m *Mesh) Positions() *Channel[VertexID, vecmath.Vec3] {
	return m.positions
}

// Position returns v's position. v must be live.
func (m *Mesh) Position(v VertexID) vecmath.Vec3 {
	m.conn.MustVertex(v)
	return m.positions.Value(v)
}

// SetPosition moves v. v must be live.
func (m *Mesh) SetPosition(v VertexID, p vecmath.Vec3) {
	m.positions.Set(v, p)
}

// ---------------------------------------------------------------------------
// Element allocation. These do not keep the invariants on their own; they
// are the building blocks for constructors and edit operations.
// ---------------------------------------------------------------------------

// AddVertex allocates an isolated vertex at pos.
func (m *Mesh) AddVertex(pos vecmath.Vec3) VertexID {
	v := VertexID(m.conn.vertices.Insert(Vertex{}))
	m.positions.Set(v, pos)
	return v
}

// AddHalfEdge allocates a halfedge with the given fields.
func (m *Mesh) AddHalfEdge(he HalfEdge) HalfEdgeID {
	return HalfEdgeID(m.conn.halfEdges.Insert(he))
}

// AddFace allocates a face pointing at h.
func (m *Mesh) AddFace(h HalfEdgeID) FaceID {
	return FaceID(m.conn.faces.Insert(Face{HalfEdge: h}))
}

// RemoveVertex frees v and its channel entries.
func (m *Mesh) RemoveVertex(v VertexID) {
	if _, ok := m.conn.vertices.Remove(arena.Handle(v)); !ok {
		panic(&InvalidHandleError{Kind: "vertex", Handle: v})
	}
	m.channels.dropElement(KindVertex, arena.Handle(v))
}

// RemoveHalfEdge frees h and its channel entries.
func (m *Mesh) RemoveHalfEdge(h HalfEdgeID) {
	if _, ok := m.conn.halfEdges.Remove(arena.Handle(h)); !ok {
		panic(&InvalidHandleError{Kind: "halfedge", Handle: h})
	}
	m.channels.dropElement(KindHalfEdge, arena.Handle(h))
}

// RemoveFace frees f and its channel entries.
func (m *Mesh) RemoveFace(f FaceID) {
	if _, ok := m.conn.faces.Remove(arena.Handle(f)); !ok {
		panic(&InvalidHandleError{Kind: "face", Handle: f})
	}
	m.channels.dropElement(KindFace, arena.Handle(f))
}

func (m *Mesh) SetNext(h, next HalfEdgeID)          { m.conn.MustHalfEdge(h).Next = next }
func (m *Mesh) SetOrigin(h HalfEdgeID, v VertexID)  { m.conn.MustHalfEdge(h).Vertex = v }
func (m *Mesh) SetFace(h HalfEdgeID, f FaceID)      { m.conn.MustHalfEdge(h).Face = f }
func (m *Mesh) SetOutgoing(v VertexID, h HalfEdgeID) { m.conn.MustVertex(v).HalfEdge = h }
func (m *Mesh) SetFaceHalfEdge(f FaceID, h HalfEdgeID) {
	m.conn.MustFace(f).HalfEdge = h
}

// SetTwins links a and b as each other's twin.
func (m *Mesh) SetTwins(a, b HalfEdgeID) {
	m.conn.MustHalfEdge(a).Twin = b
	m.conn.MustHalfEdge(b).Twin = a
}

// ---------------------------------------------------------------------------
// Copying and atomic edits
// ---------------------------------------------------------------------------

// Clone returns a deep copy. Handles valid on m are valid on the clone.
func (m *Mesh) Clone() *Mesh {
	c := &Mesh{conn: m.conn.clone(), channels: newChannelRegistry(), Config: m.Config}
	for key, ch := range m.channels.channels {
		cc := ch.cloneAny()
		cc.bind(c.aliveFunc(key.kind))
		c.channels.channels[key] = cc
		if key.kind == KindVertex && key.name == ChannelPosition {
			c.positions = cc.(*Channel[VertexID, vecmath.Vec3])
		}
	}
	return c
}

// Replace makes m hold other's state. other must not be used afterwards.
//
// Channels registered on m under a key other also has keep their identity:
// they take over other's entries, so pointers obtained from ChannelOf or
// Positions before the call see the new state.
func (m *Mesh) Replace(other *Mesh) {
	prev := m.channels
	*m = *other
	for key, ch := range m.channels.channels {
		if old, ok := prev.channels[key]; ok && old.adopt(ch) {
			ch = old
			m.channels.channels[key] = old
		}
		ch.bind(m.aliveFunc(key.kind))
	}
	m.positions = m.channels.channels[channelKey{KindVertex, ChannelPosition}].(*Channel[VertexID, vecmath.Vec3])
}

// Edit runs fn against a clone of m and commits the clone only if fn
// succeeds. Handles issued while fn runs stay valid on m after commit.
func (m *Mesh) Edit(fn func(tmp *Mesh) error) error {
	tmp := m.Clone()
	if err := fn(tmp); err != nil {
		return err
	}
	m.Replace(tmp)
	return nil
}

// Remap maps handles of a source mesh to handles of a destination mesh.
type Remap struct {
	Vertices  map[VertexID]VertexID
	HalfEdges map[HalfEdgeID]HalfEdgeID
	Faces     map[FaceID]FaceID
}

func (r Remap) forKind(kind ElementKind) map[arena.Handle]arena.Handle {
	out := make(map[arena.Handle]arena.Handle)
	switch kind {
	case KindVertex:
		for k, v := range r.Vertices {
			out[arena.Handle(k)] = arena.Handle(v)
		}
	case KindHalfEdge:
		for k, v := range r.HalfEdges {
			out[arena.Handle(k)] = arena.Handle(v)
		}
	case KindFace:
		for k, v := range r.Faces {
			out[arena.Handle(k)] = arena.Handle(v)
		}
	}
	return out
}

// ImportChannels copies src's channel entries into m through remap.
// Channels missing from m are created with src's default. Entries whose
// handle has no mapping are skipped.
func (m *Mesh) ImportChannels(src *Mesh, remap Remap) error {
	maps := map[ElementKind]map[arena.Handle]arena.Handle{
		KindVertex:   remap.forKind(KindVertex),
		KindHalfEdge: remap.forKind(KindHalfEdge),
		KindFace:     remap.forKind(KindFace),
	}
	for key, sch := range src.channels.channels {
		dch, ok := m.channels.channels[key]
		if !ok {
			dch = sch.emptyLike()
			dch.bind(m.aliveFunc(key.kind))
			m.channels.channels[key] = dch
		}
		if dch.valueType() != sch.valueType() {
			return fmt.Errorf("%w: %s channel %q stores %s, source stores %s",
				ErrChannelTypeMismatch, key.kind, key.name, dch.valueType(), sch.valueType())
		}
		dch.copyRemapped(sch, maps[key.kind])
	}
	return nil
}

// Merge appends a copy of other's elements and channel entries to m and
// returns the handle mapping.
func (m *Mesh) Merge(other *Mesh) (Remap, error) {
	remap := Remap{
		Vertices:  make(map[VertexID]VertexID),
		HalfEdges: make(map[HalfEdgeID]HalfEdgeID),
		Faces:     make(map[FaceID]FaceID),
	}
	err := m.Edit(func(tmp *Mesh) error {
		oc := other.conn
		for _, v := range oc.VertexIDs() {
			remap.Vertices[v] = VertexID(tmp.conn.vertices.Insert(Vertex{}))
		}
		for _, h := range oc.HalfEdgeIDs() {
			remap.HalfEdges[h] = tmp.AddHalfEdge(HalfEdge{})
		}
		for _, f := range oc.FaceIDs() {
			remap.Faces[f] = tmp.AddFace(HalfEdgeID{})
		}
		for old, nv := range remap.Vertices {
			tmp.SetOutgoing(nv, remap.HalfEdges[oc.MustVertex(old).HalfEdge])
		}
		for old, nh := range remap.HalfEdges {
			src := oc.MustHalfEdge(old)
			*tmp.conn.MustHalfEdge(nh) = HalfEdge{
				Next:   remap.HalfEdges[src.Next],
				Twin:   remap.HalfEdges[src.Twin],
				Vertex: remap.Vertices[src.Vertex],
				Face:   remap.Faces[src.Face],
			}
		}
		for old, nf := range remap.Faces {
			tmp.SetFaceHalfEdge(nf, remap.HalfEdges[oc.MustFace(old).HalfEdge])
		}
		return tmp.ImportChannels(other, remap)
	})
	if err != nil {
		return Remap{}, err
	}
	return remap, nil
}

// ---------------------------------------------------------------------------
// Geometry queries
// ---------------------------------------------------------------------------

// FaceNormal returns the unit normal of f by Newell's method, so that a
// counter-clockwise loop seen from outside points outward.
func (m *Mesh) FaceNormal(f FaceID) (vecmath.Vec3, error) {
	verts, err := m.conn.FaceVertices(f)
	if err != nil {
		return vecmath.Vec3{}, err
	}
	var n vecmath.Vec3
	for i := range verts {
		a := m.positions.Value(verts[i])
		b := m.positions.Value(verts[(i+1)%len(verts)])
		n.X += (a.Y - b.Y) * (a.Z + b.Z)
		n.Y += (a.Z - b.Z) * (a.X + b.X)
		n.Z += (a.X - b.X) * (a.Y + b.Y)
	}
	if n.Length() == 0 {
		return vecmath.Vec3{}, fmt.Errorf("%w: %v has no area", ErrDegenerateGeometry, f)
	}
	return n.Normalize(), nil
}

// FaceCentroid returns the average of f's vertex positions.
func (m *Mesh) FaceCentroid(f FaceID) (vecmath.Vec3, error) {
	verts, err := m.conn.FaceVertices(f)
	if err != nil {
		return vecmath.Vec3{}, err
	}
	var sum vecmath.Vec3
	for _, v := range verts {
		sum = sum.Add(m.positions.Value(v))
	}
	return sum.Scale(1 / float64(len(verts))), nil
}

// VertexNormal returns the normalized sum of the normals of the faces
// around v. Degenerate faces are skipped.
func (m *Mesh) VertexNormal(v VertexID) (vecmath.Vec3, error) {
	faces, err := m.conn.AdjacentFaces(v)
	if err != nil {
		return vecmath.Vec3{}, err
	}
	var sum vecmath.Vec3
	for _, f := range faces {
		n, err := m.FaceNormal(f)
		if err != nil {
			continue
		}
		sum = sum.Add(n)
	}
	return sum.Normalize(), nil
}

// Bounds returns the axis-aligned bounding box of the vertex positions.
func (m *Mesh) Bounds() (min, max vecmath.Vec3, ok bool) {
	for i, v := range m.conn.VertexIDs() {
		p := m.positions.Value(v)
		if i == 0 {
			min, max = p, p
			continue
		}
		min = vecmath.Vec3{X: minf(min.X, p.X), Y: minf(min.Y, p.Y), Z: minf(min.Z, p.Z)}
		max = vecmath.Vec3{X: maxf(max.X, p.X), Y: maxf(max.Y, p.Y), Z: maxf(max.Z, p.Z)}
	}
	return min, max, m.NumVertices() > 0
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func (m *Mesh) String() string {
	return fmt.Sprintf("Mesh{vertices: %d, halfedges: %d, faces: %d}",
		m.NumVertices(), m.NumHalfEdges(), m.NumFaces())
}
