package ops

import (
	"github.com/chazu/facet/pkg/halfedge"
	"github.com/chazu/facet/pkg/vecmath"
	"github.com/dhconnelly/rtreego"
)

// Channels read from the points mesh by CopyToPoints, and the halfedge
// channel it writes.
const (
	ChannelSize        = "size"
	ChannelNormal      = "normal"
	ChannelTangent     = "tangent"
	ChannelInstanceIdx = "instance_idx"
)

// CopyToPoints returns a mesh holding one copy of instance per vertex of
// points, translated to that vertex. A float "size" vertex channel on points
// scales each copy; "normal" and "tangent" vec3 channels together orient it
// so the copy's Y axis follows the normal and its Z axis the tangent. Every
// halfedge of copy i carries i in the "instance_idx" channel.
func CopyToPoints(points, instance *halfedge.Mesh) (*halfedge.Mesh, error) {
	size, _ := halfedge.ChannelOf[halfedge.VertexID, float64](points, ChannelSize)
	normal, _ := halfedge.ChannelOf[halfedge.VertexID, vecmath.Vec3](points, ChannelNormal)
	tangent, _ := halfedge.ChannelOf[halfedge.VertexID, vecmath.Vec3](points, ChannelTangent)

	out := halfedge.New()
	for i, v := range points.Connectivity().VertexIDs() {
		cp := instance.Clone()
		idx, err := halfedge.EnsureChannel[halfedge.HalfEdgeID, float64](cp, ChannelInstanceIdx)
		if err != nil {
			return nil, err
		}
		for _, h := range cp.Connectivity().HalfEdgeIDs() {
			idx.Set(h, float64(i))
		}

		scale := 1.0
		if size != nil {
			if s, ok := size.Get(v); ok {
				scale = s
			}
		}
		rot := vecmath.Identity3()
		if normal != nil && tangent != nil {
			rot = orientation(normal.Value(v), tangent.Value(v))
		}
		at := points.Position(v)
		for _, w := range cp.Connectivity().VertexIDs() {
			cp.SetPosition(w, rot.Apply(cp.Position(w).Scale(scale)).Add(at))
		}
		if err := refreshNormals(cp); err != nil {
			return nil, err
		}
		if _, err := out.Merge(cp); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// orientation returns the rotation taking +Y to normal and +Z to the part of
// tangent perpendicular to it. Degenerate input gives the identity.
func orientation(normal, tangent vecmath.Vec3) vecmath.Mat3 {
	n := normal.Normalize()
	perp := tangent.Sub(n.Scale(tangent.Dot(n)))
	if n.IsZero() || perp.Length() < 1e-9 {
		return vecmath.Identity3()
	}
	t := perp.Normalize()
	return vecmath.Columns(n.Cross(t), n, t)
}

// VertexAttributeTransfer copies the vertex channel name from src to dst:
// each dst vertex takes the value of the nearest src vertex. The dst channel
// is created if needed. Positions cannot be transferred.
func VertexAttributeTransfer(src, dst *halfedge.Mesh, name string, vt halfedge.ValueType) error {
	if name == halfedge.ChannelPosition {
		return invalid("cannot transfer the %q channel", name)
	}
	switch vt {
	case halfedge.TypeVec3:
		return transferVertexChannel[vecmath.Vec3](src, dst, name)
	case halfedge.TypeFloat:
		return transferVertexChannel[float64](src, dst, name)
	case halfedge.TypeBool:
		return transferVertexChannel[bool](src, dst, name)
	}
	return invalid("unknown channel value type %v", vt)
}

func transferVertexChannel[V halfedge.Value](src, dst *halfedge.Mesh, name string) error {
	from, err := halfedge.ChannelOf[halfedge.VertexID, V](src, name)
	if err != nil {
		return err
	}
	verts := src.Connectivity().VertexIDs()
	if len(verts) == 0 {
		return invalid("cannot transfer %q from a mesh with no vertices", name)
	}
	entries := make([]rtreego.Spatial, len(verts))
	for i, v := range verts {
		entries[i] = &vertexEntry{index: i, rect: paddedRect(src.Position(v), 0)}
	}
	tree := rtreego.NewTree(3, 4, 16, entries...)

	to, err := halfedge.EnsureChannel[halfedge.VertexID, V](dst, name)
	if err != nil {
		return err
	}
	for _, v := range dst.Connectivity().VertexIDs() {
		p := dst.Position(v)
		near := tree.NearestNeighbor(rtreego.Point{p.X, p.Y, p.Z}).(*vertexEntry)
		to.Set(v, from.Value(verts[near.index]))
	}
	return nil
}
