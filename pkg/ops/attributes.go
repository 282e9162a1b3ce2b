package ops

import (
	"math"

	"github.com/chazu/facet/pkg/halfedge"
	"github.com/chazu/facet/pkg/selection"
	"github.com/chazu/facet/pkg/vecmath"
)

// Transform scales, rotates and then translates every vertex. rotate holds
// Euler angles in degrees, applied about X, then Y, then Z.
func Transform(m *halfedge.Mesh, translate, rotate, scale vecmath.Vec3) error {
	r := vecmath.EulerXYZ(vecmath.Radians(rotate.X), vecmath.Radians(rotate.Y), vecmath.Radians(rotate.Z))
	for _, v := range m.Connectivity().VertexIDs() {
		m.SetPosition(v, r.Apply(m.Position(v).Mul(scale)).Add(translate))
	}
	return refreshNormals(m)
}

// SetFlatNormals stores a unit normal per face in the "face_normal" channel
// and switches the mesh to flat shading. Faces without area get a zero
// normal.
func SetFlatNormals(m *halfedge.Mesh) error {
	if err := halfedge.SetChannel(m, halfedge.ChannelFaceNormal, flatNormals(m)); err != nil {
		return err
	}
	m.Config.Normals = halfedge.NormalsFlat
	return nil
}

// SetSmoothNormals stores a unit normal per vertex in the "vertex_normal"
// channel and switches the mesh to smooth shading.
func SetSmoothNormals(m *halfedge.Mesh) error {
	ch, err := smoothNormals(m)
	if err != nil {
		return err
	}
	if err := halfedge.SetChannel(m, halfedge.ChannelVertexNormal, ch); err != nil {
		return err
	}
	m.Config.Normals = halfedge.NormalsSmooth
	return nil
}

func flatNormals(m *halfedge.Mesh) *halfedge.Channel[halfedge.FaceID, vecmath.Vec3] {
	ch := halfedge.NewChannel[halfedge.FaceID](vecmath.Vec3{})
	for _, f := range m.Connectivity().FaceIDs() {
		n, _ := m.FaceNormal(f)
		ch.Set(f, n)
	}
	return ch
}

func smoothNormals(m *halfedge.Mesh) (*halfedge.Channel[halfedge.VertexID, vecmath.Vec3], error) {
	ch := halfedge.NewChannel[halfedge.VertexID](vecmath.Vec3{})
	for _, v := range m.Connectivity().VertexIDs() {
		n, err := m.VertexNormal(v)
		if err != nil {
			return nil, err
		}
		ch.Set(v, n)
	}
	return ch, nil
}

// refreshNormals recomputes whichever normal channels m already stores.
func refreshNormals(m *halfedge.Mesh) error {
	if m.HasChannel(halfedge.KindFace, halfedge.ChannelFaceNormal) {
		if err := halfedge.SetChannel(m, halfedge.ChannelFaceNormal, flatNormals(m)); err != nil {
			return err
		}
	}
	if m.HasChannel(halfedge.KindVertex, halfedge.ChannelVertexNormal) {
		ch, err := smoothNormals(m)
		if err != nil {
			return err
		}
		if err := halfedge.SetChannel(m, halfedge.ChannelVertexNormal, ch); err != nil {
			return err
		}
	}
	return nil
}

// SetFullRangeUVs writes a per-corner "uv" halfedge channel mapping every
// face onto the unit square: triangles take half of it, quads all of it and
// larger faces an inscribed regular polygon.
func SetFullRangeUVs(m *halfedge.Mesh) error {
	c := m.Connectivity()
	uvs := halfedge.NewChannel[halfedge.HalfEdgeID](vecmath.Vec3{})
	for _, f := range c.FaceIDs() {
		hs, err := c.FaceHalfEdges(f)
		if err != nil {
			return err
		}
		switch n := len(hs); {
		case n < 3:
		case n == 3:
			uvs.Set(hs[0], vecmath.V3(1, 0, 0))
			uvs.Set(hs[1], vecmath.V3(1, 1, 0))
			uvs.Set(hs[2], vecmath.V3(0, 1, 0))
		case n == 4:
			uvs.Set(hs[0], vecmath.V3(0, 0, 0))
			uvs.Set(hs[1], vecmath.V3(1, 0, 0))
			uvs.Set(hs[2], vecmath.V3(1, 1, 0))
			uvs.Set(hs[3], vecmath.V3(0, 1, 0))
		default:
			step := 2 * math.Pi / float64(n)
			for i, h := range hs {
				a := step * float64(i)
				uvs.Set(h, vecmath.V3(0.5+0.5*math.Cos(a), 0.5+0.5*math.Sin(a), 0))
			}
		}
	}
	return halfedge.SetChannel(m, halfedge.ChannelUV, uvs)
}

// SetMaterial stores material in the "material" face channel for every
// selected face.
func SetMaterial(m *halfedge.Mesh, sel selection.Expression, material float64) error {
	faces, err := selection.ResolveFaces(m, sel)
	if err != nil {
		return err
	}
	ch, err := halfedge.EnsureChannel[halfedge.FaceID, float64](m, halfedge.ChannelMaterial)
	if err != nil {
		return err
	}
	for _, f := range faces {
		ch.Set(f, material)
	}
	return nil
}

// MakeGroup creates a bool channel called name for kind whose selected
// elements are true. It fails with halfedge.ErrChannelExists if the name is
// taken.
func MakeGroup(m *halfedge.Mesh, kind halfedge.ElementKind, sel selection.Expression, name string) error {
	if _, err := selection.Parse("@" + name); err != nil {
		return invalid("bad group name %q", name)
	}
	switch kind {
	case halfedge.KindVertex:
		ids, err := selection.ResolveVertices(m, sel)
		if err != nil {
			return err
		}
		return fillGroup(m, name, ids)
	case halfedge.KindHalfEdge:
		ids, err := selection.ResolveHalfEdges(m, sel)
		if err != nil {
			return err
		}
		return fillGroup(m, name, ids)
	case halfedge.KindFace:
		ids, err := selection.ResolveFaces(m, sel)
		if err != nil {
			return err
		}
		return fillGroup(m, name, ids)
	}
	return invalid("unknown element kind %v", kind)
}

func fillGroup[K halfedge.Key](m *halfedge.Mesh, name string, ids []K) error {
	ch, err := halfedge.CreateChannel[K, bool](m, name)
	if err != nil {
		return err
	}
	for _, id := range ids {
		ch.Set(id, true)
	}
	return nil
}
