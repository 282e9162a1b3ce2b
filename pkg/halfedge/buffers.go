package halfedge

import (
	"fmt"

	"github.com/chazu/facet/pkg/kernel"
	"github.com/chazu/facet/pkg/vecmath"
)

// Triangles returns the triangulation of every face as vertex triples.
// Faces are taken in arena order and each is fanned from the origin of its
// stored halfedge: (v0, vi, vi+1) for i in 1..n-2.
func (m *Mesh) Triangles() ([][3]VertexID, error) {
	var tris [][3]VertexID
	for _, f := range m.conn.FaceIDs() {
		verts, err := m.conn.FaceVertices(f)
		if err != nil {
			return nil, err
		}
		if len(verts) < 3 {
			return nil, fmt.Errorf("%w: %v has %d vertices", ErrDegenerateGeometry, f, len(verts))
		}
		for i := 1; i+1 < len(verts); i++ {
			tris = append(tris, [3]VertexID{verts[0], verts[i], verts[i+1]})
		}
	}
	return tris, nil
}

// Triangulate produces render buffers using the mesh's configured normal
// mode.
func (m *Mesh) Triangulate() (*kernel.Mesh, error) {
	return m.TriangulateMode(m.Config.Normals)
}

// TriangulateMode produces render buffers.
//
// NormalsSmooth emits one buffer vertex per live vertex in arena order with
// per-vertex normals, read from the "vertex_normal" channel when present.
// NormalsFlat emits three buffer vertices per triangle carrying the face
// normal, read from the "face_normal" channel when present.
func (m *Mesh) TriangulateMode(mode NormalMode) (*kernel.Mesh, error) {
	if mode == NormalsFlat {
		return m.flatBuffers()
	}
	return m.smoothBuffers()
}

func (m *Mesh) smoothBuffers() (*kernel.Mesh, error) {
	tris, err := m.Triangles()
	if err != nil {
		return nil, err
	}
	stored, _ := ChannelOf[VertexID, vecmath.Vec3](m, ChannelVertexNormal)

	verts := m.conn.VertexIDs()
	index := make(map[VertexID]uint32, len(verts))
	out := &kernel.Mesh{
		Vertices: make([]float32, 0, len(verts)*3),
		Normals:  make([]float32, 0, len(verts)*3),
		Indices:  make([]uint32, 0, len(tris)*3),
	}
	for i, v := range verts {
		index[v] = uint32(i)
		x, y, z := m.positions.Value(v).Float32()
		out.Vertices = append(out.Vertices, x, y, z)

		var n vecmath.Vec3
		if stored != nil {
			n = stored.Value(v)
		} else if n, err = m.VertexNormal(v); err != nil {
			return nil, err
		}
		nx, ny, nz := n.Float32()
		out.Normals = append(out.Normals, nx, ny, nz)
	}
	for _, t := range tris {
		out.Indices = append(out.Indices, index[t[0]], index[t[1]], index[t[2]])
	}
	return out, nil
}

func (m *Mesh) flatBuffers() (*kernel.Mesh, error) {
	stored, _ := ChannelOf[FaceID, vecmath.Vec3](m, ChannelFaceNormal)
	out := &kernel.Mesh{}
	for _, f := range m.conn.FaceIDs() {
		verts, err := m.conn.FaceVertices(f)
		if err != nil {
			return nil, err
		}
		if len(verts) < 3 {
			return nil, fmt.Errorf("%w: %v has %d vertices", ErrDegenerateGeometry, f, len(verts))
		}
		var n vecmath.Vec3
		if stored != nil {
			n = stored.Value(f)
		} else {
			// Zero-area faces still render, with no normal.
			n, _ = m.FaceNormal(f)
		}
		nx, ny, nz := n.Float32()
		for i := 1; i+1 < len(verts); i++ {
			for _, v := range [3]VertexID{verts[0], verts[i], verts[i+1]} {
				x, y, z := m.positions.Value(v).Float32()
				out.Vertices = append(out.Vertices, x, y, z)
				out.Normals = append(out.Normals, nx, ny, nz)
				out.Indices = append(out.Indices, uint32(len(out.Indices)))
			}
		}
	}
	return out, nil
}
