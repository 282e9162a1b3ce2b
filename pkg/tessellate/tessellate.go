// Package tessellate splits a halfedge mesh into render meshes, one per
// material. Faces with no material value fall in material 0.
package tessellate

import (
	"fmt"
	"sort"

	"github.com/chazu/facet/pkg/halfedge"
	"github.com/chazu/facet/pkg/kernel"
	"github.com/chazu/facet/pkg/vecmath"
)

// Parts triangulates m into one buffer set per material, in ascending
// material order. Each part is named "material <n>". The mesh's configured
// normal mode decides between shared and per-triangle vertices. The mesh is
// never mutated.
func Parts(m *halfedge.Mesh) ([]*kernel.Mesh, error) {
	if m == nil {
		return nil, nil
	}

	c := m.Connectivity()
	material, _ := halfedge.ChannelOf[halfedge.FaceID, float64](m, halfedge.ChannelMaterial)

	groups := make(map[float64][]halfedge.FaceID)
	for _, f := range c.FaceIDs() {
		var id float64
		if material != nil {
			id = material.Value(f)
		}
		groups[id] = append(groups[id], f)
	}

	ids := make([]float64, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Float64s(ids)

	b := newBuilder(m)
	parts := make([]*kernel.Mesh, 0, len(ids))
	for _, id := range ids {
		var (
			part *kernel.Mesh
			err  error
		)
		if m.Config.Normals == halfedge.NormalsFlat {
			part, err = b.flat(groups[id])
		} else {
			part, err = b.smooth(groups[id])
		}
		if err != nil {
			return nil, fmt.Errorf("tessellate: material %g: %w", id, err)
		}
		part.Name = fmt.Sprintf("material %g", id)
		parts = append(parts, part)
	}
	return parts, nil
}

// builder reads normals from the stored normal channels when present and
// computes them otherwise.
type builder struct {
	m           *halfedge.Mesh
	faceNormals *halfedge.Channel[halfedge.FaceID, vecmath.Vec3]
	vertNormals *halfedge.Channel[halfedge.VertexID, vecmath.Vec3]
}

func newBuilder(m *halfedge.Mesh) *builder {
	b := &builder{m: m}
	b.faceNormals, _ = halfedge.ChannelOf[halfedge.FaceID, vecmath.Vec3](m, halfedge.ChannelFaceNormal)
	b.vertNormals, _ = halfedge.ChannelOf[halfedge.VertexID, vecmath.Vec3](m, halfedge.ChannelVertexNormal)
	return b
}

func (b *builder) faceNormal(f halfedge.FaceID) vecmath.Vec3 {
	if b.faceNormals != nil {
		return b.faceNormals.Value(f)
	}
	n, _ := b.m.FaceNormal(f)
	return n
}

func (b *builder) vertexNormal(v halfedge.VertexID) vecmath.Vec3 {
	if b.vertNormals != nil {
		return b.vertNormals.Value(v)
	}
	n, _ := b.m.VertexNormal(v)
	return n
}

// fan returns the corners of f, failing for faces that cannot be
// triangulated.
func (b *builder) fan(f halfedge.FaceID) ([]halfedge.VertexID, error) {
	verts, err := b.m.Connectivity().FaceVertices(f)
	if err != nil {
		return nil, err
	}
	if len(verts) < 3 {
		return nil, fmt.Errorf("%w: %v has %d vertices", halfedge.ErrDegenerateGeometry, f, len(verts))
	}
	return verts, nil
}

// smooth shares one buffer vertex per mesh vertex within the part, in
// first-use order.
func (b *builder) smooth(faces []halfedge.FaceID) (*kernel.Mesh, error) {
	out := &kernel.Mesh{}
	local := make(map[halfedge.VertexID]uint32)
	index := func(v halfedge.VertexID) uint32 {
		if i, ok := local[v]; ok {
			return i
		}
		i := uint32(len(local))
		local[v] = i
		x, y, z := b.m.Position(v).Float32()
		nx, ny, nz := b.vertexNormal(v).Float32()
		out.Vertices = append(out.Vertices, x, y, z)
		out.Normals = append(out.Normals, nx, ny, nz)
		return i
	}
	for _, f := range faces {
		verts, err := b.fan(f)
		if err != nil {
			return nil, err
		}
		for i := 1; i+1 < len(verts); i++ {
			out.Indices = append(out.Indices, index(verts[0]), index(verts[i]), index(verts[i+1]))
		}
	}
	return out, nil
}

// flat emits three buffer vertices per triangle carrying the face normal.
func (b *builder) flat(faces []halfedge.FaceID) (*kernel.Mesh, error) {
	out := &kernel.Mesh{}
	for _, f := range faces {
		verts, err := b.fan(f)
		if err != nil {
			return nil, err
		}
		nx, ny, nz := b.faceNormal(f).Float32()
		for i := 1; i+1 < len(verts); i++ {
			for _, v := range [3]halfedge.VertexID{verts[0], verts[i], verts[i+1]} {
				x, y, z := b.m.Position(v).Float32()
				out.Vertices = append(out.Vertices, x, y, z)
				out.Normals = append(out.Normals, nx, ny, nz)
				out.Indices = append(out.Indices, uint32(len(out.Indices)))
			}
		}
	}
	return out, nil
}
