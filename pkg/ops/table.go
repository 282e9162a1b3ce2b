package ops

import (
	"fmt"
	"path/filepath"
	"slices"

	"github.com/chazu/facet/pkg/halfedge"
	"github.com/chazu/facet/pkg/primitives"
	"github.com/chazu/facet/pkg/selection"
	"github.com/chazu/facet/pkg/vecmath"
	"github.com/chazu/facet/pkg/wavefront"
)

func meshParam(name string) Param { return Param{Name: name, Type: ParamMesh} }
func solidParam(name string) Param { return Param{Name: name, Type: ParamSolid} }

// operations is the operation table. Edit entries change their mesh argument
// in place and return it so calls can be chained.
var operations = []Operation{
	// -----------------------------------------------------------------------
	// Construction
	// -----------------------------------------------------------------------
	{
		Name: "box",
		Doc:  "Axis-aligned box with outward-facing quads.",
		Params: []Param{
			{Name: "center", Type: ParamVec3, Default: vecmath.Zero},
			{Name: "size", Type: ParamVec3, Default: vecmath.One},
		},
		Fn: func(a Args) (any, error) {
			return primitives.Box(a.Vec3("center"), a.Vec3("size"))
		},
	},
	{
		Name: "quad",
		Doc:  "Single quad facing normal; size.x spans right, size.y spans normal x right.",
		Params: []Param{
			{Name: "center", Type: ParamVec3, Default: vecmath.Zero},
			{Name: "normal", Type: ParamVec3, Default: vecmath.UnitY},
			{Name: "right", Type: ParamVec3, Default: vecmath.UnitX},
			{Name: "size", Type: ParamVec3, Default: vecmath.One},
		},
		Fn: func(a Args) (any, error) {
			return primitives.Quad(a.Vec3("center"), a.Vec3("normal"), a.Vec3("right"), a.Vec3("size"))
		},
	},
	{
		Name: "circle",
		Doc:  "Open circle of boundary edges in the XZ plane.",
		Params: []Param{
			{Name: "center", Type: ParamVec3, Default: vecmath.Zero},
			{Name: "radius", Type: ParamScalar, Default: 1.0},
			{Name: "num_vertices", Type: ParamScalar, Default: 8.0},
		},
		Fn: func(a Args) (any, error) {
			return primitives.Circle(a.Vec3("center"), a.Scalar("radius"), int(a.Scalar("num_vertices")))
		},
	},
	{
		Name: "uv_sphere",
		Doc:  "Sphere of quads with triangle fans at the poles.",
		Params: []Param{
			{Name: "center", Type: ParamVec3, Default: vecmath.Zero},
			{Name: "radius", Type: ParamScalar, Default: 1.0},
			{Name: "segments", Type: ParamInt, Default: 16},
			{Name: "rings", Type: ParamInt, Default: 8},
		},
		Fn: func(a Args) (any, error) {
			return primitives.UVSphere(a.Vec3("center"), a.Scalar("radius"), a.Int("segments"), a.Int("rings"))
		},
	},
	{
		Name: "line",
		Doc:  "Polyline from start to end split into equal segments.",
		Params: []Param{
			{Name: "start", Type: ParamVec3},
			{Name: "end", Type: ParamVec3},
			{Name: "segments", Type: ParamInt, Default: 1},
		},
		Fn: func(a Args) (any, error) {
			return primitives.Line(a.Vec3("start"), a.Vec3("end"), a.Int("segments"))
		},
	},
	{
		Name:   "line_from_points",
		Doc:    "Polyline through the given points.",
		Params: []Param{{Name: "points", Type: ParamPoints}},
		Fn: func(a Args) (any, error) {
			return primitives.LineFromPoints(a.Points("points"))
		},
	},
	{
		Name: "grid",
		Doc:  "Quad grid in the XZ plane facing +Y.",
		Params: []Param{
			{Name: "center", Type: ParamVec3, Default: vecmath.Zero},
			{Name: "size_x", Type: ParamScalar, Default: 1.0},
			{Name: "size_z", Type: ParamScalar, Default: 1.0},
			{Name: "x_segments", Type: ParamInt, Default: 1},
			{Name: "z_segments", Type: ParamInt, Default: 1},
		},
		Fn: func(a Args) (any, error) {
			return primitives.Grid(a.Vec3("center"), a.Scalar("size_x"), a.Scalar("size_z"),
				a.Int("x_segments"), a.Int("z_segments"))
		},
	},

	// -----------------------------------------------------------------------
	// Topology edits
	// -----------------------------------------------------------------------
	{
		Name: "extrude",
		Doc:  "Extrudes the selected faces along their normals.",
		Params: []Param{
			meshParam("mesh"),
			{Name: "faces", Type: ParamSelection},
			{Name: "amount", Type: ParamScalar, Default: 1.0},
		},
		Fn: func(a Args) (any, error) {
			m := a.Mesh("mesh")
			faces, err := selection.ResolveFaces(m, a.Selection("faces"))
			if err != nil {
				return nil, err
			}
			if _, err := ExtrudeFaces(m, faces, a.Scalar("amount")); err != nil {
				return nil, err
			}
			return m, nil
		},
	},
	{
		Name: "delete_faces",
		Doc:  "Deletes the selected faces and the edges and vertices left unused.",
		Params: []Param{
			meshParam("mesh"),
			{Name: "faces", Type: ParamSelection},
		},
		Fn: func(a Args) (any, error) {
			m := a.Mesh("mesh")
			faces, err := selection.ResolveFaces(m, a.Selection("faces"))
			if err != nil {
				return nil, err
			}
			return m, DeleteFaces(m, faces)
		},
	},
	{
		Name: "delete_vertices",
		Doc:  "Deletes the selected vertices with their faces and edges.",
		Params: []Param{
			meshParam("mesh"),
			{Name: "vertices", Type: ParamSelection},
		},
		Fn: func(a Args) (any, error) {
			m := a.Mesh("mesh")
			verts, err := selection.ResolveVertices(m, a.Selection("vertices"))
			if err != nil {
				return nil, err
			}
			return m, m.Edit(func(tmp *halfedge.Mesh) error {
				for _, v := range verts {
					// Deleting a neighbor can already have removed v.
					if !tmp.Connectivity().HasVertex(v) {
						continue
					}
					if err := DeleteVertex(tmp, v); err != nil {
						return err
					}
				}
				return nil
			})
		},
	},
	{
		Name: "merge_by_distance",
		Doc:  "Welds vertices closer than distance.",
		Params: []Param{
			meshParam("mesh"),
			{Name: "distance", Type: ParamScalar, Default: 1e-5},
		},
		Fn: func(a Args) (any, error) {
			m := a.Mesh("mesh")
			_, err := MergeByDistance(m, a.Scalar("distance"))
			return m, err
		},
	},
	{
		Name: "subdivide",
		Doc:  "Subdivides every face; technique is linear or catmull-clark.",
		Params: []Param{
			meshParam("mesh"),
			{Name: "iterations", Type: ParamInt, Default: 1},
			{Name: "technique", Type: ParamString, Default: "catmull-clark"},
		},
		Fn: func(a Args) (any, error) {
			m := a.Mesh("mesh")
			tech, err := ParseTechnique(a.Text("technique"))
			if err != nil {
				return nil, err
			}
			return m, Subdivide(m, a.Int("iterations"), tech)
		},
	},
	{
		Name: "divide_edges",
		Doc:  "Inserts a vertex at parameter t along each selected edge.",
		Params: []Param{
			meshParam("mesh"),
			{Name: "edges", Type: ParamSelection},
			{Name: "t", Type: ParamScalar, Default: 0.5},
		},
		Fn: func(a Args) (any, error) {
			m := a.Mesh("mesh")
			hs, err := selection.ResolveHalfEdges(m, a.Selection("edges"))
			if err != nil {
				return nil, err
			}
			return m, m.Edit(func(tmp *halfedge.Mesh) error {
				done := make(map[halfedge.HalfEdgeID]bool, len(hs))
				for _, h := range hs {
					if done[h] {
						continue
					}
					done[h] = true
					done[tmp.Connectivity().MustHalfEdge(h).Twin] = true
					if _, err := DivideEdge(tmp, h, a.Scalar("t")); err != nil {
						return err
					}
				}
				return nil
			})
		},
	},
	{
		Name: "dissolve_edges",
		Doc:  "Removes each selected edge, joining the faces on either side.",
		Params: []Param{
			meshParam("mesh"),
			{Name: "edges", Type: ParamSelection},
		},
		Fn: func(a Args) (any, error) {
			m := a.Mesh("mesh")
			hs, err := selection.ResolveHalfEdges(m, a.Selection("edges"))
			if err != nil {
				return nil, err
			}
			return m, m.Edit(func(tmp *halfedge.Mesh) error {
				for _, h := range hs {
					// The twin of an earlier entry goes with it.
					if !tmp.Connectivity().HasHalfEdge(h) {
						continue
					}
					if err := DissolveEdge(tmp, h); err != nil {
						return err
					}
				}
				return nil
			})
		},
	},
	{
		Name: "cut_face",
		Doc:  "Splits the face shared by vertices a and b with a new edge.",
		Params: []Param{
			meshParam("mesh"),
			{Name: "a", Type: ParamInt},
			{Name: "b", Type: ParamInt},
		},
		Fn: func(a Args) (any, error) {
			m := a.Mesh("mesh")
			v, err := vertexAt(m, a.Int("a"))
			if err != nil {
				return nil, err
			}
			w, err := vertexAt(m, a.Int("b"))
			if err != nil {
				return nil, err
			}
			_, err = CutFace(m, v, w)
			return m, err
		},
	},
	{
		Name: "extrude_with_caps",
		Doc:  "Extrudes the selected faces and leaves a reversed copy of each behind as a cap.",
		Params: []Param{
			meshParam("mesh"),
			{Name: "faces", Type: ParamSelection},
			{Name: "amount", Type: ParamScalar, Default: 1.0},
		},
		Fn: func(a Args) (any, error) {
			m := a.Mesh("mesh")
			faces, err := selection.ResolveFaces(m, a.Selection("faces"))
			if err != nil {
				return nil, err
			}
			if _, err := ExtrudeWithCaps(m, faces, a.Scalar("amount")); err != nil {
				return nil, err
			}
			return m, nil
		},
	},
	{
		Name: "collapse_edge",
		Doc:  "Fuses the endpoints of each selected edge at parameter t; rebuilds the mesh.",
		Params: []Param{
			meshParam("mesh"),
			{Name: "edges", Type: ParamSelection},
			{Name: "t", Type: ParamScalar, Default: 0.5},
		},
		Fn: func(a Args) (any, error) {
			m := a.Mesh("mesh")
			hs, err := selection.ResolveHalfEdges(m, a.Selection("edges"))
			if err != nil {
				return nil, err
			}
			return m, CollapseEdges(m, hs, a.Scalar("t"))
		},
	},
	{
		Name: "dissolve_vertex",
		Doc:  "Removes each selected interior vertex, joining the faces around it.",
		Params: []Param{
			meshParam("mesh"),
			{Name: "vertices", Type: ParamSelection},
		},
		Fn: func(a Args) (any, error) {
			m := a.Mesh("mesh")
			verts, err := selection.ResolveVertices(m, a.Selection("vertices"))
			if err != nil {
				return nil, err
			}
			return m, m.Edit(func(tmp *halfedge.Mesh) error {
				for _, v := range verts {
					if _, err := DissolveVertex(tmp, v); err != nil {
						return err
					}
				}
				return nil
			})
		},
	},
	{
		Name: "chamfer",
		Doc:  "Cuts off each selected interior vertex, dividing its edges at amount from it.",
		Params: []Param{
			meshParam("mesh"),
			{Name: "vertices", Type: ParamSelection},
			{Name: "amount", Type: ParamScalar, Default: 0.25},
		},
		Fn: func(a Args) (any, error) {
			m := a.Mesh("mesh")
			verts, err := selection.ResolveVertices(m, a.Selection("vertices"))
			if err != nil {
				return nil, err
			}
			return m, m.Edit(func(tmp *halfedge.Mesh) error {
				for _, v := range verts {
					if _, err := ChamferVertex(tmp, v, a.Scalar("amount")); err != nil {
						return err
					}
				}
				return nil
			})
		},
	},
	{
		Name: "make_quad",
		Doc:  "Adds the quad a->b->c->d; each argument selects one vertex.",
		Params: []Param{
			meshParam("mesh"),
			{Name: "a", Type: ParamSelection},
			{Name: "b", Type: ParamSelection},
			{Name: "c", Type: ParamSelection},
			{Name: "d", Type: ParamSelection},
		},
		Fn: func(a Args) (any, error) {
			m := a.Mesh("mesh")
			var quad [4]halfedge.VertexID
			for i, name := range []string{"a", "b", "c", "d"} {
				v, err := firstVertex(m, a.Selection(name))
				if err != nil {
					return nil, fmt.Errorf("%s: %w", name, err)
				}
				quad[i] = v
			}
			_, err := MakeQuad(m, quad[0], quad[1], quad[2], quad[3])
			return m, err
		},
	},
	{
		Name: "bridge_chains",
		Doc:  "Joins two boundary chains of edges with quads; flip 1-3 reverses chain_1, chain_2 or both.",
		Params: []Param{
			meshParam("mesh"),
			{Name: "chain_1", Type: ParamSelection},
			{Name: "chain_2", Type: ParamSelection},
			{Name: "flip", Type: ParamInt, Default: 0},
		},
		Fn: func(a Args) (any, error) {
			m := a.Mesh("mesh")
			var chains [2][]halfedge.VertexID
			var closed [2]bool
			for i, name := range []string{"chain_1", "chain_2"} {
				hs, err := selection.ResolveHalfEdges(m, a.Selection(name))
				if err != nil {
					return nil, err
				}
				if chains[i], closed[i], err = SortChain(m.Connectivity(), hs); err != nil {
					return nil, fmt.Errorf("%s: %w", name, err)
				}
			}
			if closed[0] != closed[1] {
				return nil, fmt.Errorf("%w: cannot bridge a closed chain with an open one", halfedge.ErrInvalidParameter)
			}
			flip := a.Int("flip")
			if flip&1 != 0 {
				slices.Reverse(chains[0])
			}
			if flip&2 != 0 {
				slices.Reverse(chains[1])
			}
			_, err := BridgeChains(m, chains[0], chains[1], closed[0])
			return m, err
		},
	},
	{
		Name: "merge",
		Doc:  "Appends a copy of other to mesh.",
		Params: []Param{
			meshParam("mesh"),
			meshParam("other"),
		},
		Fn: func(a Args) (any, error) {
			m := a.Mesh("mesh")
			_, err := Merge(m, a.Mesh("other"))
			return m, err
		},
	},
	{
		Name:   "clone",
		Doc:    "Independent copy of mesh.",
		Params: []Param{meshParam("mesh")},
		Fn: func(a Args) (any, error) {
			return a.Mesh("mesh").Clone(), nil
		},
	},
	{
		Name: "copy_to_points",
		Doc:  "New mesh with a copy of mesh at every vertex of points, sized and oriented by its size, normal and tangent channels.",
		Params: []Param{
			meshParam("points"),
			meshParam("mesh"),
		},
		Fn: func(a Args) (any, error) {
			return CopyToPoints(a.Mesh("points"), a.Mesh("mesh"))
		},
	},

	// -----------------------------------------------------------------------
	// Geometry and attributes
	// -----------------------------------------------------------------------
	{
		Name: "transform",
		Doc:  "Scales, rotates (Euler degrees, X then Y then Z) and translates every vertex.",
		Params: []Param{
			meshParam("mesh"),
			{Name: "translate", Type: ParamVec3, Default: vecmath.Zero},
			{Name: "rotate", Type: ParamVec3, Default: vecmath.Zero},
			{Name: "scale", Type: ParamVec3, Default: vecmath.One},
		},
		Fn: func(a Args) (any, error) {
			m := a.Mesh("mesh")
			return m, Transform(m, a.Vec3("translate"), a.Vec3("rotate"), a.Vec3("scale"))
		},
	},
	{
		Name:   "set_flat_normals",
		Doc:    "Stores face normals and switches to flat shading.",
		Params: []Param{meshParam("mesh")},
		Fn: func(a Args) (any, error) {
			m := a.Mesh("mesh")
			return m, SetFlatNormals(m)
		},
	},
	{
		Name:   "set_smooth_normals",
		Doc:    "Stores vertex normals and switches to smooth shading.",
		Params: []Param{meshParam("mesh")},
		Fn: func(a Args) (any, error) {
			m := a.Mesh("mesh")
			return m, SetSmoothNormals(m)
		},
	},
	{
		Name:   "set_full_range_uvs",
		Doc:    "Maps every face onto the full unit UV square.",
		Params: []Param{meshParam("mesh")},
		Fn: func(a Args) (any, error) {
			m := a.Mesh("mesh")
			return m, SetFullRangeUVs(m)
		},
	},
	{
		Name: "set_material",
		Doc:  "Stores a material index on the selected faces.",
		Params: []Param{
			meshParam("mesh"),
			{Name: "faces", Type: ParamSelection},
			{Name: "material", Type: ParamScalar},
		},
		Fn: func(a Args) (any, error) {
			m := a.Mesh("mesh")
			return m, SetMaterial(m, a.Selection("faces"), a.Scalar("material"))
		},
	},
	{
		Name: "make_group",
		Doc:  "Names a selection as a group usable as @name.",
		Params: []Param{
			meshParam("mesh"),
			{Name: "kind", Type: ParamKind},
			{Name: "selection", Type: ParamSelection},
			{Name: "name", Type: ParamString},
		},
		Fn: func(a Args) (any, error) {
			m := a.Mesh("mesh")
			return m, MakeGroup(m, a.Kind("kind"), a.Selection("selection"), a.Text("name"))
		},
	},

	// -----------------------------------------------------------------------
	// Inspection and export
	// -----------------------------------------------------------------------
	{
		Name: "vertex_attribute_transfer",
		Doc:  "Copies a vertex channel from src to dst, each dst vertex taking the nearest src value.",
		Params: []Param{
			meshParam("src"),
			meshParam("dst"),
			{Name: "value_type", Type: ParamString},
			{Name: "channel", Type: ParamString},
		},
		Fn: func(a Args) (any, error) {
			vt, ok := halfedge.ParseValueType(a.Text("value_type"))
			if !ok {
				return nil, fmt.Errorf("%w: unknown value type %q (want vec3, float or bool)",
					halfedge.ErrInvalidParameter, a.Text("value_type"))
			}
			dst := a.Mesh("dst")
			return dst, VertexAttributeTransfer(a.Mesh("src"), dst, a.Text("channel"), vt)
		},
	},
	{
		Name:   "check",
		Doc:    "Fails if mesh breaks a connectivity invariant.",
		Params: []Param{meshParam("mesh")},
		Fn: func(a Args) (any, error) {
			m := a.Mesh("mesh")
			return m, m.Check()
		},
	},
	{
		Name:   "describe",
		Doc:    "Element counts of mesh.",
		Params: []Param{meshParam("mesh")},
		Fn: func(a Args) (any, error) {
			return a.Mesh("mesh").String(), nil
		},
	},
	{
		Name: "export_wavefront",
		Doc:  "Writes mesh as OBJ; relative paths resolve against the export directory.",
		Params: []Param{
			meshParam("mesh"),
			{Name: "path", Type: ParamString},
		},
		Fn: func(a Args) (any, error) {
			path := a.Text("path")
			if !filepath.IsAbs(path) {
				path = filepath.Join(a.Env().ExportDir, path)
			}
			if err := wavefront.Export(a.Mesh("mesh"), path); err != nil {
				return nil, err
			}
			return path, nil
		},
	},

	// -----------------------------------------------------------------------
	// Implicit solids
	// -----------------------------------------------------------------------
	{
		Name:   "sdf_box",
		Doc:    "Box solid centered on the origin.",
		Params: []Param{{Name: "size", Type: ParamVec3, Default: vecmath.One}},
		Fn: func(a Args) (any, error) {
			s := a.Vec3("size")
			return a.Env().Kernel.Box(s.X, s.Y, s.Z)
		},
	},
	{
		Name:   "sdf_sphere",
		Doc:    "Sphere solid centered on the origin.",
		Params: []Param{{Name: "radius", Type: ParamScalar, Default: 1.0}},
		Fn: func(a Args) (any, error) {
			return a.Env().Kernel.Sphere(a.Scalar("radius"))
		},
	},
	{
		Name: "sdf_cylinder",
		Doc:  "Cylinder solid along Z centered on the origin.",
		Params: []Param{
			{Name: "height", Type: ParamScalar, Default: 1.0},
			{Name: "radius", Type: ParamScalar, Default: 0.5},
		},
		Fn: func(a Args) (any, error) {
			return a.Env().Kernel.Cylinder(a.Scalar("height"), a.Scalar("radius"))
		},
	},
	{
		Name:   "sdf_union",
		Doc:    "Union of two solids.",
		Params: []Param{solidParam("a"), solidParam("b")},
		Fn: func(a Args) (any, error) {
			return a.Env().Kernel.Union(a.Solid("a"), a.Solid("b")), nil
		},
	},
	{
		Name:   "sdf_difference",
		Doc:    "Solid a with b removed.",
		Params: []Param{solidParam("a"), solidParam("b")},
		Fn: func(a Args) (any, error) {
			return a.Env().Kernel.Difference(a.Solid("a"), a.Solid("b")), nil
		},
	},
	{
		Name:   "sdf_intersection",
		Doc:    "Intersection of two solids.",
		Params: []Param{solidParam("a"), solidParam("b")},
		Fn: func(a Args) (any, error) {
			return a.Env().Kernel.Intersection(a.Solid("a"), a.Solid("b")), nil
		},
	},
	{
		Name:   "sdf_translate",
		Doc:    "Moves a solid by offset.",
		Params: []Param{solidParam("solid"), {Name: "offset", Type: ParamVec3}},
		Fn: func(a Args) (any, error) {
			o := a.Vec3("offset")
			return a.Env().Kernel.Translate(a.Solid("solid"), o.X, o.Y, o.Z), nil
		},
	},
	{
		Name:   "sdf_rotate",
		Doc:    "Rotates a solid by Euler angles in degrees.",
		Params: []Param{solidParam("solid"), {Name: "angles", Type: ParamVec3}},
		Fn: func(a Args) (any, error) {
			r := a.Vec3("angles")
			return a.Env().Kernel.Rotate(a.Solid("solid"), r.X, r.Y, r.Z), nil
		},
	},
	{
		Name:   "sdf_mesh",
		Doc:    "Tessellates a solid and welds the triangles into a mesh.",
		Params: []Param{solidParam("solid")},
		Fn: func(a Args) (any, error) {
			env := a.Env()
			soup, err := env.Kernel.ToMesh(a.Solid("solid"))
			if err != nil {
				return nil, err
			}
			return halfedge.FromTriangles(soup, env.WeldTolerance)
		},
	},
}

// vertexAt returns the i-th live vertex in arena order.
func vertexAt(m *halfedge.Mesh, i int) (halfedge.VertexID, error) {
	ids := m.Connectivity().VertexIDs()
	if i < 0 || i >= len(ids) {
		return halfedge.VertexID{}, fmt.Errorf("%w: vertex index %d out of range [0, %d)",
			halfedge.ErrInvalidParameter, i, len(ids))
	}
	return ids[i], nil
}

// firstVertex returns the first vertex e selects.
func firstVertex(m *halfedge.Mesh, e selection.Expression) (halfedge.VertexID, error) {
	verts, err := selection.ResolveVertices(m, e)
	if err != nil {
		return halfedge.VertexID{}, err
	}
	if len(verts) == 0 {
		return halfedge.VertexID{}, fmt.Errorf("%w: empty vertex selection %s", halfedge.ErrInvalidParameter, e)
	}
	return verts[0], nil
}
