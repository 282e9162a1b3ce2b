// Package halfedge implements the halfedge mesh used by every modeling
// operation: three generational arenas (vertices, halfedges, faces), a
// registry of typed per-element attribute channels, polygon-soup
// construction, structural validation and render buffer extraction.
//
// Every halfedge is paired with a twin. Halfedges on the open side of a
// boundary edge have no face and are linked with Next into boundary loops,
// so rotating around any vertex with Next(Twin(h)) visits all of its
// outgoing halfedges.
//
// A Mesh is not safe for concurrent use. Operations that can fail part way
// run through Mesh.Edit, which applies them to a clone and commits only on
// success.
package halfedge
