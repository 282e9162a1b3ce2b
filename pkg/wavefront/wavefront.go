// Package wavefront reads and writes the vertex and face records of the
// Wavefront OBJ format.
package wavefront

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chazu/facet/pkg/halfedge"
	"github.com/chazu/facet/pkg/vecmath"
)

// ErrSyntax reports an OBJ line that cannot be parsed.
var ErrSyntax = errors.New("wavefront: syntax error")

// Encode writes one "v x y z" line per live vertex in arena order, then one
// "f i1 i2 ..." line per face with 1-based indices in next order. Faces with
// fewer than three vertices fail before anything is written.
func Encode(w io.Writer, m *halfedge.Mesh) error {
	c := m.Connectivity()
	verts := c.VertexIDs()
	index := make(map[halfedge.VertexID]int, len(verts))
	for i, v := range verts {
		index[v] = i + 1
	}

	faces := make([][]int, 0, c.NumFaces())
	for _, f := range c.FaceIDs() {
		loop, err := c.FaceVertices(f)
		if err != nil {
			return err
		}
		if len(loop) < 3 {
			return fmt.Errorf("%w: %v has %d vertices", halfedge.ErrDegenerateGeometry, f, len(loop))
		}
		face := make([]int, len(loop))
		for i, v := range loop {
			face[i] = index[v]
		}
		faces = append(faces, face)
	}

	bw := bufio.NewWriter(w)
	for _, v := range verts {
		p := m.Position(v)
		fmt.Fprintf(bw, "v %s %s %s\n", formatFloat(p.X), formatFloat(p.Y), formatFloat(p.Z))
	}
	for _, face := range faces {
		bw.WriteString("f")
		for _, i := range face {
			bw.WriteByte(' ')
			bw.WriteString(strconv.Itoa(i))
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ToText returns the OBJ text of m.
func ToText(m *halfedge.Mesh) (string, error) {
	var sb strings.Builder
	if err := Encode(&sb, m); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Export writes m to path. The text goes to a temporary file in the same
// directory that is renamed over path once complete, so readers never see a
// partial file.
func Export(m *halfedge.Mesh, path string) (err error) {
	text, err := ToText(m)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating export directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.WriteString(text); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("renaming into %s: %w", path, err)
	}
	return nil
}

// Decode reads v and f records into a mesh. Texture and normal references
// in face corners ("1/2/3", "1//3") and negative (relative) indices are
// accepted. Comments and every other record type are skipped.
func Decode(r io.Reader) (*halfedge.Mesh, error) {
	var (
		positions []vecmath.Vec3
		polygons  [][]int
	)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "v":
			p, err := parseVertex(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrSyntax, line, err)
			}
			positions = append(positions, p)
		case "f":
			poly, err := parseFace(fields[1:], len(positions))
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrSyntax, line, err)
			}
			polygons = append(polygons, poly)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return halfedge.FromPolygons(positions, polygons)
}

func parseVertex(fields []string) (vecmath.Vec3, error) {
	if len(fields) < 3 {
		return vecmath.Vec3{}, fmt.Errorf("vertex needs 3 coordinates, got %d", len(fields))
	}
	var xyz [3]float64
	for i := range xyz {
		f, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return vecmath.Vec3{}, fmt.Errorf("bad coordinate %q", fields[i])
		}
		xyz[i] = f
	}
	return vecmath.V3(xyz[0], xyz[1], xyz[2]), nil
}

func parseFace(fields []string, numVertices int) ([]int, error) {
	if len(fields) < 3 {
		return nil, fmt.Errorf("face needs at least 3 vertices, got %d", len(fields))
	}
	poly := make([]int, len(fields))
	for i, corner := range fields {
		ref, _, _ := strings.Cut(corner, "/")
		n, err := strconv.Atoi(ref)
		if err != nil || n == 0 {
			return nil, fmt.Errorf("bad vertex reference %q", corner)
		}
		if n < 0 {
			n = numVertices + n + 1
		}
		if n < 1 || n > numVertices {
			return nil, fmt.Errorf("vertex reference %q out of range", corner)
		}
		poly[i] = n - 1
	}
	return poly, nil
}
