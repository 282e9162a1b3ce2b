package engine

import (
	"fmt"
	"strings"

	"github.com/chazu/facet/pkg/halfedge"
	"github.com/chazu/facet/pkg/kernel"
	"github.com/chazu/facet/pkg/ops"
	"github.com/chazu/facet/pkg/selection"
	"github.com/chazu/facet/pkg/vecmath"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpMesh wraps a mesh. Edit builtins change the wrapped mesh in place, so
// every binding that holds it sees the edit.
type sexpMesh struct {
	mesh *halfedge.Mesh
}

func (m *sexpMesh) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(mesh :vertices %d :faces %d)", m.mesh.NumVertices(), m.mesh.NumFaces())
}
func (m *sexpMesh) Type() *zygo.RegisteredType { return nil }

// sexpSolid wraps a solid kernel handle.
type sexpSolid struct {
	solid kernel.Solid
}

func (s *sexpSolid) SexpString(ps *zygo.PrintState) string {
	lo, hi := s.solid.BoundingBox()
	return fmt.Sprintf("(solid %.3g..%.3g %.3g..%.3g %.3g..%.3g)", lo[0], hi[0], lo[1], hi[1], lo[2], hi[2])
}
func (s *sexpSolid) Type() *zygo.RegisteredType { return nil }

// sexpVec3 wraps a vecmath.Vec3.
type sexpVec3 struct {
	vec vecmath.Vec3
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments. A keyword
// takes the argument after it as its value. Keywords used as values, like
// the :face in (make-group m :kind :face ...), are consumed that way too.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_face) and plain strings ("face").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], nil
	}
	return str.S, nil
}

// toVec3 extracts a Vec3 from a sexpVec3.
func toVec3(s zygo.Sexp) (vecmath.Vec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return vecmath.Vec3{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// fromSexp converts a script value to the Go value ops.Call expects for a
// parameter of type t. Range and shape checks are left to ops.Call.
func fromSexp(t ops.ParamType, s zygo.Sexp) (any, error) {
	switch t {
	case ops.ParamMesh:
		if m, ok := s.(*sexpMesh); ok {
			return m.mesh, nil
		}
		return nil, fmt.Errorf("expected mesh, got %T (%s)", s, s.SexpString(nil))

	case ops.ParamSolid:
		if v, ok := s.(*sexpSolid); ok {
			return v.solid, nil
		}
		return nil, fmt.Errorf("expected solid, got %T (%s)", s, s.SexpString(nil))

	case ops.ParamVec3:
		if v, ok := s.(*sexpVec3); ok {
			return v.vec, nil
		}
		return toFloat64(s)

	case ops.ParamScalar:
		return toFloat64(s)

	case ops.ParamInt:
		switch v := s.(type) {
		case *zygo.SexpInt:
			return int(v.Val), nil
		case *zygo.SexpFloat:
			return v.Val, nil
		}
		return nil, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))

	case ops.ParamString, ops.ParamKind:
		return toKeywordString(s)

	case ops.ParamSelection:
		switch v := s.(type) {
		case *zygo.SexpStr:
			return v.S, nil
		case *zygo.SexpInt:
			return int(v.Val), nil
		}
		items, err := sexpListToSlice(s)
		if err != nil {
			return nil, fmt.Errorf("expected selection string, index or list of indices: %w", err)
		}
		idx := make([]uint32, len(items))
		for i, item := range items {
			n, ok := item.(*zygo.SexpInt)
			if !ok || n.Val < 0 {
				return nil, fmt.Errorf("selection list item %d: expected non-negative integer, got %s", i, item.SexpString(nil))
			}
			idx[i] = uint32(n.Val)
		}
		return selection.Indices(idx...), nil

	case ops.ParamPoints:
		items, err := sexpListToSlice(s)
		if err != nil {
			return nil, err
		}
		pts := make([]vecmath.Vec3, len(items))
		for i, item := range items {
			v, err := toVec3(item)
			if err != nil {
				return nil, fmt.Errorf("point %d: %w", i, err)
			}
			pts[i] = v
		}
		return pts, nil
	}
	return nil, fmt.Errorf("unsupported parameter type %s", t)
}

// toSexp wraps an operation result for the script.
func toSexp(v any) (zygo.Sexp, error) {
	switch x := v.(type) {
	case nil:
		return zygo.SexpNull, nil
	case *halfedge.Mesh:
		return &sexpMesh{mesh: x}, nil
	case kernel.Solid:
		return &sexpSolid{solid: x}, nil
	case string:
		return &zygo.SexpStr{S: x}, nil
	}
	return zygo.SexpNull, fmt.Errorf("cannot return %T to a script", v)
}

// bindArgs maps positional script arguments onto op's parameters in order
// and keyword arguments by name, with hyphens read as underscores.
func bindArgs(op *ops.Operation, env *ops.Env, args []zygo.Sexp) (ops.Args, error) {
	pa := parseArgs(args)
	a := ops.NewArgs(env)

	if len(pa.positional) > len(op.Params) {
		return a, fmt.Errorf("takes at most %d positional arguments, got %d", len(op.Params), len(pa.positional))
	}
	for i, s := range pa.positional {
		p := op.Params[i]
		v, err := fromSexp(p.Type, s)
		if err != nil {
			return a, fmt.Errorf("%s: %w", p.Name, err)
		}
		a.Set(p.Name, v)
	}

	for kw, s := range pa.kw {
		name := strings.ReplaceAll(kw, "-", "_")
		p, ok := paramNamed(op, name)
		if !ok {
			return a, fmt.Errorf("unknown keyword :%s", kw)
		}
		if a.Has(name) {
			return a, fmt.Errorf("%s given both by position and as :%s", name, kw)
		}
		v, err := fromSexp(p.Type, s)
		if err != nil {
			return a, fmt.Errorf("%s: %w", name, err)
		}
		a.Set(name, v)
	}
	return a, nil
}

func paramNamed(op *ops.Operation, name string) (ops.Param, bool) {
	for _, p := range op.Params {
		if p.Name == name {
			return p, true
		}
	}
	return ops.Param{}, false
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs vec3, help and one builtin per operation-table
// entry into a zygomys environment. Operations run against env.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(z *zygo.Zlisp, env *ops.Env) {

	// (vec3 x y z)
	z.AddFunction("vec3", func(_ *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires 3 arguments (x y z), got %d", len(args))
		}
		var c [3]float64
		for i, arg := range args {
			f, err := toFloat64(arg)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: component %d: %w", i, err)
			}
			c[i] = f
		}
		return &sexpVec3{vec: vecmath.V3(c[0], c[1], c[2])}, nil
	})

	// (help "extrude") returns the call signature and doc of an operation.
	z.AddFunction("help", func(_ *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("help requires an operation name")
		}
		opName, err := toKeywordString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("help: %w", err)
		}
		op, ok := ops.Lookup(strings.ReplaceAll(opName, "-", "_"))
		if !ok {
			return zygo.SexpNull, fmt.Errorf("help: %w: %q", ops.ErrUnknownOperation, opName)
		}
		return &zygo.SexpStr{S: op.Signature() + "\n  " + op.Doc}, nil
	})

	for _, opName := range ops.Names() {
		op, _ := ops.Lookup(opName)
		z.AddFunction(op.Name, func(_ *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			a, err := bindArgs(op, env, args)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", op.Name, err)
			}
			out, err := ops.Call(op.Name, a)
			if err != nil {
				return zygo.SexpNull, err
			}
			return toSexp(out)
		})
	}
}
