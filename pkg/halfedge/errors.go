package halfedge

import (
	"errors"

	"github.com/chazu/facet/pkg/arena"
)

var (
	// ErrInvalidParameter reports an argument outside its documented domain.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrDegenerateGeometry reports geometry an operation cannot work with,
	// such as a face with fewer than three vertices.
	ErrDegenerateGeometry = errors.New("degenerate geometry")

	// ErrMalformedMesh reports connectivity that breaks a mesh invariant.
	ErrMalformedMesh = errors.New("malformed mesh")

	// ErrInvalidHandle reports a stale handle passed to an operation that
	// validates its inputs instead of panicking.
	ErrInvalidHandle = errors.New("invalid handle")

	ErrChannelNotFound     = errors.New("channel not found")
	ErrChannelTypeMismatch = errors.New("channel type mismatch")
	ErrChannelExists       = errors.New("channel already exists")
	ErrReservedChannel     = errors.New("channel is reserved")
)

// InvalidHandleError is the panic value raised when an unchecked accessor is
// given a stale or out-of-range handle.
type InvalidHandleError = arena.InvalidHandleError

// MaxLoopIterations bounds every traversal loop. Reaching it means the
// connectivity is corrupt.
const MaxLoopIterations = 8196
