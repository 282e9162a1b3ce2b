package halfedge

import (
	"fmt"
	"slices"
	"sort"

	"github.com/chazu/facet/pkg/arena"
	"github.com/chazu/facet/pkg/vecmath"
)

// ValueType tags the value type stored in a channel.
type ValueType int

const (
	TypeVec3 ValueType = iota
	TypeFloat
	TypeBool
)

func (t ValueType) String() string {
	switch t {
	case TypeVec3:
		return "vec3"
	case TypeFloat:
		return "float"
	case TypeBool:
		return "bool"
	}
	return "unknown"
}

// ParseValueType accepts "vec3", "float" or "bool".
func ParseValueType(s string) (ValueType, bool) {
	switch s {
	case "vec3":
		return TypeVec3, true
	case "float", "f32", "scalar":
		return TypeFloat, true
	case "bool":
		return TypeBool, true
	}
	return 0, false
}

// Value is the set of types a channel can store.
type Value interface {
	vecmath.Vec3 | float64 | bool
}

func valueTypeOf[V Value]() ValueType {
	var v V
	switch any(v).(type) {
	case vecmath.Vec3:
		return TypeVec3
	case float64:
		return TypeFloat
	default:
		return TypeBool
	}
}

// Channel maps the handles of one element kind to values. Keys that were
// never set read as the channel's default.
type Channel[K Key, V Value] struct {
	values map[K]V
	def    V
	alive  func(arena.Handle) bool // set once registered on a mesh
}

// NewChannel returns an empty, unregistered channel.
func NewChannel[K Key, V Value](def V) *Channel[K, V] {
	return &Channel[K, V]{values: make(map[K]V), def: def}
}

// Get returns the value stored for k. A key that was never set, or whose
// element has been deleted, reports false.
func (c *Channel[K, V]) Get(k K) (V, bool) {
	v, ok := c.values[k]
	if ok && c.alive != nil && !c.alive(arena.Handle(k)) {
		var zero V
		return zero, false
	}
	return v, ok
}

// Value returns the stored value for k, or the default.
func (c *Channel[K, V]) Value(k K) V {
	if v, ok := c.Get(k); ok {
		return v
	}
	return c.def
}

// Default returns the value read for unset keys.
func (c *Channel[K, V]) Default() V {
	return c.def
}

// Set stores v for k. On a registered channel, k must be live; a stale key
// panics with *InvalidHandleError.
func (c *Channel[K, V]) Set(k K, v V) {
	if c.alive != nil && !c.alive(arena.Handle(k)) {
		panic(&InvalidHandleError{Kind: kindOf[K]().String(), Handle: k})
	}
	c.values[k] = v
}

// Delete removes the entry for k.
func (c *Channel[K, V]) Delete(k K) {
	delete(c.values, k)
}

// Len returns the number of stored entries.
func (c *Channel[K, V]) Len() int {
	return len(c.values)
}

// Keys returns the keys with stored values, ordered by handle.
func (c *Channel[K, V]) Keys() []K {
	keys := make([]K, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b K) int {
		return cmpHandle(arena.Handle(a), arena.Handle(b))
	})
	return keys
}

// Clone returns an unregistered copy of c.
func (c *Channel[K, V]) Clone() *Channel[K, V] {
	out := &Channel[K, V]{values: make(map[K]V, len(c.values)), def: c.def}
	for k, v := range c.values {
		out.values[k] = v
	}
	return out
}

// anyChannel is the type-erased view the registry keeps.
type anyChannel interface {
	valueType() ValueType
	length() int
	drop(h arena.Handle)
	bind(alive func(arena.Handle) bool)
	adopt(src anyChannel) bool
	staleKeys(alive func(arena.Handle) bool) int
	cloneAny() anyChannel
	emptyLike() anyChannel
	copyRemapped(src anyChannel, remap map[arena.Handle]arena.Handle)
	copyValue(src anyChannel, from, to arena.Handle)
}

func (c *Channel[K, V]) valueType() ValueType { return valueTypeOf[V]() }
func (c *Channel[K, V]) length() int          { return len(c.values) }
func (c *Channel[K, V]) drop(h arena.Handle)  { delete(c.values, K(h)) }
func (c *Channel[K, V]) cloneAny() anyChannel { return c.Clone() }

func (c *Channel[K, V]) emptyLike() anyChannel {
	return NewChannel[K](c.def)
}

func (c *Channel[K, V]) copyRemapped(src anyChannel, remap map[arena.Handle]arena.Handle) {
	s, ok := src.(*Channel[K, V])
	if !ok {
		return
	}
	for k, v := range s.values {
		if nk, ok := remap[arena.Handle(k)]; ok {
			c.values[K(nk)] = v
		}
	}
}

func (c *Channel[K, V]) copyValue(src anyChannel, from, to arena.Handle) {
	s, ok := src.(*Channel[K, V])
	if !ok {
		return
	}
	if v, ok := s.values[K(from)]; ok {
		c.values[K(to)] = v
	} else {
		delete(c.values, K(to))
	}
}

func (c *Channel[K, V]) bind(alive func(arena.Handle) bool) {
	c.alive = alive
}

// adopt moves src's entries and default into c. It reports false if src
// stores another value type.
func (c *Channel[K, V]) adopt(src anyChannel) bool {
	s, ok := src.(*Channel[K, V])
	if !ok {
		return false
	}
	if s != c {
		c.values, c.def = s.values, s.def
		s.values = make(map[K]V)
	}
	return true
}

func (c *Channel[K, V]) staleKeys(alive func(arena.Handle) bool) int {
	n := 0
	for k := range c.values {
		if !alive(arena.Handle(k)) {
			n++
		}
	}
	return n
}

type channelKey struct {
	kind ElementKind
	name string
}

// ChannelInfo describes one registered channel.
type ChannelInfo struct {
	Kind ElementKind
	Name string
	Type ValueType
	Len  int
}

func (i ChannelInfo) String() string {
	return fmt.Sprintf("%s/%s (%s, %d entries)", i.Kind, i.Name, i.Type, i.Len)
}

// channelRegistry holds the named channels of a mesh.
type channelRegistry struct {
	channels map[channelKey]anyChannel
}

func newChannelRegistry() *channelRegistry {
	return &channelRegistry{channels: make(map[channelKey]anyChannel)}
}

// dropElement removes the entries for h from every channel of kind.
func (r *channelRegistry) dropElement(kind ElementKind, h arena.Handle) {
	for key, ch := range r.channels {
		if key.kind == kind {
			ch.drop(h)
		}
	}
}

// Well-known channel names.
const (
	ChannelPosition     = "position"
	ChannelVertexNormal = "vertex_normal"
	ChannelFaceNormal   = "face_normal"
	ChannelUV           = "uv"
	ChannelMaterial     = "material"
)

// ChannelOf returns the channel registered under name for K's element kind.
// It fails with ErrChannelNotFound if there is none and with
// ErrChannelTypeMismatch if it stores a value type other than V.
func ChannelOf[K Key, V Value](m *Mesh, name string) (*Channel[K, V], error) {
	kind := kindOf[K]()
	ch, ok := m.channels.channels[channelKey{kind, name}]
	if !ok {
		return nil, fmt.Errorf("%w: %s channel %q", ErrChannelNotFound, kind, name)
	}
	typed, ok := ch.(*Channel[K, V])
	if !ok {
		return nil, fmt.Errorf("%w: %s channel %q stores %s, requested %s",
			ErrChannelTypeMismatch, kind, name, ch.valueType(), valueTypeOf[V]())
	}
	return typed, nil
}

// SetChannel registers ch under name, replacing any channel of the same
// element kind and name. ch must not hold entries for dead handles.
func SetChannel[K Key, V Value](m *Mesh, name string, ch *Channel[K, V]) error {
	kind := kindOf[K]()
	if kind == KindVertex && name == ChannelPosition {
		if _, ok := any(ch).(*Channel[VertexID, vecmath.Vec3]); !ok {
			return fmt.Errorf("%w: %q must store vec3", ErrReservedChannel, name)
		}
	}
	alive := m.aliveFunc(kind)
	if n := ch.staleKeys(alive); n > 0 {
		return fmt.Errorf("%w: %s channel %q has %d entries for deleted elements",
			ErrInvalidHandle, kind, name, n)
	}
	ch.bind(alive)
	m.channels.channels[channelKey{kind, name}] = ch
	if p, ok := any(ch).(*Channel[VertexID, vecmath.Vec3]); ok && name == ChannelPosition {
		m.positions = p
	}
	return nil
}

// CreateChannel registers a new empty channel, failing with
// ErrChannelExists if one is already registered under name.
func CreateChannel[K Key, V Value](m *Mesh, name string) (*Channel[K, V], error) {
	kind := kindOf[K]()
	if _, ok := m.channels.channels[channelKey{kind, name}]; ok {
		return nil, fmt.Errorf("%w: %s channel %q", ErrChannelExists, kind, name)
	}
	var def V
	ch := NewChannel[K, V](def)
	if err := SetChannel(m, name, ch); err != nil {
		return nil, err
	}
	return ch, nil
}

// EnsureChannel returns the channel registered under name, creating it if
// needed.
func EnsureChannel[K Key, V Value](m *Mesh, name string) (*Channel[K, V], error) {
	ch, err := ChannelOf[K, V](m, name)
	if err == nil {
		return ch, nil
	}
	if _, exists := m.channels.channels[channelKey{kindOf[K](), name}]; exists {
		return nil, err
	}
	return CreateChannel[K, V](m, name)
}

// CopyChannelValues copies the entries for from in every src channel of K's
// element kind to the entry for to in the matching dst channel. Channels
// missing from dst are created. src and dst may be the same mesh.
func CopyChannelValues[K Key](dst, src *Mesh, from, to K) error {
	kind := kindOf[K]()
	for key, sch := range src.channels.channels {
		if key.kind != kind {
			continue
		}
		dch, ok := dst.channels.channels[key]
		if !ok {
			dch = sch.emptyLike()
			dch.bind(dst.aliveFunc(kind))
			dst.channels.channels[key] = dch
		}
		if dch.valueType() != sch.valueType() {
			return fmt.Errorf("%w: %s channel %q stores %s, source stores %s",
				ErrChannelTypeMismatch, kind, key.name, dch.valueType(), sch.valueType())
		}
		dch.copyValue(sch, arena.Handle(from), arena.Handle(to))
	}
	return nil
}

// RemoveChannel unregisters a channel. The position channel cannot be
// removed.
func (m *Mesh) RemoveChannel(kind ElementKind, name string) error {
	if kind == KindVertex && name == ChannelPosition {
		return fmt.Errorf("%w: %q", ErrReservedChannel, name)
	}
	key := channelKey{kind, name}
	if _, ok := m.channels.channels[key]; !ok {
		return fmt.Errorf("%w: %s channel %q", ErrChannelNotFound, kind, name)
	}
	delete(m.channels.channels, key)
	return nil
}

// HasChannel reports whether a channel is registered under kind and name.
func (m *Mesh) HasChannel(kind ElementKind, name string) bool {
	_, ok := m.channels.channels[channelKey{kind, name}]
	return ok
}

// ChannelNames returns the sorted names of the channels registered for kind.
func (m *Mesh) ChannelNames(kind ElementKind) []string {
	var names []string
	for key := range m.channels.channels {
		if key.kind == kind {
			names = append(names, key.name)
		}
	}
	sort.Strings(names)
	return names
}

// Channels describes every registered channel, ordered by kind then name.
func (m *Mesh) Channels() []ChannelInfo {
	var out []ChannelInfo
	for key, ch := range m.channels.channels {
		out = append(out, ChannelInfo{Kind: key.kind, Name: key.name, Type: ch.valueType(), Len: ch.length()})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Name < out[j].Name
	})
	return out
}
