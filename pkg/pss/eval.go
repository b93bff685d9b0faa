package pss

import (
	"fmt"
	"math"

	"github.com/superloach/pss/pkg/raster"
	"github.com/superloach/pss/pkg/transfo"
)

type (
	// constructor runs when the parser completes a production
	constructor func(s *Session, n *Node) error
	// calculator computes the value of a node from its arguments
	calculator func(s *Session, n *Node) (Value, error)
)

var (
	constructors map[Rule]constructor
	calculators  map[Rule]calculator
)

func (s *Session) pos(id NodeID) position {
	if n := s.doc.Node(id); n != nil {
		return n.start
	}
	return position{}
}

// calculate returns the value of node id, calculating it on first use.
// A cached value whose object was released since is calculated again.
func (s *Session) calculate(id NodeID) (Value, error) {
	n := s.doc.Node(id)
	if n == nil {
		return Value{}, Err{ErrAssert, fmt.Sprintf("no node #%d", id), position{}}
	}
	if n.calculated && !n.value.stale() {
		return n.value, nil
	}

	calc, ok := calculators[n.rule]
	if !ok {
		return Value{}, errAt(n.start, ErrAssert, "%s has no value", n.rule)
	}
	v, err := calc(s, n)
	if err != nil {
		return Value{}, err
	}

	if v.handle != nil && v.handle.owner == 0 {
		v.handle.owner = id
	}
	n.value, n.calculated = v, true

	if s.interp.Debug.Eval {
		LogDebug("eval ->", n.String(), "=", v.String())
	}
	return v, nil
}

// forward passes the value of node src on as the value of dst. When src
// owns the object, ownership moves to dst; otherwise dst borrows it.
func (s *Session) forward(dst *Node, src NodeID, v Value) Value {
	if v.handle != nil && v.handle.owner == src {
		v.handle.owner = dst.id
	}
	return v
}

func (s *Session) calculateSlot(v *VariableSlot) (Value, error) {
	if v.calculated && !v.value.stale() {
		return v.value, nil
	}
	if v.expr == 0 {
		return Value{}, Err{ErrAssert, fmt.Sprintf("parameter %s is not bound", v.name), position{}}
	}

	val, err := s.calculate(v.expr)
	if err != nil {
		return Value{}, err
	}
	v.value, v.calculated = val, true
	return val, nil
}

// FreeValue drops the cached value of node id, releasing its object when
// the node owns it.
func (s *Session) FreeValue(id NodeID) {
	n := s.doc.Node(id)
	if n == nil || !n.calculated {
		return
	}

	if h := n.value.handle; h != nil && h.owner == id {
		s.release(h)
	}
	n.calculated = false
	n.value = Value{}
}

func (s *Session) release(h *Handle) {
	if h.released {
		return
	}
	h.released = true
	if r, ok := h.object.(RasterObject); ok {
		s.interp.Engine.Release(r.Raster)
	}
}

// forget drops the cached value of node id without releasing anything.
func (s *Session) forget(id NodeID) {
	if n := s.doc.Node(id); n != nil {
		n.calculated = false
		n.value = Value{}
	}
}

// retire drops the cached value of node id. An object the node owns is
// released when the session is closed, as values calculated from it may
// still be in use.
func (s *Session) retire(id NodeID) {
	n := s.doc.Node(id)
	if n == nil || !n.calculated {
		return
	}
	if h := n.value.handle; h != nil && h.owner == id && !h.released {
		s.retired = append(s.retired, h)
	}
	s.forget(id)
}

type savedValue struct {
	calculated bool
	value      Value
}

// snapshot is the local state of a statement, saved around a nested call.
type snapshot struct {
	nodes []savedValue
	slots map[*VariableSlot]VariableSlot
}

func (s *Session) save(def *StatementDefinition) *snapshot {
	snap := &snapshot{slots: map[*VariableSlot]VariableSlot{}}
	for id := def.first; id <= def.last; id++ {
		n := s.doc.Node(id)
		snap.nodes = append(snap.nodes, savedValue{n.calculated, n.value})
	}
	for _, v := range def.scope.variables {
		snap.slots[v] = *v
	}
	return snap
}

func (s *Session) restore(def *StatementDefinition, snap *snapshot) {
	for i, id := 0, def.first; id <= def.last; i, id = i+1, id+1 {
		s.retire(id)
		n := s.doc.Node(id)
		n.calculated, n.value = snap.nodes[i].calculated, snap.nodes[i].value
	}
	for v, saved := range snap.slots {
		*v = saved
	}
}

func (s *Session) onStack(def *StatementDefinition) bool {
	for _, f := range s.frames {
		if f.def == def {
			return true
		}
	}
	return false
}

// calculateCall binds the arguments of a statement call to its parameters
// and calculates the statement's return expression. The statement's local
// values from any previous call are dropped first. When another call of
// the statement is waiting on one of its arguments, that call's state is
// saved and restored around this one.
func calculateCall(s *Session, n *Node) (Value, error) {
	def := n.def
	if s.onStack(def) {
		return Value{}, errAt(n.start, ErrRecursiveCall, "%s is called while it is being calculated", def.name)
	}

	fr := &frame{def: def}
	if def.calls > 0 {
		fr.saved = s.save(def)
	}
	def.calls++
	s.frames = append(s.frames, fr)
	defer func() {
		s.frames = s.frames[:len(s.frames)-1]
		def.calls--
		if fr.saved != nil {
			s.restore(def, fr.saved)
		}
	}()

	for id := def.first; id <= def.last; id++ {
		s.retire(id)
	}
	def.scope.Reset()
	for i, param := range def.scope.params {
		param.expr = n.args[i]
	}

	v, err := s.calculate(def.ret)
	if err != nil {
		return Value{}, err
	}
	return s.forward(n, def.ret, v), nil
}

// calculateArgument calculates the argument bound to parameter v. The
// argument belongs to the caller, so it is calculated with the caller's
// frames: f(f(x)) calculates the inner call outside of the outer one.
func (s *Session) calculateArgument(v *VariableSlot) (Value, error) {
	i := len(s.frames) - 1
	for i >= 0 && !s.frames[i].def.hasParam(v) {
		i--
	}
	if i < 0 {
		return s.calculateSlot(v)
	}

	frames := s.frames
	s.frames = append([]*frame(nil), frames[:i]...)
	defer func() {
		s.frames = frames
	}()
	return s.calculateSlot(v)
}

func (s *Session) number(id NodeID) (float64, error) {
	v, err := s.calculate(id)
	if err != nil {
		return 0, err
	}
	if v.kind != NumberValue {
		return 0, typeMismatch(s.pos(id), "number")
	}
	return v.num, nil
}

func (s *Session) numberIn(id NodeID, min, max float64) (float64, error) {
	f, err := s.number(id)
	if err != nil {
		return 0, err
	}
	if f < min || f > max {
		return 0, outOfRange(s.pos(id), min, max)
	}
	return f, nil
}

func (s *Session) integer(id NodeID) (int, error) {
	f, err := s.number(id)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, typeMismatch(s.pos(id), "integer")
	}
	return int(f), nil
}

func (s *Session) integerIn(id NodeID, min, max int) (int, error) {
	i, err := s.integer(id)
	if err != nil {
		return 0, err
	}
	if i < min || i > max {
		return 0, outOfRange(s.pos(id), float64(min), float64(max))
	}
	return i, nil
}

func (s *Session) text(id NodeID) (string, error) {
	v, err := s.calculate(id)
	if err != nil {
		return "", err
	}
	if v.kind != TextValue {
		return "", typeMismatch(s.pos(id), "text")
	}
	return v.text, nil
}

func (s *Session) object(id NodeID) (Object, error) {
	v, err := s.calculate(id)
	if err != nil {
		return nil, err
	}
	if v.kind != ObjectValue {
		return nil, typeMismatch(s.pos(id), "object")
	}
	return v.handle.object, nil
}

func (s *Session) rasterArg(id NodeID) (*raster.Raster, error) {
	o, err := s.object(id)
	if err != nil {
		if e, ok := err.(Err); ok && e.reason == ErrTypeMismatch {
			return nil, typeMismatch(s.pos(id), "image")
		}
		return nil, err
	}
	r, ok := o.(RasterObject)
	if !ok {
		return nil, typeMismatch(s.pos(id), "image")
	}
	return r.Raster, nil
}

func (s *Session) shapeArg(id NodeID) (*raster.Shape, error) {
	v, err := s.calculate(id)
	if err != nil {
		return nil, err
	}
	if sh, ok := v.Object().(ShapeObject); ok {
		return sh.Shape, nil
	}
	return nil, errAt(s.pos(id), ErrShapeExpected, "shape expected")
}

func (s *Session) transfoArg(id NodeID) (transfo.Model, error) {
	v, err := s.calculate(id)
	if err != nil {
		return nil, err
	}
	if t, ok := v.Object().(TransfoObject); ok {
		return t.Model, nil
	}
	return nil, typeMismatch(s.pos(id), "transformation")
}

func (s *Session) filterArg(id NodeID) (*raster.Filter, error) {
	v, err := s.calculate(id)
	if err != nil {
		return nil, err
	}
	if f, ok := v.Object().(FilterObject); ok {
		return f.Filter, nil
	}
	return nil, typeMismatch(s.pos(id), "filter")
}

func (s *Session) colorSetArg(id NodeID) (raster.ColorSet, error) {
	v, err := s.calculate(id)
	if err != nil {
		return nil, err
	}
	if c, ok := v.Object().(ColorSetObject); ok {
		return c.ColorSet, nil
	}
	return nil, typeMismatch(s.pos(id), "color set")
}

func (s *Session) contextArg(id NodeID) (*ImageContextObject, error) {
	v, err := s.calculate(id)
	if err != nil {
		return nil, err
	}
	if c, ok := v.Object().(*ImageContextObject); ok {
		return c, nil
	}
	return nil, typeMismatch(s.pos(id), "image context")
}

// worldOf returns the relation to the base world of the world a node's
// coordinates are given in: the one named by its USING clause, or the
// current world.
func (s *Session) worldOf(n *Node) (transfo.Model, error) {
	id := s.currentWorld
	if n.using != 0 {
		w, err := s.integer(n.using)
		if err != nil {
			return nil, err
		}
		if !s.worlds.Defined(w) {
			return nil, typeMismatch(s.pos(n.using), "world")
		}
		id = w
	}

	m, ok := s.worlds.ToBase(id)
	if !ok {
		return nil, errAt(n.start, ErrInvalidWorld, "world %d is not defined", id)
	}
	return m, nil
}
