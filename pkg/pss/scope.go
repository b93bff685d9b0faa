package pss

import (
	"fmt"
	"sort"
	"strings"
)

const maxPrintLen = 120

// VariableSlot is a named variable. Its value is calculated from expr
// the first time it is needed, and kept until the slot is reset.
type VariableSlot struct {
	name string
	// declaration node, 0 for statement parameters
	decl NodeID
	expr NodeID

	calculated bool
	value      Value
}

func (v *VariableSlot) Name() string {
	return v.name
}

func (v *VariableSlot) reset() {
	v.calculated = false
	v.value = Value{}
}

// StatementDefinition is a user statement: its own scope holding the
// parameters and local variables, and the return expression.
type StatementDefinition struct {
	name  string
	scope *Scope
	// definition node, and the range of nodes making up its body
	node  NodeID
	first NodeID
	last  NodeID
	ret   NodeID

	// calls in progress, including those waiting on an argument
	calls int
}

func (d *StatementDefinition) Name() string {
	return d.name
}

func (d *StatementDefinition) hasParam(v *VariableSlot) bool {
	for _, p := range d.scope.params {
		if p == v {
			return true
		}
	}
	return false
}

// Scope maps names to variables and statements. Names are unique along
// the whole chain of parents: a name defined in an enclosing scope cannot
// be defined again.
type Scope struct {
	parent     *Scope
	variables  map[string]*VariableSlot
	statements map[string]*StatementDefinition
	params     []*VariableSlot
}

func newScope(parent *Scope) *Scope {
	return &Scope{
		parent:     parent,
		variables:  map[string]*VariableSlot{},
		statements: map[string]*StatementDefinition{},
	}
}

func (sc *Scope) FindVariable(name string) (*VariableSlot, bool) {
	for s := sc; s != nil; s = s.parent {
		if v, ok := s.variables[name]; ok {
			return v, true
		}
	}
	return nil, false
}

func (sc *Scope) FindStatement(name string) (*StatementDefinition, bool) {
	for s := sc; s != nil; s = s.parent {
		if d, ok := s.statements[name]; ok {
			return d, true
		}
	}
	return nil, false
}

// Defined reports whether name resolves to anything from this scope.
func (sc *Scope) Defined(name string) bool {
	if _, ok := sc.FindVariable(name); ok {
		return true
	}
	_, ok := sc.FindStatement(name)
	return ok
}

func (sc *Scope) AddVariable(name string, decl, expr NodeID) (*VariableSlot, bool) {
	if sc.Defined(name) {
		return nil, false
	}
	v := &VariableSlot{name: name, decl: decl, expr: expr}
	sc.variables[name] = v
	return v, true
}

// AddParameter adds a variable bound to an argument at each call.
func (sc *Scope) AddParameter(name string) (*VariableSlot, bool) {
	v, ok := sc.AddVariable(name, 0, 0)
	if ok {
		sc.params = append(sc.params, v)
	}
	return v, ok
}

func (sc *Scope) AddStatement(name string, def *StatementDefinition) bool {
	if sc.Defined(name) {
		return false
	}
	sc.statements[name] = def
	return true
}

// Reset forgets the values of every variable of the scope.
func (sc *Scope) Reset() {
	for _, v := range sc.variables {
		v.reset()
	}
}

func (sc *Scope) String() string {
	names := make([]string, 0, len(sc.variables)+len(sc.statements))
	for name := range sc.variables {
		names = append(names, name)
	}
	for name := range sc.statements {
		names = append(names, name)
	}
	sort.Strings(names)

	entries := make([]string, 0, len(names))
	for _, name := range names {
		if v, ok := sc.variables[name]; ok {
			vstr := "(not calculated)"
			if v.calculated {
				vstr = v.value.String()
			}
			if len(vstr) > maxPrintLen {
				vstr = vstr[:maxPrintLen] + ".."
			}
			entries = append(entries, fmt.Sprintf("%s -> %s", name, vstr))
		} else {
			def := sc.statements[name]
			params := make([]string, len(def.scope.params))
			for i, p := range def.scope.params {
				params[i] = p.name
			}
			entries = append(entries, fmt.Sprintf("%s(%s) -> statement", name, strings.Join(params, ", ")))
		}
	}

	return fmt.Sprintf("{\n\t%s\n} -prnt-> %v", strings.Join(entries, "\n\t"), sc.parent)
}
