package vm

import (
	"errors"
	"fmt"

	"github.com/chazu/cfc/layout"
	"github.com/chazu/cfc/model"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("cfc.vm")

var (
	ErrAbstractMethod = errors.New("abstract method")
	ErrMissingImpl    = errors.New("no implementation")
	ErrNoMethod       = errors.New("no such method")
	ErrDuplicateClass = errors.New("class already registered")
	ErrUnknownClass   = errors.New("unknown class")
	ErrCertify        = errors.New("value has the wrong type")
)

// AbstractSym fills slots whose declaring class supplies no body.
const AbstractSym = "cfish_VTable_abstract_method"

// Impls maps implementing C function symbols to their bodies.
type Impls map[string]Fn

// With returns a new set holding i and other. Entries in other win.
func (i Impls) With(other Impls) Impls {
	out := make(Impls, len(i)+len(other))
	for k, v := range i {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// Runtime is one bootstrapped parcel set.
type Runtime struct {
	h        *model.Hierarchy
	layout   *layout.Layout
	registry *Registry
}

// Bootstrap does what <prefix>bootstrap_parcel does: allocate every
// vtable in topological order, patch the fresh slots of each, register all
// of them, then hand control to init. Every non-abstract fresh slot must
// have an entry in impls.
func Bootstrap(h *model.Hierarchy, lay *layout.Layout, reg *Registry, impls Impls, init func(*Runtime) error) (*Runtime, error) {
	if reg == nil {
		reg = NewRegistry()
	}
	rt := &Runtime{h: h, layout: lay, registry: reg}

	// Classes arrive parents first, so each parent is fully patched
	// before a child copies its slots.
	var tables []*VTable
	byName := make(map[string]*VTable)
	for _, c := range h.Ordered() {
		if c.Inert {
			continue
		}
		t := lay.Table(c.Name)
		if t == nil {
			return nil, fmt.Errorf("vm: %s: no layout", c.Name)
		}
		var parent *VTable
		if p := c.Parent(); p != nil {
			parent = byName[p.Name]
		}
		vt := newVTable(c, parent, t, lay.ABI)
		if err := patch(vt, impls); err != nil {
			return nil, err
		}
		byName[c.Name] = vt
		tables = append(tables, vt)
	}

	for _, vt := range tables {
		if err := reg.Register(vt); err != nil {
			return nil, err
		}
	}
	log.Debugf("bootstrapped %d classes", len(tables))

	if init != nil {
		if err := init(rt); err != nil {
			reg.Clear()
			return nil, fmt.Errorf("vm: init: %w", err)
		}
	}
	return rt, nil
}

// patch fills the slots vt's class declares itself.
func patch(vt *VTable, impls Impls) error {
	for _, s := range vt.table.FreshSlots() {
		m := &Method{Name: s.Name, Owner: vt.Name()}
		if s.Abstract {
			m.Sym = AbstractSym
			m.Fn = abstractMethod(vt.Name(), s.Name)
		} else {
			m.Sym = s.Method.FullFuncSym()
			fn, ok := impls[m.Sym]
			if !ok {
				return fmt.Errorf("vm: %s.%s: %s: %w", vt.Name(), s.Name, m.Sym, ErrMissingImpl)
			}
			m.Fn = fn
		}
		if err := vt.Override(s.Offset, m); err != nil {
			return err
		}
	}
	return nil
}

func abstractMethod(class, method string) Fn {
	return func(rt *Runtime, self *Object, args []any) (any, error) {
		name := class
		if self != nil {
			name = self.ClassName()
		}
		return nil, fmt.Errorf("vm: %s.%s: %w", name, method, ErrAbstractMethod)
	}
}

// Close tears the runtime down and empties its registry.
func (rt *Runtime) Close() {
	rt.registry.Clear()
}

// Registry returns the runtime's class registry.
func (rt *Runtime) Registry() *Registry { return rt.registry }

// Hierarchy returns the hierarchy the runtime was bootstrapped from.
func (rt *Runtime) Hierarchy() *model.Hierarchy { return rt.h }

// VTable returns the registered vtable for a class name.
func (rt *Runtime) VTable(name string) (*VTable, error) {
	vt, ok := rt.registry.Singleton(name)
	if !ok {
		return nil, fmt.Errorf("vm: %s: %w", name, ErrUnknownClass)
	}
	return vt, nil
}

// Make allocates a zeroed instance of vt.
func (rt *Runtime) Make(vt *VTable) *Object {
	return newObject(vt)
}

// New allocates a zeroed instance of the named class.
func (rt *Runtime) New(class string) (*Object, error) {
	vt, err := rt.VTable(class)
	if err != nil {
		return nil, err
	}
	return rt.Make(vt), nil
}

// Call dispatches method through self's vtable.
func (rt *Runtime) Call(self *Object, method string, args ...any) (any, error) {
	if self == nil {
		return nil, fmt.Errorf("vm: %s on nil object: %w", method, ErrNoMethod)
	}
	m, err := self.vtable.Lookup(method)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("vm: %s.%s: empty slot: %w", self.ClassName(), method, ErrMissingImpl)
	}
	return m.Fn(rt, self, args)
}

// Super calls the parent implementation of method as seen from class.
func (rt *Runtime) Super(class, method string, self *Object, args ...any) (any, error) {
	vt, err := rt.VTable(class)
	if err != nil {
		return nil, err
	}
	m, err := SuperMethod(vt, method)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("vm: %s.%s: empty parent slot: %w", class, method, ErrMissingImpl)
	}
	return m.Fn(rt, self, args)
}

// Dump serializes obj through its Dump slot.
func (rt *Runtime) Dump(obj *Object) (any, error) {
	return rt.Call(obj, "Dump")
}

// Load reconstructs an object from dump, dispatching on proto.
func (rt *Runtime) Load(proto *Object, dump any) (*Object, error) {
	v, err := rt.Call(proto, "Load", dump)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(*Object)
	if !ok {
		return nil, fmt.Errorf("vm: Load returned %T: %w", v, ErrCertify)
	}
	return obj, nil
}
