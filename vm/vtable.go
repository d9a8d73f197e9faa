package vm

import (
	"fmt"

	"github.com/chazu/cfc/layout"
	"github.com/chazu/cfc/model"
)

// Fn is a method implementation. args excludes self.
type Fn func(rt *Runtime, self *Object, args []any) (any, error)

// Method is the content of one vtable slot. Sym is the implementing C
// function; slots compare by Sym the way C compares function pointers.
type Method struct {
	Name  string
	Owner string
	Sym   string
	Fn    Fn
}

// VTable holds the method dispatch table for a class.
//
// Slots are stored in layout order. Callers address them by byte offset,
// matching the OFFSET constants in generated headers.
type VTable struct {
	class  *model.Class
	parent *VTable
	table  *layout.Table
	abi    layout.ABI
	slots  []*Method
}

// newVTable allocates a table by copying the parent's slots. Novel slots
// start empty until bootstrap patches them.
func newVTable(c *model.Class, parent *VTable, t *layout.Table, abi layout.ABI) *VTable {
	vt := &VTable{
		class:  c,
		parent: parent,
		table:  t,
		abi:    abi,
		slots:  make([]*Method, t.NumMethods()),
	}
	if parent != nil {
		copy(vt.slots, parent.slots)
	}
	return vt
}

// Name returns the registered class name.
func (vt *VTable) Name() string { return vt.class.Name }

// Class returns the class this vtable belongs to.
func (vt *VTable) Class() *model.Class { return vt.class }

// Parent returns the parent vtable, or nil for a root.
func (vt *VTable) Parent() *VTable { return vt.parent }

// NumMethods returns the number of slots.
func (vt *VTable) NumMethods() int { return len(vt.slots) }

// Offset returns the byte offset of a method's slot.
func (vt *VTable) Offset(method string) (int, bool) {
	s, ok := vt.table.Slot(method)
	if !ok {
		return 0, false
	}
	return s.Offset, true
}

func (vt *VTable) index(offset int) (int, error) {
	rel := offset - vt.abi.MethodsOffset
	if rel < 0 || rel%vt.abi.PointerSize != 0 {
		return 0, fmt.Errorf("vm: %s: offset %d is not a slot", vt.Name(), offset)
	}
	i := rel / vt.abi.PointerSize
	if i >= len(vt.slots) {
		return 0, fmt.Errorf("vm: %s: offset %d past %d slots", vt.Name(), offset, len(vt.slots))
	}
	return i, nil
}

// MethodAt reads the slot at a byte offset.
func (vt *VTable) MethodAt(offset int) (*Method, error) {
	i, err := vt.index(offset)
	if err != nil {
		return nil, err
	}
	return vt.slots[i], nil
}

// Lookup reads the slot for a method name.
func (vt *VTable) Lookup(method string) (*Method, error) {
	off, ok := vt.Offset(method)
	if !ok {
		return nil, fmt.Errorf("vm: %s has no method %s: %w", vt.Name(), method, ErrNoMethod)
	}
	return vt.MethodAt(off)
}

// Override patches the slot at a byte offset.
func (vt *VTable) Override(offset int, m *Method) error {
	i, err := vt.index(offset)
	if err != nil {
		return err
	}
	vt.slots[i] = m
	return nil
}

// IsA reports whether vt is other or inherits from it.
func (vt *VTable) IsA(other *VTable) bool {
	for v := vt; v != nil; v = v.parent {
		if v == other {
			return true
		}
	}
	return false
}

// SuperMethod reads the parent's slot for method, the way
// CFISH_SUPER_METHOD reads through the parent pointer.
func SuperMethod(vt *VTable, method string) (*Method, error) {
	if vt.parent == nil {
		return nil, fmt.Errorf("vm: %s has no parent: %w", vt.Name(), ErrNoMethod)
	}
	return vt.parent.Lookup(method)
}

// Overridden reports whether vt's slot for method holds something other
// than sym.
func Overridden(vt *VTable, method, sym string) bool {
	m, err := vt.Lookup(method)
	if err != nil || m == nil {
		return false
	}
	return m.Sym != sym
}
