// Package layout assigns every method a permanent slot in its class's
// dispatch table.
//
// A child's table starts as a copy of its parent's. Overrides replace the
// implementing class of an existing slot; novel methods are appended in
// declaration order. Offsets therefore never move once a class has been
// compiled, which is what lets separately compiled units agree on them.
package layout

import (
	"fmt"

	"github.com/chazu/cfc/model"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("cfc.layout")

// ABI fixes the byte geometry of a dispatch table.
type ABI struct {
	Name        string
	PointerSize int
	// ParentOffset is where the parent table pointer sits inside a table.
	ParentOffset int
	// MethodsOffset is where the first method slot sits inside a table.
	MethodsOffset int
}

var (
	ABI64 = ABI{Name: "lp64", PointerSize: 8, ParentOffset: 16, MethodsOffset: 64}
	ABI32 = ABI{Name: "ilp32", PointerSize: 4, ParentOffset: 8, MethodsOffset: 32}
)

// ABIForPointerSize returns the preset for a pointer width in bytes.
func ABIForPointerSize(size int) (ABI, error) {
	switch size {
	case 0, 8:
		return ABI64, nil
	case 4:
		return ABI32, nil
	}
	return ABI{}, fmt.Errorf("unsupported pointer size %d", size)
}

// Offset returns the byte offset of slot index.
func (a ABI) Offset(index int) int {
	return a.MethodsOffset + index*a.PointerSize
}

// Slot is one entry in a class's dispatch table.
type Slot struct {
	Name   string
	Index  int
	Offset int
	// Impl is the class whose declaration fills the slot.
	Impl string
	// Method is the declaration that fills the slot.
	Method   *model.Method
	Abstract bool
	// Fresh is set when this class declares the slot's implementation.
	Fresh bool
	// Novel is set when this class introduced the slot.
	Novel bool
}

// Table is the dispatch table layout for one class.
type Table struct {
	Class  *model.Class
	Parent *Table
	Slots  []Slot
	byName map[string]int
}

// Slot returns the slot for a method name.
func (t *Table) Slot(name string) (Slot, bool) {
	i, ok := t.byName[name]
	if !ok {
		return Slot{}, false
	}
	return t.Slots[i], true
}

// Offset returns the byte offset for name, or -1.
func (t *Table) Offset(name string) int {
	if s, ok := t.Slot(name); ok {
		return s.Offset
	}
	return -1
}

// NumMethods is the number of slots.
func (t *Table) NumMethods() int { return len(t.Slots) }

// FreshSlots returns the slots this class fills itself, in slot order.
func (t *Table) FreshSlots() []Slot {
	var out []Slot
	for _, s := range t.Slots {
		if s.Fresh {
			out = append(out, s)
		}
	}
	return out
}

// Layout holds the tables for a whole hierarchy.
type Layout struct {
	ABI    ABI
	tables map[string]*Table
	order  []*Table
}

// Table returns the table for a class name.
func (l *Layout) Table(class string) *Table {
	return l.tables[class]
}

// Tables returns every table in topological order.
func (l *Layout) Tables() []*Table {
	return append([]*Table(nil), l.order...)
}

// Generator computes layouts for one ABI.
type Generator struct {
	ABI ABI
}

// Compute lays out every class in h, parents first.
func (g Generator) Compute(h *model.Hierarchy) (*Layout, error) {
	abi := g.ABI
	if abi.PointerSize == 0 {
		abi = ABI64
	}
	l := &Layout{ABI: abi, tables: make(map[string]*Table)}
	for _, c := range h.Ordered() {
		var parent *Table
		if c.ParentName != "" {
			parent = l.tables[c.ParentName]
			if parent == nil {
				return nil, &model.Error{Kind: model.KindMissingParent, Class: c.Name,
					Detail: fmt.Sprintf("no layout for parent %q", c.ParentName)}
			}
		}
		t, err := g.table(abi, c, parent)
		if err != nil {
			return nil, err
		}
		l.tables[c.Name] = t
		l.order = append(l.order, t)
	}
	log.Debugf("laid out %d tables (%s)", len(l.order), abi.Name)
	return l, nil
}

func (g Generator) table(abi ABI, c *model.Class, parent *Table) (*Table, error) {
	t := &Table{Class: c, Parent: parent, byName: make(map[string]int)}
	if parent != nil {
		for _, s := range parent.Slots {
			s.Fresh = false
			s.Novel = false
			t.byName[s.Name] = len(t.Slots)
			t.Slots = append(t.Slots, s)
		}
	}

	declared := make(map[string]bool)
	for _, m := range c.FreshMethods() {
		if declared[m.Name] {
			return nil, &model.Error{Kind: model.KindSlotCollision, Class: c.Name, Method: m.Name,
				Detail: "method declared more than once"}
		}
		declared[m.Name] = true

		if i, ok := t.byName[m.Name]; ok {
			s := &t.Slots[i]
			s.Impl = c.Name
			s.Method = m
			s.Abstract = m.Abstract
			s.Fresh = true
			continue
		}
		index := len(t.Slots)
		t.byName[m.Name] = index
		t.Slots = append(t.Slots, Slot{
			Name:     m.Name,
			Index:    index,
			Offset:   abi.Offset(index),
			Impl:     c.Name,
			Method:   m,
			Abstract: m.Abstract,
			Fresh:    true,
			Novel:    true,
		})
	}
	return t, nil
}
