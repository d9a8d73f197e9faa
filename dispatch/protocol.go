// Package dispatch emits the shared offset-addressed dispatch protocol.
//
// The protocol is three operations over a table pointer and a byte
// offset: read a slot, read the same slot in the parent table, and compare
// a slot against a known function to detect an override. It is emitted
// once per parcel into parcel.h; every generated method macro and every
// synthesized Dump/Load body is written in terms of it.
package dispatch

import (
	"fmt"
	"strings"

	"github.com/chazu/cfc/layout"
	"github.com/chazu/cfc/model"
)

// OpKind identifies a protocol operation.
type OpKind string

const (
	OpMethodType OpKind = "method_type"
	OpSlotRead   OpKind = "slot_read"
	OpSuperCall  OpKind = "super_call"
	OpOverridden OpKind = "overridden"
	OpCallback   OpKind = "callback"
)

// Operation describes one protocol element for consumers that document or
// bind the protocol instead of compiling it.
type Operation struct {
	Kind     OpKind
	Macro    string
	Function string
	// ShortName is the alias available under <RUNTIME>_USE_SHORT_NAMES.
	ShortName string
	Doc       string
}

// Protocol renders the dispatch protocol for one runtime prefix.
type Protocol struct {
	// Runtime is the lower-case runtime prefix, "cfish".
	Runtime string
	ABI     layout.ABI
}

// New returns the protocol for the Clownfish runtime.
func New(abi layout.ABI) Protocol {
	return Protocol{Runtime: "cfish", ABI: abi}
}

func (p Protocol) lower() string { return p.Runtime + "_" }
func (p Protocol) upper() string { return strings.ToUpper(p.Runtime) + "_" }

// CoreMethod names a runtime class method macro, "Cfish_Hash_Store_Str".
func (p Protocol) CoreMethod(nick, method string) string {
	if p.Runtime == "" {
		return nick + "_" + method
	}
	return strings.ToUpper(p.Runtime[:1]) + p.Runtime[1:] + "_" + nick + "_" + method
}

// CoreSym prefixes a runtime symbol, "cfish_Hash".
func (p Protocol) CoreSym(name string) string { return p.lower() + name }

// CoreVar prefixes a runtime vtable or macro name, "CFISH_HASH".
func (p Protocol) CoreVar(name string) string { return p.upper() + name }

// MethodT is the generic method pointer type, "cfish_method_t".
func (p Protocol) MethodT() string { return p.lower() + "method_t" }

// VTableType is the table struct type, "cfish_VTable".
func (p Protocol) VTableType() string { return p.lower() + "VTable" }

// ParentOffsetVar is the global holding the parent pointer's offset.
func (p Protocol) ParentOffsetVar() string { return p.lower() + "VTable_offset_of_parent" }

// Operations lists the protocol in emission order.
func (p Protocol) Operations() []Operation {
	return []Operation{
		{
			Kind:     OpMethodType,
			Function: p.MethodT(),
			Doc:      "Generic method pointer stored in every slot.",
		},
		{
			Kind:      OpSlotRead,
			Macro:     p.upper() + "METHOD",
			Function:  p.lower() + "method",
			ShortName: "METHOD",
			Doc:       "Read the function pointer at a byte offset in a table.",
		},
		{
			Kind:      OpSuperCall,
			Macro:     p.upper() + "SUPER_METHOD",
			Function:  p.lower() + "super_method",
			ShortName: "SUPER_METHOD",
			Doc:       "Read the same slot from the parent table, found through " + p.ParentOffsetVar() + ".",
		},
		{
			Kind:      OpOverridden,
			Macro:     p.upper() + "OVERRIDDEN",
			ShortName: "OVERRIDDEN",
			Doc:       "Report whether an object's slot differs from a known implementation.",
		},
		{
			Kind:     OpCallback,
			Function: p.lower() + "Callback",
			Doc:      "Name, function and offset of a host-overridable method.",
		},
	}
}

// Operation looks up an operation by kind.
func (p Protocol) Operation(kind OpKind) (Operation, bool) {
	for _, op := range p.Operations() {
		if op.Kind == kind {
			return op, true
		}
	}
	return Operation{}, false
}

// Header renders the protocol section of parcel.h.
func (p Protocol) Header() string {
	var b strings.Builder
	w := func(format string, args ...any) { fmt.Fprintf(&b, format, args...) }
	lo, up := p.lower(), p.upper()
	mt, vt := p.MethodT(), p.VTableType()

	w("/* Refcount / host object */\n")
	w("typedef union {\n    size_t  count;\n    void   *host_obj;\n} %sref_t;\n\n", lo)

	w("/* Generic method pointer.\n */\n")
	w("typedef void\n(*%s)(const void *vself);\n\n", mt)

	w("/* Access the function pointer for a given method from the vtable.\n */\n")
	w("#define %sMETHOD(_vtable, _full_meth) \\\n", up)
	w("     ((_full_meth ## _t)%smethod(_vtable, _full_meth ## _OFFSET))\n\n", lo)
	w("static CHY_INLINE %s\n", mt)
	w("%smethod(const void *vtable, size_t offset) {\n", lo)
	w("    union { char *cptr; %s *fptr; } ptr;\n", mt)
	w("    ptr.cptr = (char*)vtable + offset;\n")
	w("    return ptr.fptr[0];\n}\n\n")

	w("/* Access the function pointer for the given method in the superclass's\n * vtable. */\n")
	w("#define %sSUPER_METHOD(_vtable, _full_meth) \\\n", up)
	w("     ((_full_meth ## _t)%ssuper_method(_vtable, \\\n", lo)
	w("%s_full_meth ## _OFFSET))\n\n", strings.Repeat(" ", 37+len(lo)))
	w("extern size_t %s;\n", p.ParentOffsetVar())
	w("static CHY_INLINE %s\n", mt)
	w("%ssuper_method(const void *vtable, size_t offset) {\n", lo)
	w("    char *vt_as_char = (char*)vtable;\n")
	w("    %s **parent_ptr\n", vt)
	w("        = (%s**)(vt_as_char + %s);\n", vt, p.ParentOffsetVar())
	w("    return %smethod(*parent_ptr, offset);\n}\n\n", lo)

	w("/* Return a boolean indicating whether a method has been overridden.\n */\n")
	w("#define %sOVERRIDDEN(_self, _full_meth, _full_func) \\\n", up)
	w("    (%smethod(*((%s**)_self), _full_meth ## _OFFSET )\\\n", lo, vt)
	w("        != (%s)_full_func)\n\n", mt)

	w("#ifdef %sUSE_SHORT_NAMES\n", up)
	for _, op := range p.Operations() {
		if op.ShortName == "" {
			continue
		}
		w("  #define %-24s %s\n", op.ShortName, op.Macro)
	}
	w("#endif\n\n")

	w("typedef struct %sCallback {\n", lo)
	w("    const char    *name;\n")
	w("    size_t         name_len;\n")
	w("    %-14s func;\n", mt)
	w("    size_t         offset;\n")
	w("} %sCallback;\n", lo)
	return b.String()
}

// ParentOffsetDefinition defines the parent offset global for the ABI.
// Exactly one parcel.c in a program carries it.
func (p Protocol) ParentOffsetDefinition() string {
	return fmt.Sprintf("size_t %s = %d;\n", p.ParentOffsetVar(), p.ABI.ParentOffset)
}

// SlotRead renders a typed slot read of method as seen from invoker.
func (p Protocol) SlotRead(vtable string, invoker *model.Class, method string) string {
	return fmt.Sprintf("%sMETHOD(%s, %s)", p.upper(), vtable, model.MethodSym(invoker, method))
}

// SuperCall renders the parent-slot read of method in class c.
func (p Protocol) SuperCall(c *model.Class, method string) string {
	return fmt.Sprintf("%sSUPER_METHOD(%s, %s)", p.upper(), c.FullVTableVar(), model.MethodSym(c, method))
}

// OverriddenCheck renders the override predicate for self's slot.
func (p Protocol) OverriddenCheck(self string, invoker *model.Class, method, fn string) string {
	return fmt.Sprintf("%sOVERRIDDEN(%s, %s, %s)", p.upper(), self, model.MethodSym(invoker, method), fn)
}

// SelfVTable renders the expression reading self's table pointer.
func (p Protocol) SelfVTable(self string) string {
	return fmt.Sprintf("*((%s**)(%s))", p.VTableType(), self)
}

// InvocationMacro renders the dispatching macro for m in invoker.
func (p Protocol) InvocationMacro(m *model.Method, invoker *model.Class) string {
	args := m.ArgNames()
	call := strings.Replace(args, "self", "(self)", 1)
	return fmt.Sprintf("#define %s(%s) \\\n    %s(%s)\n",
		m.FullMethodSym(invoker), args, p.SlotRead(p.SelfVTable("self"), invoker, m.Name), call)
}
