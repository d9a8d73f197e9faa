package bind

import (
	"fmt"
	"strings"

	"github.com/chazu/cfc/dispatch"
	"github.com/chazu/cfc/layout"
	"github.com/chazu/cfc/model"
)

// ClassEmitter produces the per-class fragments the aggregator stitches
// into parcel.c and into each unit's header.
type ClassEmitter interface {
	// CData is the class's contribution to parcel.c at file scope.
	CData(c *model.Class, t *layout.Table) string
	VTableAllocate(c *model.Class, t *layout.Table) string
	VTableBootstrap(c *model.Class, t *layout.Table) string
	VTableRegister(c *model.Class, t *layout.Table) string
	// Header is the class's section of its unit header.
	Header(c *model.Class, t *layout.Table) string
}

// ClassBinding is the default ClassEmitter for the Clownfish runtime.
type ClassBinding struct {
	Protocol dispatch.Protocol
}

var _ ClassEmitter = ClassBinding{}

func (b ClassBinding) CData(c *model.Class, t *layout.Table) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "/* %s */\n", c.Name)
	if !c.Inert {
		fmt.Fprintf(&sb, "%s *%s = NULL;\n", b.Protocol.VTableType(), c.FullVTableVar())
	}
	if c.Autocode != "" {
		sb.WriteByte('\n')
		sb.WriteString(c.Autocode)
	}
	return sb.String()
}

func (b ClassBinding) VTableAllocate(c *model.Class, t *layout.Table) string {
	if c.Inert {
		return ""
	}
	parent := "NULL"
	if p := c.Parent(); p != nil {
		parent = p.FullVTableVar()
	}
	return fmt.Sprintf("    %s = %s(%s, \"%s\", %d, sizeof(%s));\n",
		c.FullVTableVar(), b.Protocol.CoreSym("VTable_allocate"),
		parent, c.Name, t.NumMethods(), c.FullStructSym())
}

func (b ClassBinding) VTableBootstrap(c *model.Class, t *layout.Table) string {
	if c.Inert {
		return ""
	}
	var sb strings.Builder
	for _, s := range t.FreshSlots() {
		fn := s.Method.FullFuncSym()
		if s.Abstract {
			fn = b.Protocol.CoreSym("VTable_abstract_method")
		}
		fmt.Fprintf(&sb, "    %s(%s, (%s)%s, %s);\n",
			b.Protocol.CoreSym("VTable_override"), c.FullVTableVar(),
			b.Protocol.MethodT(), fn, model.MethodSym(c, s.Name)+"_OFFSET")
	}
	return sb.String()
}

func (b ClassBinding) VTableRegister(c *model.Class, t *layout.Table) string {
	if c.Inert {
		return ""
	}
	return fmt.Sprintf("    %s(%s);\n", b.Protocol.CoreSym("VTable_add_to_registry"), c.FullVTableVar())
}

func (b ClassBinding) Header(c *model.Class, t *layout.Table) string {
	var sb strings.Builder
	w := func(format string, args ...any) { fmt.Fprintf(&sb, format, args...) }
	p := b.Protocol

	w("/* %s */\n\n", c.Name)
	if c.Inert {
		return sb.String()
	}

	w("#ifdef %s\n", c.PrivacySymbol())
	w("struct %s {\n", c.FullStructSym())
	for _, v := range c.MemberVars() {
		if v.Name == "ref" && model.IsBookkeeping(v) {
			w("    %s %s;\n", p.CoreSym("ref_t"), v.Name)
			continue
		}
		w("    %s %s;\n", v.Type.ToC(), v.Name)
	}
	w("};\n#endif /* %s */\n\n", c.PrivacySymbol())

	for _, m := range c.FreshMethods() {
		if m.Abstract {
			continue
		}
		w("%s\n%s(%s);\n\n", m.ReturnType.ToC(), m.FullFuncSym(), m.ParamListC(c))
	}

	for _, s := range t.Slots {
		w("#define %s_OFFSET %d\n", model.MethodSym(c, s.Name), s.Offset)
	}
	if len(t.Slots) > 0 {
		w("\n")
	}
	for _, s := range t.Slots {
		w("typedef %s\n(*%s)(%s);\n\n", s.Method.ReturnType.ToC(), s.Method.FullTypedef(c), s.Method.ParamListC(c))
	}
	for _, s := range t.Slots {
		w("%s\n", p.InvocationMacro(s.Method, c))
	}

	w("extern %s *%s;\n\n", p.VTableType(), c.FullVTableVar())

	w("#ifdef %sUSE_SHORT_NAMES\n", c.Parcel().UpperPrefix())
	w("  #define %s %s\n", c.StructSym(), c.FullStructSym())
	w("  #define %s %s\n", c.ShortVTableVar(), c.FullVTableVar())
	for _, s := range t.Slots {
		w("  #define %s_%s %s\n", c.Nickname, s.Name, model.MethodSym(c, s.Name))
	}
	w("#endif /* %sUSE_SHORT_NAMES */\n\n", c.Parcel().UpperPrefix())
	return sb.String()
}
