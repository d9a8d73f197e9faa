package dumpable

import (
	"fmt"
	"strings"

	"github.com/chazu/cfc/model"
)

type writer struct {
	b strings.Builder
}

func (w *writer) line(format string, args ...any) {
	fmt.Fprintf(&w.b, format, args...)
	w.b.WriteByte('\n')
}

func (s Synthesizer) render(c *model.Class, plan *Plan) string {
	var w writer
	switch {
	case plan.Method == MethodDump && plan.Root:
		s.rootDump(&w, c, plan)
	case plan.Method == MethodDump:
		s.childDump(&w, c, plan)
	case plan.Root:
		s.rootLoad(&w, c, plan)
	default:
		s.childLoad(&w, c, plan)
	}
	return w.b.String()
}

func (s Synthesizer) rootDump(w *writer, c *model.Class, plan *Plan) {
	p := s.Protocol
	obj, hash := p.CoreSym("Obj"), p.CoreSym("Hash")
	w.line("%s*", obj)
	w.line("%s(%s *self)", plan.FuncSym, c.FullStructSym())
	w.line("{")
	w.line("    %s *dump = %s_new(0);", hash, hash)
	w.line("    %s(dump, \"%s\", %d,", p.CoreMethod("Hash", "Store_Str"), ClassKey, len(ClassKey))
	w.line("        (%s*)%s(%s((%s*)self)));", obj, p.CoreMethod("CB", "Clone"),
		p.CoreMethod("Obj", "Get_Class_Name"), obj)
	s.dumpFields(w, plan.Fields)
	w.line("    return (%s*)dump;", obj)
	w.line("}")
	w.line("")
}

func (s Synthesizer) childDump(w *writer, c *model.Class, plan *Plan) {
	p := s.Protocol
	obj, hash := p.CoreSym("Obj"), p.CoreSym("Hash")
	w.line("%s*", obj)
	w.line("%s(%s *self)", plan.FuncSym, c.FullStructSym())
	w.line("{")
	w.line("    %s_t super_dump = %s;", model.MethodSym(c, MethodDump), p.SuperCall(c, MethodDump))
	w.line("    %s *dump = (%s*)super_dump(self);", hash, hash)
	s.dumpFields(w, plan.Fields)
	w.line("    return (%s*)dump;", obj)
	w.line("}")
	w.line("")
}

func (s Synthesizer) dumpFields(w *writer, fields []Field) {
	p := s.Protocol
	obj, store := p.CoreSym("Obj"), p.CoreMethod("Hash", "Store_Str")
	for _, f := range fields {
		switch f.Kind {
		case FieldInteger:
			w.line("    %s(dump, \"%s\", %d, (%s*)%s(\"%%i64\", (int64_t)self->%s));",
				store, f.Name, len(f.Name), obj, p.CoreSym("CB_newf"), f.Name)
		case FieldFloat:
			w.line("    %s(dump, \"%s\", %d, (%s*)%s(\"%%f64\", (double)self->%s));",
				store, f.Name, len(f.Name), obj, p.CoreSym("CB_newf"), f.Name)
		case FieldObject:
			w.line("    if (self->%s) {", f.Name)
			w.line("        %s(dump, \"%s\", %d, %s((%s*)self->%s));",
				store, f.Name, len(f.Name), p.CoreMethod("Obj", "Dump"), obj, f.Name)
			w.line("    }")
		}
	}
}

func (s Synthesizer) loadPreamble(w *writer, c *model.Class, plan *Plan) {
	p := s.Protocol
	obj, hash := p.CoreSym("Obj"), p.CoreSym("Hash")
	w.line("%s*", obj)
	w.line("%s(%s *self, %s *dump)", plan.FuncSym, c.FullStructSym(), obj)
	w.line("{")
	w.line("    %s *source = (%s*)%s(dump, %s);", hash, hash, p.CoreVar("CERTIFY"), p.CoreVar("HASH"))
}

// rootLoad resolves the concrete class from the discriminator. When that
// class replaces Load and self is not already an instance of it, the
// record is handed to the concrete Load through a prototype so that every
// level's fields are restored. The concrete Load reaches this body again
// through its parent chain with self of the resolved class, which ends
// the redirect.
func (s Synthesizer) rootLoad(w *writer, c *model.Class, plan *Plan) {
	p := s.Protocol
	obj, vt, cb := p.CoreSym("Obj"), p.VTableType(), p.CoreSym("CharBuf")
	full := c.FullStructSym()
	s.loadPreamble(w, c, plan)
	w.line("    %s *class_name = (%s*)%s(", cb, cb, p.CoreVar("CERTIFY"))
	w.line("        %s(source, \"%s\", %d), %s);", p.CoreMethod("Hash", "Fetch_Str"),
		ClassKey, len(ClassKey), p.CoreVar("CHARBUF"))
	w.line("    %s *vtable = %s_singleton(class_name, NULL);", vt, vt)
	w.line("    if (%s", p.OverriddenCheck("&vtable", c, MethodLoad, plan.FuncSym))
	w.line("        && (self == NULL || %s != vtable)) {", p.SelfVTable("self"))
	w.line("        %s *proto = %s(vtable);", obj, p.CoreMethod("VTable", "Make_Obj"))
	w.line("        %s *concrete = %s(proto, dump);", obj, p.CoreMethod("Obj", "Load"))
	w.line("        %s(proto);", p.CoreVar("DECREF"))
	w.line("        return concrete;")
	w.line("    }")
	w.line("    %s *loaded = (%s*)%s(vtable);", full, full, p.CoreMethod("VTable", "Make_Obj"))
	w.line("    CHY_UNUSED_VAR(self);")
	s.loadFields(w, plan.Fields)
	w.line("    return (%s*)loaded;", obj)
	w.line("}")
	w.line("")
}

func (s Synthesizer) childLoad(w *writer, c *model.Class, plan *Plan) {
	full := c.FullStructSym()
	s.loadPreamble(w, c, plan)
	w.line("    %s_t super_load = %s;", model.MethodSym(c, MethodLoad), s.Protocol.SuperCall(c, MethodLoad))
	w.line("    %s *loaded = (%s*)super_load(self, dump);", full, full)
	s.loadFields(w, plan.Fields)
	w.line("    return (%s*)loaded;", s.Protocol.CoreSym("Obj"))
	w.line("}")
	w.line("")
}

func (s Synthesizer) loadFields(w *writer, fields []Field) {
	p := s.Protocol
	for _, f := range fields {
		var extraction string
		switch f.Kind {
		case FieldInteger:
			extraction = fmt.Sprintf("(%s)%s(var)", f.Type.ToC(), p.CoreMethod("Obj", "To_I64"))
		case FieldFloat:
			extraction = fmt.Sprintf("(%s)%s(var)", f.Type.ToC(), p.CoreMethod("Obj", "To_F64"))
		case FieldObject:
			extraction = fmt.Sprintf("(%s*)%s(%s(var, var), %s)",
				f.Type.Specifier, p.CoreVar("CERTIFY"), p.CoreMethod("Obj", "Load"),
				strings.ToUpper(f.Type.Specifier))
		}
		w.line("    {")
		w.line("        %s *var = %s(source, \"%s\", %d);", p.CoreSym("Obj"),
			p.CoreMethod("Hash", "Fetch_Str"), f.Name, len(f.Name))
		w.line("        if (var) { loaded->%s = %s; }", f.Name, extraction)
		w.line("    }")
	}
}
