// Package dumpable synthesizes Dump and Load for classes carrying the
// "dumpable" attribute.
//
// Synthesis is a pure transform. The input hierarchy is never touched; the
// result carries a derived hierarchy with the new methods and their C
// bodies attached, plus one Plan per generated body describing the same
// behaviour in a form that does not depend on C.
package dumpable

import (
	"fmt"

	"github.com/chazu/cfc/dispatch"
	"github.com/chazu/cfc/layout"
	"github.com/chazu/cfc/model"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("cfc.dumpable")

const (
	MethodDump = "Dump"
	MethodLoad = "Load"
	// ClassKey is the discriminator field every record carries.
	ClassKey = "_class"
)

// FieldKind selects how one member is encoded.
type FieldKind int

const (
	FieldInteger FieldKind = iota
	FieldFloat
	FieldObject
)

func (k FieldKind) String() string {
	switch k {
	case FieldInteger:
		return "integer"
	case FieldFloat:
		return "float"
	case FieldObject:
		return "object"
	}
	return fmt.Sprintf("FieldKind(%d)", int(k))
}

// Field is one member handled by a generated body.
type Field struct {
	Name string
	Kind FieldKind
	Type model.Type
}

// Plan describes one generated Dump or Load body.
type Plan struct {
	Class   string
	Method  string
	FuncSym string
	// Root plans start a fresh record (Dump) or resolve the concrete class
	// from the discriminator (Load). Other plans call the parent first.
	Root   bool
	Fields []Field
}

// Result is the outcome of a synthesis pass.
type Result struct {
	Hierarchy *model.Hierarchy
	Plans     []*Plan
}

// Plan returns the plan for a class and method, or nil.
func (r *Result) Plan(class, method string) *Plan {
	for _, p := range r.Plans {
		if p.Class == class && p.Method == method {
			return p
		}
	}
	return nil
}

// Synthesizer renders bodies against a dispatch protocol.
type Synthesizer struct {
	Protocol dispatch.Protocol
}

// Synthesize runs a synthesis pass with the default protocol.
func Synthesize(h *model.Hierarchy) (*Result, error) {
	return Synthesizer{Protocol: dispatch.New(layout.ABI64)}.Synthesize(h)
}

// Synthesize decorates every dumpable class that needs it. Any
// configuration problem is returned before a derived hierarchy is built.
func (s Synthesizer) Synthesize(h *model.Hierarchy) (*Result, error) {
	decorations := make(map[string]model.Decoration)
	var plans []*Plan

	for _, c := range h.Ordered() {
		if !c.HasAttribute(model.AttrDumpable) {
			continue
		}
		if c.Inert {
			return nil, &model.Error{Kind: model.KindNotDumpable, Class: c.Name,
				Detail: "inert classes have no instances to dump"}
		}
		parent := c.Parent()
		root := parent == nil || !parent.HasAttribute(model.AttrDumpable)
		if !root && len(nonBookkeeping(c.NovelMemberVars())) == 0 {
			log.Debugf("%s inherits Dump/Load from %s", c.Name, parent.Name)
			continue
		}

		var members []*model.Variable
		if root {
			members = nonBookkeeping(c.MemberVars())
		} else {
			members = nonBookkeeping(c.NovelMemberVars())
		}
		fields, err := s.fields(h, c, members)
		if err != nil {
			return nil, err
		}

		var dec model.Decoration
		for _, name := range []string{MethodDump, MethodLoad} {
			if m := c.FreshMethod(name); m != nil {
				if m.IsPrivate() {
					return nil, &model.Error{Kind: model.KindSlotCollision, Class: c.Name, Method: name,
						Detail: "synthesized method collides with a private method of the same name"}
				}
				log.Debugf("%s supplies its own %s", c.Name, name)
				continue
			}
			plan := &Plan{
				Class:   c.Name,
				Method:  name,
				FuncSym: model.FuncSym(c, name),
				Root:    root,
				Fields:  fields,
			}
			plans = append(plans, plan)
			dec.Methods = append(dec.Methods, s.methodDecl(name))
			dec.Autocode += s.render(c, plan)
		}
		if len(dec.Methods) > 0 {
			decorations[c.Name] = dec
		}
	}

	derived, err := h.Derive(decorations)
	if err != nil {
		return nil, err
	}
	log.Infof("synthesized %d Dump/Load bodies across %d classes", len(plans), len(decorations))
	return &Result{Hierarchy: derived, Plans: plans}, nil
}

func (s Synthesizer) fields(h *model.Hierarchy, c *model.Class, members []*model.Variable) ([]Field, error) {
	var fields []Field
	for _, v := range members {
		f := Field{Name: v.Name, Type: v.Type}
		switch {
		case v.Type.IsInteger():
			f.Kind = FieldInteger
		case v.Type.IsFloating():
			f.Kind = FieldFloat
		case v.Type.IsObject() && v.Type.ClassName != "":
			target := h.Class(v.Type.ClassName)
			if target == nil || !serializable(target) {
				return nil, &model.Error{Kind: model.KindNotDumpable, Class: c.Name, Field: v.Name,
					Detail: fmt.Sprintf("%s has no Dump/Load", v.Type.ClassName)}
			}
			f.Kind = FieldObject
		default:
			return nil, &model.Error{Kind: model.KindUnknownType, Class: c.Name, Field: v.Name,
				Detail: fmt.Sprintf("don't know how to dump a %s", v.Type.String())}
		}
		fields = append(fields, f)
	}
	return fields, nil
}

func (s Synthesizer) methodDecl(name string) model.MethodDecl {
	obj := s.Protocol.Runtime + "_Obj*"
	md := model.MethodDecl{
		Name:        name,
		Returns:     "incremented " + obj,
		Exposure:    string(model.ExposurePublic),
		Synthesized: true,
	}
	if name == MethodLoad {
		md.Params = []model.VarDecl{{Name: "dump", Type: obj}}
	}
	return md
}

// serializable reports whether c will answer Dump and Load once this pass
// is done.
func serializable(c *model.Class) bool {
	if c.Method(MethodDump) != nil && c.Method(MethodLoad) != nil {
		return true
	}
	for cur := c; cur != nil; cur = cur.Parent() {
		if cur.HasAttribute(model.AttrDumpable) {
			return true
		}
	}
	return false
}

func nonBookkeeping(vars []*model.Variable) []*model.Variable {
	var out []*model.Variable
	for _, v := range vars {
		if !model.IsBookkeeping(v) {
			out = append(out, v)
		}
	}
	return out
}
