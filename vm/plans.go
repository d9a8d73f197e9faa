package vm

import (
	"fmt"

	"github.com/chazu/cfc/dumpable"
)

// PlanImpls interprets synthesized Dump/Load plans. The bodies follow the
// generated C statement for statement, so the round-trip behaviour of a
// hierarchy can be checked without a C toolchain.
func PlanImpls(plans []*dumpable.Plan) Impls {
	impls := make(Impls, len(plans))
	for _, p := range plans {
		switch {
		case p.Method == dumpable.MethodDump && p.Root:
			impls[p.FuncSym] = rootDump(p)
		case p.Method == dumpable.MethodDump:
			impls[p.FuncSym] = childDump(p)
		case p.Root:
			impls[p.FuncSym] = rootLoad(p)
		default:
			impls[p.FuncSym] = childLoad(p)
		}
	}
	return impls
}

func rootDump(p *dumpable.Plan) Fn {
	return func(rt *Runtime, self *Object, args []any) (any, error) {
		name, err := rt.Call(self, "Get_Class_Name")
		if err != nil {
			return nil, err
		}
		rec := Record{dumpable.ClassKey: name}
		if err := dumpFields(rt, self, p.Fields, rec); err != nil {
			return nil, err
		}
		return rec, nil
	}
}

func childDump(p *dumpable.Plan) Fn {
	return func(rt *Runtime, self *Object, args []any) (any, error) {
		v, err := rt.Super(p.Class, dumpable.MethodDump, self)
		if err != nil {
			return nil, err
		}
		rec, ok := v.(Record)
		if !ok {
			return nil, fmt.Errorf("vm: %s: parent Dump returned %T: %w", p.Class, v, ErrCertify)
		}
		if err := dumpFields(rt, self, p.Fields, rec); err != nil {
			return nil, err
		}
		return rec, nil
	}
}

func dumpFields(rt *Runtime, self *Object, fields []dumpable.Field, rec Record) error {
	for _, f := range fields {
		v := self.Get(f.Name)
		switch f.Kind {
		case dumpable.FieldInteger:
			n, err := toI64(v)
			if err != nil {
				return fmt.Errorf("vm: dumping %s.%s: %w", self.ClassName(), f.Name, err)
			}
			rec[f.Name] = Integer(n)
		case dumpable.FieldFloat:
			x, err := toF64(v)
			if err != nil {
				return fmt.Errorf("vm: dumping %s.%s: %w", self.ClassName(), f.Name, err)
			}
			rec[f.Name] = Float(x)
		case dumpable.FieldObject:
			obj, ok := v.(*Object)
			if !ok || obj == nil {
				continue
			}
			d, err := rt.Dump(obj)
			if err != nil {
				return fmt.Errorf("vm: dumping %s.%s: %w", self.ClassName(), f.Name, err)
			}
			rec[f.Name] = d
		}
	}
	return nil
}

func certifyRecord(class string, args []any) (Record, error) {
	dump, err := arg(args, 0)
	if err != nil {
		return nil, err
	}
	rec, ok := dump.(Record)
	if !ok {
		return nil, fmt.Errorf("vm: %s.Load from %T: %w", class, dump, ErrCertify)
	}
	return rec, nil
}

// rootLoad resolves the concrete class from the discriminator. A concrete
// class with its own Load gets the record through a prototype unless self
// already is one of its instances.
func rootLoad(p *dumpable.Plan) Fn {
	return func(rt *Runtime, self *Object, args []any) (any, error) {
		rec, err := certifyRecord(p.Class, args)
		if err != nil {
			return nil, err
		}
		name, ok := rec[dumpable.ClassKey].(string)
		if !ok {
			return nil, fmt.Errorf("vm: %s.Load: record has no %s: %w", p.Class, dumpable.ClassKey, ErrCertify)
		}
		vt, err := rt.VTable(name)
		if err != nil {
			return nil, err
		}
		root, err := rt.VTable(p.Class)
		if err != nil {
			return nil, err
		}
		if !vt.IsA(root) {
			return nil, fmt.Errorf("vm: %s.Load: %s is not a %s: %w", p.Class, name, p.Class, ErrCertify)
		}

		if Overridden(vt, dumpable.MethodLoad, p.FuncSym) && (self == nil || self.vtable != vt) {
			proto := rt.Make(vt)
			concrete, err := rt.Call(proto, dumpable.MethodLoad, rec)
			proto.DecRef()
			return concrete, err
		}

		loaded := rt.Make(vt)
		if err := loadFields(rt, loaded, rec, p.Fields); err != nil {
			return nil, err
		}
		return loaded, nil
	}
}

func childLoad(p *dumpable.Plan) Fn {
	return func(rt *Runtime, self *Object, args []any) (any, error) {
		rec, err := certifyRecord(p.Class, args)
		if err != nil {
			return nil, err
		}
		v, err := rt.Super(p.Class, dumpable.MethodLoad, self, rec)
		if err != nil {
			return nil, err
		}
		loaded, ok := v.(*Object)
		if !ok {
			return nil, fmt.Errorf("vm: %s: parent Load returned %T: %w", p.Class, v, ErrCertify)
		}
		if err := loadFields(rt, loaded, rec, p.Fields); err != nil {
			return nil, err
		}
		return loaded, nil
	}
}

func loadFields(rt *Runtime, loaded *Object, rec Record, fields []dumpable.Field) error {
	for _, f := range fields {
		v, ok := rec[f.Name]
		if !ok {
			continue
		}
		switch f.Kind {
		case dumpable.FieldInteger:
			n, err := toI64(v)
			if err != nil {
				return fmt.Errorf("vm: loading %s.%s: %w", loaded.ClassName(), f.Name, err)
			}
			loaded.Set(f.Name, narrow(f.Type.Specifier, n))
		case dumpable.FieldFloat:
			x, err := toF64(v)
			if err != nil {
				return fmt.Errorf("vm: loading %s.%s: %w", loaded.ClassName(), f.Name, err)
			}
			loaded.Set(f.Name, narrowFloat(f.Type.Specifier, x))
		case dumpable.FieldObject:
			target, err := rt.VTable(f.Type.ClassName)
			if err != nil {
				return err
			}
			proto := rt.Make(target)
			obj, err := rt.Load(proto, v)
			proto.DecRef()
			if err != nil {
				return fmt.Errorf("vm: loading %s.%s: %w", loaded.ClassName(), f.Name, err)
			}
			if !obj.IsA(target) {
				return fmt.Errorf("vm: loading %s.%s: got %s: %w", loaded.ClassName(), f.Name, obj.ClassName(), ErrCertify)
			}
			loaded.Set(f.Name, obj)
		}
	}
	return nil
}
