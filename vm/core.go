package vm

import (
	"fmt"
	"strconv"
)

// Class names of the runtime parcel.
const (
	ObjClass     = "Clownfish::Obj"
	CharBufClass = "Clownfish::CharBuf"
	HashClass    = "Clownfish::Hash"
	VTableClass  = "Clownfish::VTable"
)

// CoreImpls returns the natives of the runtime parcel.
func CoreImpls() Impls {
	return ObjImpls().With(StringImpls()).With(HashImpls()).With(VTableImpls())
}

// ObjImpls implements the concrete methods of Clownfish::Obj.
func ObjImpls() Impls {
	return Impls{
		"cfish_Obj_destroy": func(rt *Runtime, self *Object, args []any) (any, error) {
			self.DecRef()
			return nil, nil
		},
		"cfish_Obj_get_class_name": func(rt *Runtime, self *Object, args []any) (any, error) {
			return self.ClassName(), nil
		},
		"cfish_Obj_to_i64": func(rt *Runtime, self *Object, args []any) (any, error) {
			return nil, fmt.Errorf("vm: %s.To_I64: %w", self.ClassName(), ErrAbstractMethod)
		},
		"cfish_Obj_to_f64": func(rt *Runtime, self *Object, args []any) (any, error) {
			return nil, fmt.Errorf("vm: %s.To_F64: %w", self.ClassName(), ErrAbstractMethod)
		},
	}
}

// NewString allocates a CharBuf holding s.
func (rt *Runtime) NewString(s string) (*Object, error) {
	obj, err := rt.New(CharBufClass)
	if err != nil {
		return nil, err
	}
	obj.SetNative(s)
	obj.Set("size", Integer(len(s)))
	return obj, nil
}

// StringOf returns the contents of a CharBuf.
func StringOf(obj *Object) (string, bool) {
	if obj == nil {
		return "", false
	}
	s, ok := obj.Native().(string)
	return s, ok
}

func charbuf(self *Object) (string, error) {
	s, ok := StringOf(self)
	if !ok {
		return "", fmt.Errorf("vm: %s is not a CharBuf: %w", self.ClassName(), ErrCertify)
	}
	return s, nil
}

// StringImpls implements Clownfish::CharBuf. A dumped CharBuf is its text.
func StringImpls() Impls {
	return Impls{
		"cfish_CB_clone": func(rt *Runtime, self *Object, args []any) (any, error) {
			s, err := charbuf(self)
			if err != nil {
				return nil, err
			}
			return rt.NewString(s)
		},
		"cfish_CB_to_i64": func(rt *Runtime, self *Object, args []any) (any, error) {
			s, err := charbuf(self)
			if err != nil {
				return nil, err
			}
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return Integer(0), nil
			}
			return Integer(n), nil
		},
		"cfish_CB_to_f64": func(rt *Runtime, self *Object, args []any) (any, error) {
			s, err := charbuf(self)
			if err != nil {
				return nil, err
			}
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return Float(0), nil
			}
			return Float(f), nil
		},
		"cfish_CB_dump": func(rt *Runtime, self *Object, args []any) (any, error) {
			return charbuf(self)
		},
		"cfish_CB_load": func(rt *Runtime, self *Object, args []any) (any, error) {
			dump, err := arg(args, 0)
			if err != nil {
				return nil, err
			}
			s, ok := dump.(string)
			if !ok {
				return nil, fmt.Errorf("vm: CharBuf.Load from %T: %w", dump, ErrCertify)
			}
			return rt.NewString(s)
		},
	}
}

func hash(self *Object) Record {
	r, ok := self.Native().(Record)
	if !ok {
		r = Record{}
		self.SetNative(r)
	}
	return r
}

// HashImpls implements Clownfish::Hash over a Record.
func HashImpls() Impls {
	return Impls{
		"cfish_Hash_store_str": func(rt *Runtime, self *Object, args []any) (any, error) {
			key, err := arg(args, 0)
			if err != nil {
				return nil, err
			}
			value, err := arg(args, 2)
			if err != nil {
				return nil, err
			}
			k, ok := key.(string)
			if !ok {
				return nil, fmt.Errorf("vm: Hash key %T: %w", key, ErrCertify)
			}
			hash(self)[k] = value
			return nil, nil
		},
		"cfish_Hash_fetch_str": func(rt *Runtime, self *Object, args []any) (any, error) {
			key, err := arg(args, 0)
			if err != nil {
				return nil, err
			}
			k, _ := key.(string)
			return hash(self)[k], nil
		},
		"cfish_Hash_dump": func(rt *Runtime, self *Object, args []any) (any, error) {
			return hash(self).Clone(), nil
		},
		"cfish_Hash_load": func(rt *Runtime, self *Object, args []any) (any, error) {
			dump, err := arg(args, 0)
			if err != nil {
				return nil, err
			}
			r, ok := dump.(Record)
			if !ok {
				return nil, fmt.Errorf("vm: Hash.Load from %T: %w", dump, ErrCertify)
			}
			obj, err := rt.New(HashClass)
			if err != nil {
				return nil, err
			}
			obj.SetNative(r.Clone())
			return obj, nil
		},
	}
}

// VTableImpls implements Clownfish::VTable for objects whose native
// payload is a *VTable.
func VTableImpls() Impls {
	table := func(self *Object) (*VTable, error) {
		vt, ok := self.Native().(*VTable)
		if !ok {
			return nil, fmt.Errorf("vm: %s is not a VTable: %w", self.ClassName(), ErrCertify)
		}
		return vt, nil
	}
	return Impls{
		"cfish_VTable_make_obj": func(rt *Runtime, self *Object, args []any) (any, error) {
			vt, err := table(self)
			if err != nil {
				return nil, err
			}
			return rt.Make(vt), nil
		},
		"cfish_VTable_get_name": func(rt *Runtime, self *Object, args []any) (any, error) {
			vt, err := table(self)
			if err != nil {
				return nil, err
			}
			return rt.NewString(vt.Name())
		},
	}
}

// VTableObject wraps a registered vtable as a Clownfish::VTable instance.
func (rt *Runtime) VTableObject(class string) (*Object, error) {
	vt, err := rt.VTable(class)
	if err != nil {
		return nil, err
	}
	obj, err := rt.New(VTableClass)
	if err != nil {
		return nil, err
	}
	obj.SetNative(vt)
	return obj, nil
}

func arg(args []any, i int) (any, error) {
	if i >= len(args) {
		return nil, fmt.Errorf("vm: missing argument %d", i)
	}
	return args[i], nil
}
