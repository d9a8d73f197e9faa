package vm

import "github.com/chazu/cfc/model"

// Object is a live instance. Fields hold Integer, Float or *Object values
// keyed by member name; native carries runtime-owned payload such as the
// contents of a CharBuf.
type Object struct {
	vtable   *VTable
	refcount int
	fields   map[string]any
	native   any
}

// newObject zero-fills every non-bookkeeping member, as Make_Obj does.
func newObject(vt *VTable) *Object {
	o := &Object{vtable: vt, refcount: 1, fields: make(map[string]any)}
	for _, v := range vt.class.MemberVars() {
		if model.IsBookkeeping(v) {
			continue
		}
		switch {
		case v.Type.IsInteger():
			o.fields[v.Name] = Integer(0)
		case v.Type.IsFloating():
			o.fields[v.Name] = Float(0)
		default:
			o.fields[v.Name] = nil
		}
	}
	return o
}

func (o *Object) VTable() *VTable { return o.vtable }
func (o *Object) ClassName() string { return o.vtable.Name() }
func (o *Object) Native() any { return o.native }
func (o *Object) SetNative(v any) { o.native = v }
func (o *Object) RefCount() int { return o.refcount }

// Get returns a member value.
func (o *Object) Get(field string) any { return o.fields[field] }

// Set stores a member value.
func (o *Object) Set(field string, v any) { o.fields[field] = v }

// Has reports whether the class declares the member.
func (o *Object) Has(field string) bool {
	_, ok := o.fields[field]
	return ok
}

// Fields returns a copy of every member value.
func (o *Object) Fields() map[string]any {
	out := make(map[string]any, len(o.fields))
	for k, v := range o.fields {
		out[k] = v
	}
	return out
}

// IncRef takes a reference.
func (o *Object) IncRef() *Object {
	o.refcount++
	return o
}

// DecRef drops a reference and returns the remaining count.
func (o *Object) DecRef() int {
	if o.refcount > 0 {
		o.refcount--
	}
	return o.refcount
}

// IsA reports whether o is an instance of the class or a descendant.
func (o *Object) IsA(vt *VTable) bool { return o.vtable.IsA(vt) }
