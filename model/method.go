package model

import "strings"

// Exposure controls method visibility.
type Exposure string

const (
	ExposurePublic  Exposure = "public"
	ExposureParcel  Exposure = "parcel"
	ExposurePrivate Exposure = "private"
)

// Variable is a member variable or a parameter.
type Variable struct {
	Name string
	Type Type
	// Class is the declaring class name. Empty for parameters.
	Class string
}

// BookkeepingMembers are carried by every object (dispatch table pointer
// and reference count) and never take part in per-field code generation.
var BookkeepingMembers = map[string]bool{
	"vtable": true,
	"ref":    true,
}

// IsBookkeeping reports whether v is one of the implicit object fields.
func IsBookkeeping(v *Variable) bool {
	return BookkeepingMembers[v.Name]
}

// Method is a resolved method declaration.
type Method struct {
	Name       string
	Class      string
	ReturnType Type
	Params     []*Variable
	Abstract   bool
	Final      bool
	Exposure   Exposure
	// Novel is set when no ancestor declares a method of this name.
	Novel bool
	// Overridden is set when this declaration replaces an ancestor's.
	Overridden  bool
	Synthesized bool

	class *Class
}

// Owner returns the declaring class.
func (m *Method) Owner() *Class { return m.class }

// Fresh reports whether the declaring class supplies this implementation.
func (m *Method) Fresh() bool { return m.Novel || m.Overridden }

func (m *Method) IsPrivate() bool { return m.Exposure == ExposurePrivate }

// MicroSym is the lower-case method name used in implementation symbols.
func (m *Method) MicroSym() string { return strings.ToLower(m.Name) }

// FullFuncSym is the implementing C function, "zoo_Animal_dump".
func (m *Method) FullFuncSym() string {
	return FuncSym(m.class, m.Name)
}

// FullMethodSym is the dispatch symbol as seen from invoker, "Zoo_Dog_Dump".
func (m *Method) FullMethodSym(invoker *Class) string {
	return MethodSym(invoker, m.Name)
}

// MethodSym names method as seen from invoker without needing a resolved
// declaration.
func MethodSym(invoker *Class, method string) string {
	return invoker.parcel.Prefix() + invoker.Nickname + "_" + method
}

// FuncSym names the C function implementing method in class c.
func FuncSym(c *Class, method string) string {
	return c.parcel.LowerPrefix() + c.Nickname + "_" + strings.ToLower(method)
}

// FullOffsetSym names the offset constant for this method in invoker.
func (m *Method) FullOffsetSym(invoker *Class) string {
	return m.FullMethodSym(invoker) + "_OFFSET"
}

// FullTypedef names the function pointer typedef for this method in invoker.
func (m *Method) FullTypedef(invoker *Class) string {
	return m.FullMethodSym(invoker) + "_t"
}

// SelfType is the C type of the self parameter for invoker.
func (m *Method) SelfType(invoker *Class) string {
	return invoker.FullStructSym() + " *self"
}

// ParamListC renders the C parameter list including self.
func (m *Method) ParamListC(invoker *Class) string {
	parts := []string{m.SelfType(invoker)}
	for _, p := range m.Params {
		parts = append(parts, p.Type.ToC()+" "+p.Name)
	}
	return strings.Join(parts, ", ")
}

// ArgNames renders the argument names including self.
func (m *Method) ArgNames() string {
	parts := []string{"self"}
	for _, p := range m.Params {
		parts = append(parts, p.Name)
	}
	return strings.Join(parts, ", ")
}
