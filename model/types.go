package model

import (
	"fmt"
	"strings"
	"unicode"
)

// TypeFlags describes how a type behaves for code generation.
type TypeFlags uint8

const (
	TypeObject TypeFlags = 1 << iota
	TypeInteger
	TypeFloating
	TypeVoid
	// TypeIncremented marks a return value whose reference is transferred
	// out to the caller.
	TypeIncremented
	// TypeDecremented marks a parameter whose reference is consumed.
	TypeDecremented
	TypeConst
)

// Type is a type descriptor. For object types Specifier holds the full
// struct symbol once the hierarchy has resolved it ("cfish_CharBuf").
type Type struct {
	Specifier   string
	Indirection int
	Flags       TypeFlags
	// ClassName is the resolved class for object types.
	ClassName string
}

var integerSpecifiers = map[string]bool{
	"int8_t": true, "int16_t": true, "int32_t": true, "int64_t": true,
	"uint8_t": true, "uint16_t": true, "uint32_t": true, "uint64_t": true,
	"char": true, "short": true, "int": true, "long": true, "size_t": true,
	"bool": true, "bool_t": true, "chy_bool_t": true,
}

var floatingSpecifiers = map[string]bool{
	"float":  true,
	"double": true,
}

// ParseType parses a declaration type string such as "int32_t",
// "incremented Obj*" or "const CharBuf*".
func ParseType(s string) (Type, error) {
	var t Type
	src := strings.TrimSpace(s)
	for strings.HasSuffix(src, "*") {
		t.Indirection++
		src = strings.TrimSpace(strings.TrimSuffix(src, "*"))
	}
	words := strings.Fields(src)
	if len(words) == 0 {
		return Type{}, fmt.Errorf("empty type %q", s)
	}
	for _, w := range words[:len(words)-1] {
		switch w {
		case "incremented":
			t.Flags |= TypeIncremented
		case "decremented":
			t.Flags |= TypeDecremented
		case "const":
			t.Flags |= TypeConst
		default:
			return Type{}, fmt.Errorf("unexpected qualifier %q in type %q", w, s)
		}
	}
	t.Specifier = words[len(words)-1]

	switch {
	case t.Specifier == "void":
		if t.Indirection == 0 {
			t.Flags |= TypeVoid
		}
	case t.Indirection == 0 && integerSpecifiers[t.Specifier]:
		t.Flags |= TypeInteger
	case t.Indirection == 0 && floatingSpecifiers[t.Specifier]:
		t.Flags |= TypeFloating
	case t.Indirection == 1 && isObjectSpecifier(t.Specifier):
		t.Flags |= TypeObject
	}
	return t, nil
}

// MustParseType is ParseType for literals known to be valid.
func MustParseType(s string) Type {
	t, err := ParseType(s)
	if err != nil {
		panic(err)
	}
	return t
}

// isObjectSpecifier accepts "CharBuf" and prefixed "cfish_CharBuf".
func isObjectSpecifier(spec string) bool {
	if i := strings.LastIndexByte(spec, '_'); i >= 0 {
		spec = spec[i+1:]
	}
	if spec == "" {
		return false
	}
	return unicode.IsUpper(rune(spec[0]))
}

func (t Type) IsObject() bool { return t.Flags&TypeObject != 0 }
func (t Type) IsInteger() bool { return t.Flags&TypeInteger != 0 }
func (t Type) IsFloating() bool { return t.Flags&TypeFloating != 0 }
func (t Type) IsVoid() bool { return t.Flags&TypeVoid != 0 }
func (t Type) Incremented() bool { return t.Flags&TypeIncremented != 0 }
func (t Type) Decremented() bool { return t.Flags&TypeDecremented != 0 }
func (t Type) IsConst() bool { return t.Flags&TypeConst != 0 }
func (t Type) IsPrimitive() bool { return t.IsInteger() || t.IsFloating() }
func (t Type) IsSerializable() bool { return t.IsPrimitive() || t.IsObject() }

// ToC renders the type as it appears in C declarations.
func (t Type) ToC() string {
	var b strings.Builder
	if t.IsConst() {
		b.WriteString("const ")
	}
	b.WriteString(t.Specifier)
	b.WriteString(strings.Repeat("*", t.Indirection))
	return b.String()
}

// String renders the type back in declaration syntax.
func (t Type) String() string {
	var b strings.Builder
	if t.Incremented() {
		b.WriteString("incremented ")
	}
	if t.Decremented() {
		b.WriteString("decremented ")
	}
	b.WriteString(t.ToC())
	return b.String()
}
