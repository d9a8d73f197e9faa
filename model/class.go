package model

import (
	"path/filepath"
	"strings"
)

// AttrDumpable opts a class in to Dump/Load synthesis.
const AttrDumpable = "dumpable"

// Class is a resolved class. Classes are read-only once Build returns.
type Class struct {
	Name       string
	Nickname   string
	ParentName string
	Attributes []string
	// Inert classes have no instances and get no struct typedef.
	Inert bool
	Final bool
	// Included classes are declared by another parcel and never emitted.
	Included bool
	Autocode string

	parent   *Class
	children []*Class
	parcel   *Parcel
	file     *File
	members  []*Variable
	methods  []*Method
}

func (c *Class) Parent() *Class { return c.parent }
func (c *Class) Children() []*Class { return c.children }
func (c *Class) Parcel() *Parcel { return c.parcel }
func (c *Class) File() *File { return c.file }

// HasAttribute reports whether the class carries the named attribute.
func (c *Class) HasAttribute(name string) bool {
	for _, a := range c.Attributes {
		if a == name {
			return true
		}
	}
	return false
}

// Ancestors returns the parent chain, nearest first.
func (c *Class) Ancestors() []*Class {
	var out []*Class
	for p := c.parent; p != nil; p = p.parent {
		out = append(out, p)
	}
	return out
}

// IsA reports whether c is other or one of its descendants.
func (c *Class) IsA(other *Class) bool {
	for cur := c; cur != nil; cur = cur.parent {
		if cur == other {
			return true
		}
	}
	return false
}

// NovelMemberVars returns members first introduced by this class.
func (c *Class) NovelMemberVars() []*Variable {
	return append([]*Variable(nil), c.members...)
}

// MemberVars returns every member including inherited ones, ancestors
// first, in the order they appear in the object struct.
func (c *Class) MemberVars() []*Variable {
	if c.parent == nil {
		return c.NovelMemberVars()
	}
	return append(c.parent.MemberVars(), c.members...)
}

// FreshMethods returns the methods declared by this class, in order.
func (c *Class) FreshMethods() []*Method {
	return append([]*Method(nil), c.methods...)
}

// FreshMethod returns the method this class declares under name, or nil.
func (c *Class) FreshMethod(name string) *Method {
	for _, m := range c.methods {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// Method resolves name to the nearest declaration in the ancestry.
func (c *Class) Method(name string) *Method {
	for cur := c; cur != nil; cur = cur.parent {
		if m := cur.FreshMethod(name); m != nil {
			return m
		}
	}
	return nil
}

// StructSym is the last component of the class name, "Animal".
func (c *Class) StructSym() string {
	if i := strings.LastIndex(c.Name, "::"); i >= 0 {
		return c.Name[i+2:]
	}
	return c.Name
}

// FullStructSym is the prefixed struct name, "zoo_Animal".
func (c *Class) FullStructSym() string {
	return c.parcel.LowerPrefix() + c.StructSym()
}

// ShortVTableVar is the unprefixed vtable variable, "ANIMAL".
func (c *Class) ShortVTableVar() string {
	return strings.ToUpper(c.StructSym())
}

// FullVTableVar is the prefixed vtable variable, "ZOO_ANIMAL".
func (c *Class) FullVTableVar() string {
	return c.parcel.UpperPrefix() + c.ShortVTableVar()
}

// PrivacySymbol unlocks the struct definition in the class header.
func (c *Class) PrivacySymbol() string {
	return "C_" + c.FullVTableVar()
}

// IncludeH is the header path other units include, "Zoo/Animal.h".
func (c *Class) IncludeH() string {
	return filepath.ToSlash(c.file.Path) + ".h"
}
