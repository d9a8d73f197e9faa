package model

import "strings"

// Parcel is one compilation unit with a single symbol namespace.
type Parcel struct {
	Name   string
	prefix string
}

// NewParcel creates a parcel. An empty prefix defaults to Name + "_".
func NewParcel(name, prefix string) *Parcel {
	if prefix == "" {
		prefix = name + "_"
	}
	return &Parcel{Name: name, prefix: prefix}
}

// Prefix returns the prefix as declared, "Zoo_".
func (p *Parcel) Prefix() string { return p.prefix }

// LowerPrefix returns the prefix used for functions and structs, "zoo_".
func (p *Parcel) LowerPrefix() string { return strings.ToLower(p.prefix) }

// UpperPrefix returns the prefix used for vtable vars and guards, "ZOO_".
func (p *Parcel) UpperPrefix() string { return strings.ToUpper(p.prefix) }

// BootstrapSym names the routine that builds every vtable in the parcel.
func (p *Parcel) BootstrapSym() string { return p.LowerPrefix() + "bootstrap_parcel" }

// InitSym names the runtime-specific hook called at the end of bootstrap.
func (p *Parcel) InitSym() string { return p.LowerPrefix() + "init_parcel" }
