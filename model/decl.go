package model

// Declarations are what the front end hands over. They are plain data with
// types still in string form; Build resolves them into a Hierarchy.

// ParcelDecl declares a parcel and its symbol prefix.
type ParcelDecl struct {
	Name   string `toml:"name" yaml:"name" json:"name"`
	Prefix string `toml:"prefix" yaml:"prefix" json:"prefix,omitempty"`
}

// FileDecl is one source unit.
type FileDecl struct {
	// Path is the path stem relative to the source root, "Zoo/Animal".
	Path string `toml:"path" yaml:"path" json:"path"`
	// SourcePath is the file on disk the declarations came from, if any.
	SourcePath string      `toml:"-" yaml:"-" json:"-"`
	Parcel     string      `toml:"parcel" yaml:"parcel" json:"parcel"`
	Included   bool        `toml:"included" yaml:"included" json:"included,omitempty"`
	Classes    []ClassDecl `toml:"class" yaml:"class" json:"class"`
}

// ClassDecl declares one class.
type ClassDecl struct {
	Name       string       `toml:"name" yaml:"name" json:"name"`
	Nickname   string       `toml:"nickname" yaml:"nickname" json:"nickname,omitempty"`
	Parent     string       `toml:"parent" yaml:"parent" json:"parent,omitempty"`
	Attributes []string     `toml:"attributes" yaml:"attributes" json:"attributes,omitempty"`
	Inert      bool         `toml:"inert" yaml:"inert" json:"inert,omitempty"`
	Final      bool         `toml:"final" yaml:"final" json:"final,omitempty"`
	Members    []VarDecl    `toml:"member" yaml:"member" json:"member,omitempty"`
	Methods    []MethodDecl `toml:"method" yaml:"method" json:"method,omitempty"`
	Autocode   string       `toml:"-" yaml:"-" json:"-"`
}

// VarDecl declares a member variable or parameter.
type VarDecl struct {
	Name string `toml:"name" yaml:"name" json:"name"`
	Type string `toml:"type" yaml:"type" json:"type"`
}

// MethodDecl declares a method. The self parameter is implicit.
type MethodDecl struct {
	Name        string    `toml:"name" yaml:"name" json:"name"`
	Returns     string    `toml:"returns" yaml:"returns" json:"returns,omitempty"`
	Params      []VarDecl `toml:"param" yaml:"param" json:"param,omitempty"`
	Abstract    bool      `toml:"abstract" yaml:"abstract" json:"abstract,omitempty"`
	Final       bool      `toml:"final" yaml:"final" json:"final,omitempty"`
	Exposure    string    `toml:"exposure" yaml:"exposure" json:"exposure,omitempty"`
	Synthesized bool      `toml:"-" yaml:"-" json:"-"`
}

// Clone returns a deep copy so derived snapshots never share slices with
// their source.
func (f FileDecl) Clone() FileDecl {
	out := f
	out.Classes = make([]ClassDecl, len(f.Classes))
	for i, c := range f.Classes {
		out.Classes[i] = c.Clone()
	}
	return out
}

// Clone returns a deep copy of the class declaration.
func (c ClassDecl) Clone() ClassDecl {
	out := c
	out.Attributes = append([]string(nil), c.Attributes...)
	out.Members = append([]VarDecl(nil), c.Members...)
	out.Methods = make([]MethodDecl, len(c.Methods))
	for i, m := range c.Methods {
		m.Params = append([]VarDecl(nil), m.Params...)
		out.Methods[i] = m
	}
	return out
}
