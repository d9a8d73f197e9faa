package model

import (
	"fmt"
	"strings"
)

// Hierarchy is an immutable snapshot of every class in a run, resolved and
// topologically ordered (parents before children).
type Hierarchy struct {
	parcelDecls []ParcelDecl
	fileDecls   []FileDecl

	parcels     map[string]*Parcel
	parcelOrder []*Parcel
	files       []*File
	classes     map[string]*Class
	trees       []*Class
	ordered     []*Class
}

// StalenessOracle answers, per source unit, whether its generated output
// must be regenerated.
type StalenessOracle interface {
	NeedsRegen(f *File) (bool, error)
}

// Build resolves declarations into a hierarchy. All configuration errors
// are reported here, before any generation stage runs.
func Build(parcels []ParcelDecl, files []FileDecl) (*Hierarchy, error) {
	h := &Hierarchy{
		parcels: make(map[string]*Parcel),
		classes: make(map[string]*Class),
	}
	for _, pd := range parcels {
		h.parcelDecls = append(h.parcelDecls, pd)
		if _, dup := h.parcels[pd.Name]; dup {
			continue
		}
		p := NewParcel(pd.Name, pd.Prefix)
		h.parcels[pd.Name] = p
		h.parcelOrder = append(h.parcelOrder, p)
	}

	var declOrder []*Class
	for _, fd := range files {
		fd = fd.Clone()
		h.fileDecls = append(h.fileDecls, fd)
		f, err := h.addFile(fd)
		if err != nil {
			return nil, err
		}
		declOrder = append(declOrder, f.classes...)
	}

	if err := h.linkParents(declOrder); err != nil {
		return nil, err
	}
	h.order()
	if err := h.checkMembers(); err != nil {
		return nil, err
	}
	if err := h.resolveMethods(); err != nil {
		return nil, err
	}
	h.resolveTypes()
	return h, nil
}

func (h *Hierarchy) parcel(name string) *Parcel {
	if p, ok := h.parcels[name]; ok {
		return p
	}
	p := NewParcel(name, "")
	h.parcels[name] = p
	h.parcelOrder = append(h.parcelOrder, p)
	return p
}

func (h *Hierarchy) addFile(fd FileDecl) (*File, error) {
	if fd.Path == "" {
		return nil, &Error{Kind: KindInvalidModel, Path: fd.SourcePath, Detail: "file declaration has no path"}
	}
	if fd.Parcel == "" {
		return nil, &Error{Kind: KindInvalidModel, Path: fd.Path, Detail: "file declaration has no parcel"}
	}
	f := &File{
		Path:       fd.Path,
		SourcePath: fd.SourcePath,
		Included:   fd.Included,
		parcel:     h.parcel(fd.Parcel),
	}
	for _, cd := range fd.Classes {
		c, err := h.newClass(f, cd)
		if err != nil {
			return nil, err
		}
		f.classes = append(f.classes, c)
	}
	h.files = append(h.files, f)
	return f, nil
}

func (h *Hierarchy) newClass(f *File, cd ClassDecl) (*Class, error) {
	if cd.Name == "" {
		return nil, &Error{Kind: KindInvalidModel, Path: f.Path, Detail: "class declaration has no name"}
	}
	if _, dup := h.classes[cd.Name]; dup {
		return nil, &Error{Kind: KindInvalidModel, Class: cd.Name, Detail: "class declared twice"}
	}
	c := &Class{
		Name:       cd.Name,
		Nickname:   cd.Nickname,
		ParentName: cd.Parent,
		Attributes: append([]string(nil), cd.Attributes...),
		Inert:      cd.Inert,
		Final:      cd.Final,
		Included:   f.Included,
		Autocode:   cd.Autocode,
		parcel:     f.parcel,
		file:       f,
	}
	if c.Nickname == "" {
		c.Nickname = c.StructSym()
	}
	for _, vd := range cd.Members {
		t, err := ParseType(vd.Type)
		if err != nil {
			return nil, &Error{Kind: KindInvalidModel, Class: c.Name, Field: vd.Name, Err: err}
		}
		c.members = append(c.members, &Variable{Name: vd.Name, Type: t, Class: c.Name})
	}
	for _, md := range cd.Methods {
		m, err := newMethod(c, md)
		if err != nil {
			return nil, err
		}
		c.methods = append(c.methods, m)
	}
	h.classes[c.Name] = c
	return c, nil
}

func newMethod(c *Class, md MethodDecl) (*Method, error) {
	if md.Name == "" {
		return nil, &Error{Kind: KindInvalidModel, Class: c.Name, Detail: "method declaration has no name"}
	}
	returns := md.Returns
	if returns == "" {
		returns = "void"
	}
	rt, err := ParseType(returns)
	if err != nil {
		return nil, &Error{Kind: KindInvalidModel, Class: c.Name, Method: md.Name, Err: err}
	}
	exposure := Exposure(md.Exposure)
	switch exposure {
	case "":
		exposure = ExposurePublic
	case ExposurePublic, ExposureParcel, ExposurePrivate:
	default:
		return nil, &Error{Kind: KindInvalidModel, Class: c.Name, Method: md.Name,
			Detail: fmt.Sprintf("unknown exposure %q", md.Exposure)}
	}
	m := &Method{
		Name:        md.Name,
		Class:       c.Name,
		ReturnType:  rt,
		Abstract:    md.Abstract,
		Final:       md.Final,
		Exposure:    exposure,
		Synthesized: md.Synthesized,
		class:       c,
	}
	for _, pd := range md.Params {
		t, err := ParseType(pd.Type)
		if err != nil {
			return nil, &Error{Kind: KindInvalidModel, Class: c.Name, Method: md.Name, Field: pd.Name, Err: err}
		}
		m.Params = append(m.Params, &Variable{Name: pd.Name, Type: t})
	}
	return m, nil
}

func (h *Hierarchy) linkParents(declOrder []*Class) error {
	for _, c := range declOrder {
		if c.ParentName == "" {
			h.trees = append(h.trees, c)
			continue
		}
		parent, ok := h.classes[c.ParentName]
		if !ok {
			return &Error{Kind: KindMissingParent, Class: c.Name,
				Detail: fmt.Sprintf("parent %q not found", c.ParentName)}
		}
		c.parent = parent
		parent.children = append(parent.children, c)
	}
	// Every class must reach a root within len(classes) steps.
	for _, c := range declOrder {
		steps := 0
		for cur := c; cur != nil; cur = cur.parent {
			if steps > len(declOrder) {
				return &Error{Kind: KindCycle, Class: c.Name, Detail: "inheritance cycle"}
			}
			steps++
		}
	}
	return nil
}

func (h *Hierarchy) order() {
	var walk func(c *Class)
	walk = func(c *Class) {
		h.ordered = append(h.ordered, c)
		for _, kid := range c.children {
			walk(kid)
		}
	}
	for _, root := range h.trees {
		walk(root)
	}
}

func (h *Hierarchy) checkMembers() error {
	for _, c := range h.ordered {
		seen := make(map[string]string)
		for _, anc := range c.Ancestors() {
			for _, v := range anc.members {
				seen[v.Name] = anc.Name
			}
		}
		for _, v := range c.members {
			if owner, ok := seen[v.Name]; ok {
				detail := fmt.Sprintf("member %q already declared by %s", v.Name, owner)
				return &Error{Kind: KindMemberCollision, Class: c.Name, Field: v.Name, Detail: detail}
			}
			seen[v.Name] = c.Name
		}
	}
	return nil
}

func (h *Hierarchy) resolveMethods() error {
	for _, c := range h.ordered {
		for _, m := range c.methods {
			var inherited *Method
			if c.parent != nil {
				inherited = c.parent.Method(m.Name)
			}
			if inherited == nil {
				m.Novel = true
				continue
			}
			if inherited.Final {
				return &Error{Kind: KindInvalidModel, Class: c.Name, Method: m.Name,
					Detail: "overrides final method of " + inherited.Class}
			}
			m.Overridden = true
		}
	}
	return nil
}

// resolveTypes replaces short object specifiers ("CharBuf") with full
// struct symbols. Unknown specifiers are left alone; serialization
// rejects them later with the field that uses them.
func (h *Hierarchy) resolveTypes() {
	bySym := make(map[string][]*Class)
	byFull := make(map[string]*Class)
	for _, c := range h.ordered {
		bySym[c.StructSym()] = append(bySym[c.StructSym()], c)
		byFull[c.FullStructSym()] = c
	}
	resolve := func(t *Type, from *Parcel) {
		if !t.IsObject() {
			return
		}
		if c, ok := byFull[t.Specifier]; ok {
			t.ClassName = c.Name
			return
		}
		cands := bySym[t.Specifier]
		if len(cands) == 0 {
			return
		}
		pick := cands[0]
		for _, c := range cands {
			if c.parcel == from {
				pick = c
				break
			}
		}
		t.Specifier = pick.FullStructSym()
		t.ClassName = pick.Name
	}
	for _, c := range h.ordered {
		for _, v := range c.members {
			resolve(&v.Type, c.parcel)
		}
		for _, m := range c.methods {
			resolve(&m.ReturnType, c.parcel)
			for _, p := range m.Params {
				resolve(&p.Type, c.parcel)
			}
		}
	}
}

// Ordered returns every class, parents before children.
func (h *Hierarchy) Ordered() []*Class {
	return append([]*Class(nil), h.ordered...)
}

// Trees returns the root classes in declaration order.
func (h *Hierarchy) Trees() []*Class {
	return append([]*Class(nil), h.trees...)
}

// Files returns the source units in declaration order.
func (h *Hierarchy) Files() []*File {
	return append([]*File(nil), h.files...)
}

// Class looks up a class by full name.
func (h *Hierarchy) Class(name string) *Class {
	return h.classes[name]
}

// Parcels returns every parcel known to the hierarchy.
func (h *Hierarchy) Parcels() []*Parcel {
	return append([]*Parcel(nil), h.parcelOrder...)
}

// SourceParcel returns the single parcel that owns the non-included
// classes. More than one such parcel, or none, is a configuration error.
func (h *Hierarchy) SourceParcel() (*Parcel, error) {
	var parcel *Parcel
	for _, c := range h.ordered {
		if c.Included {
			continue
		}
		if parcel != nil && c.parcel != parcel {
			return nil, &Error{Kind: KindMultipleParcels, Class: c.Name,
				Detail: fmt.Sprintf("parcels %s and %s in one run; multiple parcels are not supported",
					parcel.Name, c.parcel.Name)}
		}
		parcel = c.parcel
	}
	if parcel == nil {
		return nil, &Error{Kind: KindNoSourceClasses, Detail: "no source classes found"}
	}
	return parcel, nil
}

// Decoration is what a derived snapshot adds to one class.
type Decoration struct {
	Methods  []MethodDecl
	Autocode string
}

// Derive returns a new hierarchy with the decorations applied. The
// receiver is left untouched.
func (h *Hierarchy) Derive(decorations map[string]Decoration) (*Hierarchy, error) {
	files := make([]FileDecl, len(h.fileDecls))
	applied := 0
	for i, fd := range h.fileDecls {
		fd = fd.Clone()
		for j := range fd.Classes {
			cd := &fd.Classes[j]
			dec, ok := decorations[cd.Name]
			if !ok {
				continue
			}
			cd.Methods = append(cd.Methods, dec.Methods...)
			cd.Autocode += dec.Autocode
			applied++
		}
		files[i] = fd
	}
	if applied != len(decorations) {
		var missing []string
		for name := range decorations {
			if _, ok := h.classes[name]; !ok {
				missing = append(missing, name)
			}
		}
		return nil, &Error{Kind: KindInvalidModel, Detail: "decorating unknown classes: " + strings.Join(missing, ", ")}
	}
	return Build(h.parcelDecls, files)
}

// PropagateModified marks every file whose oracle reports it stale, and
// every file holding a descendant of a class in a modified file. It
// returns true if anything is modified, including the forced flag.
func (h *Hierarchy) PropagateModified(oracle StalenessOracle, modified bool) (bool, error) {
	somebody := false
	for _, root := range h.trees {
		m, err := h.propagate(oracle, root, modified)
		if err != nil {
			return false, err
		}
		if m {
			somebody = true
		}
	}
	return somebody || modified, nil
}

func (h *Hierarchy) propagate(oracle StalenessOracle, c *Class, modified bool) (bool, error) {
	f := c.file
	if !modified && !f.Included && oracle != nil {
		stale, err := oracle.NeedsRegen(f)
		if err != nil {
			return false, fmt.Errorf("checking %s: %w", f.Path, err)
		}
		modified = stale
	}
	if modified {
		f.SetModified(true)
	}
	somebody := modified
	for _, kid := range c.children {
		m, err := h.propagate(oracle, kid, modified)
		if err != nil {
			return false, err
		}
		if m {
			somebody = true
		}
	}
	return somebody, nil
}
