package model

import (
	"errors"
	"testing"
)

func zooDecls() ([]ParcelDecl, []FileDecl) {
	parcels := []ParcelDecl{{Name: "Zoo", Prefix: "Zoo_"}}
	files := []FileDecl{
		{
			Path:   "Zoo/Animal",
			Parcel: "Zoo",
			Classes: []ClassDecl{{
				Name:       "Zoo::Animal",
				Attributes: []string{"dumpable"},
				Members: []VarDecl{
					{Name: "vtable", Type: "void*"},
					{Name: "ref", Type: "size_t"},
					{Name: "name", Type: "CharBuf*"},
					{Name: "age", Type: "int32_t"},
				},
				Methods: []MethodDecl{
					{Name: "Speak", Returns: "CharBuf*"},
					{Name: "Eat", Abstract: true},
				},
			}},
		},
		{
			Path:   "Zoo/Dog",
			Parcel: "Zoo",
			Classes: []ClassDecl{{
				Name:       "Zoo::Dog",
				Parent:     "Zoo::Animal",
				Attributes: []string{"dumpable"},
				Members:    []VarDecl{{Name: "breed", Type: "CharBuf*"}},
				Methods: []MethodDecl{
					{Name: "Speak", Returns: "CharBuf*"},
					{Name: "Fetch"},
				},
			}},
		},
		{
			Path:   "Zoo/CharBuf",
			Parcel: "Zoo",
			Classes: []ClassDecl{{
				Name:   "Zoo::CharBuf",
				Parent: "Zoo::Animal",
			}},
		},
	}
	return parcels, files
}

func TestBuildOrdersParentsFirst(t *testing.T) {
	h, err := Build(zooDecls())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	var names []string
	for _, c := range h.Ordered() {
		names = append(names, c.Name)
	}
	want := []string{"Zoo::Animal", "Zoo::Dog", "Zoo::CharBuf"}
	if len(names) != len(want) {
		t.Fatalf("Ordered = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Ordered[%d] = %s, want %s", i, names[i], want[i])
		}
	}
}

func TestBuildMethodFlags(t *testing.T) {
	h, err := Build(zooDecls())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	dog := h.Class("Zoo::Dog")
	speak := dog.FreshMethod("Speak")
	if speak.Novel || !speak.Overridden {
		t.Errorf("Dog.Speak novel=%v overridden=%v, want override", speak.Novel, speak.Overridden)
	}
	fetch := dog.FreshMethod("Fetch")
	if !fetch.Novel || fetch.Overridden {
		t.Errorf("Dog.Fetch novel=%v overridden=%v, want novel", fetch.Novel, fetch.Overridden)
	}
	if got := dog.Method("Eat"); got == nil || got.Class != "Zoo::Animal" {
		t.Errorf("Dog.Method(Eat) = %v, want Animal's", got)
	}
}

func TestBuildSymbols(t *testing.T) {
	h, err := Build(zooDecls())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	dog := h.Class("Zoo::Dog")
	tests := []struct {
		got, want string
	}{
		{dog.Nickname, "Dog"},
		{dog.FullStructSym(), "zoo_Dog"},
		{dog.FullVTableVar(), "ZOO_DOG"},
		{dog.PrivacySymbol(), "C_ZOO_DOG"},
		{dog.IncludeH(), "Zoo/Dog.h"},
		{dog.File().GuardSym(), "H_ZOO_DOG"},
		{dog.FreshMethod("Speak").FullMethodSym(dog), "Zoo_Dog_Speak"},
		{dog.FreshMethod("Speak").FullOffsetSym(dog), "Zoo_Dog_Speak_OFFSET"},
		{dog.FreshMethod("Speak").FullFuncSym(), "zoo_Dog_speak"},
		{dog.Parcel().BootstrapSym(), "zoo_bootstrap_parcel"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}

func TestBuildResolvesObjectTypesWithinParcel(t *testing.T) {
	h, err := Build(zooDecls())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	for _, v := range h.Class("Zoo::Dog").NovelMemberVars() {
		if v.Name != "breed" {
			continue
		}
		if v.Type.Specifier != "zoo_CharBuf" || v.Type.ClassName != "Zoo::CharBuf" {
			t.Errorf("breed type = %s (%s), want zoo_CharBuf", v.Type.Specifier, v.Type.ClassName)
		}
	}
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func([]FileDecl)
		kind   Kind
	}{
		{"missing parent", func(f []FileDecl) { f[1].Classes[0].Parent = "Zoo::Nope" }, KindMissingParent},
		{"cycle", func(f []FileDecl) { f[0].Classes[0].Parent = "Zoo::Dog" }, KindCycle},
		{"member collision", func(f []FileDecl) {
			f[1].Classes[0].Members = append(f[1].Classes[0].Members, VarDecl{Name: "age", Type: "int64_t"})
		}, KindMemberCollision},
		{"duplicate class", func(f []FileDecl) { f[2].Classes[0].Name = "Zoo::Dog" }, KindInvalidModel},
		{"bad type", func(f []FileDecl) { f[0].Classes[0].Members[2].Type = "weird CharBuf*" }, KindInvalidModel},
		{"final override", func(f []FileDecl) { f[0].Classes[0].Methods[0].Final = true }, KindInvalidModel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parcels, files := zooDecls()
			tt.mutate(files)
			_, err := Build(parcels, files)
			if err == nil {
				t.Fatal("expected error")
			}
			if !IsKind(err, tt.kind) {
				t.Errorf("error = %v, want kind %s", err, tt.kind)
			}
			if !errors.Is(err, &Error{Kind: tt.kind}) {
				t.Errorf("errors.Is by kind failed for %v", err)
			}
		})
	}
}

func TestSourceParcel(t *testing.T) {
	parcels, files := zooDecls()
	h, err := Build(parcels, files)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	p, err := h.SourceParcel()
	if err != nil || p.Name != "Zoo" {
		t.Fatalf("SourceParcel = %v, %v", p, err)
	}

	files[2].Parcel = "Farm"
	h, err = Build(append(parcels, ParcelDecl{Name: "Farm"}), files)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, err := h.SourceParcel(); !IsKind(err, KindMultipleParcels) {
		t.Errorf("SourceParcel error = %v, want multiple parcels", err)
	}

	for i := range files {
		files[i].Included = true
	}
	h, err = Build(parcels, files)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, err := h.SourceParcel(); !IsKind(err, KindNoSourceClasses) {
		t.Errorf("SourceParcel error = %v, want no source classes", err)
	}
}

func TestDeriveLeavesReceiverUntouched(t *testing.T) {
	h, err := Build(zooDecls())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	d, err := h.Derive(map[string]Decoration{
		"Zoo::Dog": {
			Methods:  []MethodDecl{{Name: "Wag", Synthesized: true}},
			Autocode: "/* wag */\n",
		},
	})
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if h.Class("Zoo::Dog").FreshMethod("Wag") != nil {
		t.Error("receiver gained a method")
	}
	wag := d.Class("Zoo::Dog").FreshMethod("Wag")
	if wag == nil || !wag.Synthesized {
		t.Fatalf("derived Wag = %v", wag)
	}
	if d.Class("Zoo::Dog").Autocode != "/* wag */\n" {
		t.Errorf("derived autocode = %q", d.Class("Zoo::Dog").Autocode)
	}

	if _, err := h.Derive(map[string]Decoration{"Zoo::Cat": {}}); !IsKind(err, KindInvalidModel) {
		t.Errorf("Derive unknown class error = %v", err)
	}
}

type staleSet map[string]bool

func (s staleSet) NeedsRegen(f *File) (bool, error) { return s[f.Path], nil }

func TestPropagateModified(t *testing.T) {
	tests := []struct {
		name   string
		stale  staleSet
		forced bool
		want   bool
		marked []string
	}{
		{"nothing stale", staleSet{}, false, false, nil},
		{"leaf stale", staleSet{"Zoo/Dog": true}, false, true, []string{"Zoo/Dog"}},
		{"root stale", staleSet{"Zoo/Animal": true}, false, true, []string{"Zoo/Animal", "Zoo/Dog", "Zoo/CharBuf"}},
		{"forced", staleSet{}, true, true, []string{"Zoo/Animal", "Zoo/Dog", "Zoo/CharBuf"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := Build(zooDecls())
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			got, err := h.PropagateModified(tt.stale, tt.forced)
			if err != nil {
				t.Fatalf("PropagateModified: %v", err)
			}
			if got != tt.want {
				t.Errorf("PropagateModified = %v, want %v", got, tt.want)
			}
			marked := map[string]bool{}
			for _, p := range tt.marked {
				marked[p] = true
			}
			for _, f := range h.Files() {
				if f.Modified() != marked[f.Path] {
					t.Errorf("%s modified = %v, want %v", f.Path, f.Modified(), marked[f.Path])
				}
			}
		})
	}
}
