package dumpable

import (
	"strings"
	"testing"

	"github.com/chazu/cfc/model"
)

func build(t *testing.T, classes ...model.ClassDecl) *model.Hierarchy {
	t.Helper()
	src, err := model.CoreSource()
	if err != nil {
		t.Fatalf("CoreSource: %v", err)
	}
	for _, cd := range classes {
		src.Add(model.Document{
			Parcel:  model.ParcelDecl{Name: "Zoo", Prefix: "Zoo_"},
			Path:    "Zoo/" + strings.TrimPrefix(cd.Name, "Zoo::"),
			Classes: []model.ClassDecl{cd},
		}, "")
	}
	h, err := src.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return h
}

func animal() model.ClassDecl {
	return model.ClassDecl{
		Name:       "Zoo::Animal",
		Parent:     "Clownfish::Obj",
		Attributes: []string{"dumpable"},
		Members: []model.VarDecl{
			{Name: "name", Type: "CharBuf*"},
			{Name: "legs", Type: "int32_t"},
		},
	}
}

func dog() model.ClassDecl {
	return model.ClassDecl{
		Name:       "Zoo::Dog",
		Parent:     "Zoo::Animal",
		Attributes: []string{"dumpable"},
		Members:    []model.VarDecl{{Name: "breed", Type: "CharBuf*"}, {Name: "weight", Type: "double"}},
	}
}

func TestSynthesizeAnimalDog(t *testing.T) {
	h := build(t, animal(), dog())
	res, err := Synthesize(h)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if len(res.Plans) != 4 {
		t.Fatalf("got %d plans, want 4", len(res.Plans))
	}

	rootDump := res.Plan("Zoo::Animal", MethodDump)
	if rootDump == nil || !rootDump.Root || rootDump.FuncSym != "zoo_Animal_dump" {
		t.Fatalf("Animal Dump plan = %+v", rootDump)
	}
	if len(rootDump.Fields) != 2 || rootDump.Fields[0].Name != "name" || rootDump.Fields[1].Kind != FieldInteger {
		t.Errorf("Animal fields = %+v", rootDump.Fields)
	}
	childLoad := res.Plan("Zoo::Dog", MethodLoad)
	if childLoad == nil || childLoad.Root {
		t.Fatalf("Dog Load plan = %+v", childLoad)
	}
	if len(childLoad.Fields) != 2 || childLoad.Fields[0].Name != "breed" || childLoad.Fields[1].Kind != FieldFloat {
		t.Errorf("Dog fields = %+v", childLoad.Fields)
	}

	d := res.Hierarchy.Class("Zoo::Dog")
	m := d.FreshMethod(MethodDump)
	if m == nil || !m.Synthesized || !m.Overridden || m.IsPrivate() {
		t.Fatalf("derived Dog.Dump = %+v", m)
	}
	if !m.ReturnType.Incremented() || m.ReturnType.Specifier != "cfish_Obj" {
		t.Errorf("Dump returns %s", m.ReturnType)
	}
	if h.Class("Zoo::Dog").FreshMethod(MethodDump) != nil {
		t.Error("input hierarchy was decorated")
	}

	for _, want := range []string{
		"cfish_Obj*\nzoo_Dog_dump(zoo_Dog *self)\n{",
		"Zoo_Dog_Dump_t super_dump = CFISH_SUPER_METHOD(ZOO_DOG, Zoo_Dog_Dump);",
		`Cfish_Hash_Store_Str(dump, "weight", 6, (cfish_Obj*)cfish_CB_newf("%f64", (double)self->weight));`,
		"if (self->breed) {",
		`Cfish_Hash_Store_Str(dump, "breed", 5, Cfish_Obj_Dump((cfish_Obj*)self->breed));`,
		"zoo_Dog *loaded = (zoo_Dog*)super_load(self, dump);",
		"if (var) { loaded->breed = (cfish_CharBuf*)CFISH_CERTIFY(Cfish_Obj_Load(var, var), CFISH_CHARBUF); }",
		"if (var) { loaded->weight = (double)Cfish_Obj_To_F64(var); }",
	} {
		if !strings.Contains(d.Autocode, want) {
			t.Errorf("Dog autocode missing %q\n%s", want, d.Autocode)
		}
	}

	a := res.Hierarchy.Class("Zoo::Animal").Autocode
	for _, want := range []string{
		"cfish_Hash *dump = cfish_Hash_new(0);",
		`Cfish_Hash_Store_Str(dump, "_class", 6,`,
		`Cfish_Hash_Store_Str(dump, "legs", 4, (cfish_Obj*)cfish_CB_newf("%i64", (int64_t)self->legs));`,
		"cfish_VTable *vtable = cfish_VTable_singleton(class_name, NULL);",
		"if (CFISH_OVERRIDDEN(&vtable, Zoo_Animal_Load, zoo_Animal_load)",
		"cfish_Obj *concrete = Cfish_Obj_Load(proto, dump);",
		"zoo_Animal *loaded = (zoo_Animal*)Cfish_VTable_Make_Obj(vtable);",
		"if (var) { loaded->legs = (int32_t)Cfish_Obj_To_I64(var); }",
	} {
		if !strings.Contains(a, want) {
			t.Errorf("Animal autocode missing %q\n%s", want, a)
		}
	}
	for _, skipped := range []string{"self->vtable", "self->ref", `"vtable"`, `"ref"`} {
		if strings.Contains(a, skipped) {
			t.Errorf("Animal autocode touches bookkeeping member %s", skipped)
		}
	}
}

func TestZeroNovelChildInherits(t *testing.T) {
	puppy := model.ClassDecl{Name: "Zoo::Puppy", Parent: "Zoo::Dog", Attributes: []string{"dumpable"}}
	res, err := Synthesize(build(t, animal(), dog(), puppy))
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if res.Plan("Zoo::Puppy", MethodDump) != nil || res.Plan("Zoo::Puppy", MethodLoad) != nil {
		t.Error("Puppy got plans")
	}
	p := res.Hierarchy.Class("Zoo::Puppy")
	if p.Autocode != "" || p.FreshMethod(MethodDump) != nil {
		t.Errorf("Puppy was decorated: %q", p.Autocode)
	}
	if got := p.Method(MethodLoad); got == nil || got.Class != "Zoo::Dog" {
		t.Errorf("Puppy resolves Load to %+v", got)
	}
}

func TestUserMethodSuppressesSynthesis(t *testing.T) {
	d := dog()
	d.Methods = []model.MethodDecl{{Name: "Dump", Returns: "incremented Obj*"}}
	res, err := Synthesize(build(t, animal(), d))
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if res.Plan("Zoo::Dog", MethodDump) != nil {
		t.Error("Dump synthesized despite user override")
	}
	if res.Plan("Zoo::Dog", MethodLoad) == nil {
		t.Error("Load not synthesized")
	}
}

func TestPrivateCollisionIsFatal(t *testing.T) {
	d := dog()
	d.Methods = []model.MethodDecl{{Name: "Load", Exposure: "private"}}
	_, err := Synthesize(build(t, animal(), d))
	if !model.IsKind(err, model.KindSlotCollision) {
		t.Fatalf("error = %v, want slot collision", err)
	}
	if !strings.Contains(err.Error(), "Zoo::Dog") || !strings.Contains(err.Error(), "Load") {
		t.Errorf("error does not name class and method: %v", err)
	}
}

func TestUnknownFieldTypeIsFatal(t *testing.T) {
	a := animal()
	a.Members = append(a.Members, model.VarDecl{Name: "habitat", Type: "Biome*"})
	_, err := Synthesize(build(t, a))
	if !model.IsKind(err, model.KindUnknownType) {
		t.Fatalf("error = %v, want unknown type", err)
	}
	me, ok := err.(*model.Error)
	if !ok || me.Class != "Zoo::Animal" || me.Field != "habitat" {
		t.Errorf("error identity = %+v", err)
	}
}

func TestPointerToPrimitiveIsUnknown(t *testing.T) {
	a := animal()
	a.Members = append(a.Members, model.VarDecl{Name: "raw", Type: "char*"})
	if _, err := Synthesize(build(t, a)); !model.IsKind(err, model.KindUnknownType) {
		t.Fatalf("error = %v, want unknown type", err)
	}
}

func TestNonDumpableClassesUntouched(t *testing.T) {
	cage := model.ClassDecl{Name: "Zoo::Cage", Parent: "Clownfish::Obj",
		Members: []model.VarDecl{{Name: "raw", Type: "char*"}}}
	res, err := Synthesize(build(t, cage))
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if len(res.Plans) != 0 {
		t.Errorf("plans = %d", len(res.Plans))
	}
}
