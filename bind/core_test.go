package bind

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/chazu/cfc/dumpable"
	"github.com/chazu/cfc/model"
	"github.com/chazu/cfc/stale"
	"golang.org/x/tools/txtar"
)

type workspace struct {
	src, inc, out string
}

// extract unpacks a txtar fixture into a fresh source directory.
func extract(t *testing.T, fixture string) workspace {
	t.Helper()
	ar, err := txtar.ParseFile(filepath.Join("testdata", fixture))
	if err != nil {
		t.Fatalf("parsing %s: %v", fixture, err)
	}
	dir := t.TempDir()
	ws := workspace{
		src: filepath.Join(dir, "src"),
		inc: filepath.Join(dir, "autogen", "include"),
		out: filepath.Join(dir, "autogen", "source"),
	}
	for _, f := range ar.Files {
		path := filepath.Join(ws.src, filepath.FromSlash(f.Name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, f.Data, 0644); err != nil {
			t.Fatal(err)
		}
	}
	return ws
}

func (ws workspace) hierarchy(t *testing.T) *model.Hierarchy {
	t.Helper()
	src, err := model.LoadDirs(ws.src)
	if err != nil {
		t.Fatalf("LoadDirs: %v", err)
	}
	h, err := src.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return h
}

func (ws workspace) options() Options {
	return Options{
		Header:      "/* Auto-generated. */",
		Footer:      "/* End. */",
		IncludeDest: ws.inc,
		SourceDest:  ws.out,
		Oracle:      stale.MTime{IncludeDest: ws.inc},
	}
}

func (ws workspace) age(t *testing.T, rel string, d time.Duration) {
	t.Helper()
	at := time.Now().Add(d)
	if err := os.Chtimes(filepath.Join(ws.src, rel), at, at); err != nil {
		t.Fatal(err)
	}
}

func read(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	return string(data)
}

func assertContains(t *testing.T, name, got string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(got, w) {
			t.Errorf("%s missing %q", name, w)
		}
	}
}

func assertAbsent(t *testing.T, paths ...string) {
	t.Helper()
	for _, p := range paths {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("%s exists, want nothing written", p)
		}
	}
}

func TestGenerateAnimalDog(t *testing.T) {
	ws := extract(t, "zoo.txtar")
	res, wrote, err := Run(ws.hierarchy(t), ws.options(), false)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !wrote {
		t.Fatal("first run wrote nothing")
	}
	if len(res.Plans) != 4 {
		t.Errorf("got %d plans, want 4", len(res.Plans))
	}

	parcelH := read(t, filepath.Join(ws.inc, ParcelH))
	assertContains(t, ParcelH, parcelH,
		"/* Auto-generated. */\n#ifndef CFCPARCEL_H\n#define CFCPARCEL_H 1\n",
		"#include <stddef.h>\n#include \"charmony.h\"\n",
		"typedef struct zoo_Animal zoo_Animal;\n",
		"typedef struct zoo_Dog zoo_Dog;\n",
		"typedef struct cfish_Obj cfish_Obj;\n",
		"#define CFISH_METHOD(_vtable, _full_meth)",
		"extern size_t cfish_VTable_offset_of_parent;\n",
		"void\nzoo_bootstrap_parcel();\n",
		"void\nzoo_init_parcel();\n",
		"#endif /* CFCPARCEL_H */\n\n/* End. */\n",
	)

	parcelC := read(t, filepath.Join(ws.out, ParcelC))
	assertContains(t, ParcelC, parcelC,
		"#define C_ZOO_ANIMAL\n#define C_ZOO_DOG\n#include \"parcel.h\"\n#include \"Clownfish/VTable.h\"\n",
		"#include \"Zoo/Animal.h\"\n#include \"Zoo/Dog.h\"\n",
		"/* Zoo::Animal */\ncfish_VTable *ZOO_ANIMAL = NULL;\n",
		"cfish_VTable *ZOO_DOG = NULL;\n",
		"    ZOO_ANIMAL = cfish_VTable_allocate(CFISH_OBJ, \"Zoo::Animal\", 7, sizeof(zoo_Animal));\n",
		"    ZOO_DOG = cfish_VTable_allocate(ZOO_ANIMAL, \"Zoo::Dog\", 7, sizeof(zoo_Dog));\n",
		"    cfish_VTable_override(ZOO_ANIMAL, (cfish_method_t)zoo_Animal_dump, Zoo_Animal_Dump_OFFSET);\n",
		"    cfish_VTable_override(ZOO_ANIMAL, (cfish_method_t)cfish_VTable_abstract_method, Zoo_Animal_Speak_OFFSET);\n",
		"    cfish_VTable_override(ZOO_DOG, (cfish_method_t)zoo_Dog_speak, Zoo_Dog_Speak_OFFSET);\n",
		"    cfish_VTable_add_to_registry(ZOO_DOG);\n",
		"zoo_Animal_load(zoo_Animal *self, cfish_Obj *dump)",
		"CFISH_SUPER_METHOD(ZOO_DOG, Zoo_Dog_Dump)",
		"void\nzoo_bootstrap_parcel() {\n",
		"    zoo_init_parcel();\n}\n",
	)
	if strings.Contains(parcelC, "cfish_VTable_offset_of_parent =") {
		t.Error("parcel.c defines the parent offset without DefineParentOffset")
	}

	animalH := read(t, filepath.Join(ws.inc, "Zoo", "Animal.h"))
	assertContains(t, "Animal.h", animalH,
		"#ifndef H_ZOO_ANIMAL\n#define H_ZOO_ANIMAL 1\n",
		"#include \"parcel.h\"\n#include \"Clownfish/Obj.h\"\n",
		"#ifdef C_ZOO_ANIMAL\nstruct zoo_Animal {\n    cfish_VTable* vtable;\n    cfish_ref_t ref;\n    cfish_CharBuf* name;\n    int32_t legs;\n};\n",
		"cfish_Obj*\nzoo_Animal_dump(zoo_Animal *self);\n",
		"#define Zoo_Animal_Dump_OFFSET 96\n",
		"#define Zoo_Animal_Load_OFFSET 104\n",
		"#define Zoo_Animal_Speak_OFFSET 112\n",
		"extern cfish_VTable *ZOO_ANIMAL;\n",
		"#ifdef ZOO_USE_SHORT_NAMES\n  #define Animal zoo_Animal\n  #define ANIMAL ZOO_ANIMAL\n",
		"  #define Animal_Speak Zoo_Animal_Speak\n",
	)
	if strings.Contains(animalH, "zoo_Animal_speak(") {
		t.Error("Animal.h declares an implementation for an abstract method")
	}

	dogH := read(t, filepath.Join(ws.inc, "Zoo", "Dog.h"))
	assertContains(t, "Dog.h", dogH,
		"#include \"Zoo/Animal.h\"\n",
		"cfish_CharBuf*\nzoo_Dog_speak(zoo_Dog *self);\n",
		"cfish_Obj*\nzoo_Dog_load(zoo_Dog *self, cfish_Obj* dump);\n",
		"#define Zoo_Dog_Load(self, dump) \\\n    CFISH_METHOD(*((cfish_VTable**)(self)), Zoo_Dog_Load)((self), dump)\n",
		"#define Zoo_Dog_Speak_OFFSET 112\n",
	)

	assertAbsent(t, filepath.Join(ws.inc, "Clownfish", "Obj.h"))
}

func TestDefineParentOffset(t *testing.T) {
	ws := extract(t, "zoo.txtar")
	opts := ws.options()
	opts.DefineParentOffset = true
	if _, _, err := Run(ws.hierarchy(t), opts, false); err != nil {
		t.Fatalf("Run: %v", err)
	}
	assertContains(t, ParcelC, read(t, filepath.Join(ws.out, ParcelC)),
		"size_t cfish_VTable_offset_of_parent = 16;\n")
}

func TestMultipleParcelsWriteNothing(t *testing.T) {
	ws := extract(t, "two_parcels.txtar")
	_, _, err := Run(ws.hierarchy(t), ws.options(), true)
	if !model.IsKind(err, model.KindMultipleParcels) {
		t.Fatalf("error = %v, want multiple parcels", err)
	}
	assertAbsent(t, ws.inc, ws.out)
}

func TestUnknownTypeWritesNothing(t *testing.T) {
	ws := extract(t, "bad_type.txtar")
	_, _, err := Run(ws.hierarchy(t), ws.options(), true)
	var e *model.Error
	if !model.IsKind(err, model.KindUnknownType) {
		t.Fatalf("error = %v, want unknown type", err)
	}
	if !errors.As(err, &e) || e.Class != "Zoo::Cage" || e.Field != "biome" {
		t.Errorf("error = %+v, want class Zoo::Cage field biome", e)
	}
	assertAbsent(t, ws.inc, ws.out)
}

func TestSkipWhenCurrent(t *testing.T) {
	ws := extract(t, "zoo.txtar")
	ws.age(t, "Zoo/Animal.toml", -time.Hour)
	ws.age(t, "Zoo/Dog.toml", -time.Hour)
	if _, _, err := Run(ws.hierarchy(t), ws.options(), false); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	res, err := dumpable.Synthesize(ws.hierarchy(t))
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	core := New(res.Hierarchy, ws.options())
	wrote, err := core.WriteAllModified(false)
	if err != nil {
		t.Fatalf("WriteAllModified: %v", err)
	}
	if wrote || len(core.Written()) != 0 {
		t.Errorf("second run wrote %v", core.Written())
	}

	res, err = dumpable.Synthesize(ws.hierarchy(t))
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	core = New(res.Hierarchy, ws.options())
	wrote, err = core.WriteAllModified(true)
	if err != nil {
		t.Fatalf("forced WriteAllModified: %v", err)
	}
	if !wrote || len(core.Written()) != 4 {
		t.Errorf("forced run wrote %v, want 4 files", core.Written())
	}
}

func TestParentStalenessReachesChildren(t *testing.T) {
	ws := extract(t, "zoo.txtar")
	ws.age(t, "Zoo/Animal.toml", -time.Hour)
	ws.age(t, "Zoo/Dog.toml", -time.Hour)
	if _, _, err := Run(ws.hierarchy(t), ws.options(), false); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	ws.age(t, "Zoo/Animal.toml", time.Hour)
	res, err := dumpable.Synthesize(ws.hierarchy(t))
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	core := New(res.Hierarchy, ws.options())
	if _, err := core.WriteAllModified(false); err != nil {
		t.Fatalf("WriteAllModified: %v", err)
	}
	got := map[string]bool{}
	for _, p := range core.Written() {
		got[filepath.Base(p)] = true
	}
	for _, want := range []string{"Animal.h", "Dog.h", ParcelH, ParcelC} {
		if !got[want] {
			t.Errorf("%s not regenerated; wrote %v", want, core.Written())
		}
	}
}

func TestChildStalenessLeavesParent(t *testing.T) {
	ws := extract(t, "zoo.txtar")
	ws.age(t, "Zoo/Animal.toml", -time.Hour)
	ws.age(t, "Zoo/Dog.toml", -time.Hour)
	if _, _, err := Run(ws.hierarchy(t), ws.options(), false); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	ws.age(t, "Zoo/Dog.toml", time.Hour)
	res, err := dumpable.Synthesize(ws.hierarchy(t))
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	core := New(res.Hierarchy, ws.options())
	if _, err := core.WriteAllModified(false); err != nil {
		t.Fatalf("WriteAllModified: %v", err)
	}
	for _, p := range core.Written() {
		if filepath.Base(p) == "Animal.h" {
			t.Errorf("Animal.h regenerated for a change to Dog")
		}
	}
}

func TestWriteReplacesRatherThanTruncates(t *testing.T) {
	ws := extract(t, "zoo.txtar")
	shared := filepath.Join(t.TempDir(), "shared.h")
	if err := os.WriteFile(shared, []byte("keep me"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(ws.inc, 0755); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(ws.inc, ParcelH)
	if err := os.Symlink(shared, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	if _, _, err := Run(ws.hierarchy(t), ws.options(), true); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := read(t, shared); got != "keep me" {
		t.Errorf("link target overwritten: %q", got)
	}
	fi, err := os.Lstat(link)
	if err != nil {
		t.Fatal(err)
	}
	if fi.Mode()&os.ModeSymlink != 0 {
		t.Error("parcel.h is still a symlink")
	}
}

func TestUnwritableDestination(t *testing.T) {
	ws := extract(t, "zoo.txtar")
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatal(err)
	}
	opts := ws.options()
	opts.IncludeDest = filepath.Join(blocker, "include")
	opts.Oracle = nil
	_, _, err := Run(ws.hierarchy(t), opts, true)
	if !model.IsKind(err, model.KindIO) {
		t.Fatalf("error = %v, want io", err)
	}
}

func TestBootstrapFollowsInheritanceOrder(t *testing.T) {
	ws := extract(t, "zoo.txtar")
	beagle := "[parcel]\nname = \"Zoo\"\nprefix = \"Zoo_\"\n\n[[class]]\nname = \"Zoo::Beagle\"\nparent = \"Zoo::Dog\"\n"
	if err := os.WriteFile(filepath.Join(ws.src, "Zoo", "Beagle.toml"), []byte(beagle), 0644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := Run(ws.hierarchy(t), ws.options(), true); err != nil {
		t.Fatalf("Run: %v", err)
	}
	parcelC := read(t, filepath.Join(ws.out, ParcelC))
	prev := -1
	for _, vt := range []string{"ZOO_ANIMAL", "ZOO_DOG", "ZOO_BEAGLE"} {
		i := strings.Index(parcelC, "    "+vt+" = cfish_VTable_allocate(")
		if i < 0 {
			t.Fatalf("%s never allocated", vt)
		}
		if i < prev {
			t.Errorf("%s allocated before its parent", vt)
		}
		prev = i
	}
}
