package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const animalTOML = `[parcel]
name = "Zoo"
prefix = "Zoo_"

[[class]]
name = "Zoo::Animal"
parent = "Clownfish::Obj"
attributes = ["dumpable"]

[[class.member]]
name = "name"
type = "CharBuf*"

[[class.method]]
name = "Speak"
returns = "CharBuf*"
abstract = true
`

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
}

func newProject(t *testing.T, manifest string) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "cfc.toml"), manifest)
	writeFile(t, filepath.Join(dir, "src", "Zoo", "Animal.toml"), animalTOML)
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.Execute()
	return out.String(), err
}

func TestBuildWithDigestOracle(t *testing.T) {
	dir := newProject(t, `
[parcel]
name = "Zoo"

[boilerplate]
header = "/* zoo */"

[state]
oracle = "digest"
`)

	out, err := run(t, "build", "-C", dir)
	if err != nil {
		t.Fatalf("build: %v\n%s", err, out)
	}
	if !strings.Contains(out, "generated parcel.h and parcel.c") {
		t.Errorf("output = %q", out)
	}
	for _, p := range []string{
		filepath.Join(dir, "autogen", "include", "parcel.h"),
		filepath.Join(dir, "autogen", "include", "Zoo", "Animal.h"),
		filepath.Join(dir, "autogen", "source", "parcel.c"),
	} {
		data, err := os.ReadFile(p)
		if err != nil {
			t.Fatalf("reading %s: %v", p, err)
		}
		if !strings.HasPrefix(string(data), "/* zoo */\n") {
			t.Errorf("%s does not start with the header boilerplate", p)
		}
	}

	out, err = run(t, "build", "-C", dir)
	if err != nil {
		t.Fatalf("second build: %v", err)
	}
	if !strings.Contains(out, "up to date") {
		t.Errorf("second build output = %q, want up to date", out)
	}

	out, err = run(t, "status", "-C", dir)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.HasPrefix(out, "run ") || !strings.Contains(out, "(1 units)") {
		t.Errorf("status = %q", out)
	}

	out, err = run(t, "build", "-C", dir, "--force")
	if err != nil || !strings.Contains(out, "generated") {
		t.Errorf("forced build = %q, %v", out, err)
	}
}

func TestBuildRejectsParcelMismatch(t *testing.T) {
	dir := newProject(t, "[parcel]\nname = \"Farm\"\n")
	if _, err := run(t, "build", "-C", dir); err == nil || !strings.Contains(err.Error(), "Farm") {
		t.Errorf("error = %v, want parcel mismatch", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "autogen")); !os.IsNotExist(err) {
		t.Error("mismatched build wrote output")
	}
}

func TestBuildWithPathDependency(t *testing.T) {
	root := t.TempDir()
	app := filepath.Join(root, "app")
	writeFile(t, filepath.Join(app, "cfc.toml"), "[dependencies]\nfarm = { path = \"../farm\" }\n")
	writeFile(t, filepath.Join(app, "src", "Zoo", "Animal.toml"), animalTOML)
	writeFile(t, filepath.Join(root, "farm", "Farm", "Barn.toml"), `[parcel]
name = "Farm"

[[class]]
name = "Farm::Barn"
parent = "Clownfish::Obj"
`)

	if out, err := run(t, "build", "-C", app); err != nil {
		t.Fatalf("build: %v\n%s", err, out)
	}
	if _, err := os.Stat(filepath.Join(app, "autogen", "include", "Farm", "Barn.h")); !os.IsNotExist(err) {
		t.Error("header generated for a dependency unit")
	}
	c, err := os.ReadFile(filepath.Join(app, "autogen", "source", "parcel.c"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(c), "FARM_BARN") {
		t.Error("parcel.c bootstraps a dependency class")
	}

	out, err := run(t, "layout", "-C", app, "--all")
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	if !strings.Contains(out, "Farm::Barn < Clownfish::Obj") {
		t.Errorf("layout --all misses Farm::Barn:\n%s", out)
	}
}

func TestLayout(t *testing.T) {
	dir := newProject(t, "[parcel]\nname = \"Zoo\"\n")

	out, err := run(t, "layout", "-C", dir)
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	for _, want := range []string{
		"Zoo::Animal < Clownfish::Obj",
		"    96  Dump             Zoo::Animal override",
		"   112  Speak            Zoo::Animal abstract",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("layout output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Clownfish::CharBuf") {
		t.Error("layout lists included classes without --all")
	}

	out, err = run(t, "layout", "-C", dir, "--format", "yaml", "Zoo::Animal")
	if err != nil {
		t.Fatalf("layout yaml: %v", err)
	}
	if !strings.Contains(out, "class: Zoo::Animal") || !strings.Contains(out, "offset: 112") {
		t.Errorf("yaml output:\n%s", out)
	}

	if _, err := run(t, "layout", "-C", dir, "Zoo::Cat"); err == nil {
		t.Error("layout accepted an unknown class")
	}
}

func TestProtocol(t *testing.T) {
	dir := newProject(t, "[layout]\npointer-size = 4\n")
	out, err := run(t, "protocol", "-C", dir)
	if err != nil {
		t.Fatalf("protocol: %v", err)
	}
	if !strings.Contains(out, "cfish_VTable_offset_of_parent") {
		t.Errorf("protocol output:\n%s", out)
	}
}

func TestStatusWithoutHistory(t *testing.T) {
	dir := newProject(t, "[parcel]\nname = \"Zoo\"\n")
	out, err := run(t, "status", "-C", dir)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "oracle mtime keeps no run history") {
		t.Errorf("status = %q", out)
	}
}
