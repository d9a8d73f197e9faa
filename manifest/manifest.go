// Package manifest handles cfc.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/chazu/cfc/layout"
)

// FileName is the manifest looked for in a project directory.
const FileName = "cfc.toml"

// Staleness oracles selectable in [state].
const (
	OracleMTime  = "mtime"
	OracleDigest = "digest"
	OracleAlways = "always"
)

// Manifest represents a cfc.toml project configuration.
type Manifest struct {
	Parcel       Parcel                `toml:"parcel"`
	Source       Source                `toml:"source"`
	Dest         Dest                  `toml:"dest"`
	Boilerplate  Boilerplate           `toml:"boilerplate"`
	Layout       Layout                `toml:"layout"`
	State        State                 `toml:"state"`
	Dependencies map[string]Dependency `toml:"dependencies"`

	// Dir is the directory containing the cfc.toml file (set at load time).
	Dir string `toml:"-"`
}

// Parcel names the parcel this project generates. Both fields are
// optional; when set they must agree with the model files.
type Parcel struct {
	Name   string `toml:"name"`
	Prefix string `toml:"prefix"`
}

// Source configures declaration file locations. Units under Include
// belong to other parcels and are never emitted.
type Source struct {
	Dirs    []string `toml:"dirs"`
	Include []string `toml:"include"`
}

// Dest configures where generated files go.
type Dest struct {
	Include string `toml:"include"`
	Source  string `toml:"source"`
}

// Boilerplate is copied around every generated file. A file setting wins
// over the inline text.
type Boilerplate struct {
	Header     string `toml:"header"`
	Footer     string `toml:"footer"`
	HeaderFile string `toml:"header-file"`
	FooterFile string `toml:"footer-file"`
}

// Layout selects the target ABI.
type Layout struct {
	PointerSize int `toml:"pointer-size"`
	// DefineParentOffset is set only for the runtime's own parcel.
	DefineParentOffset bool `toml:"define-parent-offset"`
}

// State configures the staleness oracle.
type State struct {
	Oracle string `toml:"oracle"`
	Path   string `toml:"path"`
}

// Dependency is a parcel whose declarations are consumed as included
// units.
type Dependency struct {
	Git    string `toml:"git"`
	Tag    string `toml:"tag"`
	Path   string `toml:"path"`
	Parcel string `toml:"parcel"`
}

// Load parses a cfc.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	m.applyDefaults()
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &m, nil
}

// Default returns the manifest used when a project has no cfc.toml.
func Default(dir string) (*Manifest, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	m := &Manifest{Dir: abs}
	m.applyDefaults()
	return m, nil
}

func (m *Manifest) applyDefaults() {
	if len(m.Source.Dirs) == 0 {
		m.Source.Dirs = []string{"src"}
	}
	if m.Dest.Include == "" {
		m.Dest.Include = filepath.Join("autogen", "include")
	}
	if m.Dest.Source == "" {
		m.Dest.Source = filepath.Join("autogen", "source")
	}
	if m.Layout.PointerSize == 0 {
		m.Layout.PointerSize = 8
	}
	if m.State.Oracle == "" {
		m.State.Oracle = OracleMTime
	}
	if m.State.Path == "" {
		m.State.Path = filepath.Join(".cfc", "state.db")
	}
}

func (m *Manifest) validate() error {
	switch m.State.Oracle {
	case OracleMTime, OracleDigest, OracleAlways:
	default:
		return fmt.Errorf("unknown staleness oracle %q", m.State.Oracle)
	}
	if _, err := layout.ABIForPointerSize(m.Layout.PointerSize); err != nil {
		return err
	}
	for name, dep := range m.Dependencies {
		if (dep.Git == "") == (dep.Path == "") {
			return fmt.Errorf("dependency %q needs exactly one of git or path", name)
		}
	}
	return nil
}

// FindAndLoad walks up from startDir to find a cfc.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

func (m *Manifest) abs(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir, p)
}

// SourceDirPaths returns absolute paths for the configured source directories.
func (m *Manifest) SourceDirPaths() []string {
	var paths []string
	for _, d := range m.Source.Dirs {
		paths = append(paths, m.abs(d))
	}
	return paths
}

// IncludeDirPaths returns absolute paths for the included declaration
// directories.
func (m *Manifest) IncludeDirPaths() []string {
	var paths []string
	for _, d := range m.Source.Include {
		paths = append(paths, m.abs(d))
	}
	return paths
}

// IncludeDest returns where headers are written.
func (m *Manifest) IncludeDest() string { return m.abs(m.Dest.Include) }

// SourceDest returns where parcel.c is written.
func (m *Manifest) SourceDest() string { return m.abs(m.Dest.Source) }

// StatePath returns the digest database location.
func (m *Manifest) StatePath() string { return m.abs(m.State.Path) }

// DepsDir returns the path to the .cfc/deps directory.
func (m *Manifest) DepsDir() string {
	return filepath.Join(m.Dir, ".cfc", "deps")
}

// LockFilePath returns the path to .cfc/lock.toml.
func (m *Manifest) LockFilePath() string {
	return filepath.Join(m.Dir, ".cfc", "lock.toml")
}

// ABI returns the layout ABI for the configured pointer size.
func (m *Manifest) ABI() (layout.ABI, error) {
	return layout.ABIForPointerSize(m.Layout.PointerSize)
}

// Header returns the header boilerplate.
func (m *Manifest) Header() (string, error) {
	return m.boilerplate(m.Boilerplate.HeaderFile, m.Boilerplate.Header)
}

// Footer returns the footer boilerplate.
func (m *Manifest) Footer() (string, error) {
	return m.boilerplate(m.Boilerplate.FooterFile, m.Boilerplate.Footer)
}

func (m *Manifest) boilerplate(file, inline string) (string, error) {
	if file == "" {
		return inline, nil
	}
	data, err := os.ReadFile(m.abs(file))
	if err != nil {
		return "", fmt.Errorf("reading boilerplate: %w", err)
	}
	return string(data), nil
}
