package model

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

//go:embed core/*.toml
var coreFS embed.FS

// Document is the on-disk form of one source unit.
type Document struct {
	Parcel   ParcelDecl  `toml:"parcel" yaml:"parcel"`
	Path     string      `toml:"path" yaml:"path"`
	Included bool        `toml:"included" yaml:"included"`
	Classes  []ClassDecl `toml:"class" yaml:"class"`
}

// Source collects declarations from model files ahead of Build.
type Source struct {
	Parcels []ParcelDecl
	Files   []FileDecl
}

// Add appends one decoded document.
func (s *Source) Add(doc Document, sourcePath string) {
	s.Parcels = append(s.Parcels, doc.Parcel)
	s.Files = append(s.Files, FileDecl{
		Path:       doc.Path,
		SourcePath: sourcePath,
		Parcel:     doc.Parcel.Name,
		Included:   doc.Included,
		Classes:    doc.Classes,
	})
}

// Build resolves the collected declarations.
func (s *Source) Build() (*Hierarchy, error) {
	return Build(s.Parcels, s.Files)
}

// ParseDocument validates and decodes a TOML or YAML model document. The
// format is chosen by the extension of name.
func ParseDocument(name string, data []byte) (Document, error) {
	var (
		generic map[string]any
		doc     Document
		err     error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".toml":
		if err = toml.Unmarshal(data, &generic); err == nil {
			err = toml.Unmarshal(data, &doc)
		}
	case ".yaml", ".yml":
		if err = yaml.Unmarshal(data, &generic); err == nil {
			err = yaml.Unmarshal(data, &doc)
		}
	default:
		return Document{}, &Error{Kind: KindInvalidModel, Path: name, Detail: "unsupported model file extension"}
	}
	if err != nil {
		return Document{}, &Error{Kind: KindInvalidModel, Path: name, Err: err}
	}
	if generic == nil {
		generic = map[string]any{}
	}
	if err := validateDocument(generic); err != nil {
		return Document{}, &Error{Kind: KindInvalidModel, Path: name, Err: err}
	}
	return doc, nil
}

// LoadFile reads one model file. rel is the path relative to its source
// root and supplies the unit path when the document does not declare one.
func LoadFile(file, rel string) (Document, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return Document{}, &Error{Kind: KindIO, Path: file, Err: err}
	}
	doc, err := ParseDocument(file, data)
	if err != nil {
		return Document{}, err
	}
	if doc.Path == "" {
		rel = filepath.ToSlash(rel)
		doc.Path = strings.TrimSuffix(rel, path.Ext(rel))
	}
	return doc, nil
}

// IsModelFile reports whether name has a model file extension.
func IsModelFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".toml", ".yaml", ".yml":
		return true
	}
	return false
}

// LoadDirs walks each source directory in lexical order and collects every
// model file. The embedded core parcel is added first.
func LoadDirs(dirs ...string) (*Source, error) {
	src, err := CoreSource()
	if err != nil {
		return nil, err
	}
	for _, dir := range dirs {
		if err := src.AddDir(dir, false); err != nil {
			return nil, err
		}
	}
	return src, nil
}

// AddDir collects every model file under dir. When included is set the
// units are marked as belonging to another parcel regardless of what the
// documents declare.
func (s *Source) AddDir(dir string, included bool) error {
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !IsModelFile(p) {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		doc, err := LoadFile(p, rel)
		if err != nil {
			return err
		}
		if included {
			doc.Included = true
		}
		s.Add(doc, p)
		return nil
	})
	if err == nil {
		return nil
	}
	if IsKind(err, KindInvalidModel) || IsKind(err, KindIO) {
		return err
	}
	return &Error{Kind: KindIO, Path: dir, Err: err}
}

// CoreSource returns the built-in Clownfish parcel declarations.
func CoreSource() (*Source, error) {
	entries, err := coreFS.ReadDir("core")
	if err != nil {
		return nil, fmt.Errorf("reading core declarations: %w", err)
	}
	src := &Source{}
	for _, e := range entries {
		name := "core/" + e.Name()
		data, err := coreFS.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		doc, err := ParseDocument(name, data)
		if err != nil {
			return nil, fmt.Errorf("core declarations: %w", err)
		}
		src.Add(doc, "")
	}
	return src, nil
}
