package main

import (
	"fmt"

	"github.com/chazu/cfc/bind"
	"github.com/chazu/cfc/manifest"
	"github.com/chazu/cfc/model"
)

type project struct {
	manifest  *manifest.Manifest
	hierarchy *model.Hierarchy
}

// loadManifest finds cfc.toml at or above dir, falling back to defaults
// rooted at dir.
func loadManifest(dir string) (*manifest.Manifest, error) {
	m, err := manifest.FindAndLoad(dir)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return manifest.Default(dir)
	}
	return m, nil
}

func loadProject(dir string) (*project, error) {
	m, err := loadManifest(dir)
	if err != nil {
		return nil, err
	}

	src, err := model.LoadDirs(m.SourceDirPaths()...)
	if err != nil {
		return nil, err
	}
	for _, d := range m.IncludeDirPaths() {
		if err := src.AddDir(d, true); err != nil {
			return nil, err
		}
	}

	deps, err := manifest.NewResolver(m).Resolve()
	if err != nil {
		return nil, err
	}
	for _, dep := range deps {
		for _, d := range dep.DeclDirs() {
			if err := src.AddDir(d, true); err != nil {
				return nil, fmt.Errorf("dependency %s: %w", dep.Name, err)
			}
		}
	}

	h, err := src.Build()
	if err != nil {
		return nil, err
	}
	if err := checkParcel(m, h); err != nil {
		return nil, err
	}
	return &project{manifest: m, hierarchy: h}, nil
}

// checkParcel verifies the declared parcel against the model files.
func checkParcel(m *manifest.Manifest, h *model.Hierarchy) error {
	if m.Parcel.Name == "" && m.Parcel.Prefix == "" {
		return nil
	}
	p, err := h.SourceParcel()
	if err != nil {
		return err
	}
	if m.Parcel.Name != "" && m.Parcel.Name != p.Name {
		return fmt.Errorf("%s names parcel %q but the model files declare %q", manifest.FileName, m.Parcel.Name, p.Name)
	}
	if m.Parcel.Prefix != "" && m.Parcel.Prefix != p.Prefix() {
		return fmt.Errorf("%s sets prefix %q but parcel %s uses %q", manifest.FileName, m.Parcel.Prefix, p.Name, p.Prefix())
	}
	return nil
}

// options builds the aggregator configuration, minus the oracle.
func (p *project) options() (bind.Options, error) {
	m := p.manifest
	abi, err := m.ABI()
	if err != nil {
		return bind.Options{}, err
	}
	header, err := m.Header()
	if err != nil {
		return bind.Options{}, err
	}
	footer, err := m.Footer()
	if err != nil {
		return bind.Options{}, err
	}
	return bind.Options{
		Header:             header,
		Footer:             footer,
		IncludeDest:        m.IncludeDest(),
		SourceDest:         m.SourceDest(),
		ABI:                abi,
		DefineParentOffset: m.Layout.DefineParentOffset,
	}, nil
}
