package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("cfc.manifest")

// ResolvedDep is a dependency checked out or located on disk.
type ResolvedDep struct {
	Name      string
	LocalPath string
	// Parcel is the parcel whose declarations the dependency supplies.
	Parcel string
	// Manifest is the dependency's own cfc.toml, nil when it has none.
	Manifest *Manifest
}

// DeclDirs returns the directories holding the dependency's declaration
// files: its own source dirs when it has a manifest, else its root.
func (rd ResolvedDep) DeclDirs() []string {
	if rd.Manifest != nil {
		return rd.Manifest.SourceDirPaths()
	}
	return []string{rd.LocalPath}
}

// Resolver locates every parcel a project includes.
type Resolver struct {
	manifest *Manifest
	lock     *LockFile

	deps     map[string]*ResolvedDep
	byParcel map[string]string
	order    []ResolvedDep
}

// NewResolver creates a resolver for m's [dependencies].
func NewResolver(m *Manifest) *Resolver {
	return &Resolver{manifest: m}
}

// Resolve returns every direct and transitive dependency, each one after
// the dependencies it declares. A project without dependencies touches
// nothing on disk.
func (r *Resolver) Resolve() ([]ResolvedDep, error) {
	if len(r.manifest.Dependencies) == 0 {
		return nil, nil
	}
	lock, err := ReadLock(r.manifest.LockFilePath())
	if err != nil {
		return nil, fmt.Errorf("reading lock file: %w", err)
	}
	r.lock = lock
	r.deps = make(map[string]*ResolvedDep)
	r.byParcel = make(map[string]string)
	r.order = nil

	if err := os.MkdirAll(r.manifest.DepsDir(), 0755); err != nil {
		return nil, fmt.Errorf("creating deps dir: %w", err)
	}
	if err := r.visit(r.manifest.Dir, r.manifest.Dependencies); err != nil {
		return nil, err
	}
	if err := r.writeLock(); err != nil {
		return nil, fmt.Errorf("writing lock file: %w", err)
	}
	return r.order, nil
}

// visit resolves deps declared by the project rooted at base. Relative
// paths are taken from base.
func (r *Resolver) visit(base string, deps map[string]Dependency) error {
	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if _, done := r.deps[name]; done {
			continue
		}
		rd, err := r.locate(base, name, deps[name])
		if err != nil {
			return fmt.Errorf("resolving %s: %w", name, err)
		}
		if err := r.claim(rd); err != nil {
			return err
		}
		r.deps[name] = rd
		if rd.Manifest != nil {
			if err := r.visit(rd.LocalPath, rd.Manifest.Dependencies); err != nil {
				return err
			}
		}
		r.order = append(r.order, *rd)
	}
	return nil
}

// claim records which dependency supplies a parcel. A parcel comes from
// exactly one place, and never from the project itself.
func (r *Resolver) claim(rd *ResolvedDep) error {
	if own := r.manifest.Parcel.Name; own != "" && rd.Parcel == own {
		return fmt.Errorf("dependency %q supplies parcel %s, which this project builds", rd.Name, own)
	}
	if other, ok := r.byParcel[rd.Parcel]; ok {
		return fmt.Errorf("dependencies %q and %q both supply parcel %s", other, rd.Name, rd.Parcel)
	}
	r.byParcel[rd.Parcel] = rd.Name
	return nil
}

// resolveParcel names the parcel a dependency supplies. Parcel names are
// part of every generated symbol, so the producer's declaration is
// authoritative: a consumer's parcel setting only names a dependency that
// has no manifest, and otherwise has to agree. The dependency name in
// PascalCase is the last resort.
func resolveParcel(name string, dep Dependency, depManifest *Manifest) (string, error) {
	declared := ""
	if depManifest != nil {
		declared = depManifest.Parcel.Name
	}
	parcel := declared
	switch {
	case declared != "" && dep.Parcel != "" && dep.Parcel != declared:
		return "", fmt.Errorf("dependency %q declares parcel %s, not %s", name, declared, dep.Parcel)
	case declared == "" && dep.Parcel != "":
		parcel = dep.Parcel
	case declared == "":
		parcel = ToPascalCase(name)
	}
	if IsReservedParcel(parcel) {
		return "", fmt.Errorf("dependency %q resolves to built-in parcel %s", name, parcel)
	}
	return parcel, nil
}

func (r *Resolver) locate(base, name string, dep Dependency) (*ResolvedDep, error) {
	var dir string
	switch {
	case dep.Path != "":
		p := dep.Path
		if !filepath.IsAbs(p) {
			p = filepath.Join(base, p)
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("invalid path %q: %w", dep.Path, err)
		}
		if _, err := os.Stat(abs); err != nil {
			return nil, fmt.Errorf("no directory at %s: %w", abs, err)
		}
		dir = abs
	case dep.Git != "":
		dir = filepath.Join(r.manifest.DepsDir(), name)
		if err := r.checkout(name, dep, dir); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("dependency %q has no git or path specified", name)
	}

	depManifest, err := FindIn(dir)
	if err != nil {
		return nil, err
	}
	parcel, err := resolveParcel(name, dep, depManifest)
	if err != nil {
		return nil, err
	}
	log.Debugf("dependency %s: parcel %s at %s", name, parcel, dir)
	return &ResolvedDep{Name: name, LocalPath: dir, Parcel: parcel, Manifest: depManifest}, nil
}

// checkout clones a git dependency on first use and refetches it when the
// pinned tag changed.
func (r *Resolver) checkout(name string, dep Dependency, dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		log.Infof("cloning %s from %s", name, dep.Git)
		if err := gitClone(dep.Git, dir); err != nil {
			return err
		}
	} else if locked := r.lock.FindLockedDep(name); locked == nil || locked.Tag != dep.Tag {
		log.Infof("fetching %s", name)
		if err := gitFetch(dir); err != nil {
			return err
		}
	}
	if dep.Tag == "" {
		return nil
	}
	return gitCheckout(dir, dep.Tag)
}

// FindIn loads the manifest in dir itself, or returns nil if there is none.
func FindIn(dir string) (*Manifest, error) {
	if _, err := os.Stat(filepath.Join(dir, FileName)); err != nil {
		return nil, nil
	}
	return Load(dir)
}

// writeLock pins the project's direct dependencies.
func (r *Resolver) writeLock() error {
	lf := &LockFile{}
	for name, dep := range r.manifest.Dependencies {
		rd := r.deps[name]
		ld := LockedDep{Name: name, Path: dep.Path}
		if dep.Git != "" {
			ld = LockedDep{Name: name, Git: dep.Git, Tag: dep.Tag}
			if commit, err := gitCurrentCommit(rd.LocalPath); err == nil {
				ld.Commit = commit
			}
		}
		lf.Deps = append(lf.Deps, ld)
	}
	if err := os.MkdirAll(filepath.Dir(r.manifest.LockFilePath()), 0755); err != nil {
		return err
	}
	return WriteLock(r.manifest.LockFilePath(), lf)
}
