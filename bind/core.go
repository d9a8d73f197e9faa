// Package bind aggregates per-class fragments into the parcel-wide
// artifacts: one header per source unit, parcel.h and parcel.c.
package bind

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/cfc/dispatch"
	"github.com/chazu/cfc/layout"
	"github.com/chazu/cfc/model"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("cfc.bind")

const (
	ParcelH = "parcel.h"
	ParcelC = "parcel.c"
)

// Options configures a Core.
type Options struct {
	// Header and Footer are copied verbatim around every generated file.
	Header string
	Footer string

	IncludeDest string
	SourceDest  string

	ABI layout.ABI
	// Oracle decides which units are stale. Nil treats every unit as
	// current, so only a forced run regenerates.
	Oracle model.StalenessOracle
	// Emitter produces per-class fragments. Nil uses ClassBinding.
	Emitter ClassEmitter
	// DefineParentOffset emits the definition of the parent offset global
	// into parcel.c. Only the runtime's own parcel carries it.
	DefineParentOffset bool
}

// Artifacts is the full rendered output of one run, keyed by destination
// path.
type Artifacts struct {
	// Headers maps a unit path ("Zoo/Dog") to its header text.
	Headers map[string]string
	ParcelH string
	ParcelC string
}

// Core writes the artifacts for one hierarchy.
type Core struct {
	h        *model.Hierarchy
	opts     Options
	protocol dispatch.Protocol
	emitter  ClassEmitter
	written  []string
}

// New creates a Core. The hierarchy must already carry any synthesized
// methods.
func New(h *model.Hierarchy, opts Options) *Core {
	if opts.ABI.PointerSize == 0 {
		opts.ABI = layout.ABI64
	}
	protocol := dispatch.New(opts.ABI)
	emitter := opts.Emitter
	if emitter == nil {
		emitter = ClassBinding{Protocol: protocol}
	}
	return &Core{h: h, opts: opts, protocol: protocol, emitter: emitter}
}

// Protocol returns the dispatch protocol the core emits.
func (c *Core) Protocol() dispatch.Protocol { return c.protocol }

// Written returns the files written by the last WriteAllModified.
func (c *Core) Written() []string { return append([]string(nil), c.written...) }

// Render lays out the hierarchy and renders every artifact in memory.
func (c *Core) Render() (*Artifacts, *layout.Layout, error) {
	parcel, err := c.h.SourceParcel()
	if err != nil {
		return nil, nil, err
	}
	lay, err := layout.Generator{ABI: c.opts.ABI}.Compute(c.h)
	if err != nil {
		return nil, nil, err
	}
	art := &Artifacts{Headers: make(map[string]string)}
	for _, f := range c.h.Files() {
		if f.Included {
			continue
		}
		art.Headers[f.Path] = renderFileH(f, lay, c.emitter, c.opts.Header, c.opts.Footer)
	}
	art.ParcelH = c.renderParcelH(parcel)
	art.ParcelC = c.renderParcelC(parcel, lay)
	return art, lay, nil
}

// WriteAllModified regenerates the headers of stale units and, if anything
// is stale or modified is true, parcel.h and parcel.c. It reports whether
// anything was regenerated. Every artifact is rendered before the first
// file is touched, so a configuration error leaves the destinations as
// they were.
func (c *Core) WriteAllModified(modified bool) (bool, error) {
	c.written = nil
	art, _, err := c.Render()
	if err != nil {
		return false, err
	}

	modified, err = c.h.PropagateModified(c.opts.Oracle, modified)
	if err != nil {
		return false, err
	}

	for _, f := range c.h.Files() {
		if f.Included || !f.Modified() {
			continue
		}
		if err := c.write(f.HPath(c.opts.IncludeDest), art.Headers[f.Path]); err != nil {
			return false, err
		}
	}

	if !modified {
		log.Info("nothing to regenerate")
		return false, nil
	}
	if err := c.write(filepath.Join(c.opts.IncludeDest, ParcelH), art.ParcelH); err != nil {
		return false, err
	}
	if err := c.write(filepath.Join(c.opts.SourceDest, ParcelC), art.ParcelC); err != nil {
		return false, err
	}
	log.Infof("wrote %d files", len(c.written))
	return true, nil
}

// write replaces path with content. Any prior version is removed first.
func (c *Core) write(path, content string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &model.Error{Kind: model.KindIO, Path: path, Detail: "removing previous version", Err: err}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return &model.Error{Kind: model.KindIO, Path: path, Err: err}
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return &model.Error{Kind: model.KindIO, Path: path, Err: err}
	}
	log.Debugf("wrote %s", path)
	c.written = append(c.written, path)
	return nil
}

func (c *Core) renderParcelH(parcel *model.Parcel) string {
	var sb strings.Builder
	w := func(format string, args ...any) { fmt.Fprintf(&sb, format, args...) }

	w("%s\n", c.opts.Header)
	w("#ifndef CFCPARCEL_H\n#define CFCPARCEL_H 1\n\n")
	w("#ifdef __cplusplus\nextern \"C\" {\n#endif\n\n")
	w("#include <stddef.h>\n#include \"charmony.h\"\n\n")

	// Forward declarations let mutually referencing classes compile.
	for _, k := range c.h.Ordered() {
		if k.Inert {
			continue
		}
		w("typedef struct %s %s;\n", k.FullStructSym(), k.FullStructSym())
	}
	w("\n")

	sb.WriteString(c.protocol.Header())
	w("\n")
	w("void\n%s();\n\n", parcel.BootstrapSym())
	w("void\n%s();\n\n", parcel.InitSym())
	w("#ifdef __cplusplus\n}\n#endif\n\n")
	w("#endif /* CFCPARCEL_H */\n\n")
	w("%s\n", c.opts.Footer)
	return sb.String()
}

func (c *Core) vtableInclude() string {
	for _, k := range c.h.Ordered() {
		if k.FullStructSym() == c.protocol.VTableType() {
			return k.IncludeH()
		}
	}
	return "Clownfish/VTable.h"
}

func (c *Core) renderParcelC(parcel *model.Parcel, lay *layout.Layout) string {
	var privacy, includes, data, alloc, boot, reg strings.Builder
	for _, k := range c.h.Ordered() {
		if k.Included {
			continue
		}
		t := lay.Table(k.Name)
		fmt.Fprintf(&privacy, "#define %s\n", k.PrivacySymbol())
		fmt.Fprintf(&includes, "#include \"%s\"\n", k.IncludeH())
		data.WriteString(c.emitter.CData(k, t))
		data.WriteByte('\n')
		alloc.WriteString(c.emitter.VTableAllocate(k, t))
		boot.WriteString(c.emitter.VTableBootstrap(k, t))
		reg.WriteString(c.emitter.VTableRegister(k, t))
	}

	var sb strings.Builder
	w := func(format string, args ...any) { fmt.Fprintf(&sb, format, args...) }
	w("%s\n\n", c.opts.Header)
	sb.WriteString(privacy.String())
	w("#include \"parcel.h\"\n")
	w("#include \"%s\"\n", c.vtableInclude())
	sb.WriteString(includes.String())
	w("\n")
	if c.opts.DefineParentOffset {
		sb.WriteString(c.protocol.ParentOffsetDefinition())
		w("\n")
	}
	sb.WriteString(data.String())
	w("\n")
	w("void\n%s() {\n", parcel.BootstrapSym())
	sb.WriteString(alloc.String())
	w("\n")
	sb.WriteString(boot.String())
	w("\n")
	sb.WriteString(reg.String())
	w("\n")
	w("    %s();\n}\n\n", parcel.InitSym())
	w("%s\n", c.opts.Footer)
	return sb.String()
}
