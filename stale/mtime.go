// Package stale decides which source units need their generated output
// rebuilt.
package stale

import (
	"errors"
	"io/fs"
	"os"

	"github.com/chazu/cfc/model"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("cfc.stale")

// MTime reports a unit stale when its generated header is missing or older
// than the declaration file it came from.
type MTime struct {
	IncludeDest string
}

var _ model.StalenessOracle = MTime{}

// NeedsRegen implements model.StalenessOracle.
func (m MTime) NeedsRegen(f *model.File) (bool, error) {
	if f.SourcePath == "" {
		return true, nil
	}
	src, err := os.Stat(f.SourcePath)
	if err != nil {
		return false, &model.Error{Kind: model.KindIO, Path: f.SourcePath, Err: err}
	}
	h := f.HPath(m.IncludeDest)
	dest, err := os.Stat(h)
	if errors.Is(err, fs.ErrNotExist) {
		log.Debugf("%s: %s missing", f.Path, h)
		return true, nil
	}
	if err != nil {
		return false, &model.Error{Kind: model.KindIO, Path: h, Err: err}
	}
	if dest.ModTime().Before(src.ModTime()) {
		log.Debugf("%s: %s older than %s", f.Path, h, f.SourcePath)
		return true, nil
	}
	return false, nil
}

// Always reports every unit stale.
type Always struct{}

// NeedsRegen implements model.StalenessOracle.
func (Always) NeedsRegen(*model.File) (bool, error) { return true, nil }
