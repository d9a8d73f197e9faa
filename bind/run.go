package bind

import (
	"github.com/chazu/cfc/dispatch"
	"github.com/chazu/cfc/dumpable"
	"github.com/chazu/cfc/layout"
	"github.com/chazu/cfc/model"
)

// Run synthesizes Dump/Load for dumpable classes and then writes every
// modified artifact of the derived hierarchy. force regenerates everything
// regardless of the oracle. The input hierarchy is never mutated.
func Run(h *model.Hierarchy, opts Options, force bool) (*dumpable.Result, bool, error) {
	abi := opts.ABI
	if abi.PointerSize == 0 {
		abi = layout.ABI64
	}
	res, err := dumpable.Synthesizer{Protocol: dispatch.New(abi)}.Synthesize(h)
	if err != nil {
		return nil, false, err
	}
	core := New(res.Hierarchy, opts)
	wrote, err := core.WriteAllModified(force)
	if err != nil {
		return nil, false, err
	}
	return res, wrote, nil
}
