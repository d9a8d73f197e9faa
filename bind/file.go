package bind

import (
	"fmt"
	"strings"

	"github.com/chazu/cfc/layout"
	"github.com/chazu/cfc/model"
)

// renderFileH renders the header for one source unit.
func renderFileH(f *model.File, lay *layout.Layout, emitter ClassEmitter, header, footer string) string {
	var sb strings.Builder
	w := func(format string, args ...any) { fmt.Fprintf(&sb, format, args...) }
	guard := f.GuardSym()

	w("%s\n", header)
	w("#ifndef %s\n#define %s 1\n\n", guard, guard)
	w("#ifdef __cplusplus\nextern \"C\" {\n#endif\n\n")
	w("#include \"parcel.h\"\n")
	seen := map[string]bool{f.Path: true}
	for _, c := range f.Classes() {
		p := c.Parent()
		if p == nil || seen[p.File().Path] {
			continue
		}
		seen[p.File().Path] = true
		w("#include \"%s\"\n", p.IncludeH())
	}
	w("\n")

	for _, c := range f.Classes() {
		sb.WriteString(emitter.Header(c, lay.Table(c.Name)))
	}

	w("#ifdef __cplusplus\n}\n#endif\n\n")
	w("#endif /* %s */\n\n", guard)
	w("%s\n", footer)
	return sb.String()
}
