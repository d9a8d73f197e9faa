package model

import "path/filepath"

// File is one source unit. The modified flag is the only mutable state in a
// built hierarchy; it is set by PropagateModified.
type File struct {
	Path       string
	SourcePath string
	Included   bool

	parcel   *Parcel
	classes  []*Class
	modified bool
}

func (f *File) Parcel() *Parcel { return f.parcel }
func (f *File) Classes() []*Class { return append([]*Class(nil), f.classes...) }
func (f *File) Modified() bool { return f.modified }
func (f *File) SetModified(m bool) { f.modified = m }

// HPath returns where the generated header for this unit lives under
// the include destination.
func (f *File) HPath(incDest string) string {
	return filepath.Join(incDest, filepath.FromSlash(f.Path)+".h")
}

// GuardSym is the include guard for the generated header.
func (f *File) GuardSym() string {
	b := []byte("H_")
	for _, r := range []byte(f.Path) {
		switch {
		case r >= 'a' && r <= 'z':
			b = append(b, r-'a'+'A')
		case (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			b = append(b, r)
		default:
			b = append(b, '_')
		}
	}
	return string(b)
}
