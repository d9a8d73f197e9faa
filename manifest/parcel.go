package manifest

import "strings"

// ToPascalCase converts a string to PascalCase.
// "my-app" -> "MyApp", "models" -> "Models", "myApp" -> "MyApp"
func ToPascalCase(s string) string {
	var words []string
	current := ""
	for i, r := range s {
		if r == '-' || r == '_' {
			if current != "" {
				words = append(words, current)
				current = ""
			}
			continue
		}
		if i > 0 && r >= 'A' && r <= 'Z' {
			prev := rune(s[i-1])
			if prev >= 'a' && prev <= 'z' {
				words = append(words, current)
				current = ""
			}
		}
		current += string(r)
	}
	if current != "" {
		words = append(words, current)
	}

	var b strings.Builder
	for _, w := range words {
		b.WriteString(strings.ToUpper(w[:1]) + strings.ToLower(w[1:]))
	}
	return b.String()
}

// DefaultPrefix is the symbol prefix a parcel gets when none is declared.
func DefaultPrefix(parcel string) string {
	return parcel + "_"
}

// ResolvedPrefix returns the configured prefix, or the default for the parcel
// name. It is empty when neither is set.
func (p Parcel) ResolvedPrefix() string {
	switch {
	case p.Prefix != "":
		return p.Prefix
	case p.Name != "":
		return DefaultPrefix(p.Name)
	}
	return ""
}

// reservedParcels are built into the generator and cannot be supplied by
// a dependency.
var reservedParcels = map[string]bool{
	"Clownfish": true,
}

// IsReservedParcel reports whether name is a built-in parcel.
func IsReservedParcel(name string) bool {
	return reservedParcels[name]
}
