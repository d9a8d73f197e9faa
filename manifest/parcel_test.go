package manifest

import "testing"

func TestToPascalCase(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"models", "Models"},
		{"my-app", "MyApp"},
		{"my_app", "MyApp"},
		{"myApp", "MyApp"},
		{"UPPER", "Upper"},
		{"a", "A"},
		{"", ""},
		{"foo-bar-baz", "FooBarBaz"},
		{"_leading", "Leading"},
	}

	for _, tc := range tests {
		got := ToPascalCase(tc.input)
		if got != tc.want {
			t.Errorf("ToPascalCase(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestResolvedPrefix(t *testing.T) {
	tests := []struct {
		parcel Parcel
		want   string
	}{
		{Parcel{Name: "Zoo"}, "Zoo_"},
		{Parcel{Name: "Zoo", Prefix: "Z_"}, "Z_"},
		{Parcel{}, ""},
	}
	for _, tc := range tests {
		if got := tc.parcel.ResolvedPrefix(); got != tc.want {
			t.Errorf("%+v.ResolvedPrefix() = %q, want %q", tc.parcel, got, tc.want)
		}
	}
}
