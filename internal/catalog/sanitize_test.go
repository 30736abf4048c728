package catalog

import "testing"

func TestSanitizePartName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Red Widget", "Red_Widget"},
		{"Cap 0.1uF", "Cap_0,1uF"},
		{"a/b\\c", "a_b_c"},
		{"<bad>:name?", "_bad___name_"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := SanitizePartName(tt.in); got != tt.want {
			t.Errorf("SanitizePartName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeCategoryName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Passive Components", "Passive_Components"},
		{"v1.2 Boards", "v12_Boards"},
		{"a|b", "a_b"},
	}
	for _, tt := range tests {
		if got := SanitizeCategoryName(tt.in); got != tt.want {
			t.Errorf("SanitizeCategoryName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeRevision(t *testing.T) {
	if got := SanitizeRevision("  A1 "); got != "A1" {
		t.Errorf("SanitizeRevision trim: got %q", got)
	}
	if got := SanitizeRevision(""); got != "" {
		t.Errorf("SanitizeRevision empty: got %q", got)
	}
	if got := SanitizeRevision("a/b"); got != "a_b" {
		t.Errorf("SanitizeRevision unsafe: got %q", got)
	}
}
