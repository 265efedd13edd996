package category

import "testing"

func TestResolveAliases(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"ops", Operations},
		{"operations", Operations},
		{"runbook", Operations},
		{"rules", Conventions},
		{"style", Conventions},
		{"arch", Architecture},
		{"pitfalls", Gotchas},
		{"likes", Preferences},
		{"links", References},
	}
	for _, tc := range cases {
		res := Resolve(tc.in)
		if !res.Matched {
			t.Errorf("Resolve(%q) not matched", tc.in)
		}
		if res.Tag != tc.want {
			t.Errorf("Resolve(%q).Tag = %q, want %q", tc.in, res.Tag, tc.want)
		}
	}
}

func TestResolveIsCaseAndSpaceInsensitive(t *testing.T) {
	res := Resolve("  OPS ")
	if !res.Matched || res.Tag != Operations {
		t.Errorf("Resolve(\"  OPS \") = %+v", res)
	}
	if res.Input != "  OPS " {
		t.Errorf("Input = %q, want the original text preserved", res.Input)
	}
}

func TestResolveUnknownFallsBackToNoFilter(t *testing.T) {
	res := Resolve("philosophy")
	if res.Matched {
		t.Error("unknown hint should not match")
	}
	if res.Tag != "" {
		t.Errorf("Tag = %q, want empty (no filter)", res.Tag)
	}
}

func TestResolveEmpty(t *testing.T) {
	res := Resolve("")
	if res.Matched || res.Tag != "" {
		t.Errorf("Resolve(\"\") = %+v, want no filter", res)
	}
}
