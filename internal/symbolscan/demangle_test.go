package symbolscan

import "testing"

func TestDemangleItaniumRecoversNestedName(t *testing.T) {
	// _ZN21SurfaceComposerClient20createVirtualDisplayEv
	name, _, ok := demangleItanium("_ZN21SurfaceComposerClient20createVirtualDisplayEv")
	if !ok {
		t.Fatal("expected demangling to succeed")
	}
	if name != "SurfaceComposerClient::createVirtualDisplay" {
		t.Fatalf("name = %q", name)
	}
}

func TestDemangleItaniumRejectsNonMangledName(t *testing.T) {
	if _, _, ok := demangleItanium("plain_c_symbol"); ok {
		t.Fatal("expected a non-_Z-prefixed name to fail demangling")
	}
}

func TestParamCountCountsTopLevelCommasOnly(t *testing.T) {
	cases := []struct {
		params string
		want   int
	}{
		{"", 0},
		{"void", 0},
		{"int", 1},
		{"int, bool", 2},
		{"std::basic_string<char, std::char_traits<char>>, bool, int", 3},
		{"int, bool, int", 3},
	}
	for _, c := range cases {
		if got := ParamCount(c.params); got != c.want {
			t.Fatalf("ParamCount(%q) = %d, want %d", c.params, got, c.want)
		}
	}
}
