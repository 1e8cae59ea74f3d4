package utils

import "testing"

var sanitizeTests = []struct {
	in  string
	out string
}{
	{"", "_"},
	{"ur5", "ur5"},
	{"My Scene", "My_Scene"},
	{"base link", "base_link"},
	{"Material.001", "Material_001"},
	{"2nd box", "_2nd_box"},
	{"tête", "tete"},
	{"ä1", "a1"},
	{"ö1", "o1"},
	{"Größe", "Gro_e"},
	{"ﬁle", "_le"},
	{"日本", "__"},
	{"a-b c", "a_b_c"},
}

func TestSanitizeName(t *testing.T) {
	for _, test := range sanitizeTests {
		result := SanitizeName(test.in)
		if result != test.out {
			t.Errorf("SanitizeName(%q)=%q; expected %q", test.in, result, test.out)
		}
	}
}

func TestUniqueName(t *testing.T) {
	taken := map[string]bool{"box": true, "box_1": true}
	isTaken := func(s string) bool { return taken[s] }

	if result := UniqueName("sphere", isTaken); result != "sphere" {
		t.Errorf("UniqueName(sphere)=%q; expected sphere", result)
	}
	if result := UniqueName("box", isTaken); result != "box_2" {
		t.Errorf("UniqueName(box)=%q; expected box_2", result)
	}
}
