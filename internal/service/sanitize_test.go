package service

import "testing"

func TestSanitize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  hello  ", "hello"},
		{"<script>alert(1)</script>", "scriptalert(1)/script"},
		{"click javascript:alert(1)", "click alert(1)"},
		{"JavaScript:void(0)", "void(0)"},
		{`img onerror=alert(1)`, "img alert(1)"},
		{`ONCLICK=go()`, "go()"},
		{"javajavascript:script:x", "x"},
		{"onx= padded", "padded"},
		{"java<script:x", "x"},
		{"plain text stays", "plain text stays"},
		{"\ufeffhi", "hi"},
		{"\u00a0hi\u2028", "hi"},
		{"\u3000\ufeff <b> \u2029", "b"},
		{"\u0085hi", "\u0085hi"},
		{"", ""},
	}
	for _, tc := range tests {
		if got := Sanitize(tc.in); got != tc.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSanitize_Idempotent(t *testing.T) {
	inputs := []string{
		"<script>alert(1)</script>",
		"javajavascript:script:",
		"ononclick==x",
		"  <  onload= javascript:  >  ",
		"Hello there, testing.",
		"a\nb\n",
	}
	for _, in := range inputs {
		once := Sanitize(in)
		if twice := Sanitize(once); twice != once {
			t.Errorf("Sanitize not idempotent for %q: %q -> %q", in, once, twice)
		}
	}
}

func TestValidEmail(t *testing.T) {
	valid := []string{"jo@x.com", "a.b@c.d.e", "x+y@sub.example.org"}
	invalid := []string{
		"not-an-email", "jo@x", "@x.com", "jo@.", "jo x@x.com", "jo@@x.com", "",
		"jo\u00a0x@x.com",
		"jo\u2028x@x.com",
		"jo@x\u2029y.com",
		"jo@x.c\ufeffom",
		"jo\vx@x.com",
		"jo@x.c\u3000om",
	}
	for _, s := range valid {
		if !ValidEmail(s) {
			t.Errorf("expected %q to be valid", s)
		}
	}
	for _, s := range invalid {
		if ValidEmail(s) {
			t.Errorf("expected %q to be invalid", s)
		}
	}
}

func TestValidMessageLength(t *testing.T) {
	if ValidMessageLength("123456789") {
		t.Error("9 chars should be invalid")
	}
	if !ValidMessageLength("1234567890") {
		t.Error("10 chars should be valid")
	}
}
