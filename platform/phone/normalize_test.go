package phone

import "testing"

func TestNormalizeE164(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"(11) 98888-1234", "+5511988881234"},
		{"11 98888-1234", "+5511988881234"},
		{"+55 11 98888-1234", "+5511988881234"},
		{"  +5511988881234  ", "+5511988881234"},
		{"", ""},
		{"not a phone", "not a phone"},
		{"123", "123"},
	}

	for _, tc := range cases {
		if got := NormalizeE164(tc.input); got != tc.want {
			t.Fatalf("NormalizeE164(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}
