package memcachekv

import "testing"

func TestParseWriteMode_ValidValues(t *testing.T) {
	cases := map[string]WriteMode{
		"anynode":    ANYNODE,
		"update":     UPDATE,
		"invalidate": INVALIDATE,
	}
	for s, want := range cases {
		got, err := ParseWriteMode(s)
		if err != nil {
			t.Fatalf("ParseWriteMode(%q) returned error: %v", s, err)
		}
		if got != want {
			t.Errorf("ParseWriteMode(%q): got %v, want %v", s, got, want)
		}
	}
}

func TestParseWriteMode_Unknown_ReturnsError(t *testing.T) {
	// WHEN ParseWriteMode is given an unrecognized value
	_, err := ParseWriteMode("bogus")

	// THEN it returns an error
	if err == nil {
		t.Error("ParseWriteMode(\"bogus\") did not return an error")
	}
}

func TestWriteMode_String(t *testing.T) {
	cases := []struct {
		m    WriteMode
		want string
	}{
		{ANYNODE, "anynode"},
		{UPDATE, "update"},
		{INVALIDATE, "invalidate"},
	}
	for _, c := range cases {
		if got := c.m.String(); got != c.want {
			t.Errorf("WriteMode(%d).String(): got %s, want %s", c.m, got, c.want)
		}
	}
}
