package pegasuskv

import (
	"math/rand"
	"testing"
)

func TestSingleDirectoryConfig_SelectDirectory_AlwaysReturnsFixedNode(t *testing.T) {
	// GIVEN a SingleDirectoryConfig with a fixed directory node
	c := NewSingleDirectoryConfig(4, 2, rand.New(rand.NewSource(1)))

	// WHEN SelectDirectory is called for several different keys
	for _, key := range []string{"a", "b", "c"} {
		got := c.SelectDirectory(key)
		// THEN it always returns the fixed directory node
		if got != 2 {
			t.Errorf("SelectDirectory(%q): got %d, want 2", key, got)
		}
	}
}

func TestSingleDirectoryConfig_SelectCache_WithinRange(t *testing.T) {
	// GIVEN a SingleDirectoryConfig over 4 nodes
	c := NewSingleDirectoryConfig(4, 0, rand.New(rand.NewSource(1)))

	// WHEN SelectCache is called repeatedly
	for i := 0; i < 100; i++ {
		got := c.SelectCache("k")
		// THEN the result always falls within [0, numNodes)
		if got < 0 || got >= 4 {
			t.Fatalf("SelectCache out of range: got %d, want [0,4)", got)
		}
	}
}
