package workload

import (
	"math/rand"
	"testing"
)

func TestUniformKeySampler_Next_OnlyReturnsKnownKeys(t *testing.T) {
	// GIVEN a uniform sampler over 3 keys
	keys := []string{"a", "b", "c"}
	s := NewUniformKeySampler(keys, rand.New(rand.NewSource(1)))

	// WHEN Next is called repeatedly
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		key := s.Next()
		found := false
		for _, k := range keys {
			if k == key {
				found = true
			}
		}
		if !found {
			t.Fatalf("Next returned %q, not in key population", key)
		}
		seen[key] = true
	}

	// THEN every key in the population eventually appears
	if len(seen) != len(keys) {
		t.Errorf("distinct keys seen: got %d, want %d", len(seen), len(keys))
	}
}

func TestZipfKeySampler_Next_FavorsLowerRankedKeys(t *testing.T) {
	// GIVEN a Zipf sampler over 5 keys with a pronounced skew
	keys := []string{"k0", "k1", "k2", "k3", "k4"}
	s := NewZipfKeySampler(keys, 1.5, rand.New(rand.NewSource(1)))

	// WHEN many keys are drawn
	counts := map[string]int{}
	for i := 0; i < 5000; i++ {
		counts[s.Next()]++
	}

	// THEN the lowest-ranked key (k0) is drawn more often than the
	// highest-ranked one (k4)
	if counts["k0"] <= counts["k4"] {
		t.Errorf("rank bias: k0 count=%d, k4 count=%d, want k0 > k4", counts["k0"], counts["k4"])
	}
}

func TestZipfKeySampler_Next_OnlyReturnsKnownKeys(t *testing.T) {
	// GIVEN a Zipf sampler over 4 keys
	keys := []string{"a", "b", "c", "d"}
	s := NewZipfKeySampler(keys, 1.0, rand.New(rand.NewSource(2)))

	// WHEN Next is called repeatedly
	for i := 0; i < 200; i++ {
		key := s.Next()
		found := false
		for _, k := range keys {
			if k == key {
				found = true
			}
		}
		if !found {
			t.Fatalf("Next returned %q, not in key population", key)
		}
	}
}

func TestZipfKeySampler_SingleKey_AlwaysReturnsIt(t *testing.T) {
	// GIVEN a Zipf sampler over a single key
	s := NewZipfKeySampler([]string{"only"}, 1.0, rand.New(rand.NewSource(1)))

	// WHEN Next is called
	got := s.Next()

	// THEN it returns that key
	if got != "only" {
		t.Errorf("Next: got %q, want %q", got, "only")
	}
}
