package engine

import "testing"

// TestDigestDeterminism covers SPEC_FULL.md §8's testable property 13:
// Digest is a pure function of content.
func TestDigestDeterminism(t *testing.T) {
	a, err := Digest([]byte("sample data"))
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}
	b, err := Digest([]byte("sample data"))
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}
	if a != b {
		t.Fatalf("Digest is not deterministic: %q vs %q", a, b)
	}

	c, err := Digest([]byte("different data"))
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}
	if a == c {
		t.Fatalf("Digest collided for distinct content")
	}
}

func TestDigestEmptyContent(t *testing.T) {
	d, err := Digest(nil)
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}
	if d == "" {
		t.Fatal("expected a non-empty digest for empty content")
	}
}
