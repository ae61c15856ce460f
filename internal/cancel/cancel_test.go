package cancel

import "testing"

func TestTokenStaleAfterBump(t *testing.T) {
	var src Source
	tok := src.Token()
	if tok.Stale() {
		t.Fatal("fresh token reported stale")
	}
	src.Bump()
	if !tok.Stale() {
		t.Fatal("token should be stale after Bump")
	}
}

func TestTokenFreshAcrossUnrelatedReads(t *testing.T) {
	var src Source
	src.Bump()
	src.Bump()
	tok := src.Token()
	if tok.Generation() != 2 {
		t.Fatalf("expected generation 2, got %d", tok.Generation())
	}
	if tok.Stale() {
		t.Fatal("token taken after bumps should not be stale")
	}
	if src.Current() != 2 {
		t.Fatalf("expected current 2, got %d", src.Current())
	}
}

func TestZeroValueSource(t *testing.T) {
	var src Source
	if src.Current() != 0 {
		t.Fatalf("expected 0, got %d", src.Current())
	}
	tok := src.Token()
	if tok.Generation() != 0 {
		t.Fatalf("expected generation 0, got %d", tok.Generation())
	}
}

func TestZeroTokenNotStale(t *testing.T) {
	var tok Token
	if tok.Stale() {
		t.Fatal("zero-value token (no source) should never report stale")
	}
}
