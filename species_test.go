package rebop

import "testing"

func TestSpeciesRegistryAppendOnly(t *testing.T) {
	r := newSpeciesRegistry()
	a := r.getOrCreate("A")
	b := r.getOrCreate("B")
	aAgain := r.getOrCreate("A")
	if a != aAgain {
		t.Fatalf("re-registering A changed its index: %d != %d", a, aAgain)
	}
	if a == b {
		t.Fatal("distinct species got the same index")
	}
	if r.len() != 2 {
		t.Fatalf("expected 2 species, got %d", r.len())
	}
	if idx, ok := r.lookup("B"); !ok || idx != b {
		t.Fatalf("lookup(B) = %d, %v; want %d, true", idx, ok, b)
	}
	if _, ok := r.lookup("C"); ok {
		t.Fatal("lookup(C) should not exist")
	}
}
