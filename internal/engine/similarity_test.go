package engine

import "testing"

func TestSimilarToKnownPair(t *testing.T) {
	got := SimilarTo("brown_spot")
	if len(got) != 2 || got[0] != "narrow_brown_spot" || got[1] != "leaf_blast" {
		t.Fatalf("unexpected confusables for brown_spot: %v", got)
	}

	// The table is deliberately directional: narrow_brown_spot lists
	// brown_spot back, but healthy lists nothing.
	back := SimilarTo("narrow_brown_spot")
	if len(back) == 0 || back[0] != "brown_spot" {
		t.Fatalf("unexpected confusables for narrow_brown_spot: %v", back)
	}
}

func TestSimilarToUnknownAndSentinel(t *testing.T) {
	for _, label := range []string{"healthy", Uncertain, "not_a_disease", ""} {
		got := SimilarTo(label)
		if got == nil {
			t.Fatalf("expected empty slice for %q, got nil", label)
		}
		if len(got) != 0 {
			t.Fatalf("expected no confusables for %q, got %v", label, got)
		}
	}
}

func TestSimilarToReturnsCopy(t *testing.T) {
	got := SimilarTo("leaf_blast")
	got[0] = "mutated"
	if again := SimilarTo("leaf_blast"); again[0] == "mutated" {
		t.Fatal("SimilarTo leaked the internal slice")
	}
}

func TestSimilarityEntriesAreValidCategories(t *testing.T) {
	valid := make(map[string]bool)
	for _, c := range categories {
		valid[c] = true
	}
	for label, entries := range confusable {
		if !valid[label] {
			t.Fatalf("confusable key %q is not a category", label)
		}
		for _, e := range entries {
			if !valid[e] {
				t.Fatalf("confusable entry %q under %q is not a category", e, label)
			}
			if e == label {
				t.Fatalf("category %q lists itself as confusable", label)
			}
		}
	}
}
