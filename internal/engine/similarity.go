package engine

// confusable maps each disease to the conditions it is commonly mistaken
// for in the field. Maintained by plant-pathology review, not learned; the
// table only ever adds context to a decision, it never changes one.
var confusable = map[string][]string{
	"brown_spot":            {"narrow_brown_spot", "leaf_blast"},
	"narrow_brown_spot":     {"brown_spot", "leaf_scald"},
	"leaf_blast":            {"brown_spot", "leaf_scald"},
	"leaf_scald":            {"leaf_blast", "narrow_brown_spot"},
	"bacterial_leaf_blight": {"leaf_scald"},
}

// SimilarTo returns the labels the given category is known to be confused
// with. Unknown labels and the uncertain sentinel yield an empty slice,
// never an error. The returned slice is a copy.
func SimilarTo(label string) []string {
	entries, ok := confusable[label]
	if !ok {
		return []string{}
	}
	out := make([]string, len(entries))
	copy(out, entries)
	return out
}
