package engine

// Uncertain is the sentinel label reported when the decision policy rejects
// the top prediction. It is never part of the category set itself.
const Uncertain = "uncertain"

// categories is the fixed, ordered list of rice leaf conditions the
// classifier was trained on. The order matches the model's output vector and
// must never change without retraining.
var categories = []string{
	"bacterial_leaf_blight",
	"brown_spot",
	"healthy",
	"leaf_blast",
	"leaf_scald",
	"narrow_brown_spot",
}

// Categories returns a copy of the ordered category list.
func Categories() []string {
	out := make([]string, len(categories))
	copy(out, categories)
	return out
}

// NumCategories returns the size of the category set.
func NumCategories() int {
	return len(categories)
}
