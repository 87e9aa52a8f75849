// Package tiles holds the detector's class catalogue.
package tiles

// names is indexed by the class id the detection weights were trained with.
// Order must not change without retraining.
var names = [...]string{
	"animal-cat", "animal-centipede", "animal-mouse", "animal-rooster",
	"bamboo-1", "bamboo-2", "bamboo-3", "bamboo-4", "bamboo-5", "bamboo-6",
	"bamboo-7", "bamboo-8", "bamboo-9",
	"bonus-autumn", "bonus-bamboo", "bonus-chrysanthemum", "bonus-orchid",
	"bonus-plum", "bonus-spring", "bonus-summer", "bonus-winter",
	"characters-1", "characters-2", "characters-3", "characters-4", "characters-5",
	"characters-6", "characters-7", "characters-8", "characters-9",
	"dots-1", "dots-2", "dots-3", "dots-4", "dots-5", "dots-6", "dots-7", "dots-8", "dots-9",
	"honors-east", "honors-green", "honors-north", "honors-red", "honors-south", "honors-west", "honors-white",
}

// Hand is the ordered list of tile names detected in one photo.
// Duplicates are kept.
type Hand []string

// Empty reports whether nothing was detected.
func (h Hand) Empty() bool { return len(h) == 0 }

// Count is the number of known classes.
func Count() int { return len(names) }

// Name returns the tile name for class id, or false when id is out of range.
func Name(id int) (string, bool) {
	if id < 0 || id >= len(names) {
		return "", false
	}
	return names[id], true
}

// Names returns a copy of the catalogue in class-id order.
func Names() []string {
	out := make([]string, len(names))
	copy(out, names[:])
	return out
}
