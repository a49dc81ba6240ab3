package console

import (
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/sine-io/stremio-addons/internal/stremio"
)

// SortAddons returns a copy of addons ordered by lower-cased manifest name
// using the collation rules of tag. The sort is stable, so equal names keep
// their relative order and sorting a sorted list is a no-op.
func SortAddons(addons []stremio.Descriptor, tag language.Tag) []stremio.Descriptor {
	sorted := slices.Clone(addons)
	if len(sorted) < 2 {
		return sorted
	}

	// A Collator keeps internal buffers and must not be shared across goroutines.
	col := collate.New(tag)
	keys := make(map[string]string, len(sorted))
	key := func(name string) string {
		k, ok := keys[name]
		if !ok {
			k = strings.ToLower(name)
			keys[name] = k
		}
		return k
	}

	slices.SortStableFunc(sorted, func(a, b stremio.Descriptor) int {
		return col.CompareString(key(a.Manifest.Name), key(b.Manifest.Name))
	})
	return sorted
}

func addonNames(addons []stremio.Descriptor) []string {
	names := make([]string, 0, len(addons))
	for _, a := range addons {
		names = append(names, a.Manifest.Name)
	}
	return names
}
