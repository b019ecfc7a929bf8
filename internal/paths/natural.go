package paths

import (
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Collators keep internal buffers and are not safe for concurrent use.
var collators = sync.Pool{
	New: func() any {
		return collate.New(language.Und, collate.IgnoreCase, collate.Numeric)
	},
}

func compareWith(c *collate.Collator, a, b string) int {
	if r := c.CompareString(a, b); r != 0 {
		return r
	}
	// Keep the order total for names that differ only in case.
	return strings.Compare(a, b)
}

// Compare orders a and b case-insensitively with embedded numbers compared by
// value, so "page2" sorts before "page10".
func Compare(a, b string) int {
	c := collators.Get().(*collate.Collator)
	defer collators.Put(c)
	return compareWith(c, a, b)
}

// CompareFolders is Compare with Root forced to the front.
func CompareFolders(a, b string) int {
	switch {
	case a == b:
		return 0
	case a == Root:
		return -1
	case b == Root:
		return 1
	}
	return Compare(a, b)
}

// Sort sorts entries in natural order in place.
func Sort(entries []string) {
	c := collators.Get().(*collate.Collator)
	defer collators.Put(c)
	sort.SliceStable(entries, func(i, j int) bool {
		return compareWith(c, entries[i], entries[j]) < 0
	})
}

// SortFolders sorts folder entries in natural order with Root first.
func SortFolders(folders []string) {
	c := collators.Get().(*collate.Collator)
	defer collators.Put(c)
	sort.SliceStable(folders, func(i, j int) bool {
		a, b := folders[i], folders[j]
		if a == Root || b == Root {
			return a == Root && b != Root
		}
		return compareWith(c, a, b) < 0
	})
}
