package naming

import (
	"fmt"
	"strings"
)

// Disambiguator assigns unique display names to catalog items within a
// single run. Duplicate titles are common in media libraries (remakes,
// re-releases, multi-edition discs), so names are made unique with release
// years where available and numeric suffixes otherwise. Call Assign once per
// item in catalog order; the result is deterministic for a fixed ordering.
type Disambiguator struct {
	// years records, per base title, the years seen so far. A zero entry
	// stands for an item with no known year.
	years map[string][]int
	// used counts how many times each final name has been handed out, shared
	// across kinds so a movie and a series with the same title stay distinct.
	used map[string]int
}

func NewDisambiguator() *Disambiguator {
	return &Disambiguator{
		years: make(map[string][]int),
		used:  make(map[string]int),
	}
}

// Assign returns a unique name for the item. Movies always carry their year
// in parentheses when one is known; colliding movie names get a numeric
// suffix on top. Other kinds keep the bare title until a collision forces
// either a year suffix (when a new year can tell the two apart) or a numeric
// one.
func (d *Disambiguator) Assign(title, kind string, year int) string {
	name := title
	if strings.EqualFold(kind, "Movie") {
		if year > 0 {
			name = fmt.Sprintf("%s (%d)", title, year)
		}
	} else {
		recorded, seen := d.years[title]
		switch {
		case !seen:
			d.years[title] = []int{year}
		case year > 0 && !containsYear(recorded, year):
			d.years[title] = append(recorded, year)
			name = fmt.Sprintf("%s (%d)", title, year)
		default:
			d.years[title] = append(recorded, year)
			name = fmt.Sprintf("%s %d", title, len(recorded)+1)
		}
	}

	// The collision record is shared across kinds: a movie and a series with
	// the same bare title must still come out distinct.
	n := d.used[name]
	d.used[name] = n + 1
	if n > 0 {
		name = fmt.Sprintf("%s %d", name, n+1)
		d.used[name]++
	}
	return name
}

func containsYear(years []int, year int) bool {
	for _, y := range years {
		if y == year {
			return true
		}
	}
	return false
}

// SanitizeFolder makes a display name safe as a directory name inside an
// archive. Path separators and characters reserved on common filesystems
// become underscores; an empty result falls back to a fixed name so the
// entry still gets a folder.
func SanitizeFolder(name string) string {
	sanitized := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		if r < 0x20 {
			return '_'
		}
		return r
	}, name)

	sanitized = strings.Trim(sanitized, " .")
	if sanitized == "" {
		return "item"
	}
	return sanitized
}
