package registry

import (
	"path"
	"sort"
	"strings"
)

// Exported constants.
const (
	DuplicateName DuplicateKind = "name"
	DuplicateFile DuplicateKind = "file"
)

// DuplicateKind says what two records have in common.
type DuplicateKind string

// DuplicatePair is two records that share a display name or a file name. First < Second.
type DuplicatePair struct {
	Kind   DuplicateKind
	First  string
	Second string
	// Shared is the lower-cased name or file base name they collide on.
	Shared string
}

// FindDuplicates reports name and file collisions between records. Each id pair appears
// at most once per kind (with the lexically first shared value), sorted by kind, shared
// value, then ids.
func (s *Store) FindDuplicates() []DuplicatePair {
	records := s.All()

	byName := map[string][]string{}
	byFile := map[string][]string{}

	for _, record := range records {
		name := strings.ToLower(strings.TrimSpace(record.DisplayName))
		if name != "" {
			byName[name] = append(byName[name], record.ID)
		}

		seen := map[string]bool{}

		for _, file := range record.Files {
			base := strings.ToLower(path.Base(file))
			if seen[base] {
				continue
			}

			seen[base] = true
			byFile[base] = append(byFile[base], record.ID)
		}
	}

	type pairKey struct {
		kind          DuplicateKind
		first, second string
	}

	pairs := make(map[pairKey]string)

	collect := func(kind DuplicateKind, groups map[string][]string) {
		for shared, ids := range groups {
			for i := range ids {
				for j := i + 1; j < len(ids); j++ {
					first, second := ids[i], ids[j]
					if first > second {
						first, second = second, first
					}

					key := pairKey{kind: kind, first: first, second: second}
					if existing, ok := pairs[key]; !ok || shared < existing {
						pairs[key] = shared
					}
				}
			}
		}
	}

	collect(DuplicateName, byName)
	collect(DuplicateFile, byFile)

	result := make([]DuplicatePair, 0, len(pairs))
	for key, shared := range pairs {
		result = append(result, DuplicatePair{Kind: key.kind, First: key.first, Second: key.second, Shared: shared})
	}

	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.Kind != b.Kind {
			return a.Kind > b.Kind // name before file
		}

		if a.Shared != b.Shared {
			return a.Shared < b.Shared
		}

		if a.First != b.First {
			return a.First < b.First
		}

		return a.Second < b.Second
	})

	return result
}
