package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/list"

	"github.com/joe/mod-loader/internal/filter"
	"github.com/joe/mod-loader/internal/registry"
	"github.com/joe/mod-loader/internal/tui/shared"
)

// modItem adapts a registry record to the bubbles list.
type modItem struct {
	record registry.ModRecord
}

func (i modItem) Title() string {
	return i.record.DisplayName
}

func (i modItem) Description() string {
	return shared.StatusBadge(i.record.Enabled) + "  " + shared.TypeBadge(string(i.record.Type)) + "  " + i.record.ID
}

// FilterValue is matched by the "/" filter: name, id and every stored file.
func (i modItem) FilterValue() string {
	return strings.Join(append([]string{i.record.DisplayName, i.record.ID}, i.record.Files...), " ")
}

func itemsFor(records []registry.ModRecord) []list.Item {
	items := make([]list.Item, 0, len(records))
	for _, record := range records {
		items = append(items, modItem{record: record})
	}

	return items
}

// filterMods keeps fuzzy matching for plain text and switches to glob matching when the
// term contains glob metacharacters, so "*.pak" or "Scripts/**" work as expected.
func filterMods(term string, targets []string) []list.Rank {
	if !filter.HasMeta(term) {
		return list.DefaultFilter(term, targets)
	}

	glob := filter.NewGlob(term)
	ranks := []list.Rank{}

	for index, target := range targets {
		if glob.Matches(strings.Fields(target)...) {
			ranks = append(ranks, list.Rank{Index: index})
		}
	}

	return ranks
}
