package rank

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/mchmarny/cryptorec/pkg/kb"
	"github.com/mchmarny/cryptorec/pkg/score"
)

const (
	SortNameAsc         = "name-asc"
	SortNameDesc        = "name-desc"
	SortSecurityDesc    = "security-desc"
	SortPerformanceDesc = "performance-desc"

	// TypeAll disables the type filter.
	TypeAll = "all"
)

var (
	// ErrInvalidSort is returned for an unknown sort mode.
	ErrInvalidSort = errors.New("invalid sort")

	// SortModes lists the supported sort modes, the first one is the default.
	SortModes = []string{SortNameAsc, SortNameDesc, SortSecurityDesc, SortPerformanceDesc}
)

// Filter selects and orders algorithms for browsing.
type Filter struct {
	Search string `json:"search,omitempty" yaml:"search,omitempty"`
	Type   string `json:"type,omitempty" yaml:"type,omitempty"`
	Sort   string `json:"sort,omitempty" yaml:"sort,omitempty"`
}

// Entry is an algorithm as listed by Explore.
type Entry struct {
	kb.Algorithm `yaml:",inline"`

	Key        string `json:"key" yaml:"key"`
	Deprecated bool   `json:"deprecated" yaml:"deprecated"`
}

// Explore returns the algorithms of b whose key or name contains the search
// term (case-insensitive) and whose type matches, in the requested order.
func Explore(b *kb.Base, f Filter) ([]*Entry, error) {
	mode := f.Sort
	if mode == "" {
		mode = SortNameAsc
	}
	if !validSort(mode) {
		return nil, fmt.Errorf("%w: %s (supported: %s)", ErrInvalidSort, f.Sort, strings.Join(SortModes, ", "))
	}

	term := strings.ToLower(strings.TrimSpace(f.Search))
	typ := strings.TrimSpace(f.Type)
	if typ == TypeAll {
		typ = ""
	}

	list := make([]*Entry, 0)
	for _, k := range b.AlgorithmKeys() {
		a := b.Algorithms[k]
		if a == nil {
			continue
		}
		if term != "" && !strings.Contains(strings.ToLower(k), term) && !strings.Contains(strings.ToLower(a.Name), term) {
			continue
		}
		if typ != "" && a.Type != typ {
			continue
		}
		list = append(list, &Entry{
			Key:        k,
			Algorithm:  *a,
			Deprecated: a.SecurityLevel < score.SecurityFloor,
		})
	}

	// keys are already ascending, a stable sort keeps them as the tie breaker
	sort.SliceStable(list, func(i, j int) bool {
		switch mode {
		case SortNameDesc:
			return list[i].Key > list[j].Key
		case SortSecurityDesc:
			return list[i].SecurityLevel > list[j].SecurityLevel
		case SortPerformanceDesc:
			return list[i].PerformanceScore > list[j].PerformanceScore
		default:
			return list[i].Key < list[j].Key
		}
	})

	return list, nil
}

// Types returns the distinct algorithm types of b in ascending order.
func Types(b *kb.Base) []string {
	seen := make(map[string]bool)
	list := make([]string, 0)
	for _, k := range b.AlgorithmKeys() {
		a := b.Algorithms[k]
		if a == nil || a.Type == "" || seen[a.Type] {
			continue
		}
		seen[a.Type] = true
		list = append(list, a.Type)
	}
	sort.Strings(list)
	return list
}

func validSort(v string) bool {
	for _, m := range SortModes {
		if m == v {
			return true
		}
	}
	return false
}
