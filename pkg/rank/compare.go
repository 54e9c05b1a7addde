package rank

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mchmarny/cryptorec/pkg/kb"
)

const (
	// MaxCompare is the most algorithms Compare accepts.
	MaxCompare = 4

	highlights = 2
	none       = "None"
	na         = "N/A"
)

// ErrTooMany is returned when more than MaxCompare algorithms are compared.
var ErrTooMany = fmt.Errorf("at most %d algorithms can be compared", MaxCompare)

// Row is one property across the compared algorithms, values in key order.
type Row struct {
	Label  string   `json:"label" yaml:"label"`
	Values []string `json:"values" yaml:"values"`
}

// Comparison lays algorithms side by side.
type Comparison struct {
	Keys       []string            `json:"keys" yaml:"keys"`
	Rows       []*Row              `json:"rows" yaml:"rows"`
	Strengths  map[string][]string `json:"strengths" yaml:"strengths"`
	Weaknesses map[string][]string `json:"weaknesses" yaml:"weaknesses"`
}

// Compare builds the comparison of up to MaxCompare distinct algorithms.
// Duplicate and blank keys are ignored; unknown keys are an error.
func Compare(b *kb.Base, keys []string) (*Comparison, error) {
	list := make([]string, 0, len(keys))
	seen := make(map[string]bool)
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		list = append(list, k)
	}
	if len(list) == 0 {
		return nil, errors.New("at least one algorithm required")
	}
	if len(list) > MaxCompare {
		return nil, ErrTooMany
	}

	algos := make([]*kb.Algorithm, len(list))
	for i, k := range list {
		a, err := b.GetAlgorithm(k)
		if err != nil {
			return nil, err
		}
		if a == nil {
			a = &kb.Algorithm{}
		}
		algos[i] = a
	}

	c := &Comparison{
		Keys:       list,
		Rows:       make([]*Row, 0),
		Strengths:  make(map[string][]string, len(list)),
		Weaknesses: make(map[string][]string, len(list)),
	}

	row := func(label string, fn func(*kb.Algorithm) string) {
		r := &Row{Label: label, Values: make([]string, len(algos))}
		for i, a := range algos {
			r.Values[i] = fn(a)
		}
		c.Rows = append(c.Rows, r)
	}

	row("Name", func(a *kb.Algorithm) string { return orNA(a.Name) })
	row("Type", func(a *kb.Algorithm) string { return orNA(a.Type) })
	row("Security Level", func(a *kb.Algorithm) string { return level(a.SecurityLevel) })
	row("Performance", func(a *kb.Algorithm) string { return level(a.PerformanceScore) })
	row("Key Lengths", func(a *kb.Algorithm) string { return ints(a.KeyLengths, " bits") })
	row("Block Size", blockSize)
	row("Year Introduced", func(a *kb.Algorithm) string {
		if a.YearIntroduced == 0 {
			return na
		}
		return strconv.Itoa(a.YearIntroduced)
	})
	row("Quantum Resistant", func(a *kb.Algorithm) string { return yesNo(a.QuantumResistant) })
	row("Compliance", func(a *kb.Algorithm) string { return strs(a.Compliance) })

	for i, k := range list {
		c.Strengths[k] = first(algos[i].Strengths, highlights)
		c.Weaknesses[k] = first(algos[i].Weaknesses, highlights)
	}

	return c, nil
}

func blockSize(a *kb.Algorithm) string {
	if a.BlockSize > 0 {
		return fmt.Sprintf("%d bits", a.BlockSize)
	}
	if a.Type == kb.TypeSymmetric {
		return "Stream Cipher"
	}
	return na
}

func level(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "/" + strconv.Itoa(kb.MaxLevel)
}

func ints(v []int, unit string) string {
	if len(v) == 0 {
		return none
	}
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ", ") + unit
}

func strs(v []string) string {
	if len(v) == 0 {
		return none
	}
	return strings.Join(v, ", ")
}

func orNA(v string) string {
	if v == "" {
		return na
	}
	return v
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

func first(v []string, n int) []string {
	if len(v) > n {
		return v[:n]
	}
	if v == nil {
		return []string{}
	}
	return v
}
