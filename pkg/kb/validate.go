package kb

import (
	"fmt"
	"slices"
	"sort"
)

const (
	// MinLevel and MaxLevel bound SecurityLevel and PerformanceScore.
	MinLevel = 0
	MaxLevel = 5

	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Issue is a single knowledge base consistency finding.
type Issue struct {
	Severity string `json:"severity" yaml:"severity"`
	Path     string `json:"path" yaml:"path"`
	Message  string `json:"message" yaml:"message"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any of the issues is an error.
func HasErrors(list []Issue) bool {
	for _, i := range list {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate checks the cross references and value ranges of b. Scoring never
// depends on it: out of range values are warnings, not rejections. The only
// errors are an empty algorithm set and nil records.
func Validate(b *Base) []Issue {
	list := make([]Issue, 0)
	add := func(sev, p, format string, args ...any) {
		list = append(list, Issue{Severity: sev, Path: p, Message: fmt.Sprintf(format, args...)})
	}

	if b == nil || len(b.Algorithms) == 0 {
		add(SeverityError, AlgorithmsFile, "no algorithms defined")
		return list
	}

	for _, key := range b.AlgorithmKeys() {
		a := b.Algorithms[key]
		p := AlgorithmsFile + "." + key
		if a == nil {
			add(SeverityError, p, "empty record")
			continue
		}
		if a.SecurityLevel < MinLevel || a.SecurityLevel > MaxLevel {
			add(SeverityWarning, p+".securityLevel", "%v outside of %d-%d", a.SecurityLevel, MinLevel, MaxLevel)
		}
		if a.PerformanceScore < MinLevel || a.PerformanceScore > MaxLevel {
			add(SeverityWarning, p+".performanceScore", "%v outside of %d-%d", a.PerformanceScore, MinLevel, MaxLevel)
		}
		for _, c := range a.Compliance {
			if _, ok := b.Standards[c]; !ok {
				add(SeverityWarning, p+".compliance", "unknown standard %q", c)
			}
		}
		if len(b.UseCases) > 0 {
			for _, u := range a.UseCases {
				if _, ok := b.UseCases[u]; !ok {
					add(SeverityWarning, p+".useCases", "unknown use case %q", u)
				}
			}
		}
	}

	for _, key := range b.StandardKeys() {
		s := b.Standards[key]
		p := StandardsFile + "." + key
		if s == nil {
			add(SeverityError, p, "empty record")
			continue
		}
		for _, k := range s.RecommendedAlgorithms {
			if _, ok := b.Algorithms[k]; !ok {
				add(SeverityWarning, p+".recommendedAlgorithms", "unknown algorithm %q", k)
			}
			if slices.Contains(s.ProhibitedAlgorithms, k) {
				add(SeverityWarning, p, "algorithm %q is both recommended and prohibited", k)
			}
		}
		for _, k := range s.ProhibitedAlgorithms {
			if _, ok := b.Algorithms[k]; !ok {
				add(SeverityWarning, p+".prohibitedAlgorithms", "unknown algorithm %q", k)
			}
		}
	}

	for _, key := range b.UseCaseKeys() {
		if b.UseCases[key] == nil {
			add(SeverityError, UseCasesFile+"."+key, "empty record")
		}
	}

	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Severity != list[j].Severity {
			return list[i].Severity == SeverityError
		}
		return list[i].Path < list[j].Path
	})

	return list
}
