package score

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/mchmarny/cryptorec/pkg/kb"
)

const (
	// Fallback is the reason given when no rule produced one.
	Fallback = "It provides a solid balance of features based on your input."

	highPriority = 8
	lowPriority  = 4
	highLevel    = 4.5
	lowLevel     = 3.5
)

// Explain describes in one sentence why algo fits req. Levels are on the
// 0-5 scale while priorities are 1-10, so a priority is halved before the two
// are compared.
func Explain(algo *kb.Algorithm, req *Requirements, r *Result) string {
	if algo == nil {
		return Fallback
	}
	n := req.Normalize()

	reasons := make([]string, 0)

	if algo.SupportsDataType(n.DataType) {
		reasons = append(reasons, fmt.Sprintf("supports %s data encryption", n.DataType))
	}

	switch {
	case n.SecurityPriority >= highPriority && algo.SecurityLevel >= highLevel:
		reasons = append(reasons, "provides high security suitable for sensitive data")
	case n.SecurityPriority <= lowPriority && algo.SecurityLevel <= lowLevel:
		reasons = append(reasons, "matches your lower security requirement")
	case near(n.SecurityPriority, algo.SecurityLevel):
		reasons = append(reasons, "offers an appropriate security level")
	}

	switch {
	case n.PerformancePriority >= highPriority && algo.PerformanceScore >= highLevel:
		reasons = append(reasons, "offers excellent performance for high-throughput applications")
	case n.PerformancePriority <= lowPriority && algo.PerformanceScore <= lowLevel:
		reasons = append(reasons, "fits your less demanding performance needs")
	case near(n.PerformancePriority, algo.PerformanceScore):
		reasons = append(reasons, "provides suitable performance")
	}

	if algo.SupportsUseCase(n.UseCase) {
		reasons = append(reasons, "is well-suited for "+strings.ReplaceAll(n.UseCase, "-", " "))
	}

	listed := make([]string, 0)
	for _, c := range n.Compliance {
		if slices.Contains(algo.Compliance, c) || (r != nil && slices.Contains(r.RecommendedBy, c)) {
			if !slices.Contains(listed, c) {
				listed = append(listed, c)
			}
		}
	}
	if len(listed) > 0 {
		reasons = append(reasons, "is compliant with "+strings.Join(listed, ", "))
	}

	if r != nil && r.QuantumPenalty {
		reasons = append(reasons, "is not quantum resistant, so its score was halved")
	}

	if len(reasons) == 0 {
		return Fallback
	}

	return "This algorithm " + join(reasons) + "."
}

func near(priority int, level float64) bool {
	return math.Abs(float64(priority)/2-level) <= 1
}

func join(list []string) string {
	switch len(list) {
	case 1:
		return list[0]
	case 2:
		return list[0] + " and " + list[1]
	default:
		return strings.Join(list[:len(list)-1], ", ") + ", and " + list[len(list)-1]
	}
}
