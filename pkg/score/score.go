package score

import (
	"log/slog"
	"math"

	"github.com/mchmarny/cryptorec/pkg/kb"
)

const (
	// DefaultPriority is used for a security or performance priority that is not set.
	DefaultPriority = 5
	MinPriority     = 1
	MaxPriority     = 10

	// SecurityFloor is the lowest security level that can score above 0.
	SecurityFloor = 3

	dataTypeBonus   = 20.0
	useCaseBonus    = 15.0
	complianceBonus = 10.0
	weightFactor    = 4.0
	priorityScale   = 5.0
	quantumPenalty  = 0.5
)

// Result is the trace of a single scoring call.
type Result struct {
	Algorithm      string   `json:"algorithm" yaml:"algorithm"`
	Score          int      `json:"score" yaml:"score"`
	Raw            float64  `json:"raw" yaml:"raw"`
	DataType       float64  `json:"dataType" yaml:"dataType"`
	Security       float64  `json:"security" yaml:"security"`
	Performance    float64  `json:"performance" yaml:"performance"`
	UseCase        float64  `json:"useCase" yaml:"useCase"`
	Compliance     float64  `json:"compliance" yaml:"compliance"`
	RecommendedBy  []string `json:"recommendedBy,omitempty" yaml:"recommendedBy,omitempty"`
	ProhibitedBy   string   `json:"prohibitedBy,omitempty" yaml:"prohibitedBy,omitempty"`
	BelowFloor     bool     `json:"belowFloor,omitempty" yaml:"belowFloor,omitempty"`
	QuantumPenalty bool     `json:"quantumPenalty,omitempty" yaml:"quantumPenalty,omitempty"`
}

// Vetoed reports whether the score was forced to 0 by a prohibition or the security floor.
func (r *Result) Vetoed() bool {
	return r != nil && (r.ProhibitedBy != "" || r.BelowFloor)
}

// Score returns the rounded, non-negative score of algo under req.
func Score(key string, algo *kb.Algorithm, req *Requirements, standards map[string]*kb.Standard) int {
	return Evaluate(key, algo, req, standards).Score
}

// Evaluate applies the scoring rules in order and records each contribution.
// It never fails: nil inputs are treated as their zero values and absent
// standards are skipped.
func Evaluate(key string, algo *kb.Algorithm, req *Requirements, standards map[string]*kb.Standard) *Result {
	if algo == nil {
		algo = &kb.Algorithm{}
	}
	if req == nil {
		req = &Requirements{}
	}

	r := &Result{Algorithm: key}
	log := slog.With("algorithm", key)

	// summed in rule order
	total := 0.0

	if algo.SupportsDataType(req.DataType) {
		r.DataType = dataTypeBonus
		total += r.DataType
		log.Debug("data type match", "data_type", req.DataType, "points", r.DataType)
	}

	r.Security = algo.SecurityLevel * (float64(req.Security()) / priorityScale) * weightFactor
	total += r.Security
	r.Performance = algo.PerformanceScore * (float64(req.Performance()) / priorityScale) * weightFactor
	total += r.Performance
	log.Debug("weighted", "security", r.Security, "performance", r.Performance)

	if algo.SupportsUseCase(req.UseCase) {
		r.UseCase = useCaseBonus
		total += r.UseCase
		log.Debug("use case match", "use_case", req.UseCase, "points", r.UseCase)
	}

	for _, c := range req.Compliance {
		s, ok := standards[c]
		if !ok || s == nil {
			continue
		}
		if s.Recommends(key) {
			r.Compliance += complianceBonus
			total += complianceBonus
			r.RecommendedBy = append(r.RecommendedBy, c)
			log.Debug("recommended", "standard", c, "points", complianceBonus)
		}
		if s.Prohibits(key) {
			r.ProhibitedBy = c
			log.Debug("prohibited", "standard", c)
			return r
		}
	}

	if algo.SecurityLevel < SecurityFloor {
		r.BelowFloor = true
		log.Debug("below security floor", "level", algo.SecurityLevel, "floor", SecurityFloor)
		return r
	}

	if req.QuantumConcern && !algo.QuantumResistant {
		r.QuantumPenalty = true
		total *= quantumPenalty
		log.Debug("quantum penalty", "factor", quantumPenalty)
	}

	r.Raw = total
	r.Score = int(math.Max(0, math.RoundToEven(total)))
	log.Debug("scored", "raw", r.Raw, "score", r.Score)

	return r
}
