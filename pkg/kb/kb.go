package kb

import (
	"errors"
	"fmt"
	"slices"
	"sort"
)

const (
	// AlgorithmsFile is the base name of the algorithms document.
	AlgorithmsFile = "algorithms"
	// StandardsFile is the base name of the compliance standards document.
	StandardsFile = "compliance_standards"
	// UseCasesFile is the base name of the use cases document.
	UseCasesFile = "use_cases"

	TypeSymmetric  = "symmetric"
	TypeAsymmetric = "asymmetric"
)

var (
	// ErrNotFound is returned when a knowledge base document or record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalid is returned when a knowledge base document can not be decoded.
	ErrInvalid = errors.New("invalid knowledge base")
)

// Algorithm is the metadata record of a single cryptographic algorithm.
// Only DataTypes, SecurityLevel, PerformanceScore, UseCases and QuantumResistant
// take part in scoring, the rest is descriptive.
type Algorithm struct {
	Name             string   `json:"name,omitempty" yaml:"name,omitempty"`
	Type             string   `json:"type,omitempty" yaml:"type,omitempty"`
	Description      string   `json:"description,omitempty" yaml:"description,omitempty"`
	DataTypes        []string `json:"dataTypes,omitempty" yaml:"dataTypes,omitempty"`
	SecurityLevel    float64  `json:"securityLevel" yaml:"securityLevel"`
	PerformanceScore float64  `json:"performanceScore" yaml:"performanceScore"`
	UseCases         []string `json:"useCases,omitempty" yaml:"useCases,omitempty"`
	QuantumResistant bool     `json:"quantumResistant" yaml:"quantumResistant"`
	KeyLengths       []int    `json:"keyLengths,omitempty" yaml:"keyLengths,omitempty"`
	BlockSize        int      `json:"blockSize,omitempty" yaml:"blockSize,omitempty"`
	YearIntroduced   int      `json:"yearIntroduced,omitempty" yaml:"yearIntroduced,omitempty"`
	Compliance       []string `json:"compliance,omitempty" yaml:"compliance,omitempty"`
	Strengths        []string `json:"strengths,omitempty" yaml:"strengths,omitempty"`
	Weaknesses       []string `json:"weaknesses,omitempty" yaml:"weaknesses,omitempty"`
}

// SupportsDataType reports whether v is a non-empty data type listed by the algorithm.
func (a *Algorithm) SupportsDataType(v string) bool {
	return a != nil && v != "" && slices.Contains(a.DataTypes, v)
}

// SupportsUseCase reports whether v is a non-empty use case listed by the algorithm.
func (a *Algorithm) SupportsUseCase(v string) bool {
	return a != nil && v != "" && slices.Contains(a.UseCases, v)
}

// Standard is a compliance regime listing the algorithms it recommends or prohibits.
type Standard struct {
	Name                  string   `json:"name,omitempty" yaml:"name,omitempty"`
	Description           string   `json:"description,omitempty" yaml:"description,omitempty"`
	RecommendedAlgorithms []string `json:"recommendedAlgorithms,omitempty" yaml:"recommendedAlgorithms,omitempty"`
	ProhibitedAlgorithms  []string `json:"prohibitedAlgorithms,omitempty" yaml:"prohibitedAlgorithms,omitempty"`
}

func (s *Standard) Recommends(key string) bool {
	return s != nil && slices.Contains(s.RecommendedAlgorithms, key)
}

func (s *Standard) Prohibits(key string) bool {
	return s != nil && slices.Contains(s.ProhibitedAlgorithms, key)
}

// UseCase describes a typical scenario a user can pick.
type UseCase struct {
	Name        string   `json:"name,omitempty" yaml:"name,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	DataTypes   []string `json:"dataTypes,omitempty" yaml:"dataTypes,omitempty"`
}

// Base is a loaded knowledge base. It is a snapshot: once returned by a
// loader it is never modified, so it can be shared across goroutines.
type Base struct {
	Algorithms map[string]*Algorithm `json:"algorithms" yaml:"algorithms"`
	Standards  map[string]*Standard  `json:"standards" yaml:"standards"`
	UseCases   map[string]*UseCase   `json:"useCases" yaml:"useCases"`
	Source     string                `json:"source" yaml:"source"`
}

// GetAlgorithm returns the algorithm for key or ErrNotFound.
func (b *Base) GetAlgorithm(key string) (*Algorithm, error) {
	if b == nil {
		return nil, fmt.Errorf("algorithm %q: %w", key, ErrNotFound)
	}
	a, ok := b.Algorithms[key]
	if !ok {
		return nil, fmt.Errorf("algorithm %q: %w", key, ErrNotFound)
	}
	return a, nil
}

// AlgorithmKeys returns the algorithm keys in ascending order.
func (b *Base) AlgorithmKeys() []string {
	if b == nil {
		return []string{}
	}
	return sortedKeys(b.Algorithms)
}

func (b *Base) StandardKeys() []string {
	if b == nil {
		return []string{}
	}
	return sortedKeys(b.Standards)
}

func (b *Base) UseCaseKeys() []string {
	if b == nil {
		return []string{}
	}
	return sortedKeys(b.UseCases)
}

// DataTypes returns every data type referenced by an algorithm or use case.
func (b *Base) DataTypes() []string {
	set := make(map[string]struct{})
	if b != nil {
		for _, a := range b.Algorithms {
			if a == nil {
				continue
			}
			for _, d := range a.DataTypes {
				set[d] = struct{}{}
			}
		}
		for _, u := range b.UseCases {
			if u == nil {
				continue
			}
			for _, d := range u.DataTypes {
				set[d] = struct{}{}
			}
		}
	}
	return sortedKeys(set)
}

func sortedKeys[T any](m map[string]T) []string {
	list := make([]string, 0, len(m))
	for k := range m {
		list = append(list, k)
	}
	sort.Strings(list)
	return list
}
