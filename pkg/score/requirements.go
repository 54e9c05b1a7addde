package score

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Requirements are the caller's constraints for one recommendation request.
// A priority of 0 means not set and is read as DefaultPriority.
type Requirements struct {
	DataType            string   `json:"dataType,omitempty" yaml:"dataType,omitempty"`
	SecurityPriority    int      `json:"securityPriority,omitempty" yaml:"securityPriority,omitempty" validate:"omitempty,min=1,max=10"`
	PerformancePriority int      `json:"performancePriority,omitempty" yaml:"performancePriority,omitempty" validate:"omitempty,min=1,max=10"`
	UseCase             string   `json:"useCase,omitempty" yaml:"useCase,omitempty"`
	Compliance          []string `json:"compliance,omitempty" yaml:"compliance,omitempty" validate:"dive,required"`
	QuantumConcern      bool     `json:"quantumConcern,omitempty" yaml:"quantumConcern,omitempty"`
}

// Security returns the effective security priority.
func (r *Requirements) Security() int {
	if r == nil || r.SecurityPriority == 0 {
		return DefaultPriority
	}
	return r.SecurityPriority
}

// Performance returns the effective performance priority.
func (r *Requirements) Performance() int {
	if r == nil || r.PerformancePriority == 0 {
		return DefaultPriority
	}
	return r.PerformancePriority
}

// Validate checks the priorities are within MinPriority and MaxPriority when
// set and that no compliance key is empty. Scoring itself accepts any value.
func (r *Requirements) Validate() error {
	if r == nil {
		return errors.New("requirements required")
	}
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("error validating requirements: %w", err)
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fieldMessage(fe))
		}
		return fmt.Errorf("invalid requirements: %s", strings.Join(msgs, "; "))
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "min", "max":
		return fmt.Sprintf("%s must be between %d and %d, got %v", fe.Field(), MinPriority, MaxPriority, fe.Value())
	case "required":
		return fmt.Sprintf("%s must not be empty", fe.Namespace())
	default:
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
}

// Normalize returns a copy of r with defaults applied and compliance keys
// trimmed. The receiver is not modified.
func (r *Requirements) Normalize() *Requirements {
	n := &Requirements{}
	if r != nil {
		*n = *r
		n.Compliance = nil
		for _, c := range r.Compliance {
			if c = strings.TrimSpace(c); c != "" {
				n.Compliance = append(n.Compliance, c)
			}
		}
	}
	n.DataType = strings.TrimSpace(n.DataType)
	n.UseCase = strings.TrimSpace(n.UseCase)
	n.SecurityPriority = n.Security()
	n.PerformancePriority = n.Performance()
	return n
}
