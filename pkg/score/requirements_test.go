package score

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequirementsValidate(t *testing.T) {
	tests := []struct {
		name string
		req  *Requirements
		err  bool
	}{
		{name: "nil", req: nil, err: true},
		{name: "empty", req: &Requirements{}},
		{name: "bounds", req: &Requirements{SecurityPriority: 1, PerformancePriority: 10}},
		{name: "security high", req: &Requirements{SecurityPriority: 11}, err: true},
		{name: "performance negative", req: &Requirements{PerformancePriority: -1}, err: true},
		{name: "compliance", req: &Requirements{Compliance: []string{"PCI", "GDPR"}}},
		{name: "compliance empty key", req: &Requirements{Compliance: []string{"PCI", ""}}, err: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.err {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestRequirementsValidateMessage(t *testing.T) {
	err := (&Requirements{SecurityPriority: 12}).Validate()
	assert.ErrorContains(t, err, "SecurityPriority must be between 1 and 10, got 12")
}

func TestRequirementsDefaults(t *testing.T) {
	var r *Requirements
	assert.Equal(t, DefaultPriority, r.Security())
	assert.Equal(t, DefaultPriority, r.Performance())

	r = &Requirements{SecurityPriority: 9}
	assert.Equal(t, 9, r.Security())
	assert.Equal(t, DefaultPriority, r.Performance())
}

func TestRequirementsNormalize(t *testing.T) {
	in := &Requirements{
		DataType:   " file ",
		Compliance: []string{" PCI", "", "GDPR"},
	}
	n := in.Normalize()
	assert.Equal(t, "file", n.DataType)
	assert.Equal(t, []string{"PCI", "GDPR"}, n.Compliance)
	assert.Equal(t, DefaultPriority, n.SecurityPriority)
	assert.Equal(t, DefaultPriority, n.PerformancePriority)

	// receiver untouched
	assert.Equal(t, " file ", in.DataType)
	assert.Equal(t, []string{" PCI", "", "GDPR"}, in.Compliance)
	assert.Zero(t, in.SecurityPriority)

	assert.NotNil(t, (*Requirements)(nil).Normalize())
}
