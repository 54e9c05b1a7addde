package rank

import (
	"testing"

	"github.com/mchmarny/cryptorec/pkg/kb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rowOf(c *Comparison, label string) []string {
	for _, r := range c.Rows {
		if r.Label == label {
			return r.Values
		}
	}
	return nil
}

func TestCompare(t *testing.T) {
	b, err := kb.Default()
	require.NoError(t, err)

	c, err := Compare(b, []string{"AES", "ChaCha20", "AES", " ", "Kyber"})
	require.NoError(t, err)
	assert.Equal(t, []string{"AES", "ChaCha20", "Kyber"}, c.Keys)

	assert.Equal(t, []string{"128 bits", "Stream Cipher", "N/A"}, rowOf(c, "Block Size"))
	assert.Equal(t, []string{"5/5", "5/5", "5/5"}, rowOf(c, "Security Level"))
	assert.Equal(t, []string{"4/5", "5/5", "3/5"}, rowOf(c, "Performance"))
	assert.Equal(t, []string{"No", "No", "Yes"}, rowOf(c, "Quantum Resistant"))
	assert.Equal(t, []string{"128, 192, 256 bits", "256 bits", "512, 768, 1024 bits"}, rowOf(c, "Key Lengths"))
	assert.Equal(t, []string{"2001", "2008", "2017"}, rowOf(c, "Year Introduced"))
	assert.Equal(t, "NIST-PQC", rowOf(c, "Compliance")[2])

	for _, k := range c.Keys {
		assert.LessOrEqual(t, len(c.Strengths[k]), 2)
		assert.LessOrEqual(t, len(c.Weaknesses[k]), 2)
	}
	assert.Len(t, c.Strengths["AES"], 2)
}

func TestCompareSparse(t *testing.T) {
	b := &kb.Base{Algorithms: map[string]*kb.Algorithm{"X": {SecurityLevel: 3.5}}}
	c, err := Compare(b, []string{"X"})
	require.NoError(t, err)
	assert.Equal(t, []string{"N/A"}, rowOf(c, "Name"))
	assert.Equal(t, []string{"3.5/5"}, rowOf(c, "Security Level"))
	assert.Equal(t, []string{"None"}, rowOf(c, "Key Lengths"))
	assert.Equal(t, []string{"None"}, rowOf(c, "Compliance"))
	assert.NotNil(t, c.Strengths["X"])
	assert.Empty(t, c.Strengths["X"])
}

func TestCompareErrors(t *testing.T) {
	b, err := kb.Default()
	require.NoError(t, err)

	_, err = Compare(b, nil)
	assert.Error(t, err)

	_, err = Compare(b, []string{"AES", "RSA", "ECC", "DES", "RC4"})
	assert.ErrorIs(t, err, ErrTooMany)

	_, err = Compare(b, []string{"AES", "Enigma"})
	assert.ErrorIs(t, err, kb.ErrNotFound)
}
