package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEmail(t *testing.T) {
	got, err := NormalizeEmail("  Director@Academy.COM ")
	require.NoError(t, err)
	assert.Equal(t, "director@academy.com", got)

	for _, bad := range []string{"", "no-at-sign", "@nodomain.com", "two@@ats.com", "user@nodot", "user@.leading.dot", "user@trailing.dot."} {
		_, err := NormalizeEmail(bad)
		assert.Error(t, err, "expected error for %q", bad)
	}
}

func TestNormalizePhone(t *testing.T) {
	cases := map[string]string{
		"010-1234-5678":    "01012345678",
		"01012345678":      "01012345678",
		"+82 10 1234 5678": "+821012345678",
		"(02) 555-0199":    "025550199",
	}
	for raw, want := range cases {
		got, err := NormalizePhone(raw)
		require.NoError(t, err, "raw %q", raw)
		assert.Equal(t, want, got)
	}

	for _, bad := range []string{"", "123", "call me", "010-1234-567a", "1+2345678"} {
		_, err := NormalizePhone(bad)
		assert.Error(t, err, "expected error for %q", bad)
	}
}

func TestCredentialTags(t *testing.T) {
	c, err := EmailCredential("Student@Example.com")
	require.NoError(t, err)
	assert.Equal(t, KindEmail, c.Kind)
	assert.Equal(t, "student@example.com", c.Value)

	p, err := PhoneCredential("010-9999-0001")
	require.NoError(t, err)
	assert.Equal(t, KindPhone, p.Kind)
	assert.Equal(t, "01099990001", p.Value)
}
