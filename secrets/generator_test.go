package secrets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertAlphanumeric(t *testing.T, value string) {
	t.Helper()
	for _, c := range value {
		assert.True(t, strings.ContainsRune(alphanumerics, c), "unexpected character %q in %q", c, value)
	}
}

func TestGenerate_ExactLengths(t *testing.T) {
	gen := NewGenerator()

	for _, length := range []int{1, 8, 20, 50, 64, 128, 256} {
		value, err := gen.Generate(length)
		require.NoError(t, err)
		assert.Len(t, value, length)
		assertAlphanumeric(t, value)
	}
}

func TestGenerate_InvalidLength(t *testing.T) {
	gen := NewGenerator()

	_, err := gen.Generate(0)
	assert.ErrorIs(t, err, ErrInvalidLength)

	_, err = gen.Generate(-5)
	assert.ErrorIs(t, err, ErrInvalidLength)
}

func TestGenerate_BeyondMaximum(t *testing.T) {
	gen := NewGenerator()

	_, err := gen.Generate(MaxLength + 1)
	assert.ErrorIs(t, err, ErrInsufficientEntropy)
}

func TestGenerate_Uniqueness(t *testing.T) {
	gen := NewGenerator()

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		value, err := gen.Generate(20)
		require.NoError(t, err)
		assert.False(t, seen[value], "duplicate secret generated")
		seen[value] = true
	}
}

// failingSource always reports insufficient entropy.
type failingSource struct{}

func (s *failingSource) Name() string                    { return "failing" }
func (s *failingSource) Degraded() bool                  { return false }
func (s *failingSource) Read(length int) (string, error) { return "", ErrInsufficientEntropy }

// fixedSource returns a repeating fixed pattern.
type fixedSource struct{ degraded bool }

func (s *fixedSource) Name() string   { return "fixed" }
func (s *fixedSource) Degraded() bool { return s.degraded }

func (s *fixedSource) Read(length int) (string, error) {
	return strings.Repeat("a", length), nil
}

func TestGenerate_FallsThroughFailedSources(t *testing.T) {
	gen := NewGeneratorWithSources(&failingSource{}, &fixedSource{})

	value, err := gen.Generate(10)
	require.NoError(t, err)
	assert.Equal(t, "aaaaaaaaaa", value)
}

func TestGenerate_AllSourcesFail(t *testing.T) {
	gen := NewGeneratorWithSources(&failingSource{}, &failingSource{})

	_, err := gen.Generate(10)
	assert.ErrorIs(t, err, ErrInsufficientEntropy)
}

func TestGenerate_NoSources(t *testing.T) {
	gen := NewGeneratorWithSources()

	_, err := gen.Generate(10)
	assert.ErrorIs(t, err, ErrNoSource)
}

func TestTimestampSource_ProducesUniqueValues(t *testing.T) {
	source := &timestampSource{}

	first, err := source.Read(32)
	require.NoError(t, err)
	second, err := source.Read(32)
	require.NoError(t, err)

	assert.Len(t, first, 32)
	assert.NotEqual(t, first, second)
	assert.True(t, source.Degraded())
}

func TestUsername_Format(t *testing.T) {
	gen := NewGenerator()

	username, err := gen.Username("dbuser")
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(username, "dbuser_"))
	suffix := strings.TrimPrefix(username, "dbuser_")
	assert.Len(t, suffix, UsernameSuffixLength)
	assertAlphanumeric(t, suffix)
}

func TestPasswordAndSecretKeyLengths(t *testing.T) {
	gen := NewGenerator()

	password, err := gen.Password()
	require.NoError(t, err)
	assert.Len(t, password, PasswordLength)

	key, err := gen.SecretKey()
	require.NoError(t, err)
	assert.Len(t, key, SecretKeyLength)
}
