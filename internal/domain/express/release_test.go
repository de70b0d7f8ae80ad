package express

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestOutcomeString verifies user facing messages for every outcome.
func TestOutcomeString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "Platform9 Express initialization complete", OutcomeInstalled.String())
	require.Equal(t, "Platform9 Express already initialized", OutcomeAlreadyInitialized.String())
	require.Equal(t, "Platform9 Express upgrade complete", OutcomeUpgraded.String())
	require.Equal(t, "Platform9 Express is already the latest version", OutcomeAlreadyLatest.String())
	require.Equal(t, "unknown", Outcome(42).String())

	require.True(t, OutcomeInstalled.Changed())
	require.True(t, OutcomeUpgraded.Changed())
	require.False(t, OutcomeAlreadyLatest.Changed())
	require.False(t, OutcomeAlreadyInitialized.Changed())
}

// TestErrorKindsWrap checks the kinds survive wrapping and stay distinct.
func TestErrorKindsWrap(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("rename express: %w", ErrFilesystem)
	require.ErrorIs(t, err, ErrFilesystem)
	require.False(t, errors.Is(err, ErrArchive))
}
