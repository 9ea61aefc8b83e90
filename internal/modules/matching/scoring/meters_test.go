package scoring

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func Test_MeterProvider_Values_Are_Bounded_And_Labelled(t *testing.T) {
	// Arrange
	provider := NewMeterProvider()

	// Act
	summary, err := provider.Summary(context.Background(), uuid.New(), uuid.New())

	// Assert
	require.NoError(t, err)
	require.Len(t, summary, metersPerSummary)

	for name, meter := range summary {
		require.NotEmpty(t, name)
		require.GreaterOrEqual(t, meter.Value, 0)
		require.LessOrEqual(t, meter.Value, 100)
		require.NotEmpty(t, meter.Label)
	}
}

func Test_MeterProvider_Is_Stable_Within_One_Day(t *testing.T) {
	// Arrange
	provider := NewMeterProvider()
	fixed := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	provider.now = func() time.Time { return fixed }

	userID := uuid.New()
	candidateID := uuid.New()

	// Act
	first, err := provider.Summary(context.Background(), userID, candidateID)
	require.NoError(t, err)

	provider.cache.Flush()

	second, err := provider.Summary(context.Background(), userID, candidateID)
	require.NoError(t, err)

	// Assert
	require.Equal(t, first, second)
}

func Test_MeterProvider_Reshuffles_When_Day_Rolls_Over(t *testing.T) {
	// Arrange
	provider := NewMeterProvider()
	day := time.Date(2026, 3, 14, 23, 0, 0, 0, time.UTC)
	provider.now = func() time.Time { return day }

	userID := uuid.New()
	candidateID := uuid.New()

	first, err := provider.Summary(context.Background(), userID, candidateID)
	require.NoError(t, err)

	// Act
	provider.now = func() time.Time { return day.Add(2 * time.Hour) }
	second, err := provider.Summary(context.Background(), userID, candidateID)
	require.NoError(t, err)

	// Assert
	require.NotEqual(t, first, second)
}
