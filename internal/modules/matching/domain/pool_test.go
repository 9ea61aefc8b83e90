package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func Test_SelectCandidates_Bounds_Result_To_Pool_Size(t *testing.T) {
	// Arrange
	sample := make([]uuid.UUID, 0, 40)
	for i := 0; i < 40; i++ {
		sample = append(sample, uuid.New())
	}

	// Act
	selected := SelectCandidates(sample, uuid.New(), nil, 20)

	// Assert
	require.Len(t, selected, 20)
	require.Equal(t, sample[:20], selected)
}

func Test_SelectCandidates_Excludes_Owner_Duplicates_And_Excluded_Users(t *testing.T) {
	// Arrange
	owner := uuid.New()
	partner := uuid.New()
	candidate := uuid.New()

	sample := []uuid.UUID{owner, partner, candidate, candidate, partner}
	excluded := map[uuid.UUID]struct{}{partner: {}}

	// Act
	selected := SelectCandidates(sample, owner, excluded, 20)

	// Assert
	require.Equal(t, []uuid.UUID{candidate}, selected)
}

func Test_SelectCandidates_Returns_Empty_Slice_When_No_Eligible_Candidates(t *testing.T) {
	// Arrange
	owner := uuid.New()

	// Act
	selected := SelectCandidates([]uuid.UUID{owner}, owner, nil, 20)

	// Assert
	require.NotNil(t, selected)
	require.Empty(t, selected)
}

func Test_Pool_Expired_Is_Lazy_On_Timestamp(t *testing.T) {
	// Arrange
	now := time.Now().UTC()
	pool := NewPool(uuid.New(), now, 24*time.Hour)

	// Assert
	require.False(t, pool.Expired(now))
	require.False(t, pool.Expired(now.Add(24*time.Hour-time.Second)))
	require.True(t, pool.Expired(now.Add(24*time.Hour)))
	require.True(t, pool.Expired(now.Add(48*time.Hour)))
}

func Test_CanonicalPair_Is_Order_Independent(t *testing.T) {
	// Arrange
	a := uuid.New()
	b := uuid.New()

	// Act
	lo1, hi1 := CanonicalPair(a, b)
	lo2, hi2 := CanonicalPair(b, a)

	// Assert
	require.Equal(t, lo1, lo2)
	require.Equal(t, hi1, hi2)
	require.NotEqual(t, lo1, hi1)
}
