package contracts

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warranty/internal/warranty"
)

func TestRepository_GetReturnsIndependentSnapshot(t *testing.T) {
	repo := NewRepository()
	c := warranty.MustNewContract(decimal.NewFromInt(100), dishwasher(), standardTerms())
	require.NoError(t, repo.Add(c, 1))

	snapshot, err := repo.Get(c.ID())
	require.NoError(t, err)
	snapshot.SetStatus(warranty.StatusActive)

	stored, err := repo.Get(c.ID())
	require.NoError(t, err)
	assert.Equal(t, warranty.StatusPending, stored.Status())
}

func TestRepository_AddTwiceFails(t *testing.T) {
	repo := NewRepository()
	c := warranty.MustNewContract(decimal.NewFromInt(100), dishwasher(), standardTerms())
	require.NoError(t, repo.Add(c, 1))

	assert.ErrorIs(t, repo.Add(c.Clone(), 1), ErrContractExists)
}

func TestRepository_FailedUpdateLeavesStateUntouched(t *testing.T) {
	repo := NewRepository()
	c := warranty.MustNewContract(decimal.NewFromInt(100), dishwasher(), standardTerms())
	require.NoError(t, repo.Add(c, 1))

	boom := errors.New("boom")
	_, err := repo.Update(c.ID(), func(c *warranty.Contract, version int) (int, error) {
		c.SetStatus(warranty.StatusCancelled)
		return version + 1, boom
	})
	assert.ErrorIs(t, err, boom)

	stored, err := repo.Get(c.ID())
	require.NoError(t, err)
	assert.Equal(t, warranty.StatusPending, stored.Status())

	var seen int
	updated, err := repo.Update(c.ID(), func(c *warranty.Contract, version int) (int, error) {
		seen = version
		c.SetStatus(warranty.StatusActive)
		return version + 1, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, seen)
	assert.Equal(t, warranty.StatusActive, updated.Status())
}

func TestRepository_UnknownID(t *testing.T) {
	repo := NewRepository()
	_, err := repo.Get(uuid.New())
	assert.ErrorIs(t, err, ErrContractNotFound)
}
