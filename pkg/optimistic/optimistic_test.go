package optimistic

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdate_CommitSuccessKeepsNewValue(t *testing.T) {
	value := 1

	err := Update(context.Background(), &value, 2, func(ctx context.Context) error {
		// The field is already mutated when commit runs.
		assert.Equal(t, 2, value)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, value)
}

func TestUpdate_CommitFailureRestoresSnapshot(t *testing.T) {
	value := 1
	commitErr := errors.New("store down")

	err := Update(context.Background(), &value, 2, func(ctx context.Context) error {
		return commitErr
	})

	assert.ErrorIs(t, err, commitErr)
	assert.Equal(t, 1, value)
}

func TestUpdate_WorksWithPointerFields(t *testing.T) {
	var field *bool
	next := true

	err := Update(context.Background(), &field, &next, func(ctx context.Context) error {
		return errors.New("rejected")
	})

	assert.Error(t, err)
	assert.Nil(t, field)
}

func TestMutate_DerivesFromCurrentValue(t *testing.T) {
	value := 10

	err := Mutate(context.Background(), &value, func(v int) int { return v * 2 }, func(ctx context.Context) error {
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 20, value)
}

func TestToggle_FlipsAndRollsBack(t *testing.T) {
	flag := false

	require.NoError(t, Toggle(context.Background(), &flag, func(ctx context.Context) error { return nil }))
	assert.True(t, flag)

	assert.Error(t, Toggle(context.Background(), &flag, func(ctx context.Context) error {
		return errors.New("rejected")
	}))
	assert.True(t, flag)
}
