package store_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/ledgersync/internal/ledger"
	"github.com/MrJamesThe3rd/ledgersync/internal/ledger/store"
)

func TestAccountCache_SetGet(t *testing.T) {
	c, err := store.NewAccountCache(1000, 100)
	require.NoError(t, err)
	defer c.Close()

	acc := &ledger.Account{ID: 7, Name: "Checking", InitialBalance: 1000}
	c.Set(acc)

	got, ok := c.Get(7)
	require.True(t, ok)
	assert.Equal(t, "Checking", got.Name)

	got.Name = "Mutated"

	again, ok := c.Get(7)
	require.True(t, ok)
	assert.Equal(t, "Checking", again.Name)

	c.Del(7)

	_, ok = c.Get(7)
	assert.False(t, ok)
}

func TestAccountCache_Nil(t *testing.T) {
	var c *store.AccountCache

	c.Set(&ledger.Account{ID: 1})

	_, ok := c.Get(1)
	assert.False(t, ok)
	c.Del(1)
	c.Close()
}
