package store

import (
	"fmt"

	"github.com/dgraph-io/ristretto"

	"github.com/MrJamesThe3rd/ledgersync/internal/ledger"
)

// AccountCache keeps recently read accounts in memory. A nil *AccountCache is a valid, disabled cache.
type AccountCache struct {
	cache *ristretto.Cache
}

func NewAccountCache(numCounters, maxCost int64) (*AccountCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: numCounters,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("creating account cache: %w", err)
	}

	return &AccountCache{cache: c}, nil
}

func (c *AccountCache) Get(id int64) (*ledger.Account, bool) {
	if c == nil {
		return nil, false
	}

	v, ok := c.cache.Get(id)
	if !ok {
		return nil, false
	}

	acc, ok := v.(ledger.Account)
	if !ok {
		return nil, false
	}

	return &acc, true
}

// Set stores a copy so callers mutating the returned account never corrupt the cache.
func (c *AccountCache) Set(acc *ledger.Account) {
	if c == nil || acc == nil {
		return
	}

	c.cache.Set(acc.ID, *acc, 1)
	c.cache.Wait()
}

func (c *AccountCache) Del(id int64) {
	if c == nil {
		return
	}

	c.cache.Del(id)
}

func (c *AccountCache) Close() {
	if c == nil {
		return
	}

	c.cache.Close()
}
