package service

import "sync"

// CartLocks hands out one mutex per cart owner. Checkout try-locks so a
// second concurrent checkout fails fast with ErrCheckoutInProgress; cart
// mutations block-lock so they serialize behind an in-flight checkout
// instead of changing the cart mid-saga.
type CartLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewCartLocks() *CartLocks {
	return &CartLocks{locks: make(map[string]*sync.Mutex)}
}

func (c *CartLocks) get(ownerID string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()

	lock, ok := c.locks[ownerID]
	if !ok {
		lock = &sync.Mutex{}
		c.locks[ownerID] = lock
	}
	return lock
}

// Lock blocks until the owner's cart lock is held and returns the unlock.
func (c *CartLocks) Lock(ownerID string) func() {
	lock := c.get(ownerID)
	lock.Lock()
	return lock.Unlock
}

// TryLock acquires without blocking; ok=false means another operation
// holds the cart.
func (c *CartLocks) TryLock(ownerID string) (unlock func(), ok bool) {
	lock := c.get(ownerID)
	if !lock.TryLock() {
		return nil, false
	}
	return lock.Unlock, true
}
