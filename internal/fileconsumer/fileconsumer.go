// Package fileconsumer arbitrates header ownership across concurrent
// translation units (spec.md §4.2). Exactly one TU per indexing round
// may be the one to request a given header's own independent index;
// every other TU that also includes it must not duplicate the work.
//
// Grounded on the teacher's internal/store USR/path dedup pattern
// (single mutex guarding a map, held only for the check-and-insert) and
// on original_source's FileConsumer, which holds a single mutex across
// a path->owner map for exactly this purpose.
package fileconsumer

import "sync"

// Consumer is a process-wide, round-scoped ownership map from a
// normalized file path to the translation unit path that claimed it.
type Consumer struct {
	mu    sync.Mutex
	owner map[string]string
}

// New returns an empty Consumer.
func New() *Consumer {
	return &Consumer{owner: make(map[string]string)}
}

// TryClaim atomically checks whether path is already owned this round;
// if not, it records owner as the new owner and returns true. Only the
// caller for which TryClaim returns true should go on to index path as
// its own translation unit.
func (c *Consumer) TryClaim(path string, owner string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.owner[path]; ok {
		return false
	}
	c.owner[path] = owner
	return true
}

// Owner reports the current owner of path, if any.
func (c *Consumer) Owner(path string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	o, ok := c.owner[path]
	return o, ok
}

// Reset clears all ownership claims, starting a new round. No code in
// the import pipeline or cindexd calls it, so there a claim lasts for
// the lifetime of the Consumer.
func (c *Consumer) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.owner = make(map[string]string)
}
