package mempool

// Evict removes transactions older than maxAge, returning the count
// evicted. Exposed for callers that want to run eviction on a timer
// rather than only opportunistically when the pool fills up.
func (p *Pool) Evict() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.evictOldLocked()
}
