package mempool

import "time"

// Expire removes transactions that have waited longer than maxAge and
// returns how many were removed. A non-positive maxAge disables expiry.
func (p *Pool) Expire(maxAge time.Duration) int {
	if maxAge <= 0 {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	cutoff := p.now().Add(-maxAge)
	expired := 0
	for h, e := range p.txs {
		if e.addedAt.Before(cutoff) {
			p.removeLocked(h)
			expired++
		}
	}
	return expired
}
