package scrape

import (
	"context"
	"time"
)

// waitFor polls cond every interval until it reports true, the deadline
// passes, or ctx is canceled. The navigator and the harvester share this
// primitive; there is no other blocking wait in the traversal path.
func waitFor(ctx context.Context, deadline, interval time.Duration, cond func() bool) bool {
	end := time.Now().Add(deadline)
	for {
		if cond() {
			return true
		}
		if time.Now().After(end) {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(interval):
		}
	}
}

// sleep pauses for d unless ctx is canceled first.
func sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
