package tracker

import (
	"context"
	"time"
)

// probeTimeout bounds a single reachability probe so a hanging remote store
// cannot stall the watcher loop.
const probeTimeout = 3 * time.Second

// RunOnlineWatcher probes the remote store on a fixed interval and feeds
// connectivity transitions into the controller. It runs until ctx is
// cancelled; for the life of a session it is never stopped.
func (c *Controller) RunOnlineWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, probeTimeout)
			err := c.remote.Ping(pctx)
			cancel()

			c.HandleConnectivityChange(ctx, err == nil)

		case <-ctx.Done():
			return
		}
	}
}
