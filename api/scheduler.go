/*
scheduler.go - Automated registration link sweeper

PURPOSE:
  Periodically deactivates registration links whose expiry has passed.
  Expired links are already rejected at read time; the sweeper keeps the
  stored link list honest so organizers see expired invites as inactive
  without anyone having to hit the token first.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Walks every tanda's links and deactivates the expired active ones
  - Idempotent: deactivating an already-inactive link is a no-op

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether the sweeper is active (default: true)

USAGE:
  sweeper := NewLinkSweeper(store)
  sweeper.Start()
  // ... later
  sweeper.Stop()

SEE ALSO:
  - handlers.go: CreateLink, GetRegistration (read-time expiry check)
  - store/sqlite/sqlite.go: ListLinks, DeactivateLink
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/tandamx/tanda-engine/store/sqlite"
)

// LinkSweeper deactivates expired registration links in the background.
type LinkSweeper struct {
	Store         *sqlite.Store
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewLinkSweeper creates a new sweeper.
func NewLinkSweeper(store *sqlite.Store) *LinkSweeper {
	return &LinkSweeper{
		Store:         store,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the sweeper.
func (ls *LinkSweeper) Start() {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	if !ls.Enabled {
		log.Println("[Sweeper] Disabled, not starting")
		return
	}

	ls.ticker = time.NewTicker(ls.CheckInterval)
	ls.wg.Add(1)

	go ls.run()

	log.Printf("[Sweeper] Started with check interval: %v", ls.CheckInterval)
}

// Stop stops the sweeper.
func (ls *LinkSweeper) Stop() {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	if ls.ticker != nil {
		ls.ticker.Stop()
		close(ls.stop)
		ls.wg.Wait()
		log.Println("[Sweeper] Stopped")
	}
}

func (ls *LinkSweeper) run() {
	defer ls.wg.Done()

	// Run immediately on start
	ls.sweep()

	for {
		select {
		case <-ls.ticker.C:
			ls.sweep()
		case <-ls.stop:
			return
		}
	}
}

func (ls *LinkSweeper) sweep() {
	ctx := context.Background()
	now := time.Now()

	configs, err := ls.Store.ListConfigs(ctx)
	if err != nil {
		log.Printf("[Sweeper] Error listing tandas: %v", err)
		return
	}

	swept := 0
	for _, cfg := range configs {
		links, err := ls.Store.ListLinks(ctx, cfg.ID)
		if err != nil {
			log.Printf("[Sweeper] Error listing links for %s: %v", cfg.ID, err)
			continue
		}

		for _, link := range links {
			if !link.Active || link.ExpiresAt.After(now) {
				continue
			}
			if err := ls.Store.DeactivateLink(ctx, link.Token); err != nil {
				log.Printf("[Sweeper] Error deactivating link %s: %v", link.Token, err)
				continue
			}
			swept++
		}
	}

	if swept > 0 {
		log.Printf("[Sweeper] Deactivated %d expired link(s)", swept)
	}
}
