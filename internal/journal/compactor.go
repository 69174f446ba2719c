package journal

import (
	"log"

	"github.com/robfig/cron/v3"
)

// Compactor prunes workspace journals on a cron schedule.
type Compactor struct {
	store     *Store
	sched     *cron.Cron
	maxEvents int

	// workspaces lists the journals to compact; refreshed per run via the
	// lister when one is set.
	workspaces []string
	lister     func() []string
}

// NewCompactor creates a stopped compactor. maxEvents bounds each
// workspace's journal after a run.
func NewCompactor(store *Store, maxEvents int) *Compactor {
	return &Compactor{store: store, maxEvents: maxEvents}
}

// SetWorkspaces fixes the set of workspace IDs to compact.
func (c *Compactor) SetWorkspaces(ids []string) { c.workspaces = ids }

// SetLister installs a callback that enumerates workspaces at run time,
// for sessions where workspaces come and go.
func (c *Compactor) SetLister(fn func() []string) { c.lister = fn }

// Start schedules compaction with the given cron expression and begins
// running it. Invalid expressions are returned, not logged away.
func (c *Compactor) Start(cronExpr string) error {
	sched := cron.New()
	if _, err := sched.AddFunc(cronExpr, c.Run); err != nil {
		return err
	}
	sched.Start()
	c.sched = sched
	log.Printf("journal compactor: scheduled %q, cap %d events", cronExpr, c.maxEvents)
	return nil
}

// Run compacts every known workspace once. Safe to call manually.
func (c *Compactor) Run() {
	ids := c.workspaces
	if c.lister != nil {
		ids = c.lister()
	}
	for _, id := range ids {
		if err := c.store.PruneIfNeeded(id, c.maxEvents); err != nil {
			log.Printf("journal compactor: prune %s: %v", id, err)
		}
	}
}

// Stop halts the schedule. Pending runs finish.
func (c *Compactor) Stop() {
	if c.sched != nil {
		c.sched.Stop()
		c.sched = nil
	}
}
