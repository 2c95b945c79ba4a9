// Package retention enforces retention policy on stored trace records.
//
// A Pruner deletes records in two phases: age-based (records created
// before the RetentionDays cutoff) and count-based (oldest records beyond
// MaxRecords). Either phase can be disabled by setting its limit to zero.
// Records can optionally be archived as JSON files before deletion.
//
// A Scheduler wraps the pruner in a cron job so pruning runs unattended,
// typically off-peak:
//
//	pruner := retention.NewPruner(storage, &retention.Config{
//		RetentionDays: 90,
//		PruneSchedule: "0 3 * * *",
//	})
//	if err := pruner.Start(ctx); err != nil {
//		return err
//	}
//	defer pruner.Stop()
package retention
