package scheduler

import (
	"context"
	"log/slog"
	"time"

	"icsplit/src-server/model"
	"icsplit/src-server/utils"

	"github.com/uptrace/bun"
)

// Prune split jobs older than HISTORY_RETENTION. The output metadata
// rows go with them through the AfterDelete hook.
func HistoryCleanup(as *utils.AppState) {
	for {
		cutoff := time.Now().UTC().Add(-as.Config.GetHistoryRetention()).Unix()

		staleJobModels := []model.SplitJob{}
		if err := as.BunDB.
			NewSelect().
			Model(&staleJobModels).
			Column("id").
			Where("created_at < ?", cutoff).
			Scan(context.Background()); err != nil {
			slog.Error("HistoryCleanup: can't get stale jobs", "error", err)
			time.Sleep(time.Hour)
			continue
		}
		if len(staleJobModels) == 0 {
			time.Sleep(time.Hour)
			continue
		}

		staleJobIDs := make([]string, 0, len(staleJobModels))
		for _, staleJobModel := range staleJobModels {
			staleJobIDs = append(staleJobIDs, staleJobModel.ID)
		}

		if _, err := as.BunDB.
			NewDelete().
			Model((*model.SplitJob)(nil)).
			Where("id IN (?)", bun.In(staleJobIDs)).
			Exec(context.WithValue(context.Background(), model.DeletedJobIDsCtxKey, staleJobIDs)); err != nil {
			slog.Error("HistoryCleanup: can't delete stale jobs", "error", err)
		} else {
			slog.Info("HistoryCleanup: pruned stale jobs", "count", len(staleJobIDs))
		}

		time.Sleep(time.Hour)
	}
}
