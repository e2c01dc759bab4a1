package model

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uptrace/bun"
)

type DeletedJobIDsCtxKeyType string

const DeletedJobIDsCtxKey DeletedJobIDsCtxKeyType = "split-job-id"

// One split request that ran to completion, kept around so the web
// client can show a history page. The outputs themselves only store
// metadata, never file content.
type SplitJob struct {
	bun.BaseModel `bun:"table:split_jobs"`

	ID           string `bun:"id,pk"`             // required
	FileName     string `bun:"file_name,notnull"` // required
	Source       string `bun:"source,notnull"`    // required, "api" | "discord" | "cli"
	Mode         string `bun:"mode,notnull"`      // required
	CleanMode    bool   `bun:"clean_mode"`
	MaxSizeBytes int    `bun:"max_size_bytes"`
	TotalEvents  int    `bun:"total_events"`
	OutputCount  int    `bun:"output_count"`
	CreatedAt    int64  `bun:"created_at,notnull"` // unix UTC

	Outputs []*SplitOutput `bun:"rel:has-many,join:id=job_id"`
}

var _ bun.AfterDeleteHook = (*SplitJob)(nil)

func (j *SplitJob) AfterDelete(ctx context.Context, query *bun.DeleteQuery) error {
	if query.DB() == nil {
		return fmt.Errorf("(*SplitJob).AfterDelete: db is nil")
	}

	deletedJobIDs := make([]string, 0)
	switch deletedJobID := ctx.Value(DeletedJobIDsCtxKey).(type) {
	case string:
		if deletedJobID == "" {
			return fmt.Errorf("(*SplitJob).AfterDelete: deletedJobID is blank")
		}
		deletedJobIDs = append(deletedJobIDs, deletedJobID)
	case []string:
		if len(deletedJobID) == 0 {
			return nil
		}
		deletedJobIDs = append(deletedJobIDs, deletedJobID...)
	case nil:
		return fmt.Errorf("(*SplitJob).AfterDelete: job id is nil")
	default:
		return fmt.Errorf("(*SplitJob).AfterDelete: wrong deletedJobID type | type=%T", deletedJobID)
	}

	if _, err := query.DB().NewDelete().
		Model((*SplitOutput)(nil)).
		Where("job_id IN (?)", bun.In(deletedJobIDs)).
		Exec(ctx); err != nil {
		return fmt.Errorf("(*SplitJob).AfterDelete: can't delete outputs: %w", err)
	}

	return nil
}

func (j *SplitJob) Upsert(ctx context.Context, db bun.IDB) error {
	if db == nil {
		return fmt.Errorf("(*SplitJob).Upsert: db is nil")
	}

	// validate
	switch {
	case j.ID == "":
		return fmt.Errorf("(*SplitJob).Upsert: job id is blank")
	case j.FileName == "":
		return fmt.Errorf("(*SplitJob).Upsert: file name is blank")
	case j.Source == "":
		return fmt.Errorf("(*SplitJob).Upsert: source is blank")
	case j.Mode == "":
		return fmt.Errorf("(*SplitJob).Upsert: mode is blank")
	case j.CreatedAt == 0:
		return fmt.Errorf("(*SplitJob).Upsert: created at is zero")
	}

	// upsert
	if _, err := db.NewInsert().
		Model(j).
		On("CONFLICT (id) DO UPDATE").
		Set("file_name = EXCLUDED.file_name").
		Set("source = EXCLUDED.source").
		Set("mode = EXCLUDED.mode").
		Set("clean_mode = EXCLUDED.clean_mode").
		Set("max_size_bytes = EXCLUDED.max_size_bytes").
		Set("total_events = EXCLUDED.total_events").
		Set("output_count = EXCLUDED.output_count").
		Set("created_at = EXCLUDED.created_at").
		Exec(ctx); err != nil {
		return fmt.Errorf("(*SplitJob).Upsert: can't upsert job: %w", err)
	}

	return nil
}

// Metadata for one .ics file a job produced.
type SplitOutput struct {
	bun.BaseModel `bun:"table:split_outputs"`

	ID         int64  `bun:"id,pk,autoincrement"`
	JobID      string `bun:"job_id,notnull"` // required
	Name       string `bun:"name,notnull"`   // required
	Size       int    `bun:"size"`
	EventCount int    `bun:"event_count"`
	StartDate  int64  `bun:"start_date"` // unix UTC, 0 when undated
	EndDate    int64  `bun:"end_date"`   // unix UTC, 0 when undated
}

// Insert a finished job and its outputs in one transaction.
func RecordSplitJob(ctx context.Context, db *bun.DB, job *SplitJob, outputs []*SplitOutput) error {
	if db == nil {
		return fmt.Errorf("RecordSplitJob: db is nil")
	}
	if err := db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if err := job.Upsert(ctx, tx); err != nil {
			return err
		}
		if len(outputs) == 0 {
			return nil
		}
		for _, output := range outputs {
			output.JobID = job.ID
		}
		if _, err := tx.NewInsert().
			Model(&outputs).
			Exec(ctx); err != nil {
			return fmt.Errorf("can't insert outputs: %w", err)
		}
		return nil
	}); err != nil {
		return fmt.Errorf("RecordSplitJob: %w", err)
	}
	return nil
}
