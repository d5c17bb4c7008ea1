package repository

import (
	"fmt"

	"loveinaction/internal/database"
	"loveinaction/internal/models"
)

// RepairRepository keeps a history of relation repair invocations
type RepairRepository struct {
	db *database.DB
}

// NewRepairRepository creates a new repair repository
func NewRepairRepository(db *database.DB) *RepairRepository {
	return &RepairRepository{db: db}
}

// keepRepairRuns bounds the history; older rows are pruned on insert.
const keepRepairRuns = 200

// Record inserts a finished run and prunes runs beyond the retained history
func (r *RepairRepository) Record(run *models.RepairRun) error {
	query := `
		INSERT INTO repair_runs (mode, total_checked, orphaned_found, repairs_successful, repairs_failed, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	var id int64
	err := r.db.WithTx(func(tx *database.Tx) error {
		var err error
		id, err = tx.ExecReturningID(query, run.Mode, run.TotalChecked, run.OrphanedFound,
			run.RepairsSuccessful, run.RepairsFailed, run.StartedAt, run.FinishedAt)
		if err != nil {
			return err
		}
		if id <= keepRepairRuns {
			return nil
		}
		_, err = tx.Exec("DELETE FROM repair_runs WHERE id <= ?", id-keepRepairRuns)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to record repair run: %w", err)
	}
	run.ID = id
	return nil
}

// ListRecent returns the latest runs, newest first
func (r *RepairRepository) ListRecent(limit int) ([]models.RepairRun, error) {
	query := `
		SELECT id, mode, total_checked, orphaned_found, repairs_successful, repairs_failed, started_at, finished_at
		FROM repair_runs
		ORDER BY started_at DESC
		LIMIT ?
	`
	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list repair runs: %w", err)
	}
	defer rows.Close()

	var runs []models.RepairRun
	for rows.Next() {
		var run models.RepairRun
		if err := rows.Scan(&run.ID, &run.Mode, &run.TotalChecked, &run.OrphanedFound,
			&run.RepairsSuccessful, &run.RepairsFailed, &run.StartedAt, &run.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan repair run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
