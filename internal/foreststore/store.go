package foreststore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hochfrequenz/task-forest/internal/domain"
	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed persistence for finalized forests and
// run statistics.
type Store struct {
	db *sql.DB
}

// New creates a new Store with the given database path
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// ReplaceForest atomically swaps the stored forest for the output of a
// new run. Reconstruction is rebuild-and-validate, so a partial update
// would mix forests from different runs.
func (s *Store) ReplaceForest(runID string, skeletons []*domain.Skeleton) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM skeletons`); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO skeletons (task_id, run_id, created_at, last_activity, workspace,
			truncated_instruction, child_prefixes, parent_task_id, reconstructed_parent_id, depth, is_root)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, sk := range skeletons {
		prefixesJSON, err := json.Marshal(sk.ChildInstructionPrefixes)
		if err != nil {
			return err
		}
		if _, err := stmt.Exec(
			sk.TaskID,
			runID,
			sk.CreatedAt,
			sk.LastActivity,
			sk.Workspace,
			sk.TruncatedInstruction,
			string(prefixesJSON),
			sk.ParentTaskID,
			sk.ReconstructedParentID,
			sk.Depth,
			sk.IsRootTask,
		); err != nil {
			return fmt.Errorf("inserting skeleton %s: %w", sk.TaskID, err)
		}
	}

	return tx.Commit()
}

// ListOptions specifies filters for listing skeletons
type ListOptions struct {
	Workspace string
	RootsOnly bool
}

// ListSkeletons returns stored skeletons matching the given options,
// ordered by creation time then id.
func (s *Store) ListSkeletons(opts ListOptions) ([]*domain.Skeleton, error) {
	query := selectSkeleton + ` WHERE 1=1`
	var args []interface{}

	if opts.Workspace != "" {
		query += " AND workspace = ?"
		args = append(args, opts.Workspace)
	}
	if opts.RootsOnly {
		query += " AND is_root"
	}

	query += " ORDER BY created_at, task_id"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSkeletons(rows)
}

// GetSkeleton retrieves a skeleton by task id. Returns nil, nil when
// absent.
func (s *Store) GetSkeleton(taskID string) (*domain.Skeleton, error) {
	rows, err := s.db.Query(selectSkeleton+` WHERE task_id = ?`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	skeletons, err := scanSkeletons(rows)
	if err != nil {
		return nil, err
	}
	if len(skeletons) == 0 {
		return nil, nil
	}
	return skeletons[0], nil
}

// ListChildren returns the direct children of a task.
func (s *Store) ListChildren(parentID string) ([]*domain.Skeleton, error) {
	rows, err := s.db.Query(selectSkeleton+` WHERE parent_task_id = ? ORDER BY created_at, task_id`, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSkeletons(rows)
}

// SaveRun records the statistics of a completed run.
func (s *Store) SaveRun(stats *domain.RunStats) error {
	byJSON, err := json.Marshal(stats.InvalidatedBy)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO runs (run_id, started_at, finished_at, total_records, malformed_records,
			total_skeletons, indexed_prefixes, declared_edges, validated_edges, invalidated_edges,
			invalidated_by, resolved_edges, ambiguous_matches, unresolved, workspace_relaxed,
			root_count, max_depth)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		stats.RunID,
		stats.StartedAt,
		stats.FinishedAt,
		stats.TotalRecords,
		stats.MalformedRecords,
		stats.TotalSkeletons,
		stats.IndexedPrefixes,
		stats.DeclaredEdges,
		stats.ValidatedEdges,
		stats.InvalidatedEdges,
		string(byJSON),
		stats.ResolvedEdges,
		stats.AmbiguousMatches,
		stats.Unresolved,
		stats.WorkspaceRelaxed,
		stats.RootCount,
		stats.MaxDepth,
	)
	return err
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(limit int) ([]*domain.RunStats, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT run_id, started_at, finished_at, total_records, malformed_records,
			total_skeletons, indexed_prefixes, declared_edges, validated_edges, invalidated_edges,
			invalidated_by, resolved_edges, ambiguous_matches, unresolved, workspace_relaxed,
			root_count, max_depth
		FROM runs ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*domain.RunStats
	for rows.Next() {
		var st domain.RunStats
		var byJSON string
		var finished sql.NullTime
		err := rows.Scan(
			&st.RunID,
			&st.StartedAt,
			&finished,
			&st.TotalRecords,
			&st.MalformedRecords,
			&st.TotalSkeletons,
			&st.IndexedPrefixes,
			&st.DeclaredEdges,
			&st.ValidatedEdges,
			&st.InvalidatedEdges,
			&byJSON,
			&st.ResolvedEdges,
			&st.AmbiguousMatches,
			&st.Unresolved,
			&st.WorkspaceRelaxed,
			&st.RootCount,
			&st.MaxDepth,
		)
		if err != nil {
			return nil, err
		}
		if finished.Valid {
			st.FinishedAt = finished.Time
		}
		if byJSON != "" && byJSON != "null" {
			if err := json.Unmarshal([]byte(byJSON), &st.InvalidatedBy); err != nil {
				return nil, err
			}
		}
		runs = append(runs, &st)
	}
	return runs, rows.Err()
}

const selectSkeleton = `
	SELECT task_id, created_at, last_activity, workspace, truncated_instruction,
		child_prefixes, parent_task_id, reconstructed_parent_id, depth, is_root
	FROM skeletons`

func scanSkeletons(rows *sql.Rows) ([]*domain.Skeleton, error) {
	var skeletons []*domain.Skeleton
	for rows.Next() {
		var sk domain.Skeleton
		var lastActivity sql.NullTime
		var workspace, instruction, prefixesJSON, parentID, reconstructedID sql.NullString

		err := rows.Scan(
			&sk.TaskID,
			&sk.CreatedAt,
			&lastActivity,
			&workspace,
			&instruction,
			&prefixesJSON,
			&parentID,
			&reconstructedID,
			&sk.Depth,
			&sk.IsRootTask,
		)
		if err != nil {
			return nil, err
		}

		if lastActivity.Valid {
			sk.LastActivity = lastActivity.Time
		}
		sk.Workspace = workspace.String
		sk.TruncatedInstruction = instruction.String
		sk.ParentTaskID = parentID.String
		sk.ReconstructedParentID = reconstructedID.String

		if prefixesJSON.Valid && prefixesJSON.String != "" && prefixesJSON.String != "null" {
			var prefixes []string
			if err := json.Unmarshal([]byte(prefixesJSON.String), &prefixes); err != nil {
				return nil, err
			}
			sk.ChildInstructionPrefixes = prefixes
		}

		skeletons = append(skeletons, &sk)
	}
	return skeletons, rows.Err()
}

// PruneRuns deletes run rows older than the cutoff, keeping history
// bounded for long-lived watchers.
func (s *Store) PruneRuns(olderThan time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM runs WHERE started_at < ?`, olderThan)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
