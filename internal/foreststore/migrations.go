package foreststore

const schema = `
CREATE TABLE IF NOT EXISTS skeletons (
    task_id TEXT PRIMARY KEY,
    run_id TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    last_activity TIMESTAMP,
    workspace TEXT,
    truncated_instruction TEXT,
    child_prefixes TEXT,
    parent_task_id TEXT,
    reconstructed_parent_id TEXT,
    depth INTEGER NOT NULL DEFAULT 0,
    is_root BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS idx_skeletons_parent ON skeletons(parent_task_id);
CREATE INDEX IF NOT EXISTS idx_skeletons_workspace ON skeletons(workspace);

CREATE TABLE IF NOT EXISTS runs (
    run_id TEXT PRIMARY KEY,
    started_at TIMESTAMP NOT NULL,
    finished_at TIMESTAMP,
    total_records INTEGER DEFAULT 0,
    malformed_records INTEGER DEFAULT 0,
    total_skeletons INTEGER DEFAULT 0,
    indexed_prefixes INTEGER DEFAULT 0,
    declared_edges INTEGER DEFAULT 0,
    validated_edges INTEGER DEFAULT 0,
    invalidated_edges INTEGER DEFAULT 0,
    invalidated_by TEXT,
    resolved_edges INTEGER DEFAULT 0,
    ambiguous_matches INTEGER DEFAULT 0,
    unresolved INTEGER DEFAULT 0,
    workspace_relaxed INTEGER DEFAULT 0,
    root_count INTEGER DEFAULT 0,
    max_depth INTEGER DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
`
