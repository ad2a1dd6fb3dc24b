package store

// Schema is the Postgres DDL for the policy and audit tables. Policies and
// runs are stored as JSONB documents; cleanup_actions denormalizes the
// per-message records so the audit trail stays queryable in SQL after the
// messages themselves are gone.
const Schema = `
CREATE TABLE IF NOT EXISTS cleanup_policies (
    id          VARCHAR(255) PRIMARY KEY,
    user_id     VARCHAR(255) NOT NULL,
    name        VARCHAR(255) NOT NULL,
    policy_data JSONB        NOT NULL,
    created_at  TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
    updated_at  TIMESTAMPTZ  NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_cleanup_policies_user
    ON cleanup_policies (user_id);

CREATE TABLE IF NOT EXISTS cleanup_runs (
    id           VARCHAR(255) PRIMARY KEY,
    user_id      VARCHAR(255) NOT NULL,
    policy_id    VARCHAR(255) NOT NULL,
    status       VARCHAR(50)  NOT NULL,
    dry_run      BOOLEAN      NOT NULL DEFAULT FALSE,
    run_data     JSONB        NOT NULL,
    started_at   TIMESTAMPTZ  NOT NULL,
    completed_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_cleanup_runs_user_started
    ON cleanup_runs (user_id, started_at DESC);

CREATE TABLE IF NOT EXISTS cleanup_actions (
    id              BIGSERIAL PRIMARY KEY,
    run_id          VARCHAR(255) NOT NULL REFERENCES cleanup_runs (id) ON DELETE CASCADE,
    message_id      VARCHAR(255) NOT NULL,
    thread_id       VARCHAR(255),
    action_type     VARCHAR(50)  NOT NULL,
    action_label    VARCHAR(255),
    status          VARCHAR(50)  NOT NULL,
    error_message   TEXT,
    executed_at     TIMESTAMPTZ,
    message_subject TEXT,
    message_from    VARCHAR(512),
    message_date    TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_cleanup_actions_run
    ON cleanup_actions (run_id);

CREATE OR REPLACE VIEW cleanup_run_stats AS
SELECT
    user_id,
    COUNT(*)                                                   AS total_runs,
    COUNT(*) FILTER (WHERE status = 'completed')               AS completed_runs,
    COUNT(*) FILTER (WHERE status = 'failed')                  AS failed_runs,
    COUNT(*) FILTER (WHERE dry_run)                            AS dry_runs,
    MAX(started_at)                                            AS last_run_at,
    AVG(EXTRACT(EPOCH FROM (completed_at - started_at)))
        FILTER (WHERE completed_at IS NOT NULL)                AS avg_duration_seconds
FROM cleanup_runs
GROUP BY user_id;
`
