package migration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_table_audits",
		SQL: `CREATE TABLE IF NOT EXISTS audits (
  id              SERIAL      PRIMARY KEY,
  site_id         BIGINT      NOT NULL,
  period_code     TEXT        NOT NULL,
  state           TEXT        NOT NULL DEFAULT 'programmed'
                  CHECK (state IN ('programmed', 'loading', 'pending_evaluation', 'evaluated', 'closed')),
  upload_deadline TIMESTAMPTZ NOT NULL,
  scheduled_visit TIMESTAMPTZ NOT NULL,
  created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_audits_state",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_audits_state ON audits (state);`,
	},
	{
		Name: "create_index_audits_upload_deadline",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_audits_upload_deadline ON audits (upload_deadline);`,
	},
	{
		Name: "create_table_technical_sections",
		SQL: `CREATE TABLE IF NOT EXISTS technical_sections (
  id        SERIAL PRIMARY KEY,
  code      TEXT   NOT NULL UNIQUE,
  name      TEXT   NOT NULL,
  mandatory BOOLEAN NOT NULL DEFAULT false,
  active    BOOLEAN NOT NULL DEFAULT true
);`,
	},
	{
		Name: "create_table_documents",
		SQL: `CREATE TABLE IF NOT EXISTS documents (
  id                SERIAL      PRIMARY KEY,
  audit_id          BIGINT      NOT NULL REFERENCES audits (id),
  section_id        BIGINT      NOT NULL REFERENCES technical_sections (id),
  stored_filename   TEXT        NOT NULL,
  original_filename TEXT        NOT NULL,
  file_type         TEXT        NOT NULL,
  size_bytes        BIGINT      NOT NULL CHECK (size_bytes > 0),
  storage_path      TEXT        NOT NULL UNIQUE,
  content_hash      CHAR(64)    NOT NULL,
  version           INTEGER     NOT NULL DEFAULT 1,
  notes             TEXT        NOT NULL DEFAULT '',
  uploaded_by       BIGINT,
  created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_unique_index_documents_audit_hash",
		SQL:  `CREATE UNIQUE INDEX IF NOT EXISTS uq_documents_audit_hash ON documents (audit_id, content_hash);`,
	},
	{
		Name: "create_index_documents_content_hash",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_content_hash ON documents (content_hash);`,
	},
	{
		Name: "create_index_documents_audit_section",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_audit_section ON documents (audit_id, section_id);`,
	},
	{
		Name: "create_table_audit_trail",
		SQL: `CREATE TABLE IF NOT EXISTS audit_trail (
  id         BIGSERIAL   PRIMARY KEY,
  audit_id   BIGINT      NOT NULL,
  actor_id   BIGINT,
  action     TEXT        NOT NULL,
  detail     TEXT        NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_audit_trail_audit_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_audit_trail_audit_id ON audit_trail (audit_id);`,
	},
}

// EnsureMigrated checks if the 'audits' table exists and runs migrations if it doesn't.
func EnsureMigrated(ctx context.Context, db *sql.DB, loc *time.Location, dbHost string) error {
	start := time.Now()

	logJSON(loc, map[string]any{
		"component": "database",
		"event":     "db_migration_check",
		"status":    "starting",
		"db_host":   dbHost,
	})

	var exists bool
	query := "SELECT to_regclass('public.audits') IS NOT NULL"
	err := db.QueryRowContext(ctx, query).Scan(&exists)
	if err != nil {
		logJSON(loc, map[string]any{
			"component":     "database",
			"event":         "db_migration_failed",
			"status":        "error",
			"error_message": fmt.Sprintf("failed to check sentinel table: %v", err),
			"db_host":       dbHost,
			"duration_ms":   time.Since(start).Milliseconds(),
		})
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		logJSON(loc, map[string]any{
			"component":   "database",
			"event":       "db_migration_skip",
			"status":      "success",
			"msg":         "schema already exists, skipping migration",
			"db_host":     dbHost,
			"duration_ms": time.Since(start).Milliseconds(),
		})
		return nil
	}

	logJSON(loc, map[string]any{
		"component": "database",
		"event":     "db_migration_start",
		"status":    "in_progress",
		"db_host":   dbHost,
	})

	for _, step := range steps {
		stepStart := time.Now()
		_, err := db.ExecContext(ctx, step.SQL)
		if err != nil {
			logJSON(loc, map[string]any{
				"component":        "database",
				"event":            "db_migration_failed",
				"status":           "error",
				"migration_step":   step.Name,
				"error_message":    err.Error(),
				"db_host":          dbHost,
				"duration_ms":      time.Since(start).Milliseconds(),
				"step_duration_ms": time.Since(stepStart).Milliseconds(),
			})
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		logJSON(loc, map[string]any{
			"component":        "database",
			"event":            "db_migration_step",
			"status":           "success",
			"migration_step":   step.Name,
			"db_host":          dbHost,
			"step_duration_ms": time.Since(stepStart).Milliseconds(),
		})
	}

	logJSON(loc, map[string]any{
		"component":   "database",
		"event":       "db_migration_success",
		"status":      "success",
		"db_host":     dbHost,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return nil
}

func logJSON(loc *time.Location, data map[string]any) {
	data["ts"] = time.Now().In(loc).Format(time.RFC3339Nano)
	if _, ok := data["level"]; !ok {
		if data["status"] == "error" {
			data["level"] = "error"
		} else {
			data["level"] = "info"
		}
	}

	b, err := json.Marshal(data)
	if err != nil {
		log.Printf("failed to marshal migration log: %v", err)
		return
	}
	log.SetFlags(0)
	log.Println(string(b))
}
