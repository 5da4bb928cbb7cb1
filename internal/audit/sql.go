package audit

import (
	"context"
	"database/sql"
	"encoding/json"
)

type sqlRecorder struct {
	db *sql.DB
}

// NewSQLRecorder returns a Recorder backed by the audit_events table.
func NewSQLRecorder(db *sql.DB) Recorder {
	return &sqlRecorder{db: db}
}

func (r *sqlRecorder) Save(ctx context.Context, e Entry) error {
	jsonData, err := json.Marshal(e.Data)
	if err != nil {
		return err
	}
	jsonMetadata, err := json.Marshal(e.Metadata)
	if err != nil {
		return err
	}
	statement := `INSERT INTO audit_events (id, entry_type, entry_data, entry_metadata, created_at) VALUES ($1, $2, $3, $4, $5)`
	_, err = r.db.ExecContext(ctx, statement, e.ID, e.Type, jsonData, jsonMetadata, e.CreatedAt)
	return err
}

func (r *sqlRecorder) GetByType(ctx context.Context, entryType string) ([]Entry, error) {
	query := `SELECT id, entry_type, entry_data, entry_metadata, created_at FROM audit_events WHERE entry_type = $1 ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, entryType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var e Entry
		var jsonData, jsonMetadata []byte
		if err := rows.Scan(&e.ID, &e.Type, &jsonData, &jsonMetadata, &e.CreatedAt); err != nil {
			return entries, err
		}
		var data any
		if err := json.Unmarshal(jsonData, &data); err == nil {
			e.Data = data
		}
		var metadata map[string]string
		if err := json.Unmarshal(jsonMetadata, &metadata); err == nil {
			e.Metadata = metadata
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
