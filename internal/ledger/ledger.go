// Package ledger records every remote control call for later inspection
// via the history command.
package ledger

import (
	"database/sql"
	"time"
)

// Entry is a single recorded control call.
type Entry struct {
	ID        int64
	Timestamp time.Time
	Device    string
	Action    string
	Argument  string
	Outcome   string
}

// OutcomeOK marks a call that the remote accepted.
const OutcomeOK = "ok"

// Ledger provides append-only control call logging.
type Ledger struct {
	db *sql.DB
}

// New creates a Ledger using the provided database connection.
func New(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

// Record appends one control call. argument may be empty for actions
// without a value (power on/off); outcome is OutcomeOK or the error text.
func (l *Ledger) Record(device, action, argument, outcome string) error {
	_, err := l.db.Exec(`
		INSERT INTO command_ledger (timestamp, device, action, argument, outcome)
		VALUES (?, ?, ?, ?, ?)
	`, time.Now().UTC().Unix(), device, action, argument, outcome)
	return err
}

// Recent returns the newest entries, most recent first.
func (l *Ledger) Recent(limit int) ([]Entry, error) {
	rows, err := l.db.Query(`
		SELECT id, timestamp, device, action, argument, outcome
		FROM command_ledger
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var timestamp int64
		var argument sql.NullString
		if err := rows.Scan(&entry.ID, &timestamp, &entry.Device, &entry.Action, &argument, &entry.Outcome); err != nil {
			return nil, err
		}
		entry.Timestamp = time.Unix(timestamp, 0).UTC()
		if argument.Valid {
			entry.Argument = argument.String
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// DeleteOlderThan removes entries past the retention window.
func (l *Ledger) DeleteOlderThan(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).Unix()
	result, err := l.db.Exec(`DELETE FROM command_ledger WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
