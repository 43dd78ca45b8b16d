package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/avivron/weddinghub/internal/model"
)

// MailLogRepo provides append-only access to the mail_logs table.
// Rows are never updated or deleted; the table doubles as the notify
// limiter's counter source.
type MailLogRepo struct {
	db *sql.DB
}

// NewMailLogRepo constructs a MailLogRepo with the given DB handle.
func NewMailLogRepo(db *sql.DB) *MailLogRepo { return &MailLogRepo{db: db} }

// Insert appends one send-attempt row.  SentAt is set by the
// database so the limiter's window arithmetic and the audit trail
// share a single clock.
func (r *MailLogRepo) Insert(ctx context.Context, m *model.MailLog) error {
	const q = `INSERT INTO mail_logs (tenant_id, invitation_token, channel, kind, status, error, provider_message_id, sent_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, UTC_TIMESTAMP())`
	res, err := r.db.ExecContext(ctx, q,
		m.TenantID, m.InvitationToken, m.Channel, m.Kind, m.Status, m.Error, m.ProviderMessageID)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	return nil
}

// CountSince returns the number of send attempts for the (token,
// channel) pair with sent_at at or after the given instant.  Both
// successful and failed attempts count toward the daily limit.
func (r *MailLogRepo) CountSince(ctx context.Context, token string, channel model.Channel, since time.Time) (int, error) {
	const q = `SELECT COUNT(*) FROM mail_logs
	           WHERE invitation_token = ? AND channel = ? AND sent_at >= ?`
	var n int
	if err := r.db.QueryRowContext(ctx, q, token, channel, since.UTC()).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// ListByToken returns the full audit trail for one invitation,
// newest first, capped at limit rows.
func (r *MailLogRepo) ListByToken(ctx context.Context, tenantID uint64, token string, limit int) ([]model.MailLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	const q = `SELECT id, tenant_id, invitation_token, channel, kind, status, error, provider_message_id, sent_at
	           FROM mail_logs WHERE tenant_id = ? AND invitation_token = ?
	           ORDER BY sent_at DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, tenantID, token, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.MailLog
	for rows.Next() {
		var m model.MailLog
		var errText, provID sql.NullString
		if err := rows.Scan(&m.ID, &m.TenantID, &m.InvitationToken, &m.Channel, &m.Kind,
			&m.Status, &errText, &provID, &m.SentAt); err != nil {
			return nil, err
		}
		if errText.Valid {
			s := errText.String
			m.Error = &s
		}
		if provID.Valid {
			s := provID.String
			m.ProviderMessageID = &s
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
