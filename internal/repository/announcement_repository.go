package repository

import (
	"context"
	"database/sql"
	"errors"
	"unicode/utf8"

	"github.com/avivron/weddinghub/internal/model"
)

// AnnouncementRepo provides data access to the announcements,
// announcement_recipients and announcement_batches tables.  Terminal
// recipient rows are guarded at the SQL level: every terminal-state
// write carries a `status = 'pending'` predicate, so a resumed or
// concurrent dispatch run physically cannot reprocess a recipient
// that has already been sent, failed or skipped.
type AnnouncementRepo struct {
	db *sql.DB
}

// NewAnnouncementRepo constructs an AnnouncementRepo with the given DB handle.
func NewAnnouncementRepo(db *sql.DB) *AnnouncementRepo { return &AnnouncementRepo{db: db} }

// Create inserts the announcement and one pending recipient row per
// guest in a single transaction, so a run can never observe an
// announcement with a partially written recipient set.
func (r *AnnouncementRepo) Create(ctx context.Context, a *model.Announcement, guestIDs []uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	const q = `INSERT INTO announcements (id, tenant_id, title, body, channel, batch_size, send_to_all, scheduled_at, status)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, q,
		a.ID, a.TenantID, a.Title, a.Body, a.Channel, a.BatchSize, a.SendToAll, a.ScheduledAt, a.Status); err != nil {
		return err
	}
	if len(guestIDs) > 0 {
		ins := `INSERT INTO announcement_recipients (announcement_id, guest_id, status) VALUES `
		args := make([]interface{}, 0, len(guestIDs)*3)
		for i, gid := range guestIDs {
			if i > 0 {
				ins += ","
			}
			ins += "(?, ?, ?)"
			args = append(args, a.ID, gid, model.RecipientPending)
		}
		if _, err := tx.ExecContext(ctx, ins, args...); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetByIDAndTenant retrieves an announcement within the tenant scope.
func (r *AnnouncementRepo) GetByIDAndTenant(ctx context.Context, id string, tenantID uint64) (*model.Announcement, error) {
	const q = `SELECT id, tenant_id, title, body, channel, batch_size, send_to_all, scheduled_at, status,
	                  sent_count, failed_count, created_at, updated_at
	           FROM announcements WHERE id = ? AND tenant_id = ?`
	var a model.Announcement
	var scheduled sql.NullTime
	err := r.db.QueryRowContext(ctx, q, id, tenantID).
		Scan(&a.ID, &a.TenantID, &a.Title, &a.Body, &a.Channel, &a.BatchSize, &a.SendToAll,
			&scheduled, &a.Status, &a.SentCount, &a.FailedCount, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAnnouncementNotFound
		}
		return nil, err
	}
	if scheduled.Valid {
		t := scheduled.Time
		a.ScheduledAt = &t
	}
	return &a, nil
}

// ListByTenant returns a tenant's announcements, newest first.
func (r *AnnouncementRepo) ListByTenant(ctx context.Context, tenantID uint64) ([]model.Announcement, error) {
	const q = `SELECT id, tenant_id, title, body, channel, batch_size, send_to_all, scheduled_at, status,
	                  sent_count, failed_count, created_at, updated_at
	           FROM announcements WHERE tenant_id = ? ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Announcement
	for rows.Next() {
		var a model.Announcement
		var scheduled sql.NullTime
		if err := rows.Scan(&a.ID, &a.TenantID, &a.Title, &a.Body, &a.Channel, &a.BatchSize, &a.SendToAll,
			&scheduled, &a.Status, &a.SentCount, &a.FailedCount, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		if scheduled.Valid {
			t := scheduled.Time
			a.ScheduledAt = &t
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// TransitionStatus moves the announcement from one of the given
// states into `to`, in a single conditional update.  Zero affected
// rows means the announcement was not in an allowed source state
// (for example it was cancelled concurrently) and ErrConflict is
// returned.
func (r *AnnouncementRepo) TransitionStatus(ctx context.Context, id string, from []model.AnnouncementStatus, to model.AnnouncementStatus) error {
	if len(from) == 0 {
		return ErrConflict
	}
	q := `UPDATE announcements SET status = ?, updated_at = UTC_TIMESTAMP() WHERE id = ? AND status IN (`
	args := make([]interface{}, 0, len(from)+2)
	args = append(args, to, id)
	for i, s := range from {
		if i > 0 {
			q += ","
		}
		q += "?"
		args = append(args, s)
	}
	q += ")"
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrConflict
	}
	return nil
}

// ListUnbatchedPending returns pending recipients not yet assigned
// to a batch, in insertion order.  These are the rows a starting run
// partitions into fresh batches.
func (r *AnnouncementRepo) ListUnbatchedPending(ctx context.Context, announcementID string) ([]model.AnnouncementRecipient, error) {
	const q = `SELECT id, announcement_id, batch_id, guest_id, status, error, sent_at
	           FROM announcement_recipients
	           WHERE announcement_id = ? AND status = ? AND batch_id = 0
	           ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, announcementID, model.RecipientPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecipients(rows)
}

// CreateBatch persists one batch row; the ID is populated on success.
func (r *AnnouncementRepo) CreateBatch(ctx context.Context, b *model.AnnouncementBatch) error {
	const q = `INSERT INTO announcement_batches (announcement_id, seq, status) VALUES (?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, b.AnnouncementID, b.Seq, b.Status)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

// AssignBatch stamps the batch id onto the given recipient rows.
func (r *AnnouncementRepo) AssignBatch(ctx context.Context, batchID uint64, recipientIDs []uint64) error {
	if len(recipientIDs) == 0 {
		return nil
	}
	q := `UPDATE announcement_recipients SET batch_id = ? WHERE id IN (`
	args := make([]interface{}, 0, len(recipientIDs)+1)
	args = append(args, batchID)
	for i, id := range recipientIDs {
		if i > 0 {
			q += ","
		}
		q += "?"
		args = append(args, id)
	}
	q += ")"
	_, err := r.db.ExecContext(ctx, q, args...)
	return err
}

// MaxBatchSeq returns the highest batch seq used so far for the
// announcement, zero when no batches exist.
func (r *AnnouncementRepo) MaxBatchSeq(ctx context.Context, announcementID string) (uint32, error) {
	const q = `SELECT COALESCE(MAX(seq), 0) FROM announcement_batches WHERE announcement_id = ?`
	var seq uint32
	if err := r.db.QueryRowContext(ctx, q, announcementID).Scan(&seq); err != nil {
		return 0, err
	}
	return seq, nil
}

// ListRunnableBatches returns the announcement's batches that have
// not completed yet, ordered by seq.  A resumed run picks up exactly
// where the crashed one stopped.
func (r *AnnouncementRepo) ListRunnableBatches(ctx context.Context, announcementID string) ([]model.AnnouncementBatch, error) {
	const q = `SELECT id, announcement_id, seq, status, sent_count, failed_count, created_at, updated_at
	           FROM announcement_batches
	           WHERE announcement_id = ? AND status <> ?
	           ORDER BY seq`
	rows, err := r.db.QueryContext(ctx, q, announcementID, model.BatchCompleted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBatches(rows)
}

// ListBatches returns all batches of the announcement ordered by seq.
func (r *AnnouncementRepo) ListBatches(ctx context.Context, announcementID string) ([]model.AnnouncementBatch, error) {
	const q = `SELECT id, announcement_id, seq, status, sent_count, failed_count, created_at, updated_at
	           FROM announcement_batches WHERE announcement_id = ? ORDER BY seq`
	rows, err := r.db.QueryContext(ctx, q, announcementID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBatches(rows)
}

// RecipientDetail joins a recipient row with the contact details and
// invitation token of its guest, everything a channel send needs.
type RecipientDetail struct {
	model.AnnouncementRecipient
	GuestName string
	Phone     string
	Email     string
	Token     string
}

// ListBatchRecipients returns the recipients of one batch together
// with their send targets.  The dispatcher re-reads these fresh at
// batch start so that terminal rows written by an earlier crashed
// run are observed and skipped.
func (r *AnnouncementRepo) ListBatchRecipients(ctx context.Context, batchID uint64) ([]RecipientDetail, error) {
	const q = `SELECT ar.id, ar.announcement_id, ar.batch_id, ar.guest_id, ar.status, ar.error, ar.sent_at,
	                  g.full_name, g.phone, g.email, i.token
	           FROM announcement_recipients ar
	           JOIN guests g ON g.id = ar.guest_id
	           JOIN invitations i ON i.guest_id = g.id
	           WHERE ar.batch_id = ?
	           ORDER BY ar.id`
	rows, err := r.db.QueryContext(ctx, q, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []RecipientDetail
	for rows.Next() {
		var d RecipientDetail
		var errText sql.NullString
		var sentAt sql.NullTime
		if err := rows.Scan(&d.ID, &d.AnnouncementID, &d.BatchID, &d.GuestID, &d.Status, &errText, &sentAt,
			&d.GuestName, &d.Phone, &d.Email, &d.Token); err != nil {
			return nil, err
		}
		if errText.Valid {
			s := errText.String
			d.Error = &s
		}
		if sentAt.Valid {
			t := sentAt.Time
			d.SentAt = &t
		}
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// MarkRecipientSent moves a pending recipient to sent.  It returns
// false without error when the row was already terminal, which a
// resumed run treats as "skip, someone got here first".
func (r *AnnouncementRepo) MarkRecipientSent(ctx context.Context, recipientID uint64) (bool, error) {
	const q = `UPDATE announcement_recipients
	           SET status = ?, error = NULL, sent_at = UTC_TIMESTAMP()
	           WHERE id = ? AND status = ?`
	return r.markTerminal(ctx, q, model.RecipientSent, recipientID)
}

// MarkRecipientFailed moves a pending recipient to failed, recording
// the error message.  Terminal rows are never overwritten.
func (r *AnnouncementRepo) MarkRecipientFailed(ctx context.Context, recipientID uint64, msg string) (bool, error) {
	const q = `UPDATE announcement_recipients
	           SET status = 'failed', error = ?
	           WHERE id = ? AND status = 'pending'`
	res, err := r.db.ExecContext(ctx, q, truncateErr(msg), recipientID)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// MarkRecipientSkipped moves a pending recipient to skipped with a
// reason, typically a rate-limit rejection.
func (r *AnnouncementRepo) MarkRecipientSkipped(ctx context.Context, recipientID uint64, reason string) (bool, error) {
	const q = `UPDATE announcement_recipients
	           SET status = 'skipped', error = ?
	           WHERE id = ? AND status = 'pending'`
	res, err := r.db.ExecContext(ctx, q, truncateErr(reason), recipientID)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *AnnouncementRepo) markTerminal(ctx context.Context, q string, to model.RecipientStatus, recipientID uint64) (bool, error) {
	res, err := r.db.ExecContext(ctx, q, to, recipientID, model.RecipientPending)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// UpdateBatchProgress persists the batch's running counters and status.
func (r *AnnouncementRepo) UpdateBatchProgress(ctx context.Context, batchID uint64, sent, failed uint32, status model.BatchStatus) error {
	const q = `UPDATE announcement_batches
	           SET sent_count = ?, failed_count = ?, status = ?, updated_at = UTC_TIMESTAMP()
	           WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, sent, failed, status, batchID)
	return err
}

// CountRecipientStatuses returns the recipient tally per status for
// the announcement, used to compute the run's aggregate outcome.
func (r *AnnouncementRepo) CountRecipientStatuses(ctx context.Context, announcementID string) (map[model.RecipientStatus]int, error) {
	const q = `SELECT status, COUNT(*) FROM announcement_recipients WHERE announcement_id = ? GROUP BY status`
	rows, err := r.db.QueryContext(ctx, q, announcementID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[model.RecipientStatus]int)
	for rows.Next() {
		var s model.RecipientStatus
		var n int
		if err := rows.Scan(&s, &n); err != nil {
			return nil, err
		}
		counts[s] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}

// SetAggregate writes the final sent/failed counts and status of a
// completed run.
func (r *AnnouncementRepo) SetAggregate(ctx context.Context, id string, sent, failed uint32, status model.AnnouncementStatus) error {
	const q = `UPDATE announcements
	           SET sent_count = ?, failed_count = ?, status = ?, updated_at = UTC_TIMESTAMP()
	           WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, sent, failed, status, id)
	return err
}

// ResetForResend flips failed recipients back to pending and
// unhooks all non-terminal recipients from their old batches so the
// next run re-partitions them.  Sent and skipped rows are never
// touched.  Returns the number of recipients now eligible.
func (r *AnnouncementRepo) ResetForResend(ctx context.Context, announcementID string) (int64, error) {
	const q = `UPDATE announcement_recipients
	           SET status = 'pending', error = NULL, batch_id = 0
	           WHERE announcement_id = ? AND status IN ('failed', 'pending')`
	res, err := r.db.ExecContext(ctx, q, announcementID)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func scanRecipients(rows *sql.Rows) ([]model.AnnouncementRecipient, error) {
	var result []model.AnnouncementRecipient
	for rows.Next() {
		var rec model.AnnouncementRecipient
		var errText sql.NullString
		var sentAt sql.NullTime
		if err := rows.Scan(&rec.ID, &rec.AnnouncementID, &rec.BatchID, &rec.GuestID,
			&rec.Status, &errText, &sentAt); err != nil {
			return nil, err
		}
		if errText.Valid {
			s := errText.String
			rec.Error = &s
		}
		if sentAt.Valid {
			t := sentAt.Time
			rec.SentAt = &t
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func scanBatches(rows *sql.Rows) ([]model.AnnouncementBatch, error) {
	var result []model.AnnouncementBatch
	for rows.Next() {
		var b model.AnnouncementBatch
		if err := rows.Scan(&b.ID, &b.AnnouncementID, &b.Seq, &b.Status,
			&b.SentCount, &b.FailedCount, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// truncateErr bounds stored error text to the column width.  The cut
// backs up to a rune start so provider messages with multi-byte text
// never leave invalid UTF-8 in the column.
func truncateErr(msg string) string {
	const max = 500
	const ellipsis = "…"
	if len(msg) <= max {
		return msg
	}
	cut := max - len(ellipsis)
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut] + ellipsis
}
