package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"csfcompass.org/internal/audit"
	"csfcompass.org/internal/invite"
	"csfcompass.org/internal/ratelimit"
	"csfcompass.org/internal/vendor"
)

var (
	_ invite.Store      = (*Store)(nil)
	_ vendor.Store      = (*Store)(nil)
	_ audit.Store       = (*Store)(nil)
	_ ratelimit.Counter = (*Store)(nil)
)

const invitationColumns = `id, organization_id, org_assessment_id, vendor_assessment_id, vendor_id,
	contact_email, contact_name, message, access_token, token_expires_at, status, sent_at,
	accessed_at, last_accessed_at, completed_at, revoked_at, revoked_by`

func (s *Store) InsertInvitation(ctx context.Context, inv invite.Invitation) error {
	_, err := s.db.ExecContext(ctx, `
		insert into invitations(`+invitationColumns+`)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
	`, inv.ID, inv.OrganizationID, inv.OrgAssessmentID, inv.VendorAssessmentID, inv.VendorID,
		inv.ContactEmail, inv.ContactName, inv.Message, inv.AccessToken, inv.TokenExpiresAt, string(inv.Status), inv.SentAt,
		nullTime(inv.AccessedAt), nullTime(inv.LastAccessedAt), nullTime(inv.CompletedAt), nullTime(inv.RevokedAt), inv.RevokedBy)
	return err
}

func (s *Store) GetInvitation(ctx context.Context, id string) (invite.Invitation, error) {
	row := s.db.QueryRowContext(ctx, `select `+invitationColumns+` from invitations where id=$1`, id)
	inv, err := scanInvitation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return invite.Invitation{}, invite.ErrNotFound
	}
	return inv, err
}

func (s *Store) GetInvitationByAssessment(ctx context.Context, orgAssessmentID string) (invite.Invitation, error) {
	row := s.db.QueryRowContext(ctx, `
		select `+invitationColumns+` from invitations
		where org_assessment_id=$1
		order by sent_at desc, id desc
		limit 1
	`, orgAssessmentID)
	inv, err := scanInvitation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return invite.Invitation{}, invite.ErrNotFound
	}
	return inv, err
}

func (s *Store) MarkAccessed(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		update invitations set status='accessed', accessed_at=$2
		where id=$1 and status='pending'
	`, id, at)
	if err != nil {
		return false, err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return true, nil
	}
	return false, s.invitationExists(ctx, id)
}

func (s *Store) TouchLastAccessed(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		update invitations set last_accessed_at = greatest(coalesce(last_accessed_at, $2), $2)
		where id=$1
	`, id, at)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return invite.ErrNotFound
	}
	return nil
}

func (s *Store) MarkInvitationCompleted(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		update invitations set status='completed', completed_at=$2
		where id=$1 and status <> 'revoked'
	`, id, at)
	if err != nil {
		return false, err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return true, nil
	}
	return false, s.invitationExists(ctx, id)
}

func (s *Store) RevokeInvitation(ctx context.Context, id string, at time.Time, revokedBy string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		update invitations set status='revoked', revoked_at=$2, revoked_by=$3
		where id=$1 and status in ('pending','accessed')
	`, id, at, revokedBy)
	if err != nil {
		return false, err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return true, nil
	}
	return false, s.invitationExists(ctx, id)
}

func (s *Store) invitationExists(ctx context.Context, id string) error {
	var one int
	err := s.db.QueryRowContext(ctx, `select 1 from invitations where id=$1`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return invite.ErrNotFound
	}
	return err
}

func scanInvitation(row rowScanner) (invite.Invitation, error) {
	var inv invite.Invitation
	var status string
	var accessedAt, lastAccessedAt, completedAt, revokedAt sql.NullTime
	err := row.Scan(&inv.ID, &inv.OrganizationID, &inv.OrgAssessmentID, &inv.VendorAssessmentID, &inv.VendorID,
		&inv.ContactEmail, &inv.ContactName, &inv.Message, &inv.AccessToken, &inv.TokenExpiresAt, &status, &inv.SentAt,
		&accessedAt, &lastAccessedAt, &completedAt, &revokedAt, &inv.RevokedBy)
	if err != nil {
		return invite.Invitation{}, err
	}
	inv.Status = invite.Status(status)
	inv.AccessedAt = timePtr(accessedAt)
	inv.LastAccessedAt = timePtr(lastAccessedAt)
	inv.CompletedAt = timePtr(completedAt)
	inv.RevokedAt = timePtr(revokedAt)
	return inv, nil
}

func (s *Store) CreateVendor(ctx context.Context, v vendor.Vendor) error {
	_, err := s.db.ExecContext(ctx, `
		insert into vendors(id, organization_id, name, contact_email, created_at)
		values ($1,$2,$3,$4,$5)
	`, v.ID, v.OrganizationID, v.Name, v.ContactEmail, v.CreatedAt)
	return err
}

func (s *Store) GetVendor(ctx context.Context, id string) (vendor.Vendor, error) {
	var v vendor.Vendor
	err := s.db.QueryRowContext(ctx, `
		select id, organization_id, name, contact_email, created_at from vendors where id=$1
	`, id).Scan(&v.ID, &v.OrganizationID, &v.Name, &v.ContactEmail, &v.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return vendor.Vendor{}, vendor.ErrNotFound
	}
	return v, err
}

func (s *Store) ListVendors(ctx context.Context, organizationID string) ([]vendor.Vendor, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, organization_id, name, contact_email, created_at from vendors
		where organization_id=$1
		order by created_at desc, id desc
	`, organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []vendor.Vendor
	for rows.Next() {
		var v vendor.Vendor
		if err := rows.Scan(&v.ID, &v.OrganizationID, &v.Name, &v.ContactEmail, &v.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Store) InsertEvent(ctx context.Context, ev audit.Event) error {
	var meta []byte
	if len(ev.Metadata) > 0 {
		var err error
		meta, err = json.Marshal(ev.Metadata)
		if err != nil {
			return err
		}
	}
	_, err := s.db.ExecContext(ctx, `
		insert into audit_events(id, invitation_id, action, caller_ip, user_agent, metadata, created_at)
		values ($1,$2,$3,$4,$5,$6,$7)
	`, ev.ID, ev.InvitationID, string(ev.Action), ev.CallerIP, ev.UserAgent, meta, ev.CreatedAt)
	return err
}

// Increment bumps the fixed-window counter for key, starting a fresh
// window when the previous one has lapsed. Window start and reset are a
// single upsert so concurrent callers agree on the count.
func (s *Store) Increment(ctx context.Context, key string, ttl time.Duration) (int64, time.Duration, error) {
	now := s.now().UTC()
	var count int64
	var expiresAt time.Time
	err := s.db.QueryRowContext(ctx, `
		insert into rate_limit_counters(key, count, expires_at)
		values ($1, 1, $2)
		on conflict (key) do update set
			count      = case when rate_limit_counters.expires_at <= $3 then 1 else rate_limit_counters.count + 1 end,
			expires_at = case when rate_limit_counters.expires_at <= $3 then $2 else rate_limit_counters.expires_at end
		returning count, expires_at
	`, key, now.Add(ttl), now).Scan(&count, &expiresAt)
	if err != nil {
		return 0, 0, err
	}
	return count, expiresAt.Sub(now), nil
}
