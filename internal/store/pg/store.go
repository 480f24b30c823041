package pg

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"devlink/internal/store"
)

type Store struct {
	DB *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Store { return &Store{DB: db} }

const noRows = "no rows in result set"

func (s *Store) InsertCampaign(ctx context.Context, in store.CampaignInsert) error {
	b, _ := json.Marshal(in.Recipients)
	_, err := s.DB.Exec(ctx, `
		INSERT INTO campaigns (id, owner_id, name, subject, body, recipients_json, status, sent_count, total_count, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,'draft',0,0,$7,$7)
	`, in.ID, in.OwnerID, in.Name, in.Subject, in.Body, b, in.Now)
	return err
}

func (s *Store) GetCampaign(ctx context.Context, ownerID, id string) (store.Campaign, bool, error) {
	var c store.Campaign
	var recJSON []byte
	row := s.DB.QueryRow(ctx, `
		SELECT id, owner_id, name, subject, body, recipients_json, status,
		       sent_count, total_count, started_at, completed_at, COALESCE(error_msg,''),
		       created_at, updated_at
		FROM campaigns WHERE owner_id=$1 AND id=$2
	`, ownerID, id)
	err := row.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Subject, &c.Body, &recJSON, &c.Status,
		&c.SentCount, &c.TotalCount, &c.StartedAt, &c.CompletedAt, &c.ErrorMsg,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if err.Error() == noRows {
			return store.Campaign{}, false, nil
		}
		return store.Campaign{}, false, err
	}
	_ = json.Unmarshal(recJSON, &c.Recipients)
	return c, true, nil
}

func (s *Store) ListCampaigns(ctx context.Context, ownerID string, limit, offset int) ([]store.Campaign, int, error) {
	var total int
	if err := s.DB.QueryRow(ctx, `SELECT COUNT(*) FROM campaigns WHERE owner_id=$1`, ownerID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.DB.Query(ctx, `
		SELECT id, owner_id, name, subject, body, recipients_json, status,
		       sent_count, total_count, started_at, completed_at, COALESCE(error_msg,''),
		       created_at, updated_at
		FROM campaigns WHERE owner_id=$1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, ownerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []store.Campaign
	for rows.Next() {
		var c store.Campaign
		var recJSON []byte
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Subject, &c.Body, &recJSON, &c.Status,
			&c.SentCount, &c.TotalCount, &c.StartedAt, &c.CompletedAt, &c.ErrorMsg,
			&c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, 0, err
		}
		_ = json.Unmarshal(recJSON, &c.Recipients)
		out = append(out, c)
	}
	return out, total, rows.Err()
}

// StartCampaign applies the draft -> sending transition. The WHERE clause is
// the idempotency guard: a campaign already past draft matches zero rows.
func (s *Store) StartCampaign(ctx context.Context, in store.CampaignStart) (bool, error) {
	ct, err := s.DB.Exec(ctx, `
		UPDATE campaigns
		SET status='sending', started_at=$3, total_count=$4, updated_at=$3
		WHERE owner_id=$1 AND id=$2 AND status='draft'
	`, in.OwnerID, in.ID, in.Now, in.TotalCount)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

func (s *Store) IncrementSentCount(ctx context.Context, id string, now time.Time) error {
	_, err := s.DB.Exec(ctx, `
		UPDATE campaigns SET sent_count = sent_count + 1, updated_at=$2 WHERE id=$1
	`, id, now)
	return err
}

func (s *Store) FinishCampaign(ctx context.Context, in store.CampaignFinish) error {
	_, err := s.DB.Exec(ctx, `
		UPDATE campaigns
		SET status=$2, error_msg=$3, completed_at=$4, updated_at=$4
		WHERE id=$1 AND completed_at IS NULL
	`, in.ID, in.Status, nullIfEmpty(in.ErrorMsg), in.Now)
	return err
}

func (s *Store) InsertEmailLog(ctx context.Context, in store.EmailLogInsert) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO email_logs (id, owner_id, subject, body, recipients, status, error_msg, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, in.ID, in.OwnerID, in.Subject, in.Body, in.Recipients, in.Status, nullIfEmpty(in.ErrorMsg), in.Now)
	return err
}

func (s *Store) ListEmailLogs(ctx context.Context, ownerID string, limit, offset int) ([]store.EmailLogEntry, int, error) {
	var total int
	if err := s.DB.QueryRow(ctx, `SELECT COUNT(*) FROM email_logs WHERE owner_id=$1`, ownerID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.DB.Query(ctx, `
		SELECT id, owner_id, subject, body, recipients, status, COALESCE(error_msg,''), created_at
		FROM email_logs WHERE owner_id=$1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, ownerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []store.EmailLogEntry
	for rows.Next() {
		var e store.EmailLogEntry
		if err := rows.Scan(&e.ID, &e.OwnerID, &e.Subject, &e.Body, &e.Recipients, &e.Status, &e.ErrorMsg, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}

// GetCredential returns the stored record, creating an empty disconnected one
// on first access.
func (s *Store) GetCredential(ctx context.Context, ownerID string) (store.Credential, error) {
	var c store.Credential
	row := s.DB.QueryRow(ctx, `
		SELECT owner_id, COALESCE(access_token,''), COALESCE(refresh_token,''), expires_at,
		       COALESCE(account_email,''), connected, updated_at
		FROM gmail_credentials WHERE owner_id=$1
	`, ownerID)
	err := row.Scan(&c.OwnerID, &c.AccessToken, &c.RefreshToken, &c.ExpiresAt, &c.AccountEmail, &c.Connected, &c.UpdatedAt)
	if err != nil {
		if err.Error() == noRows {
			now := time.Now().UTC()
			_, insErr := s.DB.Exec(ctx, `
				INSERT INTO gmail_credentials (owner_id, connected, updated_at)
				VALUES ($1, false, $2)
				ON CONFLICT (owner_id) DO NOTHING
			`, ownerID, now)
			if insErr != nil {
				return store.Credential{}, insErr
			}
			return store.Credential{OwnerID: ownerID, UpdatedAt: now}, nil
		}
		return store.Credential{}, err
	}
	return c, nil
}

func (s *Store) SaveCredential(ctx context.Context, in store.CredentialUpdate) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO gmail_credentials (owner_id, access_token, refresh_token, expires_at, account_email, connected, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (owner_id) DO UPDATE
		SET access_token=$2, refresh_token=$3, expires_at=$4, account_email=$5, connected=$6, updated_at=$7
	`, in.OwnerID, nullIfEmpty(in.AccessToken), nullIfEmpty(in.RefreshToken), in.ExpiresAt, nullIfEmpty(in.AccountEmail), in.Connected, in.Now)
	return err
}

func (s *Store) ClearCredential(ctx context.Context, ownerID string, now time.Time) error {
	_, err := s.DB.Exec(ctx, `
		UPDATE gmail_credentials
		SET access_token=NULL, refresh_token=NULL, expires_at=NULL, account_email=NULL, connected=false, updated_at=$2
		WHERE owner_id=$1
	`, ownerID, now)
	return err
}

func (s *Store) InsertBusiness(ctx context.Context, in store.BusinessInsert) error {
	b, _ := json.Marshal(in.Metadata)
	_, err := s.DB.Exec(ctx, `
		INSERT INTO businesses (id, owner_id, name, email, category, city, country, metadata_json, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, in.ID, in.OwnerID, in.Name, nullIfEmpty(in.Email), nullIfEmpty(in.Category), nullIfEmpty(in.City), nullIfEmpty(in.Country), b, in.Now)
	return err
}

func (s *Store) ListBusinesses(ctx context.Context, ownerID string, limit, offset int) ([]store.Business, int, error) {
	var total int
	if err := s.DB.QueryRow(ctx, `SELECT COUNT(*) FROM businesses WHERE owner_id=$1`, ownerID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.DB.Query(ctx, `
		SELECT id, owner_id, name, COALESCE(email,''), COALESCE(category,''),
		       COALESCE(city,''), COALESCE(country,''), metadata_json, created_at
		FROM businesses WHERE owner_id=$1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, ownerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []store.Business
	for rows.Next() {
		var b store.Business
		var metaJSON []byte
		if err := rows.Scan(&b.ID, &b.OwnerID, &b.Name, &b.Email, &b.Category, &b.City, &b.Country, &metaJSON, &b.CreatedAt); err != nil {
			return nil, 0, err
		}
		_ = json.Unmarshal(metaJSON, &b.Metadata)
		out = append(out, b)
	}
	return out, total, rows.Err()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
