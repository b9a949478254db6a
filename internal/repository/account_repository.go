package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/fatimazahra-12/school-manage/internal/model"
	"github.com/fatimazahra-12/school-manage/internal/utils"
)

// AccountRepo persists identity records.
type AccountRepo struct{ DB *sql.DB }

func NewAccountRepo(db *sql.DB) *AccountRepo { return &AccountRepo{DB: db} }

const accountColumns = "id,name,email,password_hash,role_id,verified,is_active,two_factor_secret,two_factor_enabled,created_at,updated_at"

// Create inserts an unverified account and returns its id. The password is
// hashed here with the configured bcrypt cost so a plain password never
// leaves the call stack. The unique constraint on email is the real race
// guard; a duplicate insert surfaces as ErrEmailExists.
func (r *AccountRepo) Create(ctx context.Context, name, email, password string, roleID uint64, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO accounts (name, email, password_hash, role_id, verified, is_active) VALUES (?,?,?,?,0,1)",
		name, email, hash, roleID)
	if err != nil {
		// MySQL error 1062: duplicate entry for a unique key.
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches an account by normalized email.
func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (model.Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE email=? LIMIT 1", email))
}

// GetByID fetches an account by id.
func (r *AccountRepo) GetByID(ctx context.Context, id uint64) (model.Account, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE id=? LIMIT 1", id))
}

// MarkVerified flips the verified flag after a successful email check.
func (r *AccountRepo) MarkVerified(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE accounts SET verified=1 WHERE id=?", id)
	return err
}

// UpdatePassword overwrites the stored password hash.
func (r *AccountRepo) UpdatePassword(ctx context.Context, id uint64, hash string) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE accounts SET password_hash=? WHERE id=?", hash, id)
	return err
}

// SetTwoFactorSecret stores a pending 2FA secret. Enrollment stays pending:
// two_factor_enabled is reset so a re-enroll always demands a fresh proof of
// possession.
func (r *AccountRepo) SetTwoFactorSecret(ctx context.Context, id uint64, secret string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE accounts SET two_factor_secret=?, two_factor_enabled=0 WHERE id=?", secret, id)
	return err
}

// EnableTwoFactor flips two_factor_enabled after a code verified against the
// stored secret.
func (r *AccountRepo) EnableTwoFactor(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE accounts SET two_factor_enabled=1 WHERE id=?", id)
	return err
}

// UpdateRole reassigns an account to another role.
func (r *AccountRepo) UpdateRole(ctx context.Context, id, roleID uint64) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE accounts SET role_id=? WHERE id=?", roleID, id)
	return err
}

func (r *AccountRepo) scanOne(row *sql.Row) (model.Account, error) {
	var (
		a      model.Account
		secret sql.NullString
	)
	err := row.Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.RoleID,
		&a.Verified, &a.IsActive, &secret, &a.TwoFactorOn, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return model.Account{}, err
	}
	if secret.Valid {
		a.TwoFactorSecret = &secret.String
	}
	return a, nil
}
