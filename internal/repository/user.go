package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/visaflow/internal/logger"
	"github.com/visaflow/internal/model"
)

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *UserRepository) WithTx(tx pgx.Tx) *UserRepository {
	return &UserRepository{db: tx}
}

func (r *UserRepository) Create(ctx context.Context, u *model.User) error {
	defer logger.DeferLogDuration("userRepo.Create", time.Now())()
	_, err := r.db.Exec(ctx,
		`INSERT INTO users (id, name, email, password_hash, phone_number, role, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.PhoneNumber, u.Role, u.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("userRepo.Create: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	defer logger.DeferLogDuration("userRepo.GetByID", time.Now())()
	u := &model.User{}
	err := r.db.QueryRow(ctx,
		`SELECT id, name, email, password_hash, COALESCE(phone_number,''), role, created_at, last_login_at
		 FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.PhoneNumber, &u.Role, &u.CreatedAt, &u.LastLoginAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("userRepo.GetByID: %w", err)
	}
	return u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	defer logger.DeferLogDuration("userRepo.GetByEmail", time.Now())()
	u := &model.User{}
	err := r.db.QueryRow(ctx,
		`SELECT id, name, email, password_hash, COALESCE(phone_number,''), role, created_at, last_login_at
		 FROM users WHERE email = $1`, email,
	).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.PhoneNumber, &u.Role, &u.CreatedAt, &u.LastLoginAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("userRepo.GetByEmail: %w", err)
	}
	return u, nil
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id, name, phoneNumber string) error {
	defer logger.DeferLogDuration("userRepo.UpdateProfile", time.Now())()
	_, err := r.db.Exec(ctx,
		`UPDATE users SET name = $1, phone_number = $2 WHERE id = $3`,
		name, phoneNumber, id,
	)
	if err != nil {
		return fmt.Errorf("userRepo.UpdateProfile: %w", err)
	}
	return nil
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	defer logger.DeferLogDuration("userRepo.UpdateLastLogin", time.Now())()
	_, err := r.db.Exec(ctx,
		`UPDATE users SET last_login_at = $1 WHERE id = $2`, at, id,
	)
	if err != nil {
		return fmt.Errorf("userRepo.UpdateLastLogin: %w", err)
	}
	return nil
}
