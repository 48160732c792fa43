package repository

import (
	"context"
	"fmt"
)

// FindOrCreateUserByEmail возвращает uid учётной записи по email,
// создавая её при отсутствии. Хранение паролей и прочих учётных данных
// не относится к этому сервису.
func (s *Storage) FindOrCreateUserByEmail(ctx context.Context, email string) (string, error) {
	const op = "storage.FindOrCreateUserByEmail"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var uid string
	query := `INSERT INTO users (email)
			  VALUES ($1)
			  ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
			  RETURNING uid;`
	if err := s.DB.QueryRowContext(ctx, query, email).Scan(&uid); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return uid, nil
}

// GetUserEmail возвращает email учётной записи по uid.
func (s *Storage) GetUserEmail(ctx context.Context, uid string) (string, error) {
	const op = "storage.GetUserEmail"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var email string
	query := `SELECT email FROM users WHERE uid = $1`
	if err := s.DB.QueryRowContext(ctx, query, uid).Scan(&email); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return email, nil
}
