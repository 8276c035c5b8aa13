package repository

import (
	"context"
	"database/sql"

	"kidbook/internal/database"
	"kidbook/internal/models"
)

type UserRepository struct {
	db *database.DB
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT user_id, email, password_hash, first_name, surname, role,
		       company_id, venue_id, registered_at, is_active
		FROM users
		WHERE user_id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.UserID,
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.Surname,
		&user.Role,
		&user.CompanyID,
		&user.VenueID,
		&user.RegisteredAt,
		&user.IsActive,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return user, err
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT user_id, email, password_hash, first_name, surname, role,
		       company_id, venue_id, registered_at, is_active
		FROM users
		WHERE email = $1`

	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&user.UserID,
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.Surname,
		&user.Role,
		&user.CompanyID,
		&user.VenueID,
		&user.RegisteredAt,
		&user.IsActive,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return user, err
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (email, password_hash, first_name, surname, role, company_id, venue_id, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING user_id, registered_at`

	err := r.db.QueryRowContext(ctx, query,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.Surname,
		user.Role,
		user.CompanyID,
		user.VenueID,
		user.IsActive,
	).Scan(&user.UserID, &user.RegisteredAt)

	return err
}

// GetChild loads one child and verifies nothing; ownership checks belong to
// the caller
func (r *UserRepository) GetChild(ctx context.Context, id string) (*models.Child, error) {
	child := &models.Child{}
	query := `
		SELECT id, parent_id, first_name, birth_date, notes, created_at
		FROM children
		WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&child.ID,
		&child.ParentID,
		&child.FirstName,
		&child.BirthDate,
		&child.Notes,
		&child.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return child, err
}

func (r *UserRepository) GetChildrenByParent(ctx context.Context, parentID int64) ([]models.Child, error) {
	var children []models.Child
	query := `
		SELECT id, parent_id, first_name, birth_date, notes, created_at
		FROM children
		WHERE parent_id = $1
		ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var child models.Child
		err := rows.Scan(
			&child.ID,
			&child.ParentID,
			&child.FirstName,
			&child.BirthDate,
			&child.Notes,
			&child.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}

	return children, rows.Err()
}

func (r *UserRepository) CreateChild(ctx context.Context, child *models.Child) error {
	query := `
		INSERT INTO children (parent_id, first_name, birth_date, notes)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		child.ParentID,
		child.FirstName,
		child.BirthDate,
		child.Notes,
	).Scan(&child.ID, &child.CreatedAt)

	return err
}
