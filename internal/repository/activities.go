package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"kidbook/internal/database"
	"kidbook/internal/models"
)

type ActivityRepository struct {
	db *database.DB
}

func NewActivityRepository(db *database.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

func (r *ActivityRepository) Create(ctx context.Context, activity *models.Activity) error {
	query := `
		INSERT INTO activities (venue_id, title, description, category, age_min, age_max, credits_per_child)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		activity.VenueID,
		activity.Title,
		activity.Description,
		activity.Category,
		activity.AgeMin,
		activity.AgeMax,
		activity.CreditsPerChild,
	).Scan(&activity.ID, &activity.CreatedAt, &activity.UpdatedAt)

	return err
}

func (r *ActivityRepository) GetByID(ctx context.Context, id int64) (*models.Activity, error) {
	activity := &models.Activity{}
	query := `
		SELECT id, venue_id, title, description, category, age_min, age_max, credits_per_child, created_at, updated_at
		FROM activities
		WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&activity.ID,
		&activity.VenueID,
		&activity.Title,
		&activity.Description,
		&activity.Category,
		&activity.AgeMin,
		&activity.AgeMax,
		&activity.CreditsPerChild,
		&activity.CreatedAt,
		&activity.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return activity, err
}

func (r *ActivityRepository) List(ctx context.Context, query string, category string, page, pageSize int) ([]models.Activity, error) {
	var activities []models.Activity
	var args []interface{}
	argIndex := 1
	var searchQueryArgIndex int

	sqlQuery := `
		SELECT id, venue_id, title, description, category, age_min, age_max, credits_per_child, created_at, updated_at
		FROM activities
		WHERE 1=1`

	// Add search filter with full-text search
	if query != "" {
		searchQueryArgIndex = argIndex
		sqlQuery += fmt.Sprintf(" AND search_vector @@ to_tsquery('english', $%d)", argIndex)

		searchQuery := prepareSearchQuery(query)

		args = append(args, searchQuery)
		argIndex++
	}

	if category != "" {
		sqlQuery += fmt.Sprintf(" AND category = $%d", argIndex)
		args = append(args, category)
		argIndex++
	}

	// Add ordering - prioritize search relevance if searching, otherwise by ID
	if query != "" {
		sqlQuery += " ORDER BY ts_rank(search_vector, to_tsquery('english', $" + fmt.Sprintf("%d", searchQueryArgIndex) + ")) DESC, id ASC"
	} else {
		sqlQuery += " ORDER BY id ASC"
	}

	// Add pagination
	if page > 0 && pageSize > 0 {
		offset := (page - 1) * pageSize
		sqlQuery += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
		args = append(args, pageSize, offset)
	}

	rows, err := r.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var activity models.Activity
		err := rows.Scan(
			&activity.ID,
			&activity.VenueID,
			&activity.Title,
			&activity.Description,
			&activity.Category,
			&activity.AgeMin,
			&activity.AgeMax,
			&activity.CreditsPerChild,
			&activity.CreatedAt,
			&activity.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		activities = append(activities, activity)
	}

	return activities, rows.Err()
}

func (r *ActivityRepository) Update(ctx context.Context, activity *models.Activity) error {
	query := `
		UPDATE activities
		SET title = $1, description = $2, category = $3, age_min = $4,
		    age_max = $5, credits_per_child = $6, updated_at = NOW()
		WHERE id = $7
		RETURNING updated_at`

	return r.db.QueryRowContext(ctx, query,
		activity.Title,
		activity.Description,
		activity.Category,
		activity.AgeMin,
		activity.AgeMax,
		activity.CreditsPerChild,
		activity.ID,
	).Scan(&activity.UpdatedAt)
}

func (r *ActivityRepository) CreateVenue(ctx context.Context, venue *models.Venue) error {
	query := `
		INSERT INTO venues (name, city)
		VALUES ($1, $2)
		RETURNING id, created_at`

	return r.db.QueryRowContext(ctx, query, venue.Name, venue.City).Scan(&venue.ID, &venue.CreatedAt)
}

func (r *ActivityRepository) GetVenueByID(ctx context.Context, id int64) (*models.Venue, error) {
	venue := &models.Venue{}
	query := `SELECT id, name, city, created_at FROM venues WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(&venue.ID, &venue.Name, &venue.City, &venue.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}

	return venue, err
}

// prepareSearchQuery formats a search query for PostgreSQL full-text search
func prepareSearchQuery(query string) string {
	// If query contains operators, return as-is
	if containsSearchOperators(query) {
		return query
	}

	// Split by spaces and handle each word
	words := strings.Fields(strings.TrimSpace(query))
	if len(words) == 0 {
		return ""
	}

	// Add prefix matching to each word and join with AND operator
	var formattedWords []string
	for _, word := range words {
		if word != "" {
			formattedWords = append(formattedWords, word+":*")
		}
	}

	return strings.Join(formattedWords, " & ")
}

// containsSearchOperators checks if the search query contains PostgreSQL search operators
func containsSearchOperators(query string) bool {
	operators := []string{"&", "|", "!", "(", ")", ":", "*"}
	for _, op := range operators {
		if strings.Contains(query, op) {
			return true
		}
	}
	return false
}
