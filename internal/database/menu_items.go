package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"ohbang/internal/models"
)

const menuColumns = `id, name, description, price, category, image`

// ClearAll удаляет все позиции меню
func (db *DB) ClearAll(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM menu_items`); err != nil {
		return fmt.Errorf("failed to clear menu items: %w", err)
	}
	return nil
}

// InsertAll inserts the records in one transaction. A repeated id replaces
// the earlier row, so ids stay unique.
func (db *DB) InsertAll(ctx context.Context, records []models.MenuItemRecord) error {
	if len(records) == 0 {
		return nil
	}

	return db.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT OR REPLACE INTO menu_items (`+menuColumns+`) VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, r := range records {
			if _, err := stmt.ExecContext(ctx, r.ID, r.Name, r.Description, r.Price, r.Category, r.Image); err != nil {
				return fmt.Errorf("failed to insert menu item %d: %w", r.ID, err)
			}
		}
		return nil
	})
}

func (db *DB) IsEmpty(ctx context.Context) (bool, error) {
	var empty bool
	err := db.QueryRowContext(ctx, `SELECT NOT EXISTS (SELECT 1 FROM menu_items)`).Scan(&empty)
	if err != nil {
		return false, fmt.Errorf("failed to check menu emptiness: %w", err)
	}
	return empty, nil
}

func (db *DB) Count(ctx context.Context) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM menu_items`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count menu items: %w", err)
	}
	return n, nil
}

func (db *DB) GetAll(ctx context.Context) ([]models.MenuItemRecord, error) {
	return db.queryRecords(ctx, `SELECT `+menuColumns+` FROM menu_items ORDER BY id`)
}

// GetFiltered returns items whose name contains namePattern (ASCII
// case-insensitive, wildcards taken literally) and whose category equals
// category exactly. An empty category matches every category.
func (db *DB) GetFiltered(ctx context.Context, namePattern, category string) ([]models.MenuItemRecord, error) {
	query := `SELECT ` + menuColumns + ` FROM menu_items
              WHERE name LIKE ? ESCAPE '\'
              AND (? = '' OR category = ?)
              ORDER BY id`
	like := "%" + escapeLike(namePattern) + "%"
	return db.queryRecords(ctx, query, like, category, category)
}

// GetByID returns zero or one record; a missing id is not an error.
func (db *DB) GetByID(ctx context.Context, id int64) ([]models.MenuItemRecord, error) {
	return db.queryRecords(ctx, `SELECT `+menuColumns+` FROM menu_items WHERE id = ?`, id)
}

func (db *DB) GetCategories(ctx context.Context) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT DISTINCT category FROM menu_items ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}
	defer rows.Close()

	categories := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (db *DB) queryRecords(ctx context.Context, query string, args ...interface{}) ([]models.MenuItemRecord, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query menu items: %w", err)
	}
	defer rows.Close()

	records := []models.MenuItemRecord{}
	for rows.Next() {
		var r models.MenuItemRecord
		if err := rows.Scan(&r.ID, &r.Name, &r.Description, &r.Price, &r.Category, &r.Image); err != nil {
			return nil, fmt.Errorf("failed to scan menu item: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
