package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"homestead/models"
)

// HouseFilter narrows List results. Zero values mean "no constraint".
type HouseFilter struct {
	City     string
	MinPrice int64
	MaxPrice int64
	Bedrooms int
	Status   models.ListingStatus
	OwnerID  string
	Limit    int
	Offset   int
}

// HouseRepository persists house listings.
type HouseRepository struct {
	db *sql.DB
}

// NewHouseRepository creates a house repository over the given connection.
func NewHouseRepository(db *sql.DB) *HouseRepository {
	return &HouseRepository{db: db}
}

const houseColumns = `id, title, description, price, address, city, bedrooms, bathrooms,
	area_sqm, status, owner_id, photo_paths, created_at, updated_at`

// Create inserts a new house row.
func (r *HouseRepository) Create(h *models.House) error {
	photos, err := json.Marshal(h.PhotoPaths)
	if err != nil {
		return fmt.Errorf("encode photo paths: %w", err)
	}

	_, err = r.db.Exec(`INSERT INTO houses (`+houseColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.ID, h.Title, h.Description, h.Price, h.Address, h.City,
		h.Bedrooms, h.Bathrooms, h.AreaSqm, string(h.Status), h.OwnerID,
		string(photos), h.CreatedAt, h.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert house: %w", err)
	}
	return nil
}

// GetByID returns the house with the given ID, or nil if not found.
func (r *HouseRepository) GetByID(id string) (*models.House, error) {
	row := r.db.QueryRow(`SELECT `+houseColumns+` FROM houses WHERE id = ?`, id)
	house, err := scanHouse(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get house: %w", err)
	}
	return house, nil
}

// Update replaces all mutable fields of an existing house.
func (r *HouseRepository) Update(h *models.House) error {
	photos, err := json.Marshal(h.PhotoPaths)
	if err != nil {
		return fmt.Errorf("encode photo paths: %w", err)
	}

	res, err := r.db.Exec(`UPDATE houses SET title = ?, description = ?, price = ?,
		address = ?, city = ?, bedrooms = ?, bathrooms = ?, area_sqm = ?,
		status = ?, photo_paths = ?, updated_at = ? WHERE id = ?`,
		h.Title, h.Description, h.Price, h.Address, h.City,
		h.Bedrooms, h.Bathrooms, h.AreaSqm, string(h.Status),
		string(photos), h.UpdatedAt, h.ID)
	if err != nil {
		return fmt.Errorf("update house: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update house: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a house row. Returns sql.ErrNoRows if absent.
func (r *HouseRepository) Delete(id string) error {
	res, err := r.db.Exec(`DELETE FROM houses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete house: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete house: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// List returns houses matching the filter, newest first.
func (r *HouseRepository) List(f HouseFilter) ([]models.House, error) {
	query := `SELECT ` + houseColumns + ` FROM houses`
	var conds []string
	var args []any

	if f.City != "" {
		conds = append(conds, "city = ? COLLATE NOCASE")
		args = append(args, f.City)
	}
	if f.MinPrice > 0 {
		conds = append(conds, "price >= ?")
		args = append(args, f.MinPrice)
	}
	if f.MaxPrice > 0 {
		conds = append(conds, "price <= ?")
		args = append(args, f.MaxPrice)
	}
	if f.Bedrooms > 0 {
		conds = append(conds, "bedrooms >= ?")
		args = append(args, f.Bedrooms)
	}
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.OwnerID != "" {
		conds = append(conds, "owner_id = ?")
		args = append(args, f.OwnerID)
	}

	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"

	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
		if f.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, f.Offset)
		}
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list houses: %w", err)
	}
	defer rows.Close()

	var houses []models.House
	for rows.Next() {
		house, err := scanHouse(rows)
		if err != nil {
			return nil, fmt.Errorf("scan house: %w", err)
		}
		houses = append(houses, *house)
	}
	return houses, rows.Err()
}

// CountByStatus returns the number of listings per status.
func (r *HouseRepository) CountByStatus() (map[models.ListingStatus]int, error) {
	rows, err := r.db.Query(`SELECT status, COUNT(*) FROM houses GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.ListingStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[models.ListingStatus(status)] = count
	}
	return counts, rows.Err()
}

// CityCount pairs a city with its listing count.
type CityCount struct {
	City  string `json:"city"`
	Count int    `json:"count"`
}

// TopCities returns the cities with the most listings, descending.
func (r *HouseRepository) TopCities(limit int) ([]CityCount, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.Query(
		`SELECT city, COUNT(*) AS n FROM houses GROUP BY city ORDER BY n DESC, city ASC LIMIT ?`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("top cities: %w", err)
	}
	defer rows.Close()

	var result []CityCount
	for rows.Next() {
		var cc CityCount
		if err := rows.Scan(&cc.City, &cc.Count); err != nil {
			return nil, fmt.Errorf("scan city count: %w", err)
		}
		result = append(result, cc)
	}
	return result, rows.Err()
}

// Count returns the total number of listings.
func (r *HouseRepository) Count() (int, error) {
	var n int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM houses`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count houses: %w", err)
	}
	return n, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanHouse(s scanner) (*models.House, error) {
	var h models.House
	var status, photos string
	err := s.Scan(&h.ID, &h.Title, &h.Description, &h.Price, &h.Address, &h.City,
		&h.Bedrooms, &h.Bathrooms, &h.AreaSqm, &status, &h.OwnerID,
		&photos, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return nil, err
	}
	h.Status = models.ListingStatus(status)
	if photos != "" {
		if err := json.Unmarshal([]byte(photos), &h.PhotoPaths); err != nil {
			return nil, fmt.Errorf("decode photo paths: %w", err)
		}
	}
	return &h, nil
}
