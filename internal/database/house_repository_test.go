package database

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"homestead/models"
)

// setupTestHouseRepo creates a test database and house repository.
func setupTestHouseRepo(t *testing.T) (*DB, *HouseRepository) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := NewDB(Config{DatabasePath: dbPath})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	repo := NewHouseRepository(db.Connection())
	return db, repo
}

func testHouse(id, city string, price int64) *models.House {
	now := time.Now().UTC()
	return &models.House{
		ID:        id,
		Title:     "Test house " + id,
		Price:     price,
		Address:   "1 Test Lane",
		City:      city,
		Bedrooms:  3,
		Bathrooms: 2,
		AreaSqm:   120,
		Status:    models.ListingActive,
		OwnerID:   "owner-1",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestNewDB_MissingPath(t *testing.T) {
	_, err := NewDB(Config{})
	if err != ErrDatabasePathRequired {
		t.Errorf("expected ErrDatabasePathRequired, got %v", err)
	}
}

func TestCreateHouse_Success(t *testing.T) {
	_, repo := setupTestHouseRepo(t)

	house := testHouse("h1", "Bangkok", 3_500_000_00)
	house.PhotoPaths = []string{"photos/h1/front.jpg"}

	if err := repo.Create(house); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	retrieved, err := repo.GetByID("h1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if retrieved == nil {
		t.Fatal("expected house to be retrievable")
	}
	if retrieved.City != "Bangkok" {
		t.Errorf("expected city 'Bangkok', got %q", retrieved.City)
	}
	if retrieved.Price != 3_500_000_00 {
		t.Errorf("expected price %d, got %d", int64(3_500_000_00), retrieved.Price)
	}
	if len(retrieved.PhotoPaths) != 1 || retrieved.PhotoPaths[0] != "photos/h1/front.jpg" {
		t.Errorf("expected photo paths to round-trip, got %v", retrieved.PhotoPaths)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	_, repo := setupTestHouseRepo(t)

	retrieved, err := repo.GetByID("nonexistent")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if retrieved != nil {
		t.Error("expected nil for non-existent house")
	}
}

func TestUpdate_Success(t *testing.T) {
	_, repo := setupTestHouseRepo(t)

	house := testHouse("h1", "Bangkok", 100)
	repo.Create(house)

	house.Price = 200
	house.Status = models.ListingSold
	house.UpdatedAt = time.Now().UTC()

	if err := repo.Update(house); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	retrieved, _ := repo.GetByID("h1")
	if retrieved.Price != 200 {
		t.Errorf("expected updated price 200, got %d", retrieved.Price)
	}
	if retrieved.Status != models.ListingSold {
		t.Errorf("expected status SOLD, got %q", retrieved.Status)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	_, repo := setupTestHouseRepo(t)

	house := testHouse("ghost", "Nowhere", 100)
	if err := repo.Update(house); err != sql.ErrNoRows {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestDelete_Success(t *testing.T) {
	_, repo := setupTestHouseRepo(t)

	repo.Create(testHouse("h1", "Bangkok", 100))

	if err := repo.Delete("h1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	retrieved, _ := repo.GetByID("h1")
	if retrieved != nil {
		t.Error("expected house to be deleted")
	}
}

func TestDelete_NotFound(t *testing.T) {
	_, repo := setupTestHouseRepo(t)

	if err := repo.Delete("ghost"); err != sql.ErrNoRows {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestList_Filters(t *testing.T) {
	_, repo := setupTestHouseRepo(t)

	repo.Create(testHouse("h1", "Bangkok", 100))
	repo.Create(testHouse("h2", "Bangkok", 300))
	repo.Create(testHouse("h3", "Chiang Mai", 200))

	sold := testHouse("h4", "Bangkok", 150)
	sold.Status = models.ListingSold
	repo.Create(sold)

	byCity, err := repo.List(HouseFilter{City: "bangkok"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(byCity) != 3 {
		t.Errorf("expected 3 Bangkok houses (case-insensitive), got %d", len(byCity))
	}

	byPrice, err := repo.List(HouseFilter{MinPrice: 150, MaxPrice: 250})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(byPrice) != 2 {
		t.Errorf("expected 2 houses in price range, got %d", len(byPrice))
	}

	byStatus, err := repo.List(HouseFilter{Status: models.ListingSold})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(byStatus) != 1 || byStatus[0].ID != "h4" {
		t.Errorf("expected only the sold house, got %v", byStatus)
	}
}

func TestList_Pagination(t *testing.T) {
	_, repo := setupTestHouseRepo(t)

	base := time.Now().UTC()
	for i, id := range []string{"h1", "h2", "h3"} {
		h := testHouse(id, "Bangkok", 100)
		h.CreatedAt = base.Add(time.Duration(i) * time.Second)
		h.UpdatedAt = h.CreatedAt
		repo.Create(h)
	}

	page, err := repo.List(HouseFilter{Limit: 2})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("expected 2 houses, got %d", len(page))
	}
	// Newest first
	if page[0].ID != "h3" {
		t.Errorf("expected newest house first, got %q", page[0].ID)
	}

	rest, err := repo.List(HouseFilter{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(rest) != 1 || rest[0].ID != "h1" {
		t.Errorf("expected final page with h1, got %v", rest)
	}
}

func TestCountByStatus(t *testing.T) {
	_, repo := setupTestHouseRepo(t)

	repo.Create(testHouse("h1", "Bangkok", 100))
	repo.Create(testHouse("h2", "Bangkok", 100))
	sold := testHouse("h3", "Bangkok", 100)
	sold.Status = models.ListingSold
	repo.Create(sold)

	counts, err := repo.CountByStatus()
	if err != nil {
		t.Fatalf("CountByStatus failed: %v", err)
	}
	if counts[models.ListingActive] != 2 {
		t.Errorf("expected 2 active, got %d", counts[models.ListingActive])
	}
	if counts[models.ListingSold] != 1 {
		t.Errorf("expected 1 sold, got %d", counts[models.ListingSold])
	}
}

func TestTopCities(t *testing.T) {
	_, repo := setupTestHouseRepo(t)

	repo.Create(testHouse("h1", "Bangkok", 100))
	repo.Create(testHouse("h2", "Bangkok", 100))
	repo.Create(testHouse("h3", "Phuket", 100))

	cities, err := repo.TopCities(5)
	if err != nil {
		t.Fatalf("TopCities failed: %v", err)
	}
	if len(cities) != 2 {
		t.Fatalf("expected 2 cities, got %d", len(cities))
	}
	if cities[0].City != "Bangkok" || cities[0].Count != 2 {
		t.Errorf("expected Bangkok with 2 listings first, got %+v", cities[0])
	}
}
