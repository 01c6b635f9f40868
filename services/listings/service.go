package listings

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"homestead/internal/database"
	"homestead/models"
)

var (
	ErrNotFound  = errors.New("listing not found")
	ErrForbidden = errors.New("not allowed to modify this listing")
)

// HouseInput carries the caller-editable fields of a listing.
type HouseInput struct {
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Price       int64                `json:"price"`
	Address     string               `json:"address"`
	City        string               `json:"city"`
	Bedrooms    int                  `json:"bedrooms"`
	Bathrooms   int                  `json:"bathrooms"`
	AreaSqm     float64              `json:"areaSqm"`
	Status      models.ListingStatus `json:"status,omitempty"`
}

// Service implements house listing CRUD on top of the house repository.
type Service struct {
	repo *database.HouseRepository
}

// NewService creates a listings service.
func NewService(repo *database.HouseRepository) *Service {
	return &Service{repo: repo}
}

// Create validates and stores a new listing owned by the given user.
func (s *Service) Create(owner models.User, input HouseInput) (models.House, error) {
	now := time.Now().UTC()
	house := models.House{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Price:       input.Price,
		Address:     strings.TrimSpace(input.Address),
		City:        strings.TrimSpace(input.City),
		Bedrooms:    input.Bedrooms,
		Bathrooms:   input.Bathrooms,
		AreaSqm:     input.AreaSqm,
		Status:      input.Status,
		OwnerID:     owner.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if house.Status == "" {
		house.Status = models.ListingActive
	}

	if err := house.Validate(); err != nil {
		return models.House{}, err
	}

	if err := s.repo.Create(&house); err != nil {
		return models.House{}, fmt.Errorf("create listing: %w", err)
	}
	return house, nil
}

// Get returns a single listing by ID.
func (s *Service) Get(id string) (models.House, error) {
	house, err := s.repo.GetByID(id)
	if err != nil {
		return models.House{}, fmt.Errorf("get listing: %w", err)
	}
	if house == nil {
		return models.House{}, ErrNotFound
	}
	return *house, nil
}

// List returns listings matching the filter.
func (s *Service) List(filter database.HouseFilter) ([]models.House, error) {
	houses, err := s.repo.List(filter)
	if err != nil {
		return nil, fmt.Errorf("list listings: %w", err)
	}
	return houses, nil
}

// Update replaces the editable fields of a listing. Only the owner or a
// role with listing management rights may update.
func (s *Service) Update(actor models.User, id string, input HouseInput) (models.House, error) {
	house, err := s.authorize(actor, id)
	if err != nil {
		return models.House{}, err
	}

	house.Title = strings.TrimSpace(input.Title)
	house.Description = strings.TrimSpace(input.Description)
	house.Price = input.Price
	house.Address = strings.TrimSpace(input.Address)
	house.City = strings.TrimSpace(input.City)
	house.Bedrooms = input.Bedrooms
	house.Bathrooms = input.Bathrooms
	house.AreaSqm = input.AreaSqm
	if input.Status != "" {
		house.Status = input.Status
	}
	house.UpdatedAt = time.Now().UTC()

	if err := house.Validate(); err != nil {
		return models.House{}, err
	}

	if err := s.repo.Update(&house); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.House{}, ErrNotFound
		}
		return models.House{}, fmt.Errorf("update listing: %w", err)
	}
	return house, nil
}

// Delete removes a listing under the same authorization rule as Update.
func (s *Service) Delete(actor models.User, id string) error {
	if _, err := s.authorize(actor, id); err != nil {
		return err
	}

	if err := s.repo.Delete(id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("delete listing: %w", err)
	}
	return nil
}

// AddPhoto appends a stored photo path to a listing.
func (s *Service) AddPhoto(actor models.User, id, path string) (models.House, error) {
	house, err := s.authorize(actor, id)
	if err != nil {
		return models.House{}, err
	}

	house.PhotoPaths = append(house.PhotoPaths, path)
	house.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(&house); err != nil {
		return models.House{}, fmt.Errorf("add photo: %w", err)
	}
	return house, nil
}

// authorize loads the listing and checks the actor may modify it.
func (s *Service) authorize(actor models.User, id string) (models.House, error) {
	house, err := s.Get(id)
	if err != nil {
		return models.House{}, err
	}
	if house.OwnerID != actor.ID && !actor.Role.CanManageListings() {
		return models.House{}, ErrForbidden
	}
	return house, nil
}
