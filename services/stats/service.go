package stats

import (
	"fmt"

	"github.com/sourcegraph/conc/pool"

	"homestead/internal/database"
	"homestead/models"
)

// Dashboard holds the aggregates shown on the admin dashboard.
type Dashboard struct {
	TotalListings    int                          `json:"totalListings"`
	ListingsByStatus map[models.ListingStatus]int `json:"listingsByStatus"`
	TopCities        []database.CityCount         `json:"topCities"`
	UsersByRole      map[models.Role]int          `json:"usersByRole"`
	ActiveUsers      int                          `json:"activeUsers"`
}

// UserLister is the slice of the users service needed for aggregation.
type UserLister interface {
	List() []models.User
}

// Service computes dashboard aggregates.
type Service struct {
	houses *database.HouseRepository
	users  UserLister
}

// NewService creates a stats service.
func NewService(houses *database.HouseRepository, users UserLister) *Service {
	return &Service{houses: houses, users: users}
}

// Dashboard runs the individual aggregate queries concurrently and
// assembles the result. Any single query error fails the whole call.
func (s *Service) Dashboard(topCityLimit int) (*Dashboard, error) {
	var (
		total     int
		byStatus  map[models.ListingStatus]int
		topCities []database.CityCount
	)

	p := pool.New().WithErrors()
	p.Go(func() error {
		var err error
		total, err = s.houses.Count()
		return err
	})
	p.Go(func() error {
		var err error
		byStatus, err = s.houses.CountByStatus()
		return err
	})
	p.Go(func() error {
		var err error
		topCities, err = s.houses.TopCities(topCityLimit)
		return err
	})
	if err := p.Wait(); err != nil {
		return nil, fmt.Errorf("aggregate listings: %w", err)
	}

	byRole := make(map[models.Role]int)
	active := 0
	for _, u := range s.users.List() {
		byRole[u.Role]++
		if u.IsActive {
			active++
		}
	}

	return &Dashboard{
		TotalListings:    total,
		ListingsByStatus: byStatus,
		TopCities:        topCities,
		UsersByRole:      byRole,
		ActiveUsers:      active,
	}, nil
}
