package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"homestead/internal/auth"
	"homestead/internal/database"
	"homestead/models"
	"homestead/services/listings"
	"homestead/services/users"
)

const defaultPageSize = 20

// ListingsHandler handles house listing endpoints.
type ListingsHandler struct {
	listings *listings.Service
	users    *users.Service
}

// NewListingsHandler creates a new listings handler.
func NewListingsHandler(listingsSvc *listings.Service, usersSvc *users.Service) *ListingsHandler {
	return &ListingsHandler{
		listings: listingsSvc,
		users:    usersSvc,
	}
}

// List returns houses matching the query-param filters.
// Supported params: city, minPrice, maxPrice, bedrooms, status, owner, page, pageSize.
func (h *ListingsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := database.HouseFilter{
		City:    q.Get("city"),
		OwnerID: q.Get("owner"),
		Status:  models.ListingStatus(q.Get("status")),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		writeMessage(w, http.StatusBadRequest, "unknown listing status")
		return
	}

	filter.MinPrice, _ = strconv.ParseInt(q.Get("minPrice"), 10, 64)
	filter.MaxPrice, _ = strconv.ParseInt(q.Get("maxPrice"), 10, 64)
	filter.Bedrooms, _ = strconv.Atoi(q.Get("bedrooms"))

	pageSize, _ := strconv.Atoi(q.Get("pageSize"))
	if pageSize <= 0 || pageSize > 100 {
		pageSize = defaultPageSize
	}
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	filter.Limit = pageSize
	filter.Offset = (page - 1) * pageSize

	houses, err := h.listings.List(filter)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "failed to list houses")
		return
	}
	if houses == nil {
		houses = []models.House{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"houses":   houses,
		"page":     page,
		"pageSize": pageSize,
	})
}

// Get returns a single house by ID.
func (h *ListingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	house, err := h.listings.Get(mux.Vars(r)["houseID"])
	if err != nil {
		if errors.Is(err, listings.ErrNotFound) {
			writeMessage(w, http.StatusNotFound, "house not found")
			return
		}
		writeMessage(w, http.StatusInternalServerError, "failed to load house")
		return
	}
	writeJSON(w, http.StatusOK, house)
}

// Create adds a new listing owned by the authenticated user.
func (h *ListingsHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(r)
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "account no longer exists")
		return
	}

	var input listings.HouseInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	house, err := h.listings.Create(actor, input)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, house)
}

// Update modifies an existing listing.
func (h *ListingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(r)
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "account no longer exists")
		return
	}

	var input listings.HouseInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	house, err := h.listings.Update(actor, mux.Vars(r)["houseID"], input)
	if err != nil {
		writeListingError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, house)
}

// Delete removes a listing.
func (h *ListingsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(r)
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "account no longer exists")
		return
	}

	if err := h.listings.Delete(actor, mux.Vars(r)["houseID"]); err != nil {
		writeListingError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// actor loads the full user record for the authenticated request.
func (h *ListingsHandler) actor(r *http.Request) (models.User, bool) {
	return h.users.Get(auth.GetUserID(r))
}

func writeListingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, listings.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "house not found")
	case errors.Is(err, listings.ErrForbidden):
		writeMessage(w, http.StatusForbidden, "not allowed to modify this listing")
	default:
		writeMessage(w, http.StatusBadRequest, err.Error())
	}
}
