package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/spf13/afero"

	"homestead/internal/auth"
	"homestead/services/listings"
	"homestead/services/users"
)

// maxPhotoBytes caps uploaded photo size at 10 MiB.
const maxPhotoBytes = 10 << 20

// allowedPhotoTypes maps accepted MIME types to their stored extensions.
var allowedPhotoTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// PhotosHandler stores listing photos on the configured filesystem.
type PhotosHandler struct {
	listings *listings.Service
	users    *users.Service
	fs       afero.Fs
}

// NewPhotosHandler creates a photos handler writing into the given filesystem.
func NewPhotosHandler(listingsSvc *listings.Service, usersSvc *users.Service, fs afero.Fs) *PhotosHandler {
	return &PhotosHandler{
		listings: listingsSvc,
		users:    usersSvc,
		fs:       fs,
	}
}

// Upload accepts a multipart "photo" field, sniffs its real content type,
// and attaches the stored path to the listing. The client-declared
// Content-Type is ignored; only sniffed bytes decide acceptance.
func (h *PhotosHandler) Upload(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.users.Get(auth.GetUserID(r))
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "account no longer exists")
		return
	}

	houseID := mux.Vars(r)["houseID"]

	r.Body = http.MaxBytesReader(w, r.Body, maxPhotoBytes)
	file, _, err := r.FormFile("photo")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "missing photo upload")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	mtype := mimetype.Detect(data)
	ext, ok := allowedPhotoTypes[mtype.String()]
	if !ok {
		writeMessage(w, http.StatusUnsupportedMediaType,
			fmt.Sprintf("unsupported photo type %s", mtype.String()))
		return
	}

	storedPath := path.Join("photos", houseID, uuid.NewString()+ext)
	if err := h.fs.MkdirAll(path.Dir(storedPath), 0o755); err != nil {
		writeMessage(w, http.StatusInternalServerError, "failed to store photo")
		return
	}
	if err := afero.WriteFile(h.fs, storedPath, data, 0o644); err != nil {
		writeMessage(w, http.StatusInternalServerError, "failed to store photo")
		return
	}

	house, err := h.listings.AddPhoto(actor, houseID, storedPath)
	if err != nil {
		// Don't leave orphaned files behind on authorization failures
		_ = h.fs.Remove(storedPath)
		if errors.Is(err, listings.ErrNotFound) {
			writeMessage(w, http.StatusNotFound, "house not found")
			return
		}
		if errors.Is(err, listings.ErrForbidden) {
			writeMessage(w, http.StatusForbidden, "not allowed to modify this listing")
			return
		}
		writeMessage(w, http.StatusInternalServerError, "failed to attach photo")
		return
	}

	writeJSON(w, http.StatusCreated, house)
}
