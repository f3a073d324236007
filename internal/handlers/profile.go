package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oshinstar/accounts-apiserver/internal/services"
	"github.com/oshinstar/accounts-apiserver/internal/storage"
	"github.com/oshinstar/accounts-apiserver/internal/store"
)

const (
	maxPhotoMultipartMemory = 8 << 20
	formFieldPhoto          = "photo"
)

// ProfileHandler provides profile photo upload and download endpoints.
type ProfileHandler struct {
	userService *services.UserService
	photos      *storage.PhotoStore
}

// NewProfileHandler constructs a ProfileHandler with the provided dependencies.
func NewProfileHandler(userService *services.UserService, photos *storage.PhotoStore) *ProfileHandler {
	return &ProfileHandler{
		userService: userService,
		photos:      photos,
	}
}

// ProfileRouter registers profile photo routes on the given router.
func ProfileRouter(r chi.Router, userService *services.UserService, photos *storage.PhotoStore) {
	handler := NewProfileHandler(userService, photos)

	r.Post("/v1/user/{userID}/photo", handler.UploadPhoto)
	r.Get("/v1/user/{userID}/photo", handler.DownloadPhoto)
}

// UploadPhoto stores a profile photo for the user, replacing any
// previous one.
func (h *ProfileHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	if _, err := h.userService.GetByID(r.Context(), userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}

	if err := r.ParseMultipartForm(maxPhotoMultipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	files := r.MultipartForm.File[formFieldPhoto]
	if len(files) != 1 {
		writeError(w, http.StatusBadRequest, "photo file is required")
		return
	}

	fileHeader := files[0]
	file, err := fileHeader.Open()
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read photo")
		return
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	err = h.photos.PutPhoto(r.Context(), userID, file, fileHeader.Size, contentType)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrUnsupportedType):
			writeError(w, http.StatusBadRequest, "only image uploads are supported")
		case errors.Is(err, storage.ErrPhotoTooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, "photo too large")
		default:
			writeError(w, http.StatusInternalServerError, "failed to store photo")
		}
		return
	}

	writeJSON(w, http.StatusOK, struct{}{})
}

// DownloadPhoto streams the user's stored profile photo.
func (h *ProfileHandler) DownloadPhoto(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	photo, err := h.photos.GetPhoto(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusNotFound, "photo not found")
		return
	}
	defer photo.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, photo)
}
