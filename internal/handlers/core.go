package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oshinstar/accounts-apiserver/internal/refdata"
)

// CoreRouter registers reference-data routes on the given router.
func CoreRouter(r chi.Router) {
	r.Get("/v1/core/industries", GetIndustries)
}

// GetIndustries returns the platform industries. Passing a `categories`
// query parameter, with any value, includes each industry's categories.
func GetIndustries(w http.ResponseWriter, r *http.Request) {
	withCategories := r.URL.Query().Has("categories")
	writeJSON(w, http.StatusOK, IndustriesResponse{
		Industries: refdata.Industries(withCategories),
	})
}

// IndustriesResponse is the reference-data list payload.
type IndustriesResponse struct {
	Industries []refdata.Industry `json:"industries"`
}
