package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"go-portfolio-cms/pkg/apierror"
)

func parseIntOrDefault(raw string, fallback int) int {
	if strings.TrimSpace(raw) == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}

// pageParams reads page and per_page. limit is accepted as an alias.
func pageParams(r *http.Request) (int, int) {
	query := r.URL.Query()
	perPage := query.Get("per_page")
	if perPage == "" {
		perPage = query.Get("limit")
	}
	return parseIntOrDefault(query.Get("page"), 1), parseIntOrDefault(perPage, 0)
}

func idParam(r *http.Request, name string) (uint, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, apierror.New("BAD_REQUEST", "invalid "+name, name, http.StatusBadRequest)
	}
	return uint(id), nil
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest)
	}
	return nil
}
