package handler

import (
	"fmt"
	"net/http"
	"strconv"
)

// parseIntParam parses an integer parameter from a string and returns a meaningful error
func parseIntParam(param string, paramName string) (int, error) {
	val, err := strconv.Atoi(param)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: must be an integer", paramName)
	}
	return val, nil
}

// pageParams reads page and page_size. Absent values fall back to page 1 and the
// configured page size; range coercion is left to the service.
func (h *Handler) pageParams(r *http.Request) (page, pageSize int, err error) {
	page, pageSize = 1, h.cfg.Public.PageSize

	q := r.URL.Query()
	if s := q.Get("page"); s != "" {
		if page, err = parseIntParam(s, "page"); err != nil {
			return 0, 0, err
		}
	}
	if s := q.Get("page_size"); s != "" {
		if pageSize, err = parseIntParam(s, "page_size"); err != nil {
			return 0, 0, err
		}
	}
	return page, pageSize, nil
}
