package api

import "net/http"

func (h *Handler) listCompanies(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	JSON(w, http.StatusOK, map[string]interface{}{
		"companies": h.catalog.Search(q.Get("q"), q.Get("category")),
	})
}

func (h *Handler) listCategories(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]interface{}{
		"categories": h.catalog.Categories(),
	})
}
