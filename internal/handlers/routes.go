package handlers

import (
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
)

// RouteInfo describes one registered route.
type RouteInfo struct {
	Method string `json:"method"`
	Path   string `json:"path"`
}

// Routes lists the routes registered on router, sorted by path then method.
func Routes(router chi.Routes) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		routes := []RouteInfo{}
		err := chi.Walk(router, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
			routes = append(routes, RouteInfo{Method: method, Path: route})
			return nil
		})
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
			return
		}
		sort.Slice(routes, func(i, j int) bool {
			if routes[i].Path != routes[j].Path {
				return routes[i].Path < routes[j].Path
			}
			return routes[i].Method < routes[j].Method
		})
		writeJSON(w, http.StatusOK, routes)
	}
}
