package visibility

import (
	"github.com/gorilla/mux"
)

func RegisterRoutes(router *mux.Router, handler *Handler) {
	api := router.PathPrefix("/api/v1/visibility").Subrouter()

	// Visibility decisions
	api.HandleFunc("/check", handler.CheckVisibility).Methods("POST")

	// Audience rules
	api.HandleFunc("/audiences", handler.CreateRule).Methods("POST")
	api.HandleFunc("/audiences", handler.ListRules).Methods("GET")
	api.HandleFunc("/audiences/preview", handler.PreviewAudience).Methods("POST")
	api.HandleFunc("/audiences/{id}", handler.GetRule).Methods("GET")
	api.HandleFunc("/audiences/{id}", handler.UpdateRule).Methods("PUT")
	api.HandleFunc("/audiences/{id}", handler.DeleteRule).Methods("DELETE")
	api.HandleFunc("/audiences/{id}/build", handler.BuildAudience).Methods("POST")
}
