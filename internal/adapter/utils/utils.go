package utils

import (
	"net/http"

	_ "github.com/fhiba/2025Q2-G4/cmd/api/docs"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/swaggo/http-swagger"
)

func GetNewUUID() string {
	return uuid.New().String()
}

type RouterClient struct {
	Router *chi.Mux
}

// NewRouter returns a router with swagger and the prometheus endpoint mounted.
func NewRouter() RouterClient {
	router := chi.NewRouter()
	InitSwagger(router)
	router.Handle("/metrics", promhttp.Handler())
	return RouterClient{Router: router}
}

func InitSwagger(r *chi.Mux) {
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/swagger/index.html", http.StatusMovedPermanently)
	})
	r.Get("/swagger/*", httpSwagger.WrapHandler)
}
