// Package middleware holds the HTTP middleware of the fleet logbook API.
package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// NewCORSHandler allows the driver app and the fleet dashboard origins.
// Origins are full scheme + host values without a trailing slash.
func NewCORSHandler(allowedOrigins []string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodOptions,
		},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		ExposedHeaders: []string{"Content-Disposition"},
	})
	return c.Handler
}
