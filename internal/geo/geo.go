// Package geo provides distance helpers and the device-fed position source.
package geo

import (
	"math"

	"github.com/pkordes/fleet-logbook/backend/internal/domain"
)

const earthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance between two points.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func toRad(deg float64) float64 { return deg * math.Pi / 180 }

// RouteKm sums the leg distances of route.
func RouteKm(route []domain.LatLng) float64 {
	var total float64
	for i := 1; i < len(route); i++ {
		a, b := route[i-1], route[i]
		total += HaversineKm(a.Lat, a.Lng, b.Lat, b.Lng)
	}
	return total
}

// Valid reports whether p is a finite coordinate inside the WGS84 range.
func Valid(p domain.LatLng) bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}
