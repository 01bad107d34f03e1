package handler

import (
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"github.com/oapi-codegen/runtime"

	"github.com/pkordes/fleet-logbook/backend/internal/domain"
)

// csvHeaders defines the column names written as the first row of any CSV export.
var csvHeaders = []string{
	"trip_id", "archived_at", "started_at", "driver_name", "plate", "vehicle_class",
	"distance_km", "fuel_added", "fuel_cost", "expenses", "total_cost",
	"failed_items", "conditions", "stops",
}

// ExportRow is the JSON shape of one export row.
type ExportRow struct {
	TripID       string    `json:"trip_id"`
	ArchivedAt   time.Time `json:"archived_at"`
	StartedAt    time.Time `json:"started_at"`
	DriverName   string    `json:"driver_name"`
	Plate        string    `json:"plate"`
	VehicleClass string    `json:"vehicle_class"`
	DistanceKm   int       `json:"distance_km"`
	FuelAdded    float64   `json:"fuel_added"`
	FuelCost     float64   `json:"fuel_cost"`
	Expenses     float64   `json:"expenses"`
	TotalCost    float64   `json:"total_cost"`
	FailedItems  int       `json:"failed_items"`
	Conditions   int       `json:"conditions"`
	Stops        int       `json:"stops"`
}

// GetExport handles GET /trips/export.
// It returns one row per archived trip. CSV is the default; use
// ?format=json for JSON.
func (s *Server) GetExport(w http.ResponseWriter, r *http.Request) {
	var format *string
	if err := runtime.BindQueryParameter("form", true, false, "format", r.URL.Query(), &format); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "invalid format")
		return
	}
	wantJSON := false
	if format != nil {
		switch *format {
		case "json":
			wantJSON = true
		case "csv":
		default:
			writeError(w, http.StatusUnprocessableEntity, "validation_error", "format must be csv or json")
			return
		}
	}

	rows, err := s.fleet.Export(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	if wantJSON {
		out := make([]ExportRow, len(rows))
		for i, row := range rows {
			out[i] = ExportRow(row)
		}
		writeJSON(w, http.StatusOK, out)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="fleet-trips.csv"`)
	w.WriteHeader(http.StatusOK)
	cw := csv.NewWriter(w)
	_ = cw.Write(csvHeaders)
	for _, row := range rows {
		_ = cw.Write(csvRecord(row))
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		s.logger.WarnContext(r.Context(), "export write failed", "error", err)
	}
}

// csvRecord encodes a row in csvHeaders order. Times are RFC 3339 in UTC.
func csvRecord(r domain.ExportRow) []string {
	money := func(f float64) string { return strconv.FormatFloat(f, 'f', 2, 64) }
	return []string{
		r.TripID,
		r.ArchivedAt.UTC().Format(time.RFC3339),
		r.StartedAt.UTC().Format(time.RFC3339),
		r.DriverName,
		r.Plate,
		r.VehicleClass,
		strconv.Itoa(r.DistanceKm),
		strconv.FormatFloat(r.FuelAdded, 'f', -1, 64),
		money(r.FuelCost),
		money(r.Expenses),
		money(r.TotalCost),
		strconv.Itoa(r.FailedItems),
		strconv.Itoa(r.Conditions),
		strconv.Itoa(r.Stops),
	}
}
