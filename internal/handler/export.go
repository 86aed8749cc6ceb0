package handler

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/tripchat/backend/internal/domain"
)

// csvHeaders defines the column names written as the first row of any CSV export.
var csvHeaders = []string{
	"trip_id", "destination", "start_date", "end_date",
	"day_number", "date", "time", "title", "category",
	"location", "price", "mandatory",
}

// ExportRow is the JSON shape of one export row.
type ExportRow struct {
	TripId      openapi_types.UUID `json:"trip_id"`
	Destination string             `json:"destination"`
	StartDate   openapi_types.Date `json:"start_date"`
	EndDate     openapi_types.Date `json:"end_date"`
	DayNumber   int                `json:"day_number"`
	Date        openapi_types.Date `json:"date"`
	Time        *string            `json:"time,omitempty"`
	Title       *string            `json:"title,omitempty"`
	Category    *string            `json:"category,omitempty"`
	Location    *string            `json:"location,omitempty"`
	Price       *float64           `json:"price,omitempty"`
	Mandatory   bool               `json:"mandatory"`
}

// GetExport handles GET /trips/{tripId}/export.
// It returns one row per activity. Use ?format=csv to receive CSV; default is JSON.
func (s *Server) GetExport(w http.ResponseWriter, r *http.Request) {
	id, ok := tripID(w, r)
	if !ok {
		return
	}
	var format *string
	if err := queryParam(r, "format", &format); err != nil {
		requestError(w, "format must be a string")
		return
	}
	if format != nil && *format != "csv" && *format != "json" {
		requestError(w, `format must be "csv" or "json"`)
		return
	}

	rows, err := s.export.Export(r.Context(), id)
	if err != nil {
		serviceError(w, r, err, "trip not found")
		return
	}

	if format != nil && *format == "csv" {
		body := buildCSV(rows)
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="trip-`+id.String()+`.csv"`)
		w.Header().Set("Content-Length", strconv.Itoa(body.Len()))
		w.WriteHeader(http.StatusOK)
		_, _ = body.WriteTo(w)
		return
	}

	out := make([]ExportRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, exportRowToResponse(row))
	}
	writeJSON(w, http.StatusOK, out)
}

// buildCSV encodes domain rows as CSV, header first.
func buildCSV(rows []domain.ExportRow) *bytes.Buffer {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	//nolint:errcheck // bytes.Buffer.Write never returns an error.
	w.Write(csvHeaders)
	for _, r := range rows {
		//nolint:errcheck
		w.Write(exportRowToCSVRecord(r))
	}
	w.Flush()
	return &buf
}

// exportRowToResponse maps a domain.ExportRow to its JSON shape.
// Empty activity fields become nil pointers (omitempty in JSON).
func exportRowToResponse(r domain.ExportRow) ExportRow {
	tripID, _ := uuid.Parse(r.TripID)
	row := ExportRow{
		TripId:      tripID,
		Destination: r.Destination,
		StartDate:   mustParseDate(r.StartDate),
		EndDate:     mustParseDate(r.EndDate),
		DayNumber:   r.DayNumber,
		Date:        openapi_types.Date{Time: r.Date},
		Price:       r.Price,
		Mandatory:   r.Mandatory,
	}
	row.Time = optional(r.Time)
	row.Title = optional(r.Title)
	row.Category = optional(string(r.Category))
	row.Location = optional(r.Location)
	return row
}

// exportRowToCSVRecord encodes a domain.ExportRow as a flat string slice.
// A nil price is encoded as an empty string.
func exportRowToCSVRecord(r domain.ExportRow) []string {
	price := ""
	if r.Price != nil {
		price = strconv.FormatFloat(*r.Price, 'f', 2, 64)
	}
	return []string{
		r.TripID,
		r.Destination,
		r.StartDate,
		r.EndDate,
		strconv.Itoa(r.DayNumber),
		r.Date.Format(time.DateOnly),
		r.Time,
		r.Title,
		string(r.Category),
		r.Location,
		price,
		strconv.FormatBool(r.Mandatory),
	}
}

// mustParseDate parses an "2006-01-02" string into an openapi_types.Date.
// Panics on malformed input; callers are expected to pass service-generated dates.
func mustParseDate(s string) openapi_types.Date {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic("handler: malformed date from service: " + s)
	}
	return openapi_types.Date{Time: t}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
