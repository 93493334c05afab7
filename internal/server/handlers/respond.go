// internal/server/handlers/respond.go

package handlers

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"strings"
)

// Helper for JSON responses
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Failed to marshal response"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// Helper for error responses
func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// queryFloat parses a float query parameter. Missing, malformed and
// non-finite values read as zero.
func queryFloat(r *http.Request, key string) float64 {
	f, ok := parseFloat(r.URL.Query().Get(key))
	if !ok {
		return 0
	}
	return f
}

// queryFloatOr is queryFloat with a caller supplied default for missing or
// malformed values
func queryFloatOr(r *http.Request, key string, def float64) float64 {
	f, ok := parseFloat(r.URL.Query().Get(key))
	if !ok {
		return def
	}
	return f
}

// queryInt parses an integer query parameter, truncating fractional input.
// Missing or malformed values read as zero.
func queryInt(r *http.Request, key string) int {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if n, err := strconv.Atoi(raw); err == nil {
		return n
	}

	f, ok := parseFloat(raw)
	if !ok {
		return 0
	}
	f = math.Trunc(f)
	switch {
	case f > math.MaxInt32:
		return math.MaxInt32
	case f < math.MinInt32:
		return math.MinInt32
	}
	return int(f)
}

func parseFloat(raw string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
