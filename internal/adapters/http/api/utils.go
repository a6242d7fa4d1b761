package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/tapdiag/internal/domain/eventlog"
	"github.com/okian/tapdiag/internal/domain/model"
)

// maxBodyBytes bounds request bodies for POST endpoints.
const maxBodyBytes = 1 << 20

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeJSON encodes v before committing the status, so an encode failure is
// reported as a 500 instead of an empty success.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		body, _ = json.Marshal(errorResponse{Code: "encode_failed", Message: err.Error()})
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return dec.Decode(v)
}

// parseFilter reads type, category and limit from the query string.
func parseFilter(r *http.Request) (eventlog.Filter, error) {
	q := r.URL.Query()
	var f eventlog.Filter

	if t := strings.TrimSpace(q.Get("type")); t != "" {
		kind, err := model.ParseKind(t)
		if err != nil {
			return f, err
		}
		f.Kind = kind
	}
	f.Category = strings.TrimSpace(q.Get("category"))

	if l := q.Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 0 {
			return f, errInvalidLimit
		}
		f.Limit = n
	}
	return f, nil
}

// parseSince reads a sequence number from the "since" query parameter.
func parseSince(r *http.Request) (uint64, bool, error) {
	s := r.URL.Query().Get("since")
	if s == "" {
		return 0, false, nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, false, errInvalidSince
	}
	return n, true, nil
}
