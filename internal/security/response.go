package security

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// WriteJSON encodes v before touching the response, so a value that cannot
// be encoded turns into a 500 error body instead of a truncated 2xx.
func WriteJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body, _ = json.Marshal(ErrorResponse{
			Error:         "encoding_error",
			CorrelationID: CorrelationIDFromContext(r.Context()),
		})
	}
	body = append(body, '\n')

	h := w.Header()
	if cid := CorrelationIDFromContext(r.Context()); cid != "" {
		h.Set(CorrelationIDHeader, cid)
	}
	h.Set("Content-Type", "application/json")
	h.Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
