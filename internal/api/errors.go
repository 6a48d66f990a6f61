package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

const maxRequestBodySize = 10 << 20 // 10MB, transcripts can be long

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
