package graphql

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	graphql "github.com/graph-gophers/graphql-go"
)

const maxBodyBytes = 1 << 20

// ServeHTTP serves POST GraphQL requests. OPTIONS gets an empty 204 and any
// other method a 405.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	for k, v := range Headers() {
		w.Header().Set(k, v)
	}

	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
		return
	case http.MethodPost:
	default:
		w.Header().Set("Allow", "POST, OPTIONS")
		writeResponse(w, http.StatusMethodNotAllowed, ErrorResponse(errors.New("method not allowed")))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeResponse(w, http.StatusBadRequest, ErrorResponse(err))
		return
	}
	req, err := DecodeRequest(body)
	if err != nil {
		writeResponse(w, http.StatusBadRequest, ErrorResponse(err))
		return
	}

	resp := s.Execute(r.Context(), req)
	writeResponse(w, StatusCode(resp), resp)
}

func writeResponse(w http.ResponseWriter, status int, resp *graphql.Response) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
