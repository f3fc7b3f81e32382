package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

func decodeJSON(body io.ReadCloser, v any) error {
	defer func() { _ = body.Close() }()
	dec := json.NewDecoder(io.LimitReader(body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body required")
		}
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}

func writeServiceError(w http.ResponseWriter, err error) {
	var httpErr *Error
	if errors.As(err, &httpErr) {
		writeJSONError(w, httpErr)
		return
	}
	writeJSONError(w, NewHTTPError(http.StatusInternalServerError, ProcessingError, UpstreamFailure, "internal server error"))
}

func writeJSONError(w http.ResponseWriter, payload *Error) {
	if payload == nil {
		payload = NewHTTPError(http.StatusInternalServerError, ProcessingError, UpstreamFailure, "internal server error")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(payload.StatusCode())
	_ = json.NewEncoder(w).Encode(payload)
}

func writeRawJSON(w http.ResponseWriter, status int, payload json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(payload)
}
