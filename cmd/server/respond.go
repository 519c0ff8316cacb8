package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/Simplici0/margingate/internal/errx"
	"github.com/Simplici0/margingate/internal/logx"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	body, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, `{"error":"encode_error"}`, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeJSONError(w http.ResponseWriter, status int, msg string, details any) {
	writeJSON(w, status, errorResponse{Error: msg, Details: details})
}

// writeError maps err through errx and logs anything the caller did not cause.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	app := errx.FromDomain(err)
	if app.Status >= http.StatusInternalServerError {
		logx.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
	}
	writeJSONError(w, app.Status, app.Message, nil)
}

var errEmptyBody = errors.New("el cuerpo de la solicitud está vacío")

// decodeJSON reads a JSON body into dst, refusing unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return fmt.Errorf("JSON inválido: %v", err)
	}
	return nil
}

func parseIDParam(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s debe ser un entero positivo", name)
	}
	return id, nil
}

func parseLimit(raw string) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("limit debe ser numérico")
	}
	if value < 0 || value > 500 {
		return 0, fmt.Errorf("limit debe estar entre 0 y 500")
	}
	return value, nil
}

func requireDecimal(v *decimal.Decimal, field string) (decimal.Decimal, error) {
	if v == nil {
		return decimal.Zero, fmt.Errorf("%s es obligatorio", field)
	}
	return *v, nil
}
