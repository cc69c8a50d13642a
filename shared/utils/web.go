package utils

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/threadline-dev/threadline/shared/errors"
	"github.com/threadline-dev/threadline/shared/logger"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// WriteErrorAndStatusCode maps typed errors onto their status code. Anything else is
// logged and reported as a bare 500.
func WriteErrorAndStatusCode(w http.ResponseWriter, err error) {
	var withCode *errors.ErrorWithStatusCode
	if stderrors.As(err, &withCode) {
		http.Error(w, withCode.Message, withCode.StatusCode)
		return
	}
	var statuser errors.HTTPStatuser
	if stderrors.As(err, &statuser) {
		status := statuser.HTTPStatus()
		if status >= http.StatusInternalServerError {
			logger.Log.Error("request failed", "error", err)
			http.Error(w, "Internal server error", status)
			return
		}
		http.Error(w, err.Error(), status)
		return
	}
	// default error is 500
	logger.Log.Error("request failed", "error", err)
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}

// WriteJSON encodes v with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Error("failed to encode response", "error", err)
	}
}

func GetIP(r *http.Request) (string, error) {
	//Get IP from the X-REAL-IP header
	ip := r.Header.Get("X-REAL-IP")
	netIP := net.ParseIP(ip)
	if netIP != nil {
		return ip, nil
	}

	//Get IP from X-FORWARDED-FOR header
	ips := r.Header.Get("X-FORWARDED-FOR")
	for _, ip := range strings.Split(ips, ",") {
		ip = strings.TrimSpace(ip)
		if net.ParseIP(ip) != nil {
			return ip, nil
		}
	}

	//Get IP from RemoteAddr
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return "", err
	}
	if net.ParseIP(ip) != nil {
		return ip, nil
	}
	return "", fmt.Errorf("no valid ip found")
}

func DecodeValidate(r io.ReadCloser, body any) error {
	if err := json.NewDecoder(r).Decode(body); err != nil {
		logger.Log.Debug("invalid request body", "error", err)
		return &errors.ErrorWithStatusCode{Message: "Body is invalid json", StatusCode: http.StatusBadRequest}
	}
	if err := validate.Struct(body); err != nil {
		logger.Log.Debug("request body failed validation", "error", err)
		return &errors.ErrorWithStatusCode{Message: "Required fields missing", StatusCode: http.StatusBadRequest}
	}
	return nil
}
