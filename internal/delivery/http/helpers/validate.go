package helpers

import (
	"encoding/json"
	"net/http"
	"strings"
)

// Validator lets request DTOs report field-level problems. A nil or empty
// slice means the payload is acceptable.
type Validator interface {
	Validate() []string
}

// DecodeAndValidate parses the JSON body into dest, rejecting unknown fields,
// then runs dest's Validate when it has one. Failures are answered with a
// 400 error envelope and a false return; the caller returns immediately in
// that case.
func DecodeAndValidate(w http.ResponseWriter, r *http.Request, dest any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		WriteJSONError(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return false
	}

	v, ok := dest.(Validator)
	if !ok {
		return true
	}
	if errs := v.Validate(); len(errs) > 0 {
		WriteJSONError(w, http.StatusBadRequest, ErrCodeBadRequest, strings.Join(errs, "; "))
		return false
	}
	return true
}
