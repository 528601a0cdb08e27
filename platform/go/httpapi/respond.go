// Package httpapi holds the JSON conventions shared by every domain handler:
// the error taxonomy with its status-code mapping, the page envelope, and the
// pagination query-parameter parsing.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/loyaltycore/campaigns-api/platform/go/pagination"
)

// ErrorKind enumerates the error taxonomy exposed on the wire. Each kind maps
// to exactly one HTTP status; not_found deliberately covers both "absent" and
// "belongs to another tenant" so resource ids cannot be probed across tenants.
type ErrorKind string

const (
	KindUnauthenticated          ErrorKind = "unauthenticated"
	KindForbidden                ErrorKind = "forbidden"
	KindNotFound                 ErrorKind = "not_found"
	KindTenantMismatch           ErrorKind = "tenant_mismatch"
	KindParticipantNotInCampaign ErrorKind = "participant_not_in_campaign"
	KindHasAssociations          ErrorKind = "has_associations"
	KindValidation               ErrorKind = "validation_error"
	KindInternal                 ErrorKind = "internal_error"
)

// Status returns the one HTTP status code for the kind.
func (k ErrorKind) Status() int {
	switch k {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden, KindTenantMismatch:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindParticipantNotInCampaign, KindHasAssociations, KindValidation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    ErrorKind           `json:"kind"`
	Message string              `json:"message"`
	Fields  map[string][]string `json:"fields,omitempty"`
}

// WriteJSON serializes v with the given status. Encoding failures are
// swallowed; by then the status line is already on the wire.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// WriteError emits the error envelope for the kind.
func WriteError(w http.ResponseWriter, kind ErrorKind, message string) {
	WriteJSON(w, kind.Status(), errorBody{Error: errorDetail{Kind: kind, Message: message}})
}

// WriteValidationError emits a validation_error envelope with field detail.
func WriteValidationError(w http.ResponseWriter, fields map[string][]string) {
	WriteJSON(w, KindValidation.Status(), errorBody{Error: errorDetail{
		Kind:    KindValidation,
		Message: "one or more fields are invalid",
		Fields:  fields,
	}})
}

// DecodeJSON parses the request body into dst.
func DecodeJSON(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	return json.NewDecoder(r.Body).Decode(dst)
}

// PageEnvelope is the wire shape of every list response.
type PageEnvelope struct {
	Data       interface{} `json:"data"`
	NextCursor *time.Time  `json:"next_cursor"`
	HasMore    bool        `json:"has_more"`
}

// WritePageJSON emits the page envelope around already-mapped items.
func WritePageJSON(w http.ResponseWriter, data interface{}, nextCursor *time.Time, hasMore bool) {
	WriteJSON(w, http.StatusOK, PageEnvelope{Data: data, NextCursor: nextCursor, HasMore: hasMore})
}

// ParsePageOptions reads limit/cursor/order/cursor_field query parameters.
// Unparseable values are treated as absent; Normalize fills the defaults.
func ParsePageOptions(r *http.Request) pagination.Options {
	opts := pagination.Options{}
	q := r.URL.Query()

	if raw := q.Get("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil {
			opts.Limit = limit
		}
	}
	if raw := q.Get("cursor"); raw != "" {
		if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			opts.Cursor = &ts
		}
	}
	if order, ok := pagination.ParseOrder(q.Get("order")); ok {
		opts.Order = order
	}
	if field, ok := pagination.ParseField(q.Get("cursor_field")); ok {
		opts.Field = field
	}

	return opts
}
