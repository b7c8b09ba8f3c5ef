package domain

import (
	"errors"
	"fmt"
)

// RejectReason names the stage at which a biosample was filtered out.
type RejectReason string

const (
	RejectMissingField   RejectReason = "missing_field"
	RejectInvalidDate    RejectReason = "invalid_date"
	RejectUnknownCountry RejectReason = "unknown_country"
	RejectNoStation      RejectReason = "no_station"
	RejectNoObservation  RejectReason = "no_observation"
)

// RejectionError reports that a biosample cannot produce a row. It is
// expected filtering, not a failure.
type RejectionError struct {
	Reason RejectReason
	Detail string
}

func (e *RejectionError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("biosample rejected: %s", e.Reason)
	}
	return fmt.Sprintf("biosample rejected: %s: %s", e.Reason, e.Detail)
}

func reject(reason RejectReason, format string, args ...any) error {
	return &RejectionError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// AsRejection reports whether err is (or wraps) a RejectionError and returns
// its reason.
func AsRejection(err error) (RejectReason, bool) {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej.Reason, true
	}
	return "", false
}
