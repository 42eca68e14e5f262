package biz

import (
	"fmt"

	"github.com/sealvault/sealvault-backend/internal/pkg/validator"
)

// Access deny reasons surfaced in decisions and published events.
const (
	ReasonQuotaExhausted   = "quota exhausted"
	ReasonOutsideWindow    = "outside access window"
	ReasonDurationExceeded = "per-user access duration exceeded"
	ReasonIdentityMismatch = "identity not allowed"
)

// Condition is the multi-factor access condition attached to a file.
// Empty identity sets mean no restriction on that axis.
type Condition struct {
	ConditionType        string
	AllowedEmails        []string
	AllowedAddresses     []string
	AllowedSuinsNames    []string
	AccessStartTime      *int64 // unix ms
	AccessEndTime        *int64 // unix ms
	MaxAccessDuration    *int64 // ms, measured from each user's first access
	RequireAllConditions bool
	MaxAccessCount       *uint64
	CurrentAccessCount   uint64
}

// Validate rejects malformed conditions before they are stored.
func (c *Condition) Validate() error {
	for _, email := range c.AllowedEmails {
		if !validator.IsValidEmail(email) {
			return fmt.Errorf("malformed email in allow list: %q", email)
		}
	}
	for _, addr := range c.AllowedAddresses {
		if !validator.IsValidAddress(addr) {
			return fmt.Errorf("malformed address in allow list: %q", addr)
		}
	}
	for _, name := range c.AllowedSuinsNames {
		if !validator.IsValidSuinsName(name) {
			return fmt.Errorf("malformed suins name in allow list: %q", name)
		}
	}
	if c.AccessStartTime != nil && c.AccessEndTime != nil && *c.AccessEndTime < *c.AccessStartTime {
		return fmt.Errorf("access window end %d precedes start %d", *c.AccessEndTime, *c.AccessStartTime)
	}
	if c.MaxAccessDuration != nil && *c.MaxAccessDuration <= 0 {
		return fmt.Errorf("max access duration must be positive, got %d", *c.MaxAccessDuration)
	}
	if c.MaxAccessCount != nil && *c.MaxAccessCount == 0 {
		return fmt.Errorf("max access count must be positive")
	}
	return nil
}

// Identity is the caller's presented identity claims.
type Identity struct {
	Address   string
	Email     string
	SuinsName string
}

// UserAccessRecord tracks one user's access history against one file.
// FirstAccessTime is set once and never moves.
type UserAccessRecord struct {
	UserAddress     string
	UserEmail       string
	AccessTimestamp int64
	AccessCount     uint64
	FirstAccessTime int64
}

// Decision is the outcome of evaluating a condition for one caller.
type Decision struct {
	Granted bool
	Reason  string
}

// Evaluate computes a grant/deny decision for the presented identity at the
// given time. It is pure: both the recording path and the read-only preview
// path use this single composition.
//
// The quota check short-circuits everything else. Identity axes default to
// allow when their set is empty. The time gate (absolute window plus the
// per-user duration measured from the user's first recorded access) is always
// hard: in OR mode the identity axes are alternatives, but a caller outside
// the time gate is denied regardless.
func Evaluate(cond *Condition, id Identity, now int64, rec *UserAccessRecord) Decision {
	if cond.MaxAccessCount != nil && cond.CurrentAccessCount >= *cond.MaxAccessCount {
		return Decision{Granted: false, Reason: ReasonQuotaExhausted}
	}

	emailOK := len(cond.AllowedEmails) == 0 || contains(cond.AllowedEmails, id.Email)
	addressOK := len(cond.AllowedAddresses) == 0 || contains(cond.AllowedAddresses, id.Address)
	suinsOK := len(cond.AllowedSuinsNames) == 0 || contains(cond.AllowedSuinsNames, id.SuinsName)

	if cond.AccessStartTime != nil && now < *cond.AccessStartTime {
		return Decision{Granted: false, Reason: ReasonOutsideWindow}
	}
	if cond.AccessEndTime != nil && now > *cond.AccessEndTime {
		return Decision{Granted: false, Reason: ReasonOutsideWindow}
	}
	if cond.MaxAccessDuration != nil && rec != nil && now-rec.FirstAccessTime > *cond.MaxAccessDuration {
		return Decision{Granted: false, Reason: ReasonDurationExceeded}
	}

	var granted bool
	if cond.RequireAllConditions {
		granted = emailOK && addressOK && suinsOK
	} else {
		granted = emailOK || addressOK || suinsOK
	}
	if !granted {
		return Decision{Granted: false, Reason: ReasonIdentityMismatch}
	}
	return Decision{Granted: true}
}

func contains(set []string, v string) bool {
	if v == "" {
		return false
	}
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
