package ips

import (
	"errors"
	"fmt"
	"strings"
)

// Error taxonomy for summary assembly. All of these are data-validation
// faults: fatal to the call that raised them and never retried internally.
// Rendering and minification faults are recovered locally and never surface
// here.
var (
	// ErrInvalidSubject is returned by SetPatient for a missing record or a
	// record whose kind is not Patient.
	ErrInvalidSubject = errors.New("invalid Patient resource")

	// ErrSubjectNotFound is returned by ReadBundle when the input bundle
	// contains no Patient resource.
	ErrSubjectNotFound = errors.New("Patient resource not found in the bundle")

	// ErrSubjectNotSet is returned by BuildBundle when no patient has been
	// set on the builder.
	ErrSubjectNotSet = errors.New("Patient resource must be set before building the bundle")
)

// MissingMandatoryDataError is returned by AddSection when a section is given
// no records without being marked optional.
type MissingMandatoryDataError struct {
	Section Section
}

func (e *MissingMandatoryDataError) Error() string {
	return fmt.Sprintf("no valid resources for mandatory section: %s", e.Section)
}

// IncompleteMandatorySectionsError is returned by Build when one or more of
// the four mandatory sections was never satisfied by a non-optional
// AddSection call. Missing preserves registry order.
type IncompleteMandatorySectionsError struct {
	Missing []Section
}

func (e *IncompleteMandatorySectionsError) Error() string {
	names := make([]string, len(e.Missing))
	for i, s := range e.Missing {
		names[i] = string(s)
	}
	return "missing mandatory IPS sections: " + strings.Join(names, ", ")
}
