// Package model defines the record types of the clinic data layer.
//
// # Overview
//
// Every entity persisted by package db has an explicit struct here with
// named, tagged fields. Rows are never handled as positional tuples, so a
// column added by a migration cannot silently shift another field.
//
// # Validation
//
// Each record has a Validate method that performs the boundary checks
// (required fields, ISO dates, HH:MM times, time ranges, enumerations).
// Validation happens before any storage call and reports a *ValidationError:
//
//	p := &model.Patient{FullName: "Ana Silva", BirthDate: "2015-03-10"}
//	if err := p.Validate(); err != nil {
//	    var verr *model.ValidationError
//	    if errors.As(err, &verr) {
//	        fmt.Println(verr.Field) // guardian_name
//	    }
//	}
//
// # Dates
//
// Dates are always ISO (YYYY-MM-DD) and times HH:MM (24h) at this layer.
// Conversion to and from the user-facing DD/MM/YYYY format belongs to the
// presentation layer (see package datefmt).
package model
