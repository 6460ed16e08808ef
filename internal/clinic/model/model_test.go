package model

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestPatient_Validate(t *testing.T) {
	tests := []struct {
		name    string
		patient Patient
		wantErr bool
		field   string
	}{
		{
			name:    "valid patient",
			patient: Patient{FullName: "Ana Silva", BirthDate: "2015-03-10", GuardianName: "Maria Silva"},
		},
		{
			name:    "missing name",
			patient: Patient{BirthDate: "2015-03-10", GuardianName: "Maria Silva"},
			wantErr: true,
			field:   "full_name",
		},
		{
			name:    "whitespace name",
			patient: Patient{FullName: "   ", BirthDate: "2015-03-10", GuardianName: "Maria Silva"},
			wantErr: true,
			field:   "full_name",
		},
		{
			name:    "user-facing date format",
			patient: Patient{FullName: "Ana Silva", BirthDate: "10/03/2015", GuardianName: "Maria Silva"},
			wantErr: true,
			field:   "birth_date",
		},
		{
			name:    "impossible date",
			patient: Patient{FullName: "Ana Silva", BirthDate: "2015-02-30", GuardianName: "Maria Silva"},
			wantErr: true,
			field:   "birth_date",
		},
		{
			name:    "missing guardian",
			patient: Patient{FullName: "Ana Silva", BirthDate: "2015-03-10"},
			wantErr: true,
			field:   "guardian_name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.patient.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr {
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() error type = %T, want *ValidationError", err)
			}
			if verr.Field != tt.field {
				t.Errorf("Field = %q, want %q", verr.Field, tt.field)
			}
		})
	}
}

func TestPatient_Age(t *testing.T) {
	p := Patient{BirthDate: "2015-03-10"}
	tests := []struct {
		asOf string
		want int
	}{
		{"2024-03-09", 8},
		{"2024-03-10", 9},
		{"2024-12-31", 9},
		{"2010-01-01", 0},
	}
	for _, tt := range tests {
		asOf, _ := time.Parse(DateLayout, tt.asOf)
		got, err := p.Age(asOf)
		if err != nil {
			t.Fatalf("Age(%s) failed: %v", tt.asOf, err)
		}
		if got != tt.want {
			t.Errorf("Age(%s) = %d, want %d", tt.asOf, got, tt.want)
		}
	}

	bad := Patient{BirthDate: "nope"}
	if _, err := bad.Age(time.Now()); err == nil {
		t.Error("Age() with malformed birth date should fail")
	}
}

func TestAvailability_Validate(t *testing.T) {
	tests := []struct {
		name    string
		slot    Availability
		wantErr string
	}{
		{
			name: "valid slot",
			slot: Availability{PractitionerID: 1, Date: "2024-05-02", StartTime: "08:00", EndTime: "12:00"},
		},
		{
			name:    "missing practitioner",
			slot:    Availability{Date: "2024-05-02", StartTime: "08:00", EndTime: "12:00"},
			wantErr: "practitioner_id is required",
		},
		{
			name:    "end equals start",
			slot:    Availability{PractitionerID: 1, Date: "2024-05-02", StartTime: "08:00", EndTime: "08:00"},
			wantErr: "end_time must be after start_time",
		},
		{
			name:    "end before start",
			slot:    Availability{PractitionerID: 1, Date: "2024-05-02", StartTime: "14:00", EndTime: "09:30"},
			wantErr: "end_time must be after start_time",
		},
		{
			name:    "unpadded hour",
			slot:    Availability{PractitionerID: 1, Date: "2024-05-02", StartTime: "8:00", EndTime: "12:00"},
			wantErr: "start_time must be a time in HH:MM format",
		},
		{
			name:    "hour out of range",
			slot:    Availability{PractitionerID: 1, Date: "2024-05-02", StartTime: "08:00", EndTime: "25:00"},
			wantErr: "end_time must be a time in HH:MM format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.slot.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want substring %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestSession_Validate(t *testing.T) {
	zero := int64(0)
	tests := []struct {
		name    string
		session Session
		wantErr bool
	}{
		{"minimal", Session{PatientID: 1, Date: "2024-01-05"}, false},
		{"with level any case", Session{PatientID: 1, Date: "2024-01-05", EvolutionLevel: "beginner"}, false},
		{"with times", Session{PatientID: 1, Date: "2024-01-05", StartTime: "09:00", EndTime: "09:50"}, false},
		{"start only", Session{PatientID: 1, Date: "2024-01-05", StartTime: "09:00"}, false},
		{"missing patient", Session{Date: "2024-01-05"}, true},
		{"missing date", Session{PatientID: 1}, true},
		{"unknown level", Session{PatientID: 1, Date: "2024-01-05", EvolutionLevel: "Expert"}, true},
		{"reversed times", Session{PatientID: 1, Date: "2024-01-05", StartTime: "10:00", EndTime: "09:00"}, true},
		{"bad end only", Session{PatientID: 1, Date: "2024-01-05", EndTime: "9h"}, true},
		{"zero practitioner", Session{PatientID: 1, Date: "2024-01-05", PractitionerID: &zero}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.session.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSession_ValidateCanonicalizesLevel(t *testing.T) {
	s := Session{PatientID: 1, Date: "2024-01-05", EvolutionLevel: " intermediate "}
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error: %v", err)
	}
	if s.EvolutionLevel != string(EvolutionIntermediate) {
		t.Errorf("EvolutionLevel = %q, want %q", s.EvolutionLevel, EvolutionIntermediate)
	}
}

func TestParseEvolutionLevel(t *testing.T) {
	lvl, ok := ParseEvolutionLevel(" MAINTENANCE ")
	if !ok || lvl != EvolutionMaintenance {
		t.Errorf("ParseEvolutionLevel() = %q, %v; want Maintenance, true", lvl, ok)
	}
	if _, ok := ParseEvolutionLevel("none"); ok {
		t.Error("ParseEvolutionLevel(none) should not match")
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("secret1", "secret1"); err != nil {
		t.Errorf("ValidatePassword() unexpected error: %v", err)
	}
	if err := ValidatePassword("secret1", "secret2"); err == nil || !strings.Contains(err.Error(), "do not match") {
		t.Errorf("ValidatePassword() mismatch error = %v", err)
	}
	if err := ValidatePassword("abc", "abc"); err == nil || !strings.Contains(err.Error(), "at least 6") {
		t.Errorf("ValidatePassword() short error = %v", err)
	}

	long := strings.Repeat("x", MaxPasswordLength+8)
	err := ValidatePassword(long, long)
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "password" {
		t.Errorf("ValidatePassword() long error = %v, want password ValidationError", err)
	}
	exact := strings.Repeat("x", MaxPasswordLength)
	if err := ValidatePassword(exact, exact); err != nil {
		t.Errorf("ValidatePassword() at limit unexpected error: %v", err)
	}
}

func TestValidateUsernameAndAccess(t *testing.T) {
	if err := ValidateUsername("joana"); err != nil {
		t.Errorf("ValidateUsername() unexpected error: %v", err)
	}
	for _, bad := range []string{"", "  ", "jo ana", strings.Repeat("x", 65)} {
		if err := ValidateUsername(bad); err == nil {
			t.Errorf("ValidateUsername(%q) should fail", bad)
		}
	}
	if err := ValidateAccess(AccessTherapist); err != nil {
		t.Errorf("ValidateAccess(therapist) unexpected error: %v", err)
	}
	if err := ValidateAccess("root"); err == nil {
		t.Error("ValidateAccess(root) should fail")
	}
}

func TestUser_InfoOmitsHash(t *testing.T) {
	u := User{ID: 3, Username: "joana", PasswordHash: "$2a$10$abc", Access: AccessTherapist}
	info := u.Info()
	if info.ID != 3 || info.Username != "joana" || info.Access != AccessTherapist {
		t.Errorf("Info() = %+v", info)
	}
}
