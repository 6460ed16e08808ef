package db

import (
	"errors"
	"slices"
	"testing"

	"github.com/clinicware/clinic/internal/clinic/model"
)

func TestCreateAvailability_RejectsBadRange(t *testing.T) {
	db := newTestDB(t)
	prid := createPractitioner(t, db, "Dra. Lima")

	tests := []struct {
		name       string
		start, end string
	}{
		{"equal", "09:00", "09:00"},
		{"before", "10:00", "09:30"},
		{"malformed", "9h", "10:00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := db.CreateAvailability(&model.Availability{PractitionerID: prid, Date: "2024-01-08", StartTime: tt.start, EndTime: tt.end})
			var verr *model.ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("error = %v, want ValidationError", err)
			}
		})
	}

	slots, err := db.ListAvailabilityByPractitioner(prid)
	if err != nil {
		t.Fatal(err)
	}
	if len(slots) != 0 {
		t.Errorf("rejected slots reached storage: %d", len(slots))
	}
}

func TestCreateAvailability_UnknownPractitioner(t *testing.T) {
	db := newTestDB(t)

	_, err := db.CreateAvailability(&model.Availability{PractitionerID: 5, Date: "2024-01-08", StartTime: "08:00", EndTime: "09:00"})
	if !errors.Is(err, ErrForeignKey) {
		t.Errorf("error = %v, want ErrForeignKey", err)
	}
}

func TestListAvailability(t *testing.T) {
	db := newTestDB(t)
	prid := createPractitioner(t, db, "Dra. Lima")
	other := createPractitioner(t, db, "Dr. Pereira")

	slots := []model.Availability{
		{PractitionerID: prid, Date: "2024-01-08", StartTime: "14:00", EndTime: "16:00"},
		{PractitionerID: prid, Date: "2024-01-08", StartTime: "08:00", EndTime: "12:00"},
		{PractitionerID: prid, Date: "2024-01-08", StartTime: "09:00", EndTime: "10:00"}, // overlaps, accepted
		{PractitionerID: prid, Date: "2024-01-22", StartTime: "08:00", EndTime: "12:00"},
		{PractitionerID: prid, Date: "2024-02-01", StartTime: "08:00", EndTime: "12:00"},
		{PractitionerID: other, Date: "2024-01-15", StartTime: "08:00", EndTime: "12:00"},
	}
	for i := range slots {
		if _, err := db.CreateAvailability(&slots[i]); err != nil {
			t.Fatalf("CreateAvailability(%+v) failed: %v", slots[i], err)
		}
	}

	day, err := db.ListAvailability(prid, "2024-01-08")
	if err != nil {
		t.Fatal(err)
	}
	starts := make([]string, 0, len(day))
	for _, a := range day {
		starts = append(starts, a.StartTime)
	}
	if !slices.Equal(starts, []string{"08:00", "09:00", "14:00"}) {
		t.Errorf("ListAvailability() starts = %v", starts)
	}

	dates, err := db.ListAvailableDates(prid, 2024, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(dates, []string{"2024-01-08", "2024-01-22"}) {
		t.Errorf("ListAvailableDates() = %v", dates)
	}

	empty, err := db.ListAvailableDates(prid, 2023, 12)
	if err != nil {
		t.Fatal(err)
	}
	if len(empty) != 0 {
		t.Errorf("ListAvailableDates(2023-12) = %v, want empty", empty)
	}

	if _, err := db.ListAvailableDates(prid, 2024, 13); err == nil {
		t.Error("ListAvailableDates(month 13) should fail")
	}
	if _, err := db.ListAvailability(prid, "08/01/2024"); err == nil {
		t.Error("ListAvailability() with non-ISO date should fail")
	}
}

func TestUpdateAndDeleteAvailability(t *testing.T) {
	db := newTestDB(t)
	prid := createPractitioner(t, db, "Dra. Lima")

	a := &model.Availability{PractitionerID: prid, Date: "2024-01-08", StartTime: "08:00", EndTime: "09:00"}
	if _, err := db.CreateAvailability(a); err != nil {
		t.Fatal(err)
	}
	a.EndTime = "11:30"
	if err := db.UpdateAvailability(a); err != nil {
		t.Fatal(err)
	}
	got, err := db.GetAvailability(a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if *got != *a {
		t.Errorf("GetAvailability() = %+v, want %+v", *got, *a)
	}

	a.EndTime = "07:00"
	var verr *model.ValidationError
	if err := db.UpdateAvailability(a); !errors.As(err, &verr) {
		t.Errorf("UpdateAvailability(bad range) error = %v, want ValidationError", err)
	}

	if err := db.DeleteAvailability(a.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := db.GetAvailability(a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}
