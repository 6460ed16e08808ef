package main

import (
	"os"
	"strings"

	"github.com/clinicware/clinic/internal/clinic/datefmt"
	"github.com/clinicware/clinic/internal/clinic/model"
	"github.com/clinicware/clinic/internal/clinic/ui"
)

// inputDate converts a user-entered date to ISO. Empty stays empty so the
// record's own validation reports the missing field.
func inputDate(field, s string) (string, error) {
	if strings.TrimSpace(s) == "" {
		return "", nil
	}
	iso, err := datefmt.ParseDate(s, app.now())
	if err != nil {
		return "", &model.ValidationError{Field: field, Message: err.Error()}
	}
	return iso, nil
}

func inputTime(field, s string) (string, error) {
	hhmm, err := datefmt.ParseTime(s)
	if err != nil {
		return "", &model.ValidationError{Field: field, Message: err.Error()}
	}
	return hhmm, nil
}

// inputText returns s, or stdin's contents when s is "-".
func inputText(s string) (string, error) {
	if s != "-" {
		return s, nil
	}
	return ui.ReadText(os.Stdin)
}

func displayDate(iso string) string {
	return datefmt.FormatDate(iso)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
