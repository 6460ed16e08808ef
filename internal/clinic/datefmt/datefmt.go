// Package datefmt converts between what users type (DD/MM/YYYY, ISO dates,
// "amanhã", "next friday") and the ISO forms stored in the database.
package datefmt

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/br"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"github.com/clinicware/clinic/internal/clinic/model"
)

// DisplayLayout is the date format shown to users.
const DisplayLayout = "02/01/2006"

var parser = newParser()

func newParser() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(br.All...)
	w.Add(common.All...)
	return w
}

// ParseDate turns user input into an ISO date. It accepts DD/MM/YYYY,
// YYYY-MM-DD and natural-language expressions relative to now.
func ParseDate(input string, now time.Time) (string, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", fmt.Errorf("empty date")
	}
	for _, layout := range []string{DisplayLayout, model.DateLayout, "2/1/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(model.DateLayout), nil
		}
	}

	r, err := parser.Parse(s, now)
	if err != nil {
		return "", fmt.Errorf("parse date %q: %w", input, err)
	}
	if r == nil {
		return "", fmt.Errorf("unrecognized date %q (use DD/MM/YYYY)", input)
	}
	return r.Time.Format(model.DateLayout), nil
}

// FormatDate renders an ISO date as DD/MM/YYYY. Anything else is returned
// unchanged.
func FormatDate(iso string) string {
	t, err := time.Parse(model.DateLayout, iso)
	if err != nil {
		return iso
	}
	return t.Format(DisplayLayout)
}

var clockPattern = regexp.MustCompile(`^(\d{1,2})(?:[:h](\d{2})?)?$`)

// ParseTime turns "9:00", "09:00", "9h" or "9h30" into HH:MM. An empty
// input stays empty.
func ParseTime(input string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(input))
	if s == "" {
		return "", nil
	}
	m := clockPattern.FindStringSubmatch(s)
	if m == nil {
		return "", fmt.Errorf("unrecognized time %q (use HH:MM)", input)
	}
	hour, _ := strconv.Atoi(m[1])
	minute := 0
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	if hour > 23 || minute > 59 {
		return "", fmt.Errorf("time %q out of range", input)
	}
	return fmt.Sprintf("%02d:%02d", hour, minute), nil
}

// ParseMonth reads "MM/YYYY", "YYYY-MM" or a natural-language date and
// returns its year and month.
func ParseMonth(input string, now time.Time) (int, time.Month, error) {
	s := strings.TrimSpace(input)
	for _, layout := range []string{"01/2006", "2006-01", "1/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Year(), t.Month(), nil
		}
	}
	iso, err := ParseDate(s, now)
	if err != nil {
		return 0, 0, err
	}
	t, _ := time.Parse(model.DateLayout, iso)
	return t.Year(), t.Month(), nil
}
