package viator

import "time"

const (
	// PartnerDateFormat is the inbound dialect's date shape.
	PartnerDateFormat = "2006-01-02"
	// BackendDateFormat is what RON expects.
	BackendDateFormat = "2006-Jan-02"
)

// ToBackendDate converts YYYY-MM-DD to YYYY-Mon-DD.
func ToBackendDate(date string) (string, error) {
	parsed, err := time.Parse(PartnerDateFormat, date)
	if err != nil {
		return "", err
	}
	return parsed.Format(BackendDateFormat), nil
}

// FromBackendDate converts YYYY-Mon-DD back to YYYY-MM-DD. The two
// conversions invert cleanly in both directions.
func FromBackendDate(date string) (string, error) {
	parsed, err := time.Parse(BackendDateFormat, date)
	if err != nil {
		return "", err
	}
	return parsed.Format(PartnerDateFormat), nil
}

// DateRange expands an inclusive StartDate/EndDate pair (partner format)
// into one entry per calendar date.
func DateRange(start, end string) ([]string, error) {
	from, err := time.Parse(PartnerDateFormat, start)
	if err != nil {
		return nil, err
	}
	to, err := time.Parse(PartnerDateFormat, end)
	if err != nil {
		return nil, err
	}

	var dates []string
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		dates = append(dates, day.Format(PartnerDateFormat))
	}
	return dates, nil
}
