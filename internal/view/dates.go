package view

import (
	"fmt"
	"strings"
	"time"
)

// Bangkok is the zone dates are shown in and slot days are checked in.  A
// fixed offset avoids depending on the host's tzdata; Thailand has no
// daylight saving.
var Bangkok = time.FixedZone("ICT", 7*60*60)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ThaiDate formats an API date as dd/mm/yyyy in the Buddhist era.  Values
// carrying a time zone are first moved to Bangkok time, so a date stored as
// midnight local and sent in UTC shows the intended day.  Unparseable input
// is returned unchanged.
func ThaiDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		if layout == time.RFC3339Nano {
			t = t.In(Bangkok)
		}
		return fmt.Sprintf("%02d/%02d/%d", t.Day(), int(t.Month()), t.Year()+543)
	}
	return raw
}
