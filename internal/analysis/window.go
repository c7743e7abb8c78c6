package analysis

import (
	"fmt"
	"time"
)

// Window is the resolved analysis range. Start and End are UTC, the
// range is half-open [Start, End). DateKey labels the local calendar
// day the window closes out.
type Window struct {
	Start   time.Time
	End     time.Time
	DateKey string
}

// ResolveWindow computes the analysis window for a run fired at now.
// A run before the cutoff hour still closes out the previous local
// day, so a job firing shortly after midnight analyzes yesterday.
// The window ends at 23:50 local, ten minutes short of midnight, to
// match the scheduler slot. DST transitions get no special handling.
func ResolveWindow(now time.Time, tzOffsetHours, cutoffHour int) Window {
	zone := time.FixedZone(fmt.Sprintf("UTC%+d", tzOffsetHours), tzOffsetHours*3600)
	local := now.In(zone)

	analysisDate := local
	if local.Hour() < cutoffHour {
		analysisDate = local.AddDate(0, 0, -1)
	}

	end := time.Date(analysisDate.Year(), analysisDate.Month(), analysisDate.Day(), 23, 50, 0, 0, zone)
	return Window{
		Start:   end.Add(-24 * time.Hour).UTC(),
		End:     end.UTC(),
		DateKey: analysisDate.Format("2006-01-02"),
	}
}
