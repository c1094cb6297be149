package auction

import (
	"strings"
	"time"

	"willow-auction-engine/internal/domain/lead"
)

// provinceZones maps Canadian province and territory codes to the IANA
// zone bids and windows are computed in. The table is a policy artifact:
// it is consulted once, at schedule calculation, and the resolved zone is
// captured on the lead so later edits to the table never move an existing
// auction.
var provinceZones = map[string]string{
	"AB": "America/Edmonton",
	"BC": "America/Vancouver",
	"MB": "America/Winnipeg",
	"NB": "America/Moncton",
	"NL": "America/St_Johns",
	"NS": "America/Halifax",
	"NT": "America/Yellowknife",
	"NU": "America/Iqaluit",
	"ON": "America/Toronto",
	"PE": "America/Halifax",
	"QC": "America/Toronto",
	"SK": "America/Regina",
	"YT": "America/Whitehorse",
}

// resolveZone returns the location for a lead's locale, falling back to
// the policy default for unmapped regions, and to UTC if the default
// itself fails to load. The returned name is what gets captured on the
// lead record.
func resolveZone(locale lead.Locale, fallback string) (*time.Location, string) {
	name, ok := provinceZones[strings.ToUpper(locale.Province)]
	if !ok {
		name = fallback
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		if loc, err = time.LoadLocation(fallback); err == nil {
			return loc, fallback
		}
		return time.UTC, "UTC"
	}
	return loc, name
}
