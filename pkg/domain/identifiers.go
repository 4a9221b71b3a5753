package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// StateCode is a two-letter USPS state abbreviation. Jurisdictions are static
// reference data; codes are normalized to upper case on construction.
type StateCode string

var stateCodePattern = regexp.MustCompile(`^[A-Z]{2}$`)

// ParseStateCode constructs a StateCode from external input.
func ParseStateCode(s string) (StateCode, error) {
	code := strings.ToUpper(strings.TrimSpace(s))
	if !stateCodePattern.MatchString(code) {
		return "", fmt.Errorf("invalid state code %q", s)
	}
	return StateCode(code), nil
}

func (c StateCode) String() string {
	return string(c)
}

// VersionLabel is the publisher's free-form version string (e.g. "v2024.0").
// A label denotes exactly one immutable content set per state and kind.
type VersionLabel string

// ParseVersionLabel constructs a VersionLabel from external input.
func ParseVersionLabel(s string) (VersionLabel, error) {
	label := strings.TrimSpace(s)
	if label == "" {
		return "", fmt.Errorf("version label cannot be empty")
	}
	return VersionLabel(label), nil
}

func (l VersionLabel) String() string {
	return string(l)
}

// ItemSubtype qualifies an item's natural key within a document kind. Only
// the definitions library carries subtypes; certificate and practice items
// use SubtypeNone and key on question number alone.
type ItemSubtype string

const (
	SubtypeNone              ItemSubtype = ""
	SubtypeAdminDefinition   ItemSubtype = "admin_definition"
	SubtypeProductDefinition ItemSubtype = "product_definition"
	SubtypeHolidayItem       ItemSubtype = "holiday_item"
)

var validSubtypes = map[ItemSubtype]bool{
	SubtypeAdminDefinition:   true,
	SubtypeProductDefinition: true,
	SubtypeHolidayItem:       true,
}

// IsValid reports whether the subtype is a supported definitions subtype.
func (t ItemSubtype) IsValid() bool {
	return validSubtypes[t]
}

func (t ItemSubtype) String() string {
	return string(t)
}
