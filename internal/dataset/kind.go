package dataset

import (
	"fmt"
	"regexp"
	"strconv"

	domerrors "github.com/garyellow/regionstat/internal/errors"
)

// Kind names one of the five datasets a snapshot can carry.
type Kind string

const (
	KindAge        Kind = "age"
	KindHousehold  Kind = "household"
	KindSupply     Kind = "supply"
	KindPopulation Kind = "population"
	KindYearly     Kind = "yearly"
)

// Kinds lists every dataset kind in a stable order.
func Kinds() []Kind {
	return []Kind{KindAge, KindHousehold, KindSupply, KindPopulation, KindYearly}
}

// Label is the display name used in user-facing messages.
func (k Kind) Label() string {
	switch k {
	case KindAge:
		return "연령별 인구"
	case KindHousehold:
		return "세대"
	case KindSupply:
		return "입주 물량"
	case KindPopulation:
		return "지역 인구"
	case KindYearly:
		return "연도별 공급"
	default:
		return string(k)
	}
}

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds() {
		if string(k) == s {
			return k, nil
		}
	}
	return "", domerrors.NewValidationError("kind", fmt.Sprintf("unknown dataset kind %q", s))
}

var snapshotIDPattern = regexp.MustCompile(`^(\d{4})(\d{2})$`)

// ValidateSnapshotID checks the YYYYMM snapshot identifier format.
func ValidateSnapshotID(id string) error {
	m := snapshotIDPattern.FindStringSubmatch(id)
	if m == nil {
		return domerrors.NewValidationError("snapshot", fmt.Sprintf("%q is not a YYYYMM identifier", id))
	}
	if month, _ := strconv.Atoi(m[2]); month < 1 || month > 12 {
		return domerrors.NewValidationError("snapshot", fmt.Sprintf("%q has month outside 01..12", id))
	}
	return nil
}
