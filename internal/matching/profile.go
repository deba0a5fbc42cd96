package matching

import (
	"fmt"

	"coinenrich/internal/config"
)

// Profile holds the weights and thresholds of one scoring variant. A zero
// weight disables its term.
type Profile struct {
	Name string
	// TitleGated scores candidates without a title as 0 and rejects
	// selection when the query text is empty.
	TitleGated bool

	TitleExact    int
	TitleContains int
	TokenWeight   int
	TokenCap      int
	IssuerExact   int
	IssuerPartial int
	YearInRange   int
	YearNear      int
	YearTolerance int
	CoinBonus     int

	UnitMatch        int
	ValueMatch       int
	RulerTokenWeight int
	RulerTokenCap    int

	Floor       int
	Gap         int
	Consistency bool
}

// GeneralProfile returns the text-search scoring profile.
func GeneralProfile() Profile {
	return Profile{
		Name:          config.ProfileGeneral,
		TitleGated:    true,
		TitleExact:    70,
		TitleContains: 45,
		TokenWeight:   8,
		TokenCap:      32,
		IssuerExact:   25,
		IssuerPartial: 12,
		YearInRange:   30,
		YearNear:      10,
		YearTolerance: 2,
		CoinBonus:     8,
		Floor:         55,
		Gap:           10,
	}
}

// RulerProfile returns the ruler-directed scoring profile.
func RulerProfile() Profile {
	return Profile{
		Name:             config.ProfileRuler,
		YearInRange:      30,
		YearNear:         10,
		YearTolerance:    1,
		CoinBonus:        12,
		UnitMatch:        20,
		ValueMatch:       20,
		RulerTokenWeight: 8,
		RulerTokenCap:    24,
		Floor:            52,
		Gap:              8,
		Consistency:      true,
	}
}

// ProfileFromConfig returns the named built-in profile with the configured
// overrides applied.
func ProfileFromConfig(name string, scoring config.Scoring) (Profile, error) {
	switch name {
	case config.ProfileGeneral, "":
		return GeneralProfile().WithOverrides(scoring.General), nil
	case config.ProfileRuler:
		return RulerProfile().WithOverrides(scoring.Ruler), nil
	default:
		return Profile{}, fmt.Errorf("unknown scoring profile %q", name)
	}
}

// WithOverrides returns a copy of p with every non-nil override applied.
func (p Profile) WithOverrides(o config.ScoringOverrides) Profile {
	set := func(dst *int, src *int) {
		if src != nil {
			*dst = *src
		}
	}
	set(&p.TitleExact, o.TitleExact)
	set(&p.TitleContains, o.TitleContains)
	set(&p.TokenWeight, o.TokenWeight)
	set(&p.TokenCap, o.TokenCap)
	set(&p.IssuerExact, o.IssuerExact)
	set(&p.IssuerPartial, o.IssuerPartial)
	set(&p.YearInRange, o.YearInRange)
	set(&p.YearNear, o.YearNear)
	set(&p.YearTolerance, o.YearTolerance)
	set(&p.CoinBonus, o.CoinBonus)
	set(&p.UnitMatch, o.UnitMatch)
	set(&p.ValueMatch, o.ValueMatch)
	set(&p.RulerTokenWeight, o.RulerTokenWeight)
	set(&p.RulerTokenCap, o.RulerTokenCap)
	set(&p.Floor, o.Floor)
	set(&p.Gap, o.Gap)
	if o.Consistency != nil {
		p.Consistency = *o.Consistency
	}
	return p
}
