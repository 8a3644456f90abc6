package aero

import (
	"fmt"
	"time"
)

// Reference is the static part of an aerodrome (position and runways) as
// published in the rotaer or kept in the local reference store.
type Reference struct {
	ICAO       string         `json:"icao"`
	Name       string         `json:"name,omitempty"`
	Coordinate *Coordinate    `json:"coordinate,omitempty"`
	Runways    []RunwayRecord `json:"runways"`
	UpdatedAt  time.Time      `json:"updated_at,omitzero"`
}

// CoordinateOutcome converts the optional coordinate to a tagged result.
func (r Reference) CoordinateOutcome() Outcome[Coordinate] {
	if r.Coordinate == nil {
		return Unavailable[Coordinate](fmt.Sprintf("no coordinate published for %s", r.ICAO))
	}
	if !r.Coordinate.Valid() {
		return Unavailable[Coordinate](fmt.Sprintf("invalid coordinate for %s", r.ICAO))
	}
	return Ok(*r.Coordinate)
}

// Apply copies the reference data onto an aerodrome record.
func (r Reference) Apply(ad *Aerodrome) {
	if r.Name != "" {
		ad.Name = r.Name
	}
	ad.Coordinate = r.CoordinateOutcome()
	ad.Runways = Ok(r.Runways)
}

// Reference extracts the static part of a fetched aerodrome. It fails when
// the runway list is unavailable and carries the reason.
func (ad Aerodrome) Reference() (Reference, error) {
	rws, ok := ad.Runways.Get()
	if !ok {
		return Reference{}, fmt.Errorf("%s: %s", ad.ICAO, ad.Runways.Reason())
	}
	ref := Reference{ICAO: ad.ICAO, Name: ad.Name, Runways: rws}
	if c, ok := ad.Coordinate.Get(); ok {
		ref.Coordinate = &c
	}
	return ref, nil
}

// NewAerodrome returns a record for icao with every slot Unavailable, so a
// caller that fills only some slots never leaves one silently empty.
func NewAerodrome(icao, reason string) Aerodrome {
	return Aerodrome{
		ICAO:       icao,
		Coordinate: Unavailable[Coordinate](reason),
		Runways:    Unavailable[[]RunwayRecord](reason),
		Reports:    Unavailable[[]string](reason),
		Forecasts:  Unavailable[[]string](reason),
		Notams:     Unavailable[[]NotamRecord](reason),
	}
}
