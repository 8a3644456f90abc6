package provider

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/html/charset"

	"preflight/internal/aero"
	"preflight/internal/geo"
)

// AISWEB is a client for the rotaer and NOTAM areas of the AISWEB API.
type AISWEB struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

// NewAISWEB creates a client. A nil logger uses slog.Default().
func NewAISWEB(cfg Config, hc *http.Client, logger *slog.Logger) *AISWEB {
	cfg = cfg.withDefaults()
	if hc == nil {
		hc = newHTTPClient(cfg.Timeout)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AISWEB{cfg: cfg, http: hc, logger: logger}
}

type rotaerXML struct {
	Name    string      `xml:"name"`
	Lat     string      `xml:"lat"`
	Lng     string      `xml:"lng"`
	Runways []runwayXML `xml:"runway"`
	Nested  []runwayXML `xml:"runways>runway"`
}

type runwayXML struct {
	Ident  string `xml:"ident"`
	Length string `xml:"length"`
	Width  string `xml:"width"`
}

type notamXML struct {
	Items  []notamItemXML `xml:"item"`
	Nested []notamItemXML `xml:"notam>item"`
}

type notamItemXML struct {
	Code     string `xml:"cod"`
	Text     string `xml:"e"`
	Location string `xml:"loc"`
	Time     string `xml:"dt"`
}

func (c *AISWEB) query(area, icaoParam, icao string) url.Values {
	q := url.Values{}
	q.Set("apiKey", c.cfg.AISWEBKey)
	q.Set("apiPass", c.cfg.AISWEBPass)
	q.Set("area", area)
	q.Set(icaoParam, icao)
	return q
}

func decodeXML(body []byte, v any) error {
	d := xml.NewDecoder(bytes.NewReader(body))
	// AISWEB declares ISO-8859-1 on some responses.
	d.CharsetReader = charset.NewReaderLabel
	return d.Decode(v)
}

// Rotaer fetches the published position and runways for icao. A coordinate
// that cannot be parsed is logged and left nil; the runways are still
// returned.
func (c *AISWEB) Rotaer(ctx context.Context, icao string) (aero.Reference, error) {
	icao = aero.NormaliseICAO(icao)
	body, err := get(ctx, c.http, "aisweb rotaer", c.cfg.AISWEBURL, c.query("rotaer", "icaoCode", icao), c.cfg.UserAgent)
	if err != nil {
		return aero.Reference{}, err
	}

	var doc rotaerXML
	if err := decodeXML(body, &doc); err != nil {
		return aero.Reference{}, fmt.Errorf("aisweb rotaer: parsing response: %w", err)
	}

	ref := aero.Reference{ICAO: icao, Name: strings.TrimSpace(doc.Name)}
	for _, rw := range append(doc.Runways, doc.Nested...) {
		ref.Runways = append(ref.Runways, aero.RunwayRecord{
			Ident:   strings.TrimSpace(rw.Ident),
			LengthM: aero.ParseLength(rw.Length),
			WidthM:  aero.ParseLength(rw.Width),
		})
	}
	if ref.Runways == nil {
		ref.Runways = []aero.RunwayRecord{}
	}

	if doc.Lat != "" || doc.Lng != "" {
		coord, err := geo.ParseCoordinate(doc.Lat, doc.Lng)
		if err != nil {
			c.logger.Warn("rotaer coordinate unparseable",
				slog.String("icao", icao), slog.String("lat", doc.Lat), slog.String("lng", doc.Lng), slog.Any("error", err))
		} else {
			ref.Coordinate = &coord
		}
	}
	return ref, nil
}

// Notams fetches the NOTAMs published for icao within the configured window.
// Missing item fields get the aero.NewNotam defaults.
func (c *AISWEB) Notams(ctx context.Context, icao string) ([]aero.NotamRecord, error) {
	icao = aero.NormaliseICAO(icao)
	q := c.query("notam", "icaocode", icao)
	q.Set("minutes", strconv.Itoa(c.cfg.NotamWindow))

	body, err := get(ctx, c.http, "aisweb notam", c.cfg.AISWEBURL, q, c.cfg.UserAgent)
	if err != nil {
		return nil, err
	}

	var doc notamXML
	if err := decodeXML(body, &doc); err != nil {
		return nil, fmt.Errorf("aisweb notam: parsing response: %w", err)
	}

	out := []aero.NotamRecord{}
	for _, it := range append(doc.Items, doc.Nested...) {
		out = append(out, aero.NewNotam(icao, it.Code, it.Location, it.Time, it.Text))
	}
	return out, nil
}
