package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"preflight/internal/aero"
	"preflight/internal/wx"
)

// REDEMET is a client for the REDEMET message API.
type REDEMET struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

// NewREDEMET creates a client. A nil logger uses slog.Default().
func NewREDEMET(cfg Config, hc *http.Client, logger *slog.Logger) *REDEMET {
	cfg = cfg.withDefaults()
	if hc == nil {
		hc = newHTTPClient(cfg.Timeout)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &REDEMET{cfg: cfg, http: hc, logger: logger}
}

type redemetResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Data []struct {
			Mens string `json:"mens"`
		} `json:"data"`
	} `json:"data"`
}

// Messages fetches the current METAR or TAF messages for icao, newest
// last as REDEMET lists them. An aerodrome with nothing published gives an
// empty, non-nil slice.
func (c *REDEMET) Messages(ctx context.Context, kind wx.Kind, icao string) ([]string, error) {
	icao = aero.NormaliseICAO(icao)
	path := strings.ToLower(string(kind))
	service := "redemet " + path

	endpoint := strings.TrimRight(c.cfg.REDEMETURL, "/") + "/mensagens/" + path + "/" + url.PathEscape(icao)
	q := url.Values{}
	q.Set("api_key", c.cfg.REDEMETKey)

	body, err := get(ctx, c.http, service, endpoint, q, c.cfg.UserAgent)
	if err != nil {
		return nil, err
	}

	var resp redemetResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%s: parsing response: %w", service, err)
	}

	out := []string{}
	for _, m := range resp.Data.Data {
		if s := strings.TrimSpace(m.Mens); s != "" {
			out = append(out, s)
		}
	}
	c.logger.Debug("redemet messages", slog.String("kind", string(kind)), slog.String("icao", icao), slog.Int("count", len(out)))
	return out, nil
}
