package main

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mitchellh/cli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"preflight/internal/advisor"
	"preflight/internal/aero"
	"preflight/internal/fuel"
	"preflight/internal/verdict"
)

func TestCommandsRegistered(t *testing.T) {
	cmds := commands(cli.NewMockUi())
	for _, name := range []string{"check", "decode", "distance", "seed"} {
		f, ok := cmds[name]
		require.True(t, ok, name)
		c, err := f()
		require.NoError(t, err)
		assert.NotEmpty(t, c.Synopsis())
		assert.True(t, strings.HasPrefix(c.Help(), "Usage: preflight "+name), name)
	}
}

func TestDecodeCommand(t *testing.T) {
	ui := cli.NewMockUi()
	c := &decodeCommand{ui: ui}

	code := c.Run([]string{"-kind", "taf", "TAF SBRJ 211100Z 2112/2212 18010KT 9999 TSRA="})
	assert.Equal(t, 0, code)
	assert.Contains(t, ui.OutputWriter.String(), "TAF SBRJ")
	assert.Contains(t, ui.ErrorWriter.String(), "hazard present")

	ui = cli.NewMockUi()
	c = &decodeCommand{ui: ui}
	assert.Equal(t, 1, c.Run([]string{"-kind", "sigmet", "x"}))
}

func TestDecodeCommand_Trace(t *testing.T) {
	ui := cli.NewMockUi()
	c := &decodeCommand{ui: ui}
	require.Equal(t, 0, c.Run([]string{"-trace", "SBSP 211200Z 00000KT CAVOK 25/18 Q1015"}))
	assert.Contains(t, ui.OutputWriter.String(), `"matched": true`)
}

func TestDistanceCommand(t *testing.T) {
	ui := cli.NewMockUi()
	c := &distanceCommand{ui: ui}

	code := c.Run([]string{"-speed", "100", "-burn", "40", "-fuel", "200", "--", "-23.626,-46.656", "-22.910,-43.163"})
	require.Equal(t, 0, code, ui.ErrorWriter.String())
	out := ui.OutputWriter.String()
	assert.Contains(t, out, "NM")
	assert.Contains(t, out, "h at 100 kt")
	assert.Contains(t, out, "L with reserve")
	assert.Contains(t, out, "endurance 5.00 h")

	ui = cli.NewMockUi()
	c = &distanceCommand{ui: ui}
	assert.Equal(t, 1, c.Run([]string{"--", "-23.626,-46.656"}))
	assert.Equal(t, 1, c.Run([]string{"--", "north", "-22.910,-43.163"}))
}

func TestSeedCommand(t *testing.T) {
	dir := t.TempDir()
	ui := cli.NewMockUi()
	c := &seedCommand{ui: ui}

	assert.Equal(t, 1, c.Run([]string{"-store", "none"}))
	assert.Contains(t, ui.ErrorWriter.String(), "needs a reference store")

	ui = cli.NewMockUi()
	c = &seedCommand{ui: ui}
	assert.Equal(t, 1, c.Run([]string{"-store", "sqlite", "-sqlite", filepath.Join(dir, "ref.db"), filepath.Join(dir, "missing.json")}))
}

func TestSeedCommand_FetchAndList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("area") == "notam" {
			fmt.Fprint(w, `<aisweb><notam><item><cod>C1/25</cod><e>RWY 17R/35L FECHADO</e></item></notam></aisweb>`)
			return
		}
		fmt.Fprint(w, `<aisweb><name>Congonhas</name><lat>-23.626111</lat><lng>-46.656389</lng>`+
			`<runway><ident>17L/35R</ident><length>1435</length></runway>`+
			`<runway><ident>17R/35L</ident><length>1940</length></runway></aisweb>`)
	}))
	defer srv.Close()

	ui := cli.NewMockUi()
	c := &seedCommand{ui: ui}
	code := c.Run([]string{"-store", "sqlite", "-sqlite", filepath.Join(t.TempDir(), "ref.db"),
		"-aisweb-url", srv.URL, "-fetch", "sbsp,XX", "-list"})
	require.Equal(t, 0, code, ui.ErrorWriter.String())

	out := ui.OutputWriter.String()
	assert.Contains(t, out, "SBSP: 2 runways, 1 NOTAMs in force")
	assert.Contains(t, out, "saved 1 of 1 references")
	assert.Contains(t, out, "longest 17R/35L 1940 m")
	assert.Contains(t, ui.ErrorWriter.String(), `skipping "XX"`)
}

func TestCheckCommand_RequiresPair(t *testing.T) {
	ui := cli.NewMockUi()
	c := &checkCommand{ui: ui}
	assert.Equal(t, 1, c.Run([]string{"-from", "SBSP"}))
	assert.Contains(t, ui.ErrorWriter.String(), "-from and -to are required")
}

func sampleReport(level verdict.Level) advisor.Report {
	return advisor.Report{
		Origin:      "SBSP",
		Destination: "SBRJ",
		Verdict:     verdict.Verdict{Level: level, Reasons: []string{"all checks passed"}},
		RunwayLines: []string{"origin SBSP 17R/35L: 1940 m, takeoff OK"},
		Autonomy:    aero.Ok(fuel.ForDistance(197.4, fuel.Params{FuelL: 200, BurnRateLPH: 40, CruiseSpeedKT: 100, ReserveMin: 30})),
		NotamLines:  []string{"no NOTAMs for origin SBSP"},
		GeneratedAt: time.Date(2025, 10, 21, 12, 0, 0, 0, time.UTC),
	}
}

func TestRenderReport(t *testing.T) {
	out := renderReport(sampleReport(verdict.Safe))
	assert.Contains(t, out, "SBSP -> SBRJ")
	assert.Contains(t, out, "VERDICT: SAFE")
	assert.Contains(t, out, "distance        197.4 NM")
	assert.Contains(t, out, "no NOTAMs for origin SBSP")
	assert.NotContains(t, out, "FLAGGED NOTAMS")

	r := sampleReport(verdict.Conditional)
	r.Autonomy = aero.Unavailable[fuel.Result]("autonomy indeterminate: origin coordinate unknown")
	assert.Contains(t, renderReport(r), "autonomy indeterminate")

	r.FlaggedNotams = []aero.NotamRecord{aero.NewNotam("SBRJ", "C1234/25", "", "2025-10-21 10:00", "RWY 02/20 FECHADO")}
	assert.Contains(t, renderReport(r), "FLAGGED NOTAMS\n  SBRJ C1234/25 (2025-10-21 10:00): RWY 02/20 FECHADO")
}

func TestExitStatus(t *testing.T) {
	assert.Equal(t, 0, exitStatus(sampleReport(verdict.Safe)))
	assert.Equal(t, 2, exitStatus(sampleReport(verdict.Conditional)))
	assert.Equal(t, 3, exitStatus(sampleReport(verdict.Unsafe)))
}
