package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"preflight/internal/aero"
	"preflight/internal/wx"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

const rotaerBody = `<?xml version="1.0" encoding="ISO-8859-1"?>
<aisweb>
  <AeroCode>SBSP</AeroCode>
  <name>Congonhas</name>
  <lat>-23.626111</lat>
  <lng>-46.656389</lng>
  <runways>
    <runway><ident>17R/35L</ident><length>1940</length><width>45</width></runway>
    <runway><ident>17L/35R</ident><length>1.435</length><width></width></runway>
  </runways>
</aisweb>`

const notamBody = `<?xml version="1.0" encoding="UTF-8"?>
<aisweb>
  <notam>
    <item><cod>C1234/25</cod><e>RWY 17R/35L FECHADO</e><loc>SBSP</loc><dt>2510211000</dt></item>
    <item><cod></cod><e></e><loc></loc><dt></dt></item>
  </notam>
</aisweb>`

func aiswebServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "key", q.Get("apiKey"))
		assert.Equal(t, "pass", q.Get("apiPass"))
		switch q.Get("area") {
		case "rotaer":
			assert.Equal(t, "SBSP", q.Get("icaoCode"))
			fmt.Fprint(w, rotaerBody)
		case "notam":
			assert.Equal(t, "SBSP", q.Get("icaocode"))
			assert.Equal(t, "4320", q.Get("minutes"))
			fmt.Fprint(w, notamBody)
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
}

func TestAISWEB_Rotaer(t *testing.T) {
	srv := aiswebServer(t)
	defer srv.Close()

	c := NewAISWEB(Config{AISWEBURL: srv.URL, AISWEBKey: "key", AISWEBPass: "pass"}, nil, quiet)
	ref, err := c.Rotaer(context.Background(), "sbsp")
	require.NoError(t, err)

	assert.Equal(t, "SBSP", ref.ICAO)
	assert.Equal(t, "Congonhas", ref.Name)
	require.NotNil(t, ref.Coordinate)
	assert.InDelta(t, -23.626111, ref.Coordinate.Lat, 1e-6)
	assert.InDelta(t, -46.656389, ref.Coordinate.Lon, 1e-6)
	require.Len(t, ref.Runways, 2)
	assert.Equal(t, aero.RunwayRecord{Ident: "17R/35L", LengthM: 1940, WidthM: 45}, ref.Runways[0])
	assert.Equal(t, aero.RunwayRecord{Ident: "17L/35R", LengthM: 1435, WidthM: 0}, ref.Runways[1])
}

func TestAISWEB_RotaerBadCoordinate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<aisweb><lat>garbage</lat><lng>-46.6</lng><runway><ident>09</ident><length>900</length></runway></aisweb>`)
	}))
	defer srv.Close()

	ref, err := NewAISWEB(Config{AISWEBURL: srv.URL}, nil, quiet).Rotaer(context.Background(), "SDCO")
	require.NoError(t, err)
	assert.Nil(t, ref.Coordinate)
	assert.Len(t, ref.Runways, 1)
	assert.False(t, ref.CoordinateOutcome().OK())
}

func TestAISWEB_Notams(t *testing.T) {
	srv := aiswebServer(t)
	defer srv.Close()

	c := NewAISWEB(Config{AISWEBURL: srv.URL, AISWEBKey: "key", AISWEBPass: "pass"}, nil, quiet)
	ns, err := c.Notams(context.Background(), "SBSP")
	require.NoError(t, err)
	require.Len(t, ns, 2)

	assert.Equal(t, "C1234/25", ns[0].Code)
	assert.Equal(t, "RWY 17R/35L FECHADO", ns[0].Info)
	assert.Equal(t, aero.NotamRecord{Code: "N/A", Location: "SBSP", Timestamp: "unknown", Info: "no description"}, ns[1])
}

func TestAISWEB_Latin1(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n")
		if r.URL.Query().Get("area") == "notam" {
			fmt.Fprint(w, "<aisweb><notam><item><cod>C0042/25</cod><e>PISTA INTERDI\xc7\xc3O</e><loc>SBSP</loc></item></notam></aisweb>")
			return
		}
		fmt.Fprint(w, "<aisweb><name>S\xe3o Paulo</name><lat>-23.626111</lat><lng>-46.656389</lng>"+
			"<runway><ident>17R/35L</ident><length>1940</length></runway></aisweb>")
	}))
	defer srv.Close()

	c := NewAISWEB(Config{AISWEBURL: srv.URL}, nil, quiet)

	ref, err := c.Rotaer(context.Background(), "SBSP")
	require.NoError(t, err)
	assert.Equal(t, "São Paulo", ref.Name)
	assert.Len(t, ref.Runways, 1)

	ns, err := c.Notams(context.Background(), "SBSP")
	require.NoError(t, err)
	require.Len(t, ns, 1)
	assert.Equal(t, "PISTA INTERDIÇÃO", ns[0].Info)
}

func TestAISWEB_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("area") == "notam" {
			fmt.Fprint(w, "<aisweb><notam><item>")
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewAISWEB(Config{AISWEBURL: srv.URL}, nil, quiet)

	_, err := c.Rotaer(context.Background(), "SBSP")
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusServiceUnavailable, se.Code)
	assert.Contains(t, err.Error(), "unexpected status: 503")

	_, err = c.Notams(context.Background(), "SBSP")
	assert.ErrorContains(t, err, "parsing response")
}

func TestREDEMET_Messages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "rkey", r.URL.Query().Get("api_key"))
		switch r.URL.Path {
		case "/mensagens/metar/SBSP":
			fmt.Fprint(w, `{"status":true,"data":{"data":[{"mens":"SBSP 211200Z 00000KT CAVOK 25/18 Q1015="},{"mens":" "}]}}`)
		case "/mensagens/taf/SBSP":
			fmt.Fprint(w, `{"status":true,"data":{"data":[]}}`)
		case "/mensagens/metar/SBXX":
			fmt.Fprint(w, `not json`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewREDEMET(Config{REDEMETURL: srv.URL + "/", REDEMETKey: "rkey"}, nil, quiet)

	msgs, err := c.Messages(context.Background(), wx.METAR, "SBSP")
	require.NoError(t, err)
	assert.Equal(t, []string{"SBSP 211200Z 00000KT CAVOK 25/18 Q1015="}, msgs)

	msgs, err = c.Messages(context.Background(), wx.TAF, "SBSP")
	require.NoError(t, err)
	assert.NotNil(t, msgs)
	assert.Empty(t, msgs)

	_, err = c.Messages(context.Background(), wx.METAR, "SBXX")
	assert.ErrorContains(t, err, "redemet metar: parsing response")

	_, err = c.Messages(context.Background(), wx.TAF, "SBXX")
	assert.ErrorContains(t, err, "unexpected status: 404")
}

func TestREDEMET_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewREDEMET(Config{REDEMETURL: srv.URL}, nil, quiet).Messages(ctx, wx.METAR, "SBSP")
	assert.ErrorIs(t, err, context.Canceled)
}

// fakes

type fakeRotaer struct {
	calls atomic.Int32
	refs  map[string]aero.Reference
	err   error
}

func (f *fakeRotaer) Rotaer(_ context.Context, icao string) (aero.Reference, error) {
	f.calls.Add(1)
	if f.err != nil {
		return aero.Reference{}, f.err
	}
	return f.refs[icao], nil
}

type fakeNotams struct{ err error }

func (f fakeNotams) Notams(_ context.Context, icao string) ([]aero.NotamRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []aero.NotamRecord{aero.NewNotam(icao, "A1/25", "", "", "TWY B CLSD")}, nil
}

type fakeMessages struct{ failKind wx.Kind }

func (f fakeMessages) Messages(_ context.Context, kind wx.Kind, icao string) ([]string, error) {
	if kind == f.failKind {
		return nil, errors.New("redemet down")
	}
	return []string{icao + " " + string(kind)}, nil
}

type memStore struct {
	mu   sync.Mutex
	refs map[string]aero.Reference
}

func (m *memStore) LoadReference(_ context.Context, icao string) (aero.Reference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.refs[icao]
	if !ok {
		return aero.Reference{}, errors.New("not found")
	}
	return r, nil
}

func (m *memStore) SaveReference(_ context.Context, ref aero.Reference) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.refs == nil {
		m.refs = map[string]aero.Reference{}
	}
	m.refs[ref.ICAO] = ref
	return nil
}

func refFor(icao string, lat, lon float64, length int) aero.Reference {
	return aero.Reference{
		ICAO:       icao,
		Coordinate: &aero.Coordinate{Lat: lat, Lon: lon},
		Runways:    []aero.RunwayRecord{{Ident: "01", LengthM: length}},
		UpdatedAt:  time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestGatherer_Gather(t *testing.T) {
	rot := &fakeRotaer{refs: map[string]aero.Reference{
		"SBSP": refFor("SBSP", -23.6, -46.6, 1940),
		"SBRJ": refFor("SBRJ", -22.9, -43.1, 1323),
	}}
	store := &memStore{}
	g := NewGathererWithSources(rot, fakeNotams{}, fakeMessages{failKind: wx.TAF}, store, quiet)

	o, d := g.Gather(context.Background(), "sbsp", "SBRJ")

	assert.Equal(t, "SBSP", o.ICAO)
	assert.True(t, o.Coordinate.OK())
	assert.Equal(t, 1940, o.Runways.Value()[0].LengthM)
	assert.Equal(t, []string{"SBSP METAR"}, o.Reports.Value())
	assert.False(t, o.Forecasts.OK())
	assert.Equal(t, "redemet down", o.Forecasts.Reason())
	require.True(t, d.Notams.OK())
	assert.Equal(t, "SBRJ", d.Notams.Value()[0].Location)

	// Stored for later fallback and cached for the next call.
	_, err := store.LoadReference(context.Background(), "SBRJ")
	assert.NoError(t, err)
	g.Gather(context.Background(), "SBSP", "SBRJ")
	assert.Equal(t, int32(2), rot.calls.Load())
}

func TestGatherer_FallbackToStore(t *testing.T) {
	store := &memStore{refs: map[string]aero.Reference{"SBSP": refFor("SBSP", -23.6, -46.6, 1940)}}
	rot := &fakeRotaer{err: errors.New("aisweb rotaer: unexpected status: 500")}
	g := NewGathererWithSources(rot, fakeNotams{err: errors.New("aisweb down")}, fakeMessages{}, store, quiet)

	o, d := g.Gather(context.Background(), "SBSP", "SBRJ")

	assert.True(t, o.Runways.OK(), "served from store")
	assert.True(t, o.Coordinate.OK())
	assert.False(t, d.Runways.OK())
	assert.Contains(t, d.Runways.Reason(), "unexpected status: 500")
	assert.False(t, d.Coordinate.OK())
	assert.Equal(t, "aisweb down", o.Notams.Reason())
}

func TestGatherer_EmptyRotaerFallsBack(t *testing.T) {
	store := &memStore{refs: map[string]aero.Reference{"SBSP": refFor("SBSP", -23.6, -46.6, 1940)}}
	rot := &fakeRotaer{refs: map[string]aero.Reference{"SBSP": {ICAO: "SBSP", Runways: []aero.RunwayRecord{}}}}
	g := NewGathererWithSources(rot, fakeNotams{}, fakeMessages{}, store, quiet)

	o, d := g.Gather(context.Background(), "SBSP", "SBRJ")

	require.True(t, o.Runways.OK(), "served from store")
	assert.Equal(t, 1940, o.Runways.Value()[0].LengthM)
	assert.True(t, o.Coordinate.OK())
	assert.False(t, d.Runways.OK())
	assert.Equal(t, errEmptyRotaer.Error(), d.Runways.Reason())

	// An empty reply is neither cached nor written over the stored copy.
	g.Gather(context.Background(), "SBSP", "SBRJ")
	assert.Equal(t, int32(4), rot.calls.Load())
	ref, err := store.LoadReference(context.Background(), "SBSP")
	require.NoError(t, err)
	assert.Len(t, ref.Runways, 1)
}

func TestGatherer_NilSources(t *testing.T) {
	g := NewGathererWithSources(nil, nil, nil, nil, quiet)
	ad := g.Aerodrome(context.Background(), "SBSP")

	assert.False(t, ad.Runways.OK())
	assert.False(t, ad.Notams.OK())
	assert.False(t, ad.Reports.OK())
	assert.False(t, ad.Forecasts.OK())
	assert.Equal(t, "no rotaer source configured", ad.Runways.Reason())
}

func TestGatherer_HTTPEndToEnd(t *testing.T) {
	aisweb := aiswebServer(t)
	defer aisweb.Close()
	redemet := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"data":[{"mens":"SBSP 211200Z 18010KT 9999 TSRA 25/18 Q1015="}]}}`)
	}))
	defer redemet.Close()

	cfg := Config{AISWEBURL: aisweb.URL, AISWEBKey: "key", AISWEBPass: "pass", REDEMETURL: redemet.URL, Timeout: 2 * time.Second}
	ad := NewGatherer(cfg, nil, quiet).Aerodrome(context.Background(), "SBSP")

	assert.Equal(t, "Congonhas", ad.Name)
	assert.Len(t, ad.Runways.Value(), 2)
	assert.Len(t, ad.Notams.Value(), 2)
	assert.Len(t, ad.Reports.Value(), 1)
	assert.Len(t, ad.Forecasts.Value(), 1)
}

func TestConfig_Defaults(t *testing.T) {
	c := Config{}.withDefaults()
	assert.Equal(t, DefaultAISWEBURL, c.AISWEBURL)
	assert.Equal(t, DefaultREDEMETURL, c.REDEMETURL)
	assert.Equal(t, 4320, c.NotamWindow)
	assert.Equal(t, 10*time.Second, c.Timeout)
}
