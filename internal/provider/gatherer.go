package provider

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/errgroup"

	"preflight/internal/aero"
	"preflight/internal/wx"
)

var (
	errNoRotaer    = errors.New("no rotaer source configured")
	errEmptyRotaer = errors.New("rotaer returned no runways or position")
)

// RotaerSource returns the static aerodrome data for an ICAO code.
type RotaerSource interface {
	Rotaer(ctx context.Context, icao string) (aero.Reference, error)
}

// NotamSource returns the NOTAMs currently published for an ICAO code.
type NotamSource interface {
	Notams(ctx context.Context, icao string) ([]aero.NotamRecord, error)
}

// MessageSource returns the METAR or TAF messages for an ICAO code.
type MessageSource interface {
	Messages(ctx context.Context, kind wx.Kind, icao string) ([]string, error)
}

// ReferenceStore keeps the last known rotaer data so an AISWEB outage does
// not lose runway and position information.
type ReferenceStore interface {
	LoadReference(ctx context.Context, icao string) (aero.Reference, error)
	SaveReference(ctx context.Context, ref aero.Reference) error
}

// Gatherer fetches everything the engine needs for both aerodromes of a
// flight.
type Gatherer struct {
	Rotaer   RotaerSource
	Notams   NotamSource
	Messages MessageSource
	Store    ReferenceStore // optional

	cache  *expirable.LRU[string, aero.Reference]
	logger *slog.Logger
}

// NewGatherer wires the AISWEB and REDEMET clients around one pooled HTTP
// client. store may be nil.
func NewGatherer(cfg Config, store ReferenceStore, logger *slog.Logger) *Gatherer {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	hc := newHTTPClient(cfg.Timeout)
	aisweb := NewAISWEB(cfg, hc, logger)
	g := &Gatherer{
		Rotaer:   aisweb,
		Notams:   aisweb,
		Messages: NewREDEMET(cfg, hc, logger),
		Store:    store,
		logger:   logger,
	}
	g.cache = expirable.NewLRU[string, aero.Reference](cfg.CacheSize, nil, cfg.CacheTTL)
	return g
}

// NewGathererWithSources builds a gatherer over caller-supplied sources.
func NewGathererWithSources(rotaer RotaerSource, notams NotamSource, msgs MessageSource, store ReferenceStore, logger *slog.Logger) *Gatherer {
	if logger == nil {
		logger = slog.Default()
	}
	cfg := DefaultConfig()
	return &Gatherer{
		Rotaer:   rotaer,
		Notams:   notams,
		Messages: msgs,
		Store:    store,
		cache:    expirable.NewLRU[string, aero.Reference](cfg.CacheSize, nil, cfg.CacheTTL),
		logger:   logger,
	}
}

// Gather fetches both aerodromes concurrently. Every slot of the returned
// records is resolved: a failed fetch is an Unavailable outcome carrying the
// error text, never an empty value.
func (g *Gatherer) Gather(ctx context.Context, origin, dest string) (aero.Aerodrome, aero.Aerodrome) {
	o := aero.NewAerodrome(aero.NormaliseICAO(origin), "not fetched")
	d := aero.NewAerodrome(aero.NormaliseICAO(dest), "not fetched")

	var eg errgroup.Group
	g.fill(ctx, &eg, &o)
	g.fill(ctx, &eg, &d)
	// Fetch goroutines report failures through their outcome slot, so Wait
	// never returns an error.
	_ = eg.Wait()
	return o, d
}

// Aerodrome fetches a single aerodrome.
func (g *Gatherer) Aerodrome(ctx context.Context, icao string) aero.Aerodrome {
	ad := aero.NewAerodrome(aero.NormaliseICAO(icao), "not fetched")
	var eg errgroup.Group
	g.fill(ctx, &eg, &ad)
	_ = eg.Wait()
	return ad
}

// fill schedules the four fetches for one aerodrome. Each goroutine writes
// only its own fields of ad.
func (g *Gatherer) fill(ctx context.Context, eg *errgroup.Group, ad *aero.Aerodrome) {
	icao := ad.ICAO

	eg.Go(func() error {
		ref, err := g.reference(ctx, icao)
		if err != nil {
			ad.Coordinate = aero.Unavailable[aero.Coordinate](err.Error())
			ad.Runways = aero.Unavailable[[]aero.RunwayRecord](err.Error())
			return nil
		}
		ad.Name = ref.Name
		ad.Coordinate = ref.CoordinateOutcome()
		ad.Runways = aero.Ok(ref.Runways)
		return nil
	})

	eg.Go(func() error {
		if g.Notams == nil {
			ad.Notams = aero.Unavailable[[]aero.NotamRecord]("no NOTAM source configured")
			return nil
		}
		ns, err := g.Notams.Notams(ctx, icao)
		if err != nil {
			g.warn("notam fetch failed", icao, err)
			ad.Notams = aero.Unavailable[[]aero.NotamRecord](err.Error())
			return nil
		}
		ad.Notams = aero.Ok(ns)
		return nil
	})

	for _, m := range []struct {
		kind wx.Kind
		dst  *aero.Outcome[[]string]
	}{
		{wx.METAR, &ad.Reports},
		{wx.TAF, &ad.Forecasts},
	} {
		eg.Go(func() error {
			if g.Messages == nil {
				*m.dst = aero.Unavailable[[]string]("no weather source configured")
				return nil
			}
			msgs, err := g.Messages.Messages(ctx, m.kind, icao)
			if err != nil {
				g.warn(string(m.kind)+" fetch failed", icao, err)
				*m.dst = aero.Unavailable[[]string](err.Error())
				return nil
			}
			*m.dst = aero.Ok(msgs)
			return nil
		})
	}
}

// reference resolves rotaer data: cache, then AISWEB, then the reference
// store. A successful AISWEB answer refreshes both the cache and the store.
func (g *Gatherer) reference(ctx context.Context, icao string) (aero.Reference, error) {
	if g.cache != nil {
		if ref, ok := g.cache.Get(icao); ok {
			return ref, nil
		}
	}

	if g.Rotaer == nil {
		return g.fallback(ctx, icao, errNoRotaer)
	}
	ref, err := g.Rotaer.Rotaer(ctx, icao)
	if err != nil {
		g.warn("rotaer fetch failed", icao, err)
		return g.fallback(ctx, icao, err)
	}

	// AISWEB answers unknown codes and rejected credentials with an empty
	// document.
	if len(ref.Runways) == 0 && ref.Coordinate == nil {
		g.warn("rotaer reply empty", icao, errEmptyRotaer)
		return g.fallback(ctx, icao, errEmptyRotaer)
	}

	if g.cache != nil {
		g.cache.Add(icao, ref)
	}
	if g.Store != nil {
		if err := g.Store.SaveReference(ctx, ref); err != nil {
			g.warn("reference store save failed", icao, err)
		}
	}
	return ref, nil
}

func (g *Gatherer) fallback(ctx context.Context, icao string, cause error) (aero.Reference, error) {
	if g.Store == nil {
		return aero.Reference{}, cause
	}
	ref, err := g.Store.LoadReference(ctx, icao)
	if err != nil {
		g.logger.Debug("reference store miss", slog.String("icao", icao), slog.Any("error", err))
		return aero.Reference{}, cause
	}
	g.logger.Info("using stored reference data", slog.String("icao", icao), slog.Time("updated_at", ref.UpdatedAt))
	return ref, nil
}

func (g *Gatherer) warn(msg, icao string, err error) {
	g.logger.Warn(msg, slog.String("icao", icao), slog.Any("error", err))
}
