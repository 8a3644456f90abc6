// Package service runs a full advisory: fetch both aerodromes, evaluate,
// then archive and publish the result.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"preflight/internal/advisor"
	"preflight/internal/aero"
	"preflight/internal/fuel"
	"preflight/internal/notify"
	"preflight/internal/storage"
	"preflight/internal/verdict"
	"preflight/internal/wx"
)

// ErrInvalidRequest wraps every input validation failure.
var ErrInvalidRequest = errors.New("invalid request")

// ErrNoArchive is returned by History when no weather archive is configured.
var ErrNoArchive = errors.New("weather archive not configured")

// Gatherer resolves aerodrome data for a pair of ICAO codes.
type Gatherer interface {
	Gather(ctx context.Context, origin, dest string) (aero.Aerodrome, aero.Aerodrome)
}

// WeatherArchive stores and queries fetched messages.
type WeatherArchive interface {
	InsertWeather(ctx context.Context, msgs []storage.WeatherMessage) error
	RecentWeather(ctx context.Context, q storage.WeatherQuery) ([]storage.WeatherMessage, error)
}

// Options are the pilot-entered figures shared by every request shape.
type Options struct {
	fuel.Params
	advisor.Thresholds
	Policy string `json:"policy,omitempty"`
}

// DefaultOptions carries the figures a request may leave out. Only the
// reserve has a default; an explicit zero reserve is honoured.
func DefaultOptions() Options {
	return Options{Params: fuel.Params{ReserveMin: fuel.DefaultReserveMin}}
}

// Request asks for a fetched advisory.
type Request struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	Options
}

// UnmarshalJSON starts from DefaultOptions so an omitted reserve_min keeps
// the regulatory reserve.
func (r *Request) UnmarshalJSON(b []byte) error {
	type plain Request
	v := plain{Options: DefaultOptions()}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*r = Request(v)
	return nil
}

// Service is safe for concurrent use once built.
type Service struct {
	Gatherer  Gatherer
	Engine    *advisor.Engine
	Archive   WeatherArchive   // optional
	Publisher notify.Publisher // optional
	// DefaultUnit applies when a request leaves distance_unit empty.
	DefaultUnit string

	logger *slog.Logger
}

// New builds a service. A nil engine uses the stock components.
func New(g Gatherer, engine *advisor.Engine, logger *slog.Logger) *Service {
	if engine == nil {
		engine = advisor.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{Gatherer: g, Engine: engine, logger: logger}
}

// Params validates the options and converts them to engine parameters.
func (s *Service) Params(opts Options) (advisor.Params, error) {
	th := opts.Thresholds
	if th.Unit == "" {
		th.Unit = s.DefaultUnit
	}
	p, err := th.Normalise(opts.Params)
	if err != nil {
		return advisor.Params{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return p, nil
}

// engine returns the configured engine, or a copy of it carrying another
// verdict policy.
func (s *Service) engine(policy string) (*advisor.Engine, error) {
	if policy == "" {
		return s.Engine, nil
	}
	pol, err := verdict.PolicyByName(policy)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	e := *s.Engine
	e.Policy = pol
	return &e, nil
}

// Advise fetches both aerodromes and evaluates the flight. Archiving and
// publishing are best effort: failures are logged, never returned.
func (s *Service) Advise(ctx context.Context, req Request) (advisor.Report, error) {
	origin := aero.NormaliseICAO(req.Origin)
	dest := aero.NormaliseICAO(req.Destination)
	if !aero.IsICAO(origin) {
		return advisor.Report{}, fmt.Errorf("%w: origin %q is not an ICAO code", ErrInvalidRequest, req.Origin)
	}
	if !aero.IsICAO(dest) {
		return advisor.Report{}, fmt.Errorf("%w: destination %q is not an ICAO code", ErrInvalidRequest, req.Destination)
	}
	p, err := s.Params(req.Options)
	if err != nil {
		return advisor.Report{}, err
	}
	eng, err := s.engine(req.Policy)
	if err != nil {
		return advisor.Report{}, err
	}

	o, d := s.Gatherer.Gather(ctx, origin, dest)
	if err := ctx.Err(); err != nil {
		return advisor.Report{}, err
	}

	report := eng.Evaluate(o, d, p)
	s.logger.Info("advisory evaluated",
		slog.String("origin", origin),
		slog.String("destination", dest),
		slog.String("verdict", report.Verdict.Level.String()),
	)

	s.archive(ctx, report)
	s.publish(ctx, report)
	return report, nil
}

// Evaluate runs the engine over caller-supplied aerodrome records without
// fetching anything.
func (s *Service) Evaluate(origin, dest aero.Aerodrome, opts Options) (advisor.Report, error) {
	p, err := s.Params(opts)
	if err != nil {
		return advisor.Report{}, err
	}
	eng, err := s.engine(opts.Policy)
	if err != nil {
		return advisor.Report{}, err
	}
	origin.ICAO = aero.NormaliseICAO(origin.ICAO)
	dest.ICAO = aero.NormaliseICAO(dest.ICAO)
	return eng.Evaluate(origin, dest, p), nil
}

// History queries the weather archive.
func (s *Service) History(ctx context.Context, q storage.WeatherQuery) ([]storage.WeatherMessage, error) {
	if s.Archive == nil {
		return nil, ErrNoArchive
	}
	q.ICAO = aero.NormaliseICAO(q.ICAO)
	return s.Archive.RecentWeather(ctx, q)
}

func (s *Service) archive(ctx context.Context, r advisor.Report) {
	if s.Archive == nil {
		return
	}
	msgs := WeatherMessages(r)
	if err := s.Archive.InsertWeather(ctx, msgs); err != nil {
		s.logger.Warn("archive weather", slog.Int("messages", len(msgs)), slog.Any("error", err))
	}
}

func (s *Service) publish(ctx context.Context, r advisor.Report) {
	if s.Publisher == nil {
		return
	}
	if err := s.Publisher.Publish(ctx, r); err != nil {
		s.logger.Warn("publish advisory", slog.String("subject", notify.Subject(r.Origin, r.Destination)), slog.Any("error", err))
	}
}

// WeatherMessages flattens the decoded weather of a report into archive
// rows stamped with the report time.
func WeatherMessages(r advisor.Report) []storage.WeatherMessage {
	var out []storage.WeatherMessage
	for _, leg := range r.Weather {
		for _, group := range [][]wx.Summary{leg.Reports, leg.Forecasts} {
			for _, sum := range group {
				out = append(out, storage.WeatherMessage{
					ICAO:      leg.ICAO,
					Kind:      string(sum.Kind),
					Raw:       sum.Raw,
					Lines:     sum.Lines,
					HasHazard: sum.HasHazard,
					FetchedAt: r.GeneratedAt,
				})
			}
		}
	}
	return out
}
