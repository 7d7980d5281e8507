// Package device provides the geolocation and camera collaborators used by
// the agent console, with simulated implementations.
package device

import (
	"context"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/tOgg1/geoforce/internal/logging"
	"github.com/tOgg1/geoforce/internal/models"
)

// FixHandler receives position fixes.
type FixHandler func(fix models.Location)

// ErrorHandler receives asynchronous geolocation failures.
type ErrorHandler func(err error)

// Geolocator streams position fixes until the subscription is cancelled.
type Geolocator interface {
	Subscribe(onFix FixHandler, onErr ErrorHandler) (Subscription, error)
}

// Subscription is a live position feed.
type Subscription interface {
	// Cancel stops delivery and waits for in-flight handlers. Idempotent.
	Cancel()
}

// SimulatedGeolocator walks randomly from Origin, emitting one fix
// immediately and then one per Interval.
type SimulatedGeolocator struct {
	Origin   models.Coordinates
	Interval time.Duration
	MaxStep  float64
	// Err, when set, makes Subscribe fail as if permission was denied.
	Err  error
	Rand func() float64
	Now  func() time.Time

	active atomic.Int32
	logger zerolog.Logger
	once   sync.Once
}

func (g *SimulatedGeolocator) init() {
	g.once.Do(func() {
		if g.Origin == (models.Coordinates{}) {
			g.Origin = models.AgentReferencePoint
		}
		if g.Interval <= 0 {
			g.Interval = time.Second
		}
		if g.MaxStep <= 0 {
			g.MaxStep = 0.0005
		}
		if g.Rand == nil {
			g.Rand = rand.Float64
		}
		if g.Now == nil {
			g.Now = time.Now
		}
		g.logger = logging.Component("geolocation")
	})
}

// Subscribe starts a feed.
func (g *SimulatedGeolocator) Subscribe(onFix FixHandler, onErr ErrorHandler) (Subscription, error) {
	g.init()
	if g.Err != nil {
		return nil, &models.ResourceError{Resource: "geolocation", Err: g.Err}
	}
	if onFix == nil {
		onFix = func(models.Location) {}
	}

	ctx, cancel := context.WithCancel(context.Background())
	sub := &simulatedSubscription{cancel: cancel, owner: g}
	g.active.Add(1)
	sub.wg.Add(1)
	go g.run(ctx, &sub.wg, onFix)

	g.logger.Debug().Msg("geolocation subscription opened")
	return sub, nil
}

// ActiveSubscriptions returns how many feeds are open.
func (g *SimulatedGeolocator) ActiveSubscriptions() int {
	return int(g.active.Load())
}

func (g *SimulatedGeolocator) run(ctx context.Context, wg *sync.WaitGroup, onFix FixHandler) {
	defer wg.Done()

	lat, lng := g.Origin.Lat, g.Origin.Lng
	emit := func() {
		onFix(models.Location{Lat: lat, Lng: lng, Timestamp: g.Now().UTC()})
	}
	emit()

	ticker := time.NewTicker(g.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			lat += (g.Rand() - 0.5) * 2 * g.MaxStep
			lng += (g.Rand() - 0.5) * 2 * g.MaxStep
			emit()
		}
	}
}

type simulatedSubscription struct {
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
	owner  *SimulatedGeolocator
}

func (s *simulatedSubscription) Cancel() {
	s.once.Do(func() {
		s.cancel()
		s.wg.Wait()
		s.owner.active.Add(-1)
		s.owner.logger.Debug().Msg("geolocation subscription closed")
	})
}
