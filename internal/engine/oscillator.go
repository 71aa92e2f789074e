package engine

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/eycin/papertrade/internal/domain"
	"github.com/eycin/papertrade/internal/store"
)

// priceScale bounds the stored precision of an oscillated price, so
// repeated ticks do not grow the decimal representation without bound.
const priceScale = 4

// Oscillator perturbs every listed price on a fixed cadence. Each tick
// multiplies every price by 1 + U(-amplitude, +amplitude) and commits
// the whole batch atomically, so a reader never sees a table with only
// some symbols updated for a given tick.
type Oscillator struct {
	table     *store.PriceTable
	interval  time.Duration
	amplitude float64
	rnd       *rand.Rand
	afterTick func() // persistence hook, invoked outside the table lock
}

// NewOscillator creates an oscillator over table. rnd may be nil, in
// which case a time-seeded source is used; tests inject a fixed seed.
// afterTick may be nil.
func NewOscillator(table *store.PriceTable, interval time.Duration, amplitude float64, rnd *rand.Rand, afterTick func()) *Oscillator {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	return &Oscillator{
		table:     table,
		interval:  interval,
		amplitude: amplitude,
		rnd:       rnd,
		afterTick: afterTick,
	}
}

// Start launches the tick loop in its own goroutine. The loop checks
// the context once per interval and exits within one interval of
// cancellation, with no further mutation.
func (o *Oscillator) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(o.interval)
		defer ticker.Stop()

		log.WithFields(log.Fields{
			"interval":  o.interval,
			"amplitude": o.amplitude,
		}).Info("price oscillator started")

		for {
			select {
			case <-ctx.Done():
				log.Info("price oscillator stopped")
				return
			case <-ticker.C:
				o.tick()
			}
		}
	}()
}

// tick captures the symbol set as of now, perturbs every captured
// price, and commits the result as one atomic batch. Symbols added or
// removed after the capture are left to the next tick; ApplyBatch
// skips any symbol delisted in the meantime.
func (o *Oscillator) tick() {
	captured := o.table.Snapshot()
	if len(captured) == 0 {
		return
	}

	batch := make([]domain.Quote, 0, len(captured))
	for _, q := range captured {
		batch = append(batch, domain.Quote{
			Symbol: q.Symbol,
			Price:  o.perturb(q.Price),
		})
	}
	o.table.ApplyBatch(batch)

	if o.afterTick != nil {
		o.afterTick()
	}
}

// perturb applies one bounded random swing to a price. A swing below
// zero is impossible while amplitude ≤ 1, but the result is clamped
// anyway: a negative price is never produced.
func (o *Oscillator) perturb(price decimal.Decimal) decimal.Decimal {
	factor := 1 + (o.rnd.Float64()-0.5)*2*o.amplitude
	next := price.Mul(decimal.NewFromFloat(factor)).Round(priceScale)
	if next.IsNegative() {
		return decimal.Zero
	}
	return next
}
