// Package synth fabricates TPC-DS store_sales and store_returns rows whose
// derived monetary fields are consistent with their inputs, and mutates
// existing rows for UPDATE traffic.
package synth

import (
	"math/rand"
	"time"

	"cdc-generator/internal/models"

	"github.com/shopspring/decimal"
)

// ReturnsIDBias keeps returns identifiers apart from sales identifiers
// generated in the same microsecond.
const ReturnsIDBias = 1_000_000

const (
	promoProbability   = 0.7
	couponProbability  = 0.3
	quantityMutateProb = 0.5
	amountMutateProb   = 0.3
	taxRateMinMillis   = 50
	taxRateMaxMillis   = 150
	maxCouponCents     = 5000
	salesQuantityMax   = 100
	returnsQuantityMax = 20
	inferredRatePlaces = 3
	moneyPlaces        = 2
)

// Synthesizer generates fact rows. It is not safe for concurrent use; each
// table pipeline owns its own instance.
type Synthesizer struct {
	rng    *rand.Rand
	ranges Ranges
	now    func() time.Time
	lastID map[models.Table]int64
}

// Option configures a Synthesizer
type Option func(*Synthesizer)

// WithClock replaces time.Now, which drives identifiers and the date key
func WithClock(now func() time.Time) Option {
	return func(s *Synthesizer) {
		s.now = now
	}
}

// WithRanges overrides the dimension ranges
func WithRanges(r Ranges) Option {
	return func(s *Synthesizer) {
		s.ranges = r
	}
}

// New creates a synthesizer drawing from rng
func New(rng *rand.Rand, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		rng:    rng,
		ranges: DefaultRanges(),
		now:    time.Now,
		lastID: make(map[models.Table]int64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ranges returns the dimension ranges in use
func (s *Synthesizer) Ranges() Ranges {
	return s.ranges
}

// nextID derives an identifier from the clock, the in-batch sequence and the
// table bias, never repeating or going backwards for a table.
func (s *Synthesizer) nextID(table models.Table, sequence int) int64 {
	id := s.now().UnixMicro() + int64(sequence)
	if table == models.TableReturns {
		id += ReturnsIDBias
	}
	if last := s.lastID[table]; id <= last {
		id = last + 1
	}
	s.lastID[table] = id
	return id
}

// Sale synthesizes a new store_sales row
func (s *Synthesizer) Sale(sequence int) *models.SalesRecord {
	r := &models.SalesRecord{
		ID:           s.nextID(models.TableSales, sequence),
		SoldDateSK:   JulianDay(s.now()),
		SoldTimeSK:   s.ranges.Time.draw(s.rng),
		ItemSK:       s.ranges.Item.draw(s.rng),
		CustomerSK:   s.ranges.Customer.draw(s.rng),
		CdemoSK:      s.ranges.Cdemo.draw(s.rng),
		HdemoSK:      s.ranges.Hdemo.draw(s.rng),
		AddrSK:       s.ranges.Addr.draw(s.rng),
		StoreSK:      s.ranges.Store.draw(s.rng),
		TicketNumber: s.ranges.Ticket.draw(s.rng),
		Quantity:     Range{1, salesQuantityMax}.draw(s.rng),
	}

	if s.rng.Float64() < promoProbability {
		promo := s.ranges.Promo.draw(s.rng)
		r.PromoSK = &promo
	}

	r.ListPrice = money(s.rng, 100, 50000)
	r.WholesaleCost = r.ListPrice.Mul(factor(s.rng, 40, 80, 2)).Round(moneyPlaces)
	r.SalesPrice = r.ListPrice.Mul(factor(s.rng, 50, 100, 2)).Round(moneyPlaces)
	r.TaxRate = factor(s.rng, taxRateMinMillis, taxRateMaxMillis, 3)
	r.CouponAmt = decimal.Zero
	if s.rng.Float64() < couponProbability {
		r.CouponAmt = money(s.rng, 0, maxCouponCents)
	}

	PriceSale(r)
	return r
}

// Return synthesizes a new store_returns row
func (s *Synthesizer) Return(sequence int) *models.ReturnsRecord {
	r := &models.ReturnsRecord{
		ID:             s.nextID(models.TableReturns, sequence),
		ReturnedDateSK: JulianDay(s.now()),
		ReturnTimeSK:   s.ranges.Time.draw(s.rng),
		ItemSK:         s.ranges.Item.draw(s.rng),
		CustomerSK:     s.ranges.Customer.draw(s.rng),
		CdemoSK:        s.ranges.Cdemo.draw(s.rng),
		HdemoSK:        s.ranges.Hdemo.draw(s.rng),
		AddrSK:         s.ranges.Addr.draw(s.rng),
		StoreSK:        s.ranges.Store.draw(s.rng),
		ReasonSK:       s.ranges.Reason.draw(s.rng),
		TicketNumber:   s.ranges.Ticket.draw(s.rng),
		ReturnQuantity: Range{1, returnsQuantityMax}.draw(s.rng),
	}

	r.ReturnAmt = money(s.rng, 1000, 20000)
	r.TaxRate = factor(s.rng, taxRateMinMillis, taxRateMaxMillis, 3)
	r.ReturnTax = r.ReturnAmt.Mul(r.TaxRate).Round(moneyPlaces)
	r.ReturnAmtIncTax = r.ReturnAmt.Add(r.ReturnTax)
	r.Fee = money(s.rng, 100, 1500)
	r.ReturnShipCost = money(s.rng, 500, 2500)

	total := r.ReturnAmtIncTax
	r.RefundedCash = total.Mul(factor(s.rng, 0, 80, 2)).Round(moneyPlaces)
	r.ReversedCharge = total.Sub(r.RefundedCash).Mul(factor(s.rng, 0, 70, 2)).Round(moneyPlaces)
	r.StoreCredit = total.Sub(r.RefundedCash).Sub(r.ReversedCharge)

	PriceReturn(r)
	return r
}

// PriceSale recomputes every derived amount of a sales row from its unit
// prices, quantity, coupon and tax rate.
func PriceSale(r *models.SalesRecord) {
	q := decimal.NewFromInt(r.Quantity)
	r.ExtSalesPrice = r.SalesPrice.Mul(q)
	r.ExtListPrice = r.ListPrice.Mul(q)
	r.ExtWholesaleCost = r.WholesaleCost.Mul(q)
	r.ExtDiscountAmt = r.ListPrice.Sub(r.SalesPrice).Mul(q)
	if r.CouponAmt.GreaterThan(r.ExtSalesPrice) {
		r.CouponAmt = r.ExtSalesPrice
	}
	r.ExtTax = r.ExtSalesPrice.Mul(r.TaxRate).Round(moneyPlaces)
	r.NetPaid = r.ExtSalesPrice.Sub(r.CouponAmt)
	r.NetPaidIncTax = r.NetPaid.Add(r.ExtTax)
	r.NetProfit = r.NetPaid.Sub(r.ExtWholesaleCost)
}

// PriceReturn recomputes the net loss of a returns row
func PriceReturn(r *models.ReturnsRecord) {
	r.NetLoss = r.ReturnAmt.Add(r.Fee).Add(r.ReturnShipCost)
}
