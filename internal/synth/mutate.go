package synth

import (
	"cdc-generator/internal/models"

	"github.com/shopspring/decimal"
)

// Mutate returns a copy of old with a random subset of its mutable fields
// changed and every dependent amount recomputed. The key never changes.
func (s *Synthesizer) Mutate(old models.Record) models.Record {
	switch r := old.Clone().(type) {
	case *models.SalesRecord:
		s.mutateSale(r)
		return r
	case *models.ReturnsRecord:
		s.mutateReturn(r)
		return r
	default:
		return r
	}
}

func (s *Synthesizer) mutateSale(r *models.SalesRecord) {
	if s.rng.Float64() < quantityMutateProb {
		r.Quantity = Range{1, salesQuantityMax}.draw(s.rng)
	}
	if s.rng.Float64() < amountMutateProb {
		r.CouponAmt = money(s.rng, 0, maxCouponCents)
	}
	if r.TaxRate.IsZero() {
		r.TaxRate = s.inferSalesTaxRate(r)
	}
	PriceSale(r)
}

func (s *Synthesizer) mutateReturn(r *models.ReturnsRecord) {
	if s.rng.Float64() < quantityMutateProb {
		r.ReturnQuantity = Range{1, returnsQuantityMax}.draw(s.rng)
	}
	if s.rng.Float64() < amountMutateProb {
		r.Fee = money(s.rng, 100, 1500)
	}
	PriceReturn(r)
}

// inferSalesTaxRate recovers the rate a stored row was taxed at. Rows read
// back from the store do not carry it.
func (s *Synthesizer) inferSalesTaxRate(r *models.SalesRecord) decimal.Decimal {
	if r.ExtSalesPrice.IsPositive() && !r.ExtTax.IsNegative() {
		return r.ExtTax.DivRound(r.ExtSalesPrice, inferredRatePlaces)
	}
	return factor(s.rng, taxRateMinMillis, taxRateMaxMillis, 3)
}
