// Package scoring computes the deterministic potential score for an
// analysis result. It is pure math over the product and supplier set; no
// external calls, and results are recomputed whenever the set changes.
package scoring

import (
	"math"
	"strings"
	"time"

	"github.com/backend-developer-hojiakbar/mebel/internal/models"
	"github.com/backend-developer-hojiakbar/mebel/internal/price"
)

const (
	baseOpportunity = 50.0
	baseRisk        = 10.0

	supplierFoundBonus  = 15.0
	inStockBonus        = 15.0
	localSupplierBonus  = 10.0
	priceAdvantageScale = 50.0
	priceAdvantageCap   = 25.0

	noSupplierPenalty       = 40.0
	priceDisadvantageScale  = 50.0
	priceDisadvantageCap    = 25.0
	allOutOfStockPenalty    = 15.0
	allInternationalPenalty = 10.0

	winProbabilityScale = 10.0
)

// Calculate scores the product set against the deadline. now anchors the
// days-remaining computation. A zero-product input yields the maximally
// pessimistic default.
func Calculate(products []models.Product, deadline string, now time.Time) models.PotentialScore {
	if len(products) == 0 {
		return models.PotentialScore{
			Opportunity:    0,
			Risk:           100,
			WinProbability: 0,
			PotentialScore: 0,
			DaysRemaining:  -1,
		}
	}

	var oppSum, riskSum float64
	var startTotal, bestTotal float64
	for _, p := range products {
		opp, risk := scoreProduct(p)
		oppSum += opp
		riskSum += risk

		start, best, ok := productPrices(p)
		if ok {
			startTotal += start * p.Quantity
			bestTotal += best * p.Quantity
		}
	}

	avgOpp := oppSum / float64(len(products))
	avgRisk := riskSum / float64(len(products))

	winProbability := 0.0
	if startTotal > 0 && bestTotal > 0 && bestTotal < startTotal {
		winProbability = round2((startTotal - bestTotal) / startTotal * winProbabilityScale)
	}

	composite := int(math.Round(avgOpp*0.7 + (100-avgRisk)*0.3))

	return models.PotentialScore{
		Opportunity:    avgOpp,
		Risk:           avgRisk,
		WinProbability: winProbability,
		PotentialScore: composite,
		DaysRemaining:  DaysRemaining(deadline, now),
	}
}

// scoreProduct computes the clamped per-product opportunity and risk.
func scoreProduct(p models.Product) (opportunity, risk float64) {
	opportunity = baseOpportunity
	risk = baseRisk

	cheapest, cheapestUZS, priced := cheapestSupplier(p)
	startUZS, startKnown := price.Parse(p.StartingPrice).UZS()

	if len(p.Suppliers) > 0 {
		opportunity += supplierFoundBonus

		// Bonuses follow the cheapest supplier; when no supplier carries a
		// resolvable price, the first one stands in so an unpriced-but-real
		// supplier still counts.
		best := p.Suppliers[0]
		if priced {
			best = cheapest
		}
		if best.Stock == models.StockInStock {
			opportunity += inStockBonus
		}
		if best.Region == models.RegionUZ {
			opportunity += localSupplierBonus
		}

		if priced && startKnown && startUZS > 0 {
			if cheapestUZS < startUZS {
				advantage := (startUZS - cheapestUZS) / startUZS
				opportunity += math.Min(advantage*priceAdvantageScale, priceAdvantageCap)
			} else if cheapestUZS > startUZS {
				disadvantage := (cheapestUZS - startUZS) / startUZS
				risk += math.Min(disadvantage*priceDisadvantageScale, priceDisadvantageCap)
			}
		}
	}

	if len(p.Suppliers) == 0 {
		risk += noSupplierPenalty
	} else {
		if all(p.Suppliers, func(s models.Supplier) bool { return s.Stock == models.StockOutOfStock }) {
			risk += allOutOfStockPenalty
		}
		if all(p.Suppliers, func(s models.Supplier) bool { return s.Region == models.RegionInternational }) {
			risk += allInternationalPenalty
		}
	}

	return clamp(opportunity), clamp(risk)
}

// productPrices returns the per-unit starting and best supplier price in
// UZS, and whether both are resolvable for aggregate comparison.
func productPrices(p models.Product) (start, best float64, ok bool) {
	startUZS, startKnown := price.Parse(p.StartingPrice).UZS()
	if !startKnown || startUZS <= 0 {
		return 0, 0, false
	}
	_, bestUZS, found := cheapestSupplier(p)
	if !found {
		return 0, 0, false
	}
	return startUZS, bestUZS, true
}

// cheapestSupplier finds the supplier with the lowest UZS price. Suppliers
// without a resolvable price are ignored.
func cheapestSupplier(p models.Product) (models.Supplier, float64, bool) {
	var cheapest models.Supplier
	var cheapestUZS float64
	found := false
	for _, s := range p.Suppliers {
		uzs, ok := s.Price.UZS()
		if !ok || uzs <= 0 {
			continue
		}
		if !found || uzs < cheapestUZS {
			cheapest = s
			cheapestUZS = uzs
			found = true
		}
	}
	return cheapest, cheapestUZS, found
}

func all(suppliers []models.Supplier, pred func(models.Supplier) bool) bool {
	for _, s := range suppliers {
		if !pred(s) {
			return false
		}
	}
	return len(suppliers) > 0
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// deadlineFormats are the layouts tried when parsing deadline strings.
var deadlineFormats = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"02.01.2006 15:04",
	"02.01.2006",
	"02/01/2006",
	"January 2, 2006",
	"2 January 2006",
}

// DaysRemaining computes the ceiling of calendar days until the deadline.
// A past deadline yields 0; an absent or unparsable one yields -1, the
// "unknown" sentinel that displays differently from an expired deadline.
func DaysRemaining(deadline string, now time.Time) int {
	deadline = strings.TrimSpace(deadline)
	if deadline == "" || strings.EqualFold(deadline, models.NotAvailable) {
		return -1
	}

	var parsed time.Time
	ok := false
	for _, layout := range deadlineFormats {
		if t, err := time.ParseInLocation(layout, deadline, now.Location()); err == nil {
			parsed = t
			ok = true
			break
		}
	}
	if !ok {
		return -1
	}

	if !parsed.After(now) {
		return 0
	}
	return int(math.Ceil(parsed.Sub(now).Hours() / 24))
}
