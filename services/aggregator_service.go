package services

import (
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/zaikaroot/zaika_backend/models"
	"github.com/zaikaroot/zaika_backend/utils"
)

// AggregatorService folds settleable orders into every financial view the back
// office displays. One pass produces the platform windows, the trend series and
// the per-party totals together, so numbers shown side by side always come from
// the same snapshot. It holds no state between calls.
type AggregatorService struct{}

func NewAggregatorService() *AggregatorService {
	return &AggregatorService{}
}

// TopBy selects the ranking key for TopVendors/TopPartners.
type TopBy string

const (
	TopByOrders  TopBy = "orders"
	TopByRevenue TopBy = "revenue"
)

// Aggregate folds the given orders as of the given instant. Vendors supply
// names and commission overrides; partners supply names. Orders that are not
// settleable are ignored. Orders with an unusable createdAt still count toward
// the all-time totals but are excluded from dated windows and trends.
func (s *AggregatorService) Aggregate(orders []models.Order, vendors []models.Vendor, partners []models.DeliveryPartner, asOf time.Time) *models.EarningsSummary {
	rates := make(map[primitive.ObjectID]float64, len(vendors))
	vendorNames := make(map[primitive.ObjectID]string, len(vendors))
	for i := range vendors {
		rates[vendors[i].ID] = models.EffectiveCommissionRate(&vendors[i])
		vendorNames[vendors[i].ID] = vendors[i].BusinessName
	}
	partnerNames := make(map[primitive.ObjectID]string, len(partners))
	for i := range partners {
		partnerNames[partners[i].ID] = partners[i].FullName
	}

	dayStart := startOfDay(asOf)
	weekStart := dayStart.AddDate(0, 0, -6)
	monthStart := time.Date(asOf.Year(), asOf.Month(), 1, 0, 0, 0, 0, asOf.Location())

	summary := &models.EarningsSummary{AsOf: asOf}
	perVendor := make(map[primitive.ObjectID]*models.VendorTotals)
	perPartner := make(map[primitive.ObjectID]*models.PartnerTotals)
	daily := make(map[string]*models.TrendPoint)
	monthly := make(map[string]*models.TrendPoint)

	for i := range orders {
		o := &orders[i]
		if !o.IsSettleable() {
			continue
		}
		rate, ok := rates[o.VendorID]
		if !ok {
			rate = models.DefaultCommissionRate
		}
		e := utils.ComputeOrderEarnings(o, rate)

		addWindow(&summary.AllTime, o, &e)

		if o.CreatedAt.IsZero() {
			// Unusable timestamp: keep the money in the all-time totals but
			// leave every dated view alone.
			summary.SkippedFromWindows++
		} else {
			if !o.CreatedAt.Before(dayStart) && o.CreatedAt.Before(asOf) {
				addWindow(&summary.Today, o, &e)
			}
			if !o.CreatedAt.Before(weekStart) && o.CreatedAt.Before(asOf) {
				addWindow(&summary.Week, o, &e)
			}
			if !o.CreatedAt.Before(monthStart) && o.CreatedAt.Before(asOf) {
				addWindow(&summary.Month, o, &e)
			}
			// Bucket by the order's local calendar date so orders near
			// midnight land on the day the business saw them.
			dayKey := o.CreatedAt.Format("2006-01-02")
			monthKey := o.CreatedAt.Format("2006-01")
			addTrend(daily, dayKey, o, &e)
			addTrend(monthly, monthKey, o, &e)
		}

		vt, ok := perVendor[o.VendorID]
		if !ok {
			vt = &models.VendorTotals{
				VendorID:       o.VendorID.Hex(),
				VendorName:     vendorNames[o.VendorID],
				CommissionRate: rate,
			}
			perVendor[o.VendorID] = vt
		}
		vt.Orders++
		vt.Revenue += e.Subtotal
		vt.Commission += e.Commission
		vt.GST += e.GST
		vt.VendorPayable += e.VendorPayable
		if o.CreatedAt.After(vt.LastOrderAt) {
			vt.LastOrderAt = o.CreatedAt
		}

		if o.DeliveryPersonID != nil {
			pt, ok := perPartner[*o.DeliveryPersonID]
			if !ok {
				pt = &models.PartnerTotals{
					PartnerID:   o.DeliveryPersonID.Hex(),
					PartnerName: partnerNames[*o.DeliveryPersonID],
				}
				perPartner[*o.DeliveryPersonID] = pt
			}
			pt.Orders++
			pt.Earnings += e.PartnerEarning
			if o.PaymentMode == models.PaymentModeCOD {
				pt.CODCollected += o.Total
			}
			if o.CreatedAt.After(pt.LastOrderAt) {
				pt.LastOrderAt = o.CreatedAt
			}
		}
	}

	summary.DailyTrend = sortedTrend(daily)
	summary.MonthlyTrend = sortedTrend(monthly)
	summary.Vendors = sortedVendors(perVendor)
	summary.Partners = sortedPartners(perPartner)
	return summary
}

// TopVendors returns the best-performing vendors from a summary, ranked by the
// given key. Ties break on vendor id so the order is stable across runs.
func (s *AggregatorService) TopVendors(summary *models.EarningsSummary, by TopBy, limit int) []models.VendorTotals {
	ranked := make([]models.VendorTotals, len(summary.Vendors))
	copy(ranked, summary.Vendors)
	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		switch by {
		case TopByOrders:
			if a.Orders != b.Orders {
				return a.Orders > b.Orders
			}
		default:
			if a.Revenue != b.Revenue {
				return a.Revenue > b.Revenue
			}
		}
		return a.VendorID < b.VendorID
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// TopPartners ranks delivery partners by orders delivered or earnings.
func (s *AggregatorService) TopPartners(summary *models.EarningsSummary, by TopBy, limit int) []models.PartnerTotals {
	ranked := make([]models.PartnerTotals, len(summary.Partners))
	copy(ranked, summary.Partners)
	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		switch by {
		case TopByOrders:
			if a.Orders != b.Orders {
				return a.Orders > b.Orders
			}
		default:
			if a.Earnings != b.Earnings {
				return a.Earnings > b.Earnings
			}
		}
		return a.PartnerID < b.PartnerID
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func addWindow(w *models.WindowTotals, o *models.Order, e *utils.OrderEarnings) {
	w.Orders++
	w.Revenue += e.Subtotal
	w.Commission += e.Commission
	w.GST += e.GST
	w.DeliveryMargin += e.DeliveryMargin
	w.PlatformEarning += e.PlatformEarning
}

func addTrend(buckets map[string]*models.TrendPoint, key string, o *models.Order, e *utils.OrderEarnings) {
	p, ok := buckets[key]
	if !ok {
		p = &models.TrendPoint{Key: key}
		buckets[key] = p
	}
	p.Orders++
	p.Revenue += e.Subtotal
	p.PlatformEarning += e.PlatformEarning
}

func sortedTrend(buckets map[string]*models.TrendPoint) []models.TrendPoint {
	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]models.TrendPoint, 0, len(keys))
	for _, k := range keys {
		out = append(out, *buckets[k])
	}
	return out
}

func sortedVendors(m map[primitive.ObjectID]*models.VendorTotals) []models.VendorTotals {
	out := make([]models.VendorTotals, 0, len(m))
	for _, v := range m {
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VendorID < out[j].VendorID })
	return out
}

func sortedPartners(m map[primitive.ObjectID]*models.PartnerTotals) []models.PartnerTotals {
	out := make([]models.PartnerTotals, 0, len(m))
	for _, p := range m {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PartnerID < out[j].PartnerID })
	return out
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
