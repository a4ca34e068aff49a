package restock

import (
	"sort"
	"time"

	"github.com/andresuchdata/restock-go/internal/calendar"
	"github.com/andresuchdata/restock-go/internal/domain"
)

type skuWeek struct {
	sku  string
	week domain.YearWeek
}

// AggregateIncomingWeeks pivots inbound purchase order quantities into one
// column per ISO (year, week), ordered chronologically. Orders due before
// from are past due and left out; a zero from keeps every order.
func AggregateIncomingWeeks(orders []domain.PurchaseOrder, from time.Time) domain.IncomingWeeks {
	from = calendar.DateOnly(from)
	totals := make(map[skuWeek]float64)
	weeks := make(map[domain.YearWeek]struct{})
	skus := make(map[string]struct{})

	for _, po := range orders {
		if !from.IsZero() && calendar.DateOnly(po.ETA).Before(from) {
			continue
		}
		year, week := po.ETA.ISOWeek()
		yw := domain.YearWeek{Year: year, Week: week}
		for _, item := range po.Items {
			if item.SKU == "" {
				continue
			}
			totals[skuWeek{sku: item.SKU, week: yw}] += item.QtyOrdered
			weeks[yw] = struct{}{}
			skus[item.SKU] = struct{}{}
		}
	}

	result := domain.IncomingWeeks{
		Weeks: make([]domain.YearWeek, 0, len(weeks)),
		Rows:  make([]domain.IncomingWeekRow, 0, len(skus)),
	}
	for yw := range weeks {
		result.Weeks = append(result.Weeks, yw)
	}
	sort.Slice(result.Weeks, func(i, j int) bool {
		if result.Weeks[i].Year != result.Weeks[j].Year {
			return result.Weeks[i].Year < result.Weeks[j].Year
		}
		return result.Weeks[i].Week < result.Weeks[j].Week
	})

	skuList := make([]string, 0, len(skus))
	for sku := range skus {
		skuList = append(skuList, sku)
	}
	sort.Strings(skuList)

	for _, sku := range skuList {
		row := domain.IncomingWeekRow{SKU: sku, Quantities: make([]float64, len(result.Weeks))}
		for i, yw := range result.Weeks {
			row.Quantities[i] = totals[skuWeek{sku: sku, week: yw}]
		}
		result.Rows = append(result.Rows, row)
	}
	return result
}
