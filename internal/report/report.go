// Package report derives analytics from a user's trade set. Everything in
// here is a pure function of its input: no database access, no mutation of
// the trades passed in, and an empty input always yields zeroed or empty
// results rather than an error.
package report

import (
	"sort"
	"time"

	"tradeflow/internal/models"
)

// Summary holds the aggregate figures for a set of trades.
type Summary struct {
	Count    int     `json:"count"`
	Spent    float64 `json:"spent"`
	Earned   float64 `json:"earned"`
	PnL      float64 `json:"pnl"`
	ROI      float64 `json:"roi"`       // percentage; 0 when nothing was spent
	AvgSpent float64 `json:"avg_spent"` // mean capital per trade; 0 on empty input
}

// MonthlyRow is one calendar month of aggregated trading.
type MonthlyRow struct {
	Month         string  `json:"month"` // sortable "2006-01" key
	Label         string  `json:"label"` // display form, "Jan 2006"
	Spent         float64 `json:"spent"`
	Earned        float64 `json:"earned"`
	PnL           float64 `json:"pnl"`
	CumulativePnL float64 `json:"cumulative_pnl"`
}

// DailyPoint is one date in the cumulative growth series.
type DailyPoint struct {
	Date          string  `json:"date"`
	PnL           float64 `json:"pnl"`
	CumulativePnL float64 `json:"cumulative_pnl"`
}

// MarketStat is the exposure of a single market label.
type MarketStat struct {
	Market string  `json:"market"`
	Spent  float64 `json:"spent"`
	Earned float64 `json:"earned"`
	PnL    float64 `json:"pnl"`
}

// FilterMarket restricts trades to those with the given market label. The
// empty string is the reserved "no filter" selection and returns the input
// unchanged; stored labels are never empty, so the sentinel cannot collide
// with a real market.
func FilterMarket(trades []models.Trade, market string) []models.Trade {
	if market == "" {
		return trades
	}
	out := make([]models.Trade, 0, len(trades))
	for _, t := range trades {
		if t.Market == market {
			out = append(out, t)
		}
	}
	return out
}

// Summarize computes totals, ROI and average trade size over the set.
func Summarize(trades []models.Trade) Summary {
	var s Summary
	for _, t := range trades {
		s.Count++
		s.Spent += t.Spent
		s.Earned += t.Earned
		s.PnL += t.PnL
	}
	if s.Spent > 0 {
		s.ROI = s.PnL / s.Spent * 100
	}
	if s.Count > 0 {
		s.AvgSpent = s.Spent / float64(s.Count)
	}
	return s
}

// MonthlyRollup groups trades by calendar month, orders the months
// ascending and carries a running cumulative pnl across them.
func MonthlyRollup(trades []models.Trade) []MonthlyRow {
	byMonth := make(map[string]*MonthlyRow)
	for _, t := range trades {
		if len(t.Date) < 7 {
			continue
		}
		key := t.Date[:7]
		row, ok := byMonth[key]
		if !ok {
			row = &MonthlyRow{Month: key, Label: monthLabel(key)}
			byMonth[key] = row
		}
		row.Spent += t.Spent
		row.Earned += t.Earned
		row.PnL += t.PnL
	}

	rows := make([]MonthlyRow, 0, len(byMonth))
	for _, row := range byMonth {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Month < rows[j].Month })

	var cumulative float64
	for i := range rows {
		cumulative += rows[i].PnL
		rows[i].CumulativePnL = cumulative
	}
	return rows
}

// DailySeries groups trades by exact date, orders the dates ascending and
// carries a running cumulative pnl, for growth-over-time charting.
func DailySeries(trades []models.Trade) []DailyPoint {
	byDate := make(map[string]float64)
	for _, t := range trades {
		byDate[t.Date] += t.PnL
	}

	points := make([]DailyPoint, 0, len(byDate))
	for date, pnl := range byDate {
		points = append(points, DailyPoint{Date: date, PnL: pnl})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date < points[j].Date })

	var cumulative float64
	for i := range points {
		cumulative += points[i].PnL
		points[i].CumulativePnL = cumulative
	}
	return points
}

// MarketBreakdown sums spent and earned per market label, ordered by label.
func MarketBreakdown(trades []models.Trade) []MarketStat {
	byMarket := make(map[string]*MarketStat)
	for _, t := range trades {
		stat, ok := byMarket[t.Market]
		if !ok {
			stat = &MarketStat{Market: t.Market}
			byMarket[t.Market] = stat
		}
		stat.Spent += t.Spent
		stat.Earned += t.Earned
		stat.PnL += t.PnL
	}

	stats := make([]MarketStat, 0, len(byMarket))
	for _, stat := range byMarket {
		stats = append(stats, *stat)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Market < stats[j].Market })
	return stats
}

func monthLabel(key string) string {
	t, err := time.Parse("2006-01", key)
	if err != nil {
		return key
	}
	return t.Format("Jan 2006")
}
