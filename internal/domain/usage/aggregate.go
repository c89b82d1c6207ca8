package usage

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// GroupTotal is one bucket of an aggregation: grouping key, combined token
// counts and accumulated cost.
type GroupTotal struct {
	Key          string          `json:"key"`
	InputTokens  int64           `json:"input_tokens"`
	OutputTokens int64           `json:"output_tokens"`
	TotalTokens  int64           `json:"total_tokens"`
	Cost         decimal.Decimal `json:"cost"`
	RecordCount  int64           `json:"record_count"`
}

// AggregateByProvider groups records by provider. Pure reducer: the result
// depends only on the multiset of records, never on their order.
func AggregateByProvider(records []UsageRecord) []GroupTotal {
	return aggregate(records, func(r *UsageRecord) string { return r.Provider })
}

// AggregateByModel groups records by provider/model pair
func AggregateByModel(records []UsageRecord) []GroupTotal {
	return aggregate(records, func(r *UsageRecord) string { return r.Provider + "/" + r.Model })
}

// AggregateByDay groups records by calendar day (UTC) of RecordedAt
func AggregateByDay(records []UsageRecord) []GroupTotal {
	return aggregate(records, func(r *UsageRecord) string {
		return r.RecordedAt.UTC().Format(time.DateOnly)
	})
}

func aggregate(records []UsageRecord, keyFn func(*UsageRecord) string) []GroupTotal {
	buckets := make(map[string]*GroupTotal)
	for i := range records {
		r := &records[i]
		key := keyFn(r)
		bucket, ok := buckets[key]
		if !ok {
			bucket = &GroupTotal{Key: key, Cost: decimal.Zero}
			buckets[key] = bucket
		}
		bucket.InputTokens += r.InputTokens
		bucket.OutputTokens += r.OutputTokens
		bucket.TotalTokens += r.InputTokens + r.OutputTokens
		bucket.Cost = bucket.Cost.Add(r.Cost)
		bucket.RecordCount++
	}

	totals := make([]GroupTotal, 0, len(buckets))
	for _, bucket := range buckets {
		totals = append(totals, *bucket)
	}
	// Deterministic output order regardless of map iteration.
	sort.Slice(totals, func(i, j int) bool { return totals[i].Key < totals[j].Key })
	return totals
}

// TotalCost sums the cost of all records
func TotalCost(records []UsageRecord) decimal.Decimal {
	total := decimal.Zero
	for i := range records {
		total = total.Add(records[i].Cost)
	}
	return total
}
