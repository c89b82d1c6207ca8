package usage

import (
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUsageRecord(t *testing.T) {
	projectID := uuid.New()

	t.Run("creates valid record", func(t *testing.T) {
		record, err := NewUsageRecord(projectID, "openai", "gpt-4", 1500, 500, dec("0.075"), time.Now())

		require.NoError(t, err)
		assert.Equal(t, projectID, record.ProjectID)
		assert.Equal(t, int64(2000), record.TotalTokens())
		assert.NotEqual(t, uuid.Nil, record.ID)
	})

	t.Run("fails with nil project", func(t *testing.T) {
		_, err := NewUsageRecord(uuid.Nil, "openai", "gpt-4", 1, 1, decimal.Zero, time.Now())
		assert.Error(t, err)
	})

	t.Run("fails with negative tokens", func(t *testing.T) {
		_, err := NewUsageRecord(projectID, "openai", "gpt-4", -1, 1, decimal.Zero, time.Now())
		assert.Error(t, err)
	})

	t.Run("allows zero cost", func(t *testing.T) {
		record, err := NewUsageRecord(projectID, "unknown", "model", 10, 10, decimal.Zero, time.Now())
		require.NoError(t, err)
		assert.True(t, record.Cost.IsZero())
	})
}

func TestPriceTableCost(t *testing.T) {
	table := DefaultPriceTable()

	t.Run("computes per-million token cost", func(t *testing.T) {
		// gpt-4: $30/M input, $60/M output.
		cost, ok := table.Cost("openai", "gpt-4", 1_000_000, 500_000)
		require.True(t, ok)
		assert.True(t, cost.Equal(dec("60")), "cost = %s", cost)
	})

	t.Run("lookup is case-insensitive", func(t *testing.T) {
		_, ok := table.Cost("OpenAI", "GPT-4", 100, 100)
		assert.True(t, ok)
	})

	t.Run("unknown provider or model returns zero", func(t *testing.T) {
		cost, ok := table.Cost("unknown", "gpt-4", 1000, 1000)
		assert.False(t, ok)
		assert.True(t, cost.IsZero())

		cost, ok = table.Cost("openai", "gpt-99", 1000, 1000)
		assert.False(t, ok)
		assert.True(t, cost.IsZero())
	})

	t.Run("zero tokens cost zero", func(t *testing.T) {
		cost, ok := table.Cost("anthropic", "claude-3-opus", 0, 0)
		require.True(t, ok)
		assert.True(t, cost.IsZero())
	})
}

func sampleRecords(t *testing.T) []UsageRecord {
	t.Helper()
	projectID := uuid.New()
	day1 := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 8, 2, 9, 0, 0, 0, time.UTC)

	mk := func(provider, model string, in, out int64, cost string, at time.Time) UsageRecord {
		r, err := NewUsageRecord(projectID, provider, model, in, out, dec(cost), at)
		require.NoError(t, err)
		return *r
	}
	return []UsageRecord{
		mk("openai", "gpt-4", 1000, 500, "0.06", day1),
		mk("openai", "gpt-4", 2000, 1000, "0.12", day2),
		mk("openai", "gpt-3.5-turbo", 4000, 2000, "0.005", day1),
		mk("anthropic", "claude-3-opus", 1000, 1000, "0.09", day1),
	}
}

func TestAggregations(t *testing.T) {
	records := sampleRecords(t)

	t.Run("by provider", func(t *testing.T) {
		totals := AggregateByProvider(records)

		require.Len(t, totals, 2)
		assert.Equal(t, "anthropic", totals[0].Key)
		assert.Equal(t, "openai", totals[1].Key)
		assert.Equal(t, int64(3), totals[1].RecordCount)
		assert.True(t, totals[1].Cost.Equal(dec("0.185")), "openai cost = %s", totals[1].Cost)
		assert.Equal(t, int64(10500), totals[1].TotalTokens)
	})

	t.Run("by model", func(t *testing.T) {
		totals := AggregateByModel(records)

		require.Len(t, totals, 3)
		keys := []string{totals[0].Key, totals[1].Key, totals[2].Key}
		assert.Equal(t, []string{"anthropic/claude-3-opus", "openai/gpt-3.5-turbo", "openai/gpt-4"}, keys)
	})

	t.Run("by day", func(t *testing.T) {
		totals := AggregateByDay(records)

		require.Len(t, totals, 2)
		assert.Equal(t, "2026-08-01", totals[0].Key)
		assert.Equal(t, int64(3), totals[0].RecordCount)
		assert.Equal(t, "2026-08-02", totals[1].Key)
	})

	t.Run("result is order-independent", func(t *testing.T) {
		shuffled := make([]UsageRecord, len(records))
		copy(shuffled, records)
		rand.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		assert.Equal(t, AggregateByProvider(records), AggregateByProvider(shuffled))
		assert.Equal(t, AggregateByModel(records), AggregateByModel(shuffled))
		assert.Equal(t, AggregateByDay(records), AggregateByDay(shuffled))
	})

	t.Run("total cost", func(t *testing.T) {
		assert.True(t, TotalCost(records).Equal(dec("0.275")))
	})
}

func TestProjectBudgetShouldAlert(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	newBudget := func(t *testing.T) *ProjectBudget {
		b, err := NewProjectBudget(uuid.New(), dec("100"))
		require.NoError(t, err)
		return b
	}

	t.Run("below threshold never alerts", func(t *testing.T) {
		b := newBudget(t)
		assert.False(t, b.ShouldAlert(dec("79.99"), now))
	})

	t.Run("at threshold alerts", func(t *testing.T) {
		b := newBudget(t)
		assert.True(t, b.ShouldAlert(dec("80"), now))
	})

	t.Run("over 100 percent still alerts once", func(t *testing.T) {
		b := newBudget(t)
		assert.True(t, b.ShouldAlert(dec("150"), now))
	})

	t.Run("cooldown suppresses repeat alerts", func(t *testing.T) {
		b := newBudget(t)
		require.True(t, b.ShouldAlert(dec("90"), now))
		b.MarkAlerted(now)

		assert.False(t, b.ShouldAlert(dec("90"), now.Add(time.Hour)))
		assert.False(t, b.ShouldAlert(dec("150"), now.Add(23*time.Hour)), "higher usage inside the window is suppressed the same")
		assert.True(t, b.ShouldAlert(dec("90"), now.Add(25*time.Hour)))
	})

	t.Run("rejects non-positive threshold", func(t *testing.T) {
		_, err := NewProjectBudget(uuid.New(), decimal.Zero)
		assert.Error(t, err)
	})
}
