package domain

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"pgregory.net/rapid"
)

// Merging lots one by one must equal the average over all lots at once.
func TestProperty_WeightedAverageIsOrderIndependent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 15).Draw(t, "lots")

		qty, avg := decimal.Zero, decimal.Zero
		sumQty, sumValue := decimal.Zero, decimal.Zero
		for i := 0; i < n; i++ {
			q := decimal.NewFromInt(rapid.Int64Range(1, 10_000).Draw(t, fmt.Sprintf("qty-%d", i)))
			p := decimal.New(rapid.Int64Range(1, 1_000_000).Draw(t, fmt.Sprintf("price-%d", i)), -2)

			next, ok := WeightedAverage(qty, avg, q, p)
			if !ok {
				t.Fatalf("WeightedAverage rejected positive lot %s@%s", q, p)
			}
			qty, avg = qty.Add(q), next
			sumQty = sumQty.Add(q)
			sumValue = sumValue.Add(q.Mul(p))
		}

		want := sumValue.Div(sumQty)
		if avg.Sub(want).Abs().GreaterThan(decimal.New(1, -8)) {
			t.Fatalf("incremental average %s differs from batch average %s", avg, want)
		}
		if !avg.IsPositive() {
			t.Fatalf("average %s is not positive", avg)
		}
	})
}

func TestProperty_ParseNumberRoundTripsDecimalStrings(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		units := rapid.Int64Range(-1_000_000_000, 1_000_000_000).Draw(t, "units")
		exp := rapid.Int32Range(-6, 0).Draw(t, "exp")
		want := decimal.New(units, exp)

		got, ok := ParseNumber(want.String())
		if !ok {
			t.Fatalf("ParseNumber(%q) rejected a decimal string", want.String())
		}
		if !got.Equal(want) {
			t.Fatalf("ParseNumber(%q) = %s", want.String(), got)
		}
	})
}
