package cmd

import (
	"testing"
	"time"

	"github.com/etnz/tally"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTime(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2025-03-03", time.Date(2025, time.March, 3, 0, 0, 0, 0, time.Local)},
		{"2025-03-03 14:05", time.Date(2025, time.March, 3, 14, 5, 0, 0, time.Local)},
		{"2025-03-03T14:05:06", time.Date(2025, time.March, 3, 14, 5, 6, 0, time.Local)},
		{"2025-03-03T14:05:06Z", time.Date(2025, time.March, 3, 14, 5, 6, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseTime(tt.in)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v, want %v", got, tt.want)
		})
	}

	_, err := parseTime("03/03/2025")
	assert.Error(t, err)
}

func TestLimit(t *testing.T) {
	txs := make([]tally.Transaction, 5)
	for i := range txs {
		txs[i].ID = int64(i + 1)
	}
	ids := func(txs []tally.Transaction) []int64 {
		var ids []int64
		for _, tx := range txs {
			ids = append(ids, tx.ID)
		}
		return ids
	}
	assert.Equal(t, []int64{1, 2}, ids(limit(txs, 2, 0)))
	assert.Equal(t, []int64{4, 5}, ids(limit(txs, 0, 2)))
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, ids(limit(txs, 10, 0)))
	assert.Len(t, limit(txs, 0, 0), 5)
}

func TestRecordCmd_Names(t *testing.T) {
	for kind, name := range map[tally.Kind]string{tally.Buy: "buy", tally.Sell: "sell", tally.Deposit: "deposit", tally.Withdraw: "withdraw"} {
		c := &recordCmd{kind: kind}
		assert.Equal(t, name, c.Name())
		assert.NotEmpty(t, c.Synopsis())
	}
}
