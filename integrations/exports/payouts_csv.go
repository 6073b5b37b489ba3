package exports

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"stakeledger/storage/history"
)

var csvHeader = []string{"event_id", "height", "block_time", "module", "event_type", "kind", "account", "pool", "positions", "amount"}

// PayoutsCSV builds a CSV export for the supplied payouts and returns the
// serialised data alongside a SHA-256 checksum of the payload.
func PayoutsCSV(payouts []history.Payout) ([]byte, string, error) {
	buffer := &bytes.Buffer{}
	writer := csv.NewWriter(buffer)
	if err := writer.Write(csvHeader); err != nil {
		return nil, "", err
	}
	for _, p := range payouts {
		record := []string{
			p.EventID,
			fmt.Sprintf("%d", p.Height),
			blockTime(p.BlockTime),
			p.Module,
			p.EventType,
			p.Kind,
			p.Account,
			poolString(p.Pool),
			p.Positions,
			amountString(p.Amount),
		}
		if err := writer.Write(record); err != nil {
			return nil, "", err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, "", err
	}
	data := buffer.Bytes()
	return data, checksum(data), nil
}
