package exports

import (
	"bytes"
	"encoding/json"

	"stakeledger/storage/history"
)

type jsonlRow struct {
	EventID   string  `json:"event_id"`
	Height    uint64  `json:"height"`
	BlockTime string  `json:"block_time,omitempty"`
	Module    string  `json:"module"`
	EventType string  `json:"event_type"`
	Kind      string  `json:"kind"`
	Account   string  `json:"account"`
	Pool      *uint64 `json:"pool,omitempty"`
	Positions string  `json:"positions,omitempty"`
	Amount    string  `json:"amount"`
}

// PayoutsJSONL builds a JSON Lines export for the supplied payouts and
// returns the serialised payload alongside a checksum.
func PayoutsJSONL(payouts []history.Payout) ([]byte, string, error) {
	buffer := &bytes.Buffer{}
	encoder := json.NewEncoder(buffer)
	encoder.SetEscapeHTML(false)
	for _, p := range payouts {
		row := jsonlRow{
			EventID:   p.EventID,
			Height:    p.Height,
			BlockTime: blockTime(p.BlockTime),
			Module:    p.Module,
			EventType: p.EventType,
			Kind:      p.Kind,
			Account:   p.Account,
			Pool:      p.Pool,
			Positions: p.Positions,
			Amount:    amountString(p.Amount),
		}
		if err := encoder.Encode(row); err != nil {
			return nil, "", err
		}
	}
	data := buffer.Bytes()
	return data, checksum(data), nil
}
