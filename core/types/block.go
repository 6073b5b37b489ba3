package types

import "time"

// BlockHeader is the block context a call executes under. Several calls may
// share one header; heights and timestamps never decrease.
type BlockHeader struct {
	Height    uint64 `json:"height"`
	Timestamp uint64 `json:"timestamp"`
}

// Time returns the header timestamp as a time value.
func (h *BlockHeader) Time() time.Time {
	if h == nil {
		return time.Unix(0, 0).UTC()
	}
	return time.Unix(int64(h.Timestamp), 0).UTC()
}
