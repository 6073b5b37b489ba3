package exports

import (
	"bytes"
	"fmt"

	"github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"stakeledger/storage/history"
)

type parquetRow struct {
	EventID   string `parquet:"name=event_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Height    int64  `parquet:"name=height, type=INT64"`
	BlockTime string `parquet:"name=block_time, type=BYTE_ARRAY, convertedtype=UTF8"`
	Module    string `parquet:"name=module, type=BYTE_ARRAY, convertedtype=UTF8"`
	EventType string `parquet:"name=event_type, type=BYTE_ARRAY, convertedtype=UTF8"`
	Kind      string `parquet:"name=kind, type=BYTE_ARRAY, convertedtype=UTF8"`
	Account   string `parquet:"name=account, type=BYTE_ARRAY, convertedtype=UTF8"`
	Pool      string `parquet:"name=pool, type=BYTE_ARRAY, convertedtype=UTF8"`
	Positions string `parquet:"name=positions, type=BYTE_ARRAY, convertedtype=UTF8"`
	// Amounts are decimal strings; token units overflow every parquet integer type.
	Amount string `parquet:"name=amount, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// PayoutsParquet builds a Snappy-compressed Parquet export for the supplied
// payouts and returns the file bytes alongside a checksum.
func PayoutsParquet(payouts []history.Payout) ([]byte, string, error) {
	buffer := &bytes.Buffer{}
	fw := writerfile.NewWriterFile(buffer)
	pw, err := writer.NewParquetWriter(fw, new(parquetRow), 1)
	if err != nil {
		return nil, "", fmt.Errorf("exports: parquet schema: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, p := range payouts {
		row := &parquetRow{
			EventID:   p.EventID,
			Height:    int64(p.Height),
			BlockTime: blockTime(p.BlockTime),
			Module:    p.Module,
			EventType: p.EventType,
			Kind:      p.Kind,
			Account:   p.Account,
			Pool:      poolString(p.Pool),
			Positions: p.Positions,
			Amount:    amountString(p.Amount),
		}
		if err := pw.Write(row); err != nil {
			_ = pw.WriteStop()
			return nil, "", fmt.Errorf("exports: parquet write: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return nil, "", fmt.Errorf("exports: parquet flush: %w", err)
	}
	data := buffer.Bytes()
	return data, checksum(data), nil
}
