package reckoner

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/gostackhq/reckoner-backend/pkg/pagination"
)

const defaultExportMaxRows = 5000

// Exporter writes the resolution grid as a flat CSV table, one column set
// per channel, capped at a configurable row count.
type Exporter struct {
	svc     Service
	maxRows int
}

// NewExporter builds a grid exporter. maxRows <= 0 falls back to the default cap.
func NewExporter(svc Service, maxRows int) (*Exporter, error) {
	if svc == nil {
		return nil, fmt.Errorf("reckoner service required")
	}
	if maxRows <= 0 {
		maxRows = defaultExportMaxRows
	}
	return &Exporter{svc: svc, maxRows: maxRows}, nil
}

// WriteCSV streams the grid for the given filters into w. When the result
// set exceeds the row cap the output is truncated and flagged in the result.
func (e *Exporter) WriteCSV(ctx context.Context, filters GridFilters, w io.Writer) (*ExportResult, error) {
	filters.Page = pagination.Page{Number: 1, Length: e.maxRows}
	grid, err := e.svc.GetGrid(ctx, filters)
	if err != nil {
		return nil, err
	}

	cw := csv.NewWriter(w)

	header := []string{"Item Code", "Item Name", "Variants", "Tags"}
	for _, ch := range grid.Channels {
		header = append(header,
			ch.Name+" MRP",
			ch.Name+" MOP",
			ch.Name+" Selling Price",
			ch.Name+" Offer",
		)
	}
	if err := cw.Write(header); err != nil {
		return nil, fmt.Errorf("write export header: %w", err)
	}

	written := 0
	for _, row := range grid.Rows {
		if written >= e.maxRows {
			break
		}
		record := []string{
			row.ItemCode,
			row.ItemName,
			fmt.Sprintf("%d", row.VariantCount),
			strings.Join(row.Tags, "; "),
		}
		for _, ch := range grid.Channels {
			cell := row.Cells[ch.ID]
			if cell == nil {
				record = append(record, "", "", "", "")
				continue
			}
			record = append(record,
				cell.MRP.StringFixed(2),
				cell.MOP.StringFixed(2),
				cell.SellingPrice.StringFixed(2),
				cell.OfferLabel,
			)
		}
		if err := cw.Write(record); err != nil {
			return nil, fmt.Errorf("write export row: %w", err)
		}
		written++
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, fmt.Errorf("flush export: %w", err)
	}

	return &ExportResult{
		Rows:      written,
		Truncated: grid.Total > int64(written),
	}, nil
}
