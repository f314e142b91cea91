// Package ingest reads uploaded CSV tables into the typed records the
// analysis consumes. Each dataset kind has an explicit schema; cells that
// cannot be parsed degrade to zero values rather than failing the upload.
package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"example.com/backstage/services/pickaudit/internal/analysis"
	"example.com/backstage/services/pickaudit/internal/billing"
	"example.com/backstage/services/pickaudit/internal/hutree"
	"example.com/backstage/services/pickaudit/internal/packaging"
	"example.com/backstage/services/pickaudit/internal/packtime"
	"example.com/backstage/services/pickaudit/internal/picking"
)

// ErrEmptyTable is returned for input without a header row.
var ErrEmptyTable = errors.New("table has no header row")

// MissingColumnError names a required column absent from a table.
type MissingColumnError struct {
	Kind   Kind
	Column string
}

func (e *MissingColumnError) Error() string {
	return "dataset " + string(e.Kind) + ": missing required column " + e.Column
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02.01.2006 15:04:05",
	"02.01.2006",
	"01/02/2006",
}

type row struct {
	cells []string
	pos   map[string]int
}

func (r row) get(name string) string {
	i, ok := r.pos[name]
	if !ok || i >= len(r.cells) {
		return ""
	}
	return strings.TrimSpace(r.cells[i])
}

func (r row) decimal(name string) decimal.Decimal {
	return parseDecimal(r.get(name))
}

func (r row) float(name string) float64 {
	return parseDecimal(r.get(name)).InexactFloat64()
}

func (r row) date(name string) *time.Time {
	v := r.get(name)
	if v == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return &t
		}
	}
	return nil
}

// Table is a parsed CSV table bound to a schema.
type Table struct {
	Kind Kind
	rows []row
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Read parses CSV data of the given kind. Comma and semicolon delimiters
// are accepted, a UTF-8 byte order mark is ignored and headers match their
// schema aliases case-insensitively.
func Read(kind Kind, r io.Reader) (*Table, error) {
	cols, ok := schemas[kind]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownKind, "kind %q", kind)
	}

	br := bufio.NewReader(r)
	head, err := br.Peek(4096)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, errors.Wrap(err, "failed to read table")
	}

	reader := csv.NewReader(br)
	reader.Comma = detectDelimiter(head)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmptyTable
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s header", kind)
	}

	pos, err := bindColumns(kind, cols, header)
	if err != nil {
		return nil, err
	}

	t := &Table{Kind: kind}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read %s row %d", kind, len(t.rows)+2)
		}
		if blankRecord(record) {
			continue
		}
		t.rows = append(t.rows, row{cells: record, pos: pos})
	}
	return t, nil
}

// Load parses CSV data and appends its records to the matching slice of in.
func Load(in *analysis.Inputs, kind Kind, r io.Reader) (int, error) {
	t, err := Read(kind, r)
	if err != nil {
		return 0, err
	}
	t.AppendTo(in)
	return t.Len(), nil
}

// AppendTo converts the table rows and appends them to in.
func (t *Table) AppendTo(in *analysis.Inputs) {
	for _, r := range t.rows {
		switch t.Kind {
		case KindPicks:
			in.Picks = append(in.Picks, picking.Record{
				DeliveryID:       r.get("delivery"),
				MaterialID:       r.get("material"),
				Quantity:         r.decimal("quantity"),
				Queue:            r.get("queue"),
				RemovalFlag:      r.get("removal"),
				TransferOrder:    r.get("transfer_order"),
				StorageBin:       r.get("storage_bin"),
				HandlingUnit:     r.get("handling_unit"),
				StorageUnitType:  r.get("storage_unit_type"),
				User:             r.get("user"),
				ConfirmationDate: r.date("confirmation_date"),
			})
		case KindQueues:
			in.Queues = append(in.Queues, picking.QueueRecord{
				TransferOrder:    r.get("transfer_order"),
				SDDocument:       r.get("sd_document"),
				Queue:            r.get("queue"),
				ConfirmationDate: r.date("confirmation_date"),
				CreationDate:     r.date("creation_date"),
			})
		case KindPackaging:
			in.Packaging = append(in.Packaging, packaging.MasterRecord{
				MaterialID:    r.get("material"),
				UnitOfMeasure: r.get("uom"),
				Numerator:     r.float("numerator"),
				GrossWeight:   r.float("gross_weight"),
				WeightUnit:    r.get("weight_unit"),
				Length:        r.float("length"),
				Width:         r.float("width"),
				Height:        r.float("height"),
				DimensionUnit: r.get("dimension_unit"),
			})
		case KindOverrides:
			in.Overrides = append(in.Overrides, packaging.OverrideRecord{
				MaterialID:  r.get("material"),
				Description: r.get("description"),
			})
		case KindHandlingUnits:
			in.HandlingUnits = append(in.HandlingUnits, hutree.Unit{
				InternalID:    r.get("internal_id"),
				ExternalID:    r.get("external_id"),
				ParentID:      r.get("parent"),
				DeliveryID:    r.get("delivery"),
				PackagingType: r.get("packaging_type"),
			})
		case KindContents:
			in.Contents = append(in.Contents, hutree.ContentRecord{
				HUID:           r.get("hu"),
				LowerLevelHUID: r.get("lower"),
				DeliveryID:     r.get("delivery"),
				MaterialID:     r.get("material"),
			})
		case KindCategories:
			in.Categories = append(in.Categories, billing.CategoryRecord{
				DeliveryID: r.get("delivery"),
				Category:   r.get("category"),
				Kind:       r.get("kind"),
			})
		case KindDeliveries:
			in.Deliveries = append(in.Deliveries, billing.DeliveryHeader{
				DeliveryID:    r.get("delivery"),
				ShippingPoint: r.get("shipping_point"),
				Carrier:       r.get("carrier"),
			})
		case KindShippingPoints:
			in.ShippingPoints = append(in.ShippingPoints, billing.ShippingPoint{
				ShippingPoint: r.get("shipping_point"),
				OrderType:     r.get("order_type"),
			})
		case KindCarriers:
			in.Carriers = append(in.Carriers, billing.Carrier{
				CarrierID: r.get("carrier"),
				KEP:       r.get("kep"),
			})
		case KindDirectMovements:
			in.DirectMovements = append(in.DirectMovements, r.get("hu"))
		case KindPackingTimes:
			rec := packtime.Record{
				DeliveryID: r.get("delivery"),
				Customer:   r.get("customer"),
				MaterialID: r.get("material"),
				Minutes:    packtime.ParseMinutes(r.get("minutes")),
				KLT:        r.get("klt"),
				Pallets:    r.get("pallets"),
				Cartons:    r.get("cartons"),
			}
			for _, event := range []string{packtime.EventSerialScan, packtime.EventLabelReprint, packtime.EventDifficultKLT} {
				if packtime.FlagSet(r.get(event)) {
					if rec.Events == nil {
						rec.Events = make(map[string]bool)
					}
					rec.Events[event] = true
				}
			}
			in.PackingTimes = append(in.PackingTimes, rec)
		}
	}
}

func bindColumns(kind Kind, cols []column, header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		key := headerKey(h)
		if _, exists := index[key]; !exists {
			index[key] = i
		}
	}

	pos := make(map[string]int, len(cols))
	for _, c := range cols {
		for _, alias := range c.aliases {
			if i, ok := index[headerKey(alias)]; ok {
				pos[c.name] = i
				break
			}
		}
		if _, ok := pos[c.name]; !ok && c.required {
			return nil, &MissingColumnError{Kind: kind, Column: c.aliases[0]}
		}
	}
	return pos, nil
}

func headerKey(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	return strings.ToLower(strings.Join(strings.Fields(h), " "))
}

func detectDelimiter(head []byte) rune {
	line := head
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		line = head[:i]
	}
	if bytes.Count(line, []byte{';'}) > bytes.Count(line, []byte{','}) {
		return ';'
	}
	return ','
}

func blankRecord(record []string) bool {
	for _, c := range record {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// parseDecimal reads a numeric cell. A lone comma is taken as the decimal
// separator. Unparseable cells are zero.
func parseDecimal(v string) decimal.Decimal {
	v = strings.TrimSpace(v)
	if v == "" {
		return decimal.Zero
	}
	if d, err := decimal.NewFromString(v); err == nil {
		return d
	}
	// Decimal comma, optionally with dot-grouped thousands ("1.234,5").
	if i := strings.LastIndex(v, ","); i >= 0 && strings.Count(v, ",") == 1 && !strings.Contains(v[i:], ".") {
		if d, err := decimal.NewFromString(strings.ReplaceAll(v[:i], ".", "") + "." + v[i+1:]); err == nil {
			return d
		}
	}
	return decimal.Zero
}
