package ingest

import (
	"strings"

	"github.com/pkg/errors"
)

// Kind names a dataset table.
type Kind string

const (
	KindPicks           Kind = "picks"
	KindQueues          Kind = "queues"
	KindPackaging       Kind = "packaging"
	KindOverrides       Kind = "overrides"
	KindHandlingUnits   Kind = "handling_units"
	KindContents        Kind = "contents"
	KindCategories      Kind = "categories"
	KindDeliveries      Kind = "deliveries"
	KindShippingPoints  Kind = "shipping_points"
	KindCarriers        Kind = "carriers"
	KindDirectMovements Kind = "direct_movements"
	KindPackingTimes    Kind = "packing_times"
)

// ErrUnknownKind is returned for dataset kinds without a schema.
var ErrUnknownKind = errors.New("unknown dataset kind")

// Kinds lists every supported kind in load order.
func Kinds() []Kind {
	return []Kind{
		KindPicks, KindQueues, KindPackaging, KindOverrides,
		KindHandlingUnits, KindContents, KindCategories, KindDeliveries,
		KindShippingPoints, KindCarriers, KindDirectMovements, KindPackingTimes,
	}
}

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := schemas[k]; !ok {
		return "", errors.Wrapf(ErrUnknownKind, "kind %q", s)
	}
	return k, nil
}

// Required reports whether an analysis cannot run without the kind.
func (k Kind) Required() bool {
	return k == KindPicks
}
