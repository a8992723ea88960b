package repositories

import "errors"

var (
	// ErrShipmentNotFound indicates the shipment document does not exist.
	ErrShipmentNotFound = errors.New("shipment repository: shipment not found")
	// ErrStaleBreakdown indicates the stored breakdown has advanced past the
	// revision a save attempt was computed from; the caller must discard its
	// result rather than overwrite the newer one.
	ErrStaleBreakdown = errors.New("shipment repository: breakdown revision is stale")
)
