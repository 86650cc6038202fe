package registration

import "fmt"

// Record maps a device address to the hub and edge driver responsible for it.
//
// The pair (Device, EdgeID) is the dedup key: a table holds at most one
// record per key. Records are comparable values.
type Record struct {
	Device Address `json:"devaddr"`
	EdgeID EdgeID  `json:"edgeid"`
	Hub    Address `json:"hubaddr"`
}

// Key identifies a record within a table.
type Key struct {
	Device Address
	EdgeID EdgeID
}

// Key returns the dedup key of the record.
func (r Record) Key() Key {
	return Key{Device: r.Device, EdgeID: r.EdgeID}
}

// Validate checks the invariants that decoding alone cannot enforce.
func (r Record) Validate() error {
	if r.EdgeID == "" {
		return fmt.Errorf("%w: missing", ErrInvalidEdgeID)
	}
	if r.Device.IP == "" {
		return fmt.Errorf("%w: missing device address", ErrInvalidAddress)
	}
	if r.Hub.IP == "" {
		return fmt.Errorf("%w: missing hub address", ErrInvalidAddress)
	}
	if !r.Hub.HasPort() {
		return fmt.Errorf("%w: %s", ErrMissingPort, r.Hub.IP)
	}
	return nil
}

// String formats the record for log output.
func (r Record) String() string {
	return fmt.Sprintf("%s -> %s (edge %s)", r.Device, r.Hub, r.EdgeID)
}
