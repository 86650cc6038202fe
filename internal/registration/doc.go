// Package registration holds the device to hub registration table.
//
// A registration says "traffic from this device address belongs to this
// edge driver on this hub". The table is consulted for every inbound
// request to decide whether the sender is a known device, and is mutated
// by register commands and by failure-driven eviction.
//
// # Key Types
//
//   - Address: validated dotted IPv4 with an optional port
//   - EdgeID: lower-case 8-4-4-4-12 hexadecimal identifier
//   - Record: one registration; (Device, EdgeID) is its dedup key
//   - Table: ordered, lock-protected set of records
//   - FileStore: line-delimited JSON persistence, rewritten on every change
//
// # Validation
//
// ParseAddress, ParseHubAddress and ParseEdgeID are pure functions and must
// run before any table mutation. Nothing past them handles raw strings.
//
// # Usage
//
//	table := registration.NewTable(registration.NewFileStore(".registrations"))
//	table.SetLogger(log)
//	if err := table.Load(); err != nil {
//	    log.Warn("no existing registrations", "error", err)
//	}
//
//	dev, _ := registration.ParseAddress("192.168.1.20:8000")
//	hub, _ := registration.ParseHubAddress("192.168.1.50:39500")
//	id, _ := registration.ParseEdgeID("AAAAAAAA-BBBB-CCCC-DDDD-EEEEEEEEEEEE")
//	replaced, err := table.Upsert(registration.Record{Device: dev, EdgeID: id, Hub: hub})
//
// # Thread Safety
//
// Table is safe for concurrent use. Persistence happens under the table's
// write lock so the store always reflects a consistent table.
package registration
