// Package api implements the edge bridge's HTTP surfaces.
//
// # Relay surface
//
// Server is the listener devices, hubs and edge drivers talk to. Every
// request except the liveness route (/api/ping) is classified by sender
// first:
//
//   - A sender whose address matches a registration is a device sending
//     unsolicited traffic. The message is posted to every matching hub and
//     the device always gets 200. Hubs that reach the failure threshold lose
//     all their registrations once the pass completes.
//   - Any other sender must send a command:
//     /api/forward?url=<absolute-url> relays the request verbatim;
//     POST /api/register?devaddr=..&hubaddr=..&edgeid=.. adds or replaces a
//     registration; DELETE /api/register?devaddr=..&edgeid=.. removes one.
//
// Commands are parsed by ParseCommand into Forward, RegisterUpsert or
// RegisterDelete before any side effect happens.
//
// # Admin surface
//
// AdminServer is optional and read-only: /health, /metrics (JSON),
// /metrics/prometheus, /registrations and a websocket event feed at /ws.
// Websocket clients subscribe to event type channels:
//
//	{"type":"subscribe","id":"1","payload":{"channels":["hub.delivery"]}}
//
// Both servers follow the same lifecycle:
//
//	srv, err := api.New(deps)
//	srv.Start(ctx)
//	defer srv.Close()
package api
