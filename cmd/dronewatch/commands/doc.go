// Package commands defines the dronewatch CLI.
//
// Commands
//
//   - serve   Run the HTTP API and the refresh loop
//   - watch   Run the refresh loop for a coordinate and log every event
//
// Configuration comes from the environment (optionally seeded from a .env
// file); flags only select what to start.
package commands
