// Package api provides the HTTP REST API of the toy robot simulator.
//
// Endpoints:
//
// Session Management:
//   - POST /api/sessions - Create a session ({"config_id": "large"}, optional)
//   - GET /api/sessions - List sessions (?sort=created|accessed&order=asc|desc&limit=N)
//   - GET /api/sessions/{id} - Get a session
//   - DELETE /api/sessions/{id} - Delete a session
//
// Robot Operations:
//   - GET /api/sessions/{id}/state - Current robot state and table size
//   - GET /api/sessions/{id}/report - Run REPORT
//   - POST /api/sessions/{id}/commands - Run one command
//   - POST /api/sessions/{id}/script - Run a multi-line script
//   - POST /api/sessions/{id}/reset - Take the robot off the table
//   - GET /api/sessions/{id}/history - Command history (?page&limit&order)
//
// Configuration:
//   - GET /api/configs - List table configurations
//   - POST /api/configs - Save a table configuration
//   - GET /api/configs/{name} - Get a table configuration
//
// Other:
//   - GET /health
//   - GET /metrics - Prometheus metrics
//   - GET /ws?session={id} - WebSocket state updates
//
// A command is either structured or a raw line:
//
//	{"command": "PLACE", "args": "0,0,NORTH"}
//	{"line": "PLACE 0,0,NORTH"}
//
// Errors are returned as {"error": "message"}. A rejected PLACE answers 422,
// an unknown session or config 404 and a malformed body 400.
package api
