// Package mcp exposes the robot simulator to AI agents over the Model Context
// Protocol.
//
// The server is a thin proxy: every tool calls the REST API, so one
// running simulator can be driven by browsers, scripts and agents at once.
//
// Tools:
//   - create_session, list_sessions, get_session
//   - robot_state, report
//   - place, move, left, right
//   - run_script: several command lines in one call
//   - reset_robot, command_history
//   - list_configs, robot_instructions
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//
//	// stdio
//	server.ServeStdio(client.GetMCPServer())
//
//	// HTTP: POST JSON-RPC messages to /mcp
//	response := client.GetMCPServer().HandleMessage(ctx, body)
package mcp
