// Package websocket pushes robot state changes to browser clients.
//
// Clients connect to /ws?session=<id> and receive a JSON message whenever
// the robot in that session changes or reports:
//
//	{"session_id": "a1b2c3d4", "event": "state_update",
//	 "state": {"position": {"x": 0, "y": 1}, "heading": "NORTH", "placed": true},
//	 "report": "0,1,NORTH"}
//
// Incoming client messages are read only to keep the connection alive.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run(ctx)
//
//	hub.BroadcastState(sessionID, robot.State(), robot.Report())
package websocket
