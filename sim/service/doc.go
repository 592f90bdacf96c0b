// Package service provides the business logic layer of the toy robot simulator.
//
// RobotService is the single entry point used by every transport (REST,
// WebSocket, MCP). Each session owns one table and one robot; the service
// serializes all commands so a robot is never driven from two goroutines at
// once.
//
// Core Interfaces:
//
// RobotService exposes session, command, history and config operations.
// SessionManager stores sessions and persists them.
// ConfigManager loads named table configurations.
//
// Usage:
//
//	sessions := session.NewManager()
//	configs, _ := config.NewManager("configs")
//	svc := service.NewRobotService(sessions, configs)
//
//	info, err := svc.CreateSession(ctx, "standard")
//	if err != nil {
//		return err
//	}
//
//	svc.Execute(ctx, info.ID, "PLACE", "0,0,NORTH")
//	svc.Execute(ctx, info.ID, "MOVE", "")
//	result, _ := svc.Report(ctx, info.ID) // result.Report == "0,1,NORTH"
//
// Errors:
//
// Lookups of unknown sessions wrap ErrSessionNotFound. Rejected PLACE
// commands wrap the engine errors, so callers can use engine.IsPlacementError.
package service
