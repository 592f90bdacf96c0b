// Package engine provides the core simulation logic for the toy robot.
//
// The engine package implements:
//   - A bounded rectangular table (5x5 by default)
//   - The four compass headings and left/right rotation
//   - The robot state machine (unplaced / placed)
//   - The PLACE, MOVE, LEFT, RIGHT and REPORT command dispatcher
//   - Table configuration validation
//
// Core Types:
//
// Table answers bounds queries and never changes after construction. Robot owns
// its RobotState and keeps a non-owning reference to the Bounds it was placed on.
// Commands issued before a successful PLACE are ignored.
//
// Usage:
//
//	table := engine.DefaultTable()
//	robot := engine.NewRobot(engine.WithOutput(os.Stdout))
//
//	if _, err := robot.Place(table, 0, 0, "NORTH"); err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(robot.Move().Right().Move().Report()) // 1,1,EAST
//
// Rules:
//
// The robot must never fall off the table. PLACE outside the table fails with
// ErrOutOfBounds and leaves the robot untouched; a MOVE that would leave the
// table is silently dropped.
package engine
