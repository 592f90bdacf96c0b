// Package script reads toy robot command files and runs them.
//
// A command file holds one or more batches separated by blank lines. Each
// batch is run against a fresh table and robot:
//
//	PLACE 0,0,NORTH
//	MOVE
//	REPORT
//
//	PLACE 1,2,EAST
//	REPORT
//
// A line is NAME followed by an optional argument word. Any further words are
// ignored. Both \n and \r\n line endings are accepted.
package script
