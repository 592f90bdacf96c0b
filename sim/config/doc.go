// Package config loads named table configurations for the toy robot simulator.
//
// Configurations live in a single directory as JSON or YAML files. The file
// name without its extension is the config id used when creating sessions:
//
//	configs/
//	  standard.json   -> "standard"
//	  large.yaml      -> "large"
//
// A config file describes the table only:
//
//	name: large
//	description: Large 10x10 table
//	width: 10
//	height: 10
//
// Every file is validated on load. The default configuration is "standard"
// when present, otherwise the first valid file, otherwise the built-in 5x5
// table.
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal().Err(err).Msg("load configs")
//	}
//
//	cfg, err := manager.LoadConfig("large")
//	table, err := engine.NewTableFromConfig(cfg)
//
// Watch keeps the cache in sync with the directory while the server runs.
package config
