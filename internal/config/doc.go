// Package config provides configuration parsing for the atomstore command.
//
// The configuration is stored in atomstore.yaml (or atomstore.json) in the
// working directory. This package handles loading, saving, and validating
// configuration, and turns it into reactive.Store options.
//
// # Configuration File Structure
//
//	store:
//	  edgePolicy: replace   # additive | replace
//	  maxDepth: 64          # 0 = unbounded
//	  skipUnchanged: true
//	  normalizeIDs: false
//	log:
//	  level: debug          # debug | info | warn | error
//	  format: json          # text | json
//	inspector:
//	  addr: localhost:7070
//	metrics:
//	  enabled: true
//	  namespace: atomstore
//
// # Usage
//
//	cfg, err := config.LoadOrDefault(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	store := reactive.NewStore(cfg.StoreOptions(logger)...)
package config
