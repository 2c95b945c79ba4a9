// Package config loads and validates Minos configuration.
//
// Configuration is YAML with a fixed loading sequence: parse the file, apply
// defaults for zero-valued fields, apply MINOS_SECTION_FIELD environment
// overrides, then validate. Validation collects every problem into a single
// ValidationError rather than failing on the first.
//
//	cfg, err := config.LoadConfigWithEnvOverrides("minos.yaml")
//	if err != nil {
//		var verr config.ValidationError
//		if errors.As(err, &verr) {
//			for _, fe := range verr.Errors {
//				fmt.Println(fe.Field, fe.Message)
//			}
//		}
//		return err
//	}
//
// Sections map one-to-one onto subsystems: server (HTTP API), policy (store
// and file watcher), detectors (gates 1-3), pipeline (engine), approval
// (ticket store), evidence (recorder, storage, retention, export), telemetry
// (logging, metrics).
package config
