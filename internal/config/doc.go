// Package config loads the command line tool's configuration.
//
// # Configuration Sources
//
// Configuration is assembled from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. YAML configuration file passed to Load
//	3. DefaultConfig (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern MPT_<SECTION>_<FIELD>:
//
//	MPT_LOGGING_LEVEL=debug
//	MPT_PIPELINE_DELTA_TIME=5
//	MPT_PIPELINE_DELTA_POT=0.005
//	MPT_PIPELINE_COLUMNS=time/s,Ewe-Ece/V,I/mA,cycle_number,half_cycle
//	MPT_PIPELINE_WORKERS=8
//	MPT_TELEMETRY_METRICS_EXPORTER=prometheus
//
// # File Format
//
//	logging:
//	  level: info
//	  output: console
//	pipeline:
//	  delta_time: 10
//	  delta_pot: 0.01
//	  shift_time_to_zero: true
//	  workers: 4
//	telemetry:
//	  trace_exporter: none
//	  metrics_exporter: prometheus
//	  metrics_file: metrics/mptprocess.prom
//
// Unknown keys in the file are rejected. Validation failures surface as a
// CONFIG AppError listing every offending field.
package config
