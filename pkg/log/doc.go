// Package log records the traffic between the exposer and the controller.
//
// It is separate from operational logging (slog): a protocol log is a
// complete machine-readable trace of every request, reply and event on the
// controller websocket, plus link state changes, for offline debugging.
//
//	// console, at debug level
//	cfg.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	// file, viewable with "mash-expose log view"
//	fl, _ := log.NewFileLogger("/var/log/mash-expose/controller.mlog")
//	cfg.ProtocolLogger = log.NewMultiLogger(log.NewSlogAdapter(logger), fl)
//
// Log files are a sequence of CBOR-encoded Events (.mlog).
package log
