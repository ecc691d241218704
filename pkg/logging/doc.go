// Package logging builds the log/slog loggers of the stub server.
//
//	logger := logging.New(logging.Parse(cfg.Level, cfg.Format, cfg.AddSource, os.Stderr))
//	logger.Info("api registered", "api", "petstore")
//
// Components accept a *slog.Logger in their constructor or options and fall
// back to Nop. Log calls use key/value attributes; "api", "path" and
// "error" are the common keys.
package logging
