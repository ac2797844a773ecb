// Package log provides secure logging built on top of the standard slog
// package.
//
// Bootstrap logs echo command lines, environment-derived settings and
// captured tool output. The SecureHandler masks what must never reach a
// shared log:
//   - the Azure DevOps personal access token (AZURE_DEVOPS_PAT) the tool reads
//   - passwords, tokens and other values under sensitive key names
//   - values that look like tokens (JWT, PyPI, GitHub, long alphanumerics)
//   - credentials embedded in proxy or package index URLs
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Info("running action", "command", "pip3", "args", args)
//	slog.SetDefault(logger)
package log
