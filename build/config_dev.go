//go:build dev
// +build dev

package build

// Deployment specifies a development deployment.
const Deployment = Development

// LogLevel specifies a default log level of debug.
const LogLevel = "debug"
