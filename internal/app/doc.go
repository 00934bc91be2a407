// Package app contains the core application logic. It loads configuration,
// registers builtin modules and drives the run, bundle and graph commands,
// decoupled from any specific entrypoint like a CLI or server.
package app
