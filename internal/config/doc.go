// Package config loads the loader configuration from files.
//
// A Model is format agnostic. Files ending in .hcl are decoded with the HCL
// toolkit; .yaml, .yml, .toml and .json files are parsed with their format's
// decoder and their scalar settings bound through viper, which also applies
// MODLOAD_* environment overrides. Several files may be loaded at once; later
// files win.
//
// Example HCL configuration:
//
//	app       = "app"
//	root      = "static"
//	timeout   = "10s"
//	paths     = { jquery = "//cdn.example/jquery", legacy = null }
//	checkers  = { jquery = "jQuery" }
//	path_transform {
//	  pattern = "^lib/"
//	  replace = "vendor/lib/"
//	}
package config
