// Package config provides configuration loading and validation for sitecrawl.
//
// Configuration is read once at startup from the process environment (with an
// optional .env overlay), an optional YAML site file, and CLI flags for the
// operational extras. The result is a validated Config from which the
// immutable model.CrawlJob is built.
package config
