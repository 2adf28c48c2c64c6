// Package confloader layers configuration sources with koanf.
//
// Precedence, lowest to highest: struct defaults, YAML file,
// environment variables. A companion fsnotify Watcher reports file
// changes so callers can reload at runtime.
package confloader
