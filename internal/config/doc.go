// Package config provides the configuration of a bootstrap invocation:
// built-in defaults, the optional .fortify-bootstrap.yaml file and its
// search path, and validation of the merged result.
package config
