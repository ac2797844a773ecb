// Package main provides the entry point for the fortify-bootstrap CLI.
//
// fortify-bootstrap prepares a workstation to run the Fortify report tool.
// It checks for a Python interpreter and pip, installs the uv package
// manager, syncs the project's dependencies and then starts the tool.
//
// Usage:
//
//	fortify-bootstrap install
//	fortify-bootstrap run
//
// See --help for all available options.
package main

// main is the entry point for fortify-bootstrap.
func main() {
	Execute()
}
