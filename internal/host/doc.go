// Package host provides the HostEnvironment the bootstrap checks query:
// command resolution, version queries, file existence, and the two
// side-effect actions (install and sync) plus the final tool launch.
//
// OS is the real implementation. Package hosttest provides a scripted
// in-memory Environment for tests.
package host
