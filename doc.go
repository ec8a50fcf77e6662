// Package main provides the altdeploy CLI tool for sideloading iOS apps.
//
// For the library API, see the subpackages:
//
//	import "github.com/pixelomer/AltDeploy/pkg/install"
//	import "github.com/pixelomer/AltDeploy/pkg/portal"
//
// # Installation
//
// Install the CLI:
//
//	go install github.com/pixelomer/AltDeploy@latest
package main
