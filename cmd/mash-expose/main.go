// Command mash-expose serves OpenAPI documents and a REST surface for the
// nodes of a device controller.
//
// Usage:
//
//	mash-expose <command> [flags]
//
// Commands:
//
//	serve     Run the HTTP server
//	doc       Print the OpenAPI document of one node
//	resolve   Show the capability set of a cluster for a feature map
//	catalog   Inspect or compile cluster catalogs
//	shell     Interactive console on the controller
//	discover  Find exposers on the local network
//	version   Print the version
//
// Examples:
//
//	# Serve against a local controller
//	mash-expose serve --controller-url ws://localhost:5580/ws
//
//	# Serve the built-in demo fleet
//	mash-expose serve --demo
//
//	# Which OnOff elements does a Lighting device expose?
//	mash-expose resolve OnOff 0x1
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
