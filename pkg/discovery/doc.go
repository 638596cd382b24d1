// Package discovery announces and finds mash-expose instances over
// mDNS/DNS-SD.
//
// Every running exposer registers one service of type _mash-expose._tcp.
// The instance name is chosen by the operator (default "mash-expose").
// TXT records:
//
//	txtvers  TXT format version, currently 1
//	path     HTTP path of the node index, "/html/nodes"
//	api      HTTP path prefix of the REST API, "/api/v1"
//	version  exposer release
//	ctrl     controller websocket URL, when it is safe to publish
//
// Browsers aggregate addresses per instance name, so a host reachable over
// several interfaces yields a single Service.
package discovery
