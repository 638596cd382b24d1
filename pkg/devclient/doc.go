// Package devclient defines the interface to a device-controller backend.
//
// A controller owns the connections to the nodes of a fleet. The Client
// interface exposes the node tree (nodes, endpoints, clusters) and the four
// interactions the exposer needs: reading and writing attributes, invoking
// commands and receiving node events.
//
// Implementations:
//   - memory: an in-process fleet for tests and demos
//   - wsclient: the websocket protocol of python-matter-server
package devclient
