// Package api serves the generated OpenAPI documents and the REST surface
// they describe.
//
// Routes:
//
//	GET  /                                   redirect to /html/nodes
//	GET  /html/nodes                         node index
//	GET  /html/swagger/{node}                Swagger UI for one node
//	GET  /api/doc/{node}                     OpenAPI document (YAML)
//	GET  /api/v1/{node}/{ep}/{cluster}/attribute/{name}
//	POST /api/v1/{node}/{ep}/{cluster}/attribute/{name}
//	POST /api/v1/{node}/{ep}/{cluster}/command/{name}
//	GET  /api/v1/{node}/{ep}/{cluster}/event/{name}   websocket
//	GET  /api/info, /health, /metrics
//
// Every element request is checked against the device's live capability
// set before it reaches the controller, so the REST surface never offers
// more than the document describes.
package api
