// Package server implements the HTTP front of PotatoServer: the WebSocket
// endpoint that hands upgraded connections to the hub, the plain text health
// and sample API endpoints, the settings REST API, the browser test page and
// the Prometheus scrape endpoint.
package server
