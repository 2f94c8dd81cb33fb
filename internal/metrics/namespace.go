// Package metrics holds the prometheus collectors shared across the service.
package metrics

const ColmenaNamespace = "colmena"

const (
	ChannelCurrent = "current"
	ChannelHistory = "history"
)
