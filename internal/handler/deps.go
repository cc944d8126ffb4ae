package handler

import (
	"github.com/prometheus/client_golang/prometheus"

	"relaychat/internal/app/chat"
	"relaychat/internal/app/registry"
	"relaychat/internal/configs"
)

// AppDeps carries everything the HTTP layer needs.
type AppDeps struct {
	Config   *configs.AppConfig
	Registry *registry.Registry
	Manager  *chat.Manager

	// Gatherer backs the /metrics endpoint. A nil Gatherer disables it.
	Gatherer prometheus.Gatherer
}
