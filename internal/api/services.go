package api

import "github.com/qkfdcom/lcqk/internal/service"

// Services groups the business logic services used by the API server.
type Services struct {
	Auth       *service.AuthService
	List       *service.ListService
	Identifier *service.IdentifierService
	Sync       *service.SyncService
}
