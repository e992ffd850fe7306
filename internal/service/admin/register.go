package admin

import (
	"google.golang.org/grpc"

	"github.com/oggyb/coffee-chat/internal/app"
)

// Registrar ties the Admin service into the gRPC server
type Registrar struct {
	appCtx *app.AppContext
}

// NewRegistrar creates a new Registrar for the Admin service
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// Register attaches the Admin service implementation to the gRPC server
func (r *Registrar) Register(s *grpc.Server) {
	s.RegisterService(&ServiceDesc, NewAdminService(r.appCtx))
}
