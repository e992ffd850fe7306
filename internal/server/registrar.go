package server

import (
	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"
)

// Registrar attaches a gRPC service to the server.
type Registrar interface {
	Register(s *grpc.Server)
}

// HTTPRegistrar mounts routes on the webhook router.
type HTTPRegistrar interface {
	Register(r gin.IRouter)
}
