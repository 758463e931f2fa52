package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/campusdesk/internal/common"
	"github.com/dmitrijs2005/campusdesk/internal/server/auth"
	"github.com/dmitrijs2005/campusdesk/internal/server/metrics"
	"github.com/dmitrijs2005/campusdesk/internal/server/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/reflection/grpc_reflection_v1"
	"google.golang.org/grpc/reflection/grpc_reflection_v1alpha"
	"google.golang.org/grpc/status"
)

// authorizationKey is the metadata key carrying "Bearer <token>".
const authorizationKey = "authorization"

// Policy decides the role set per full method name. Public methods skip the
// gate; methods in Roles need one of the listed roles; anything else needs
// any authenticated caller.
type Policy struct {
	Public map[string]bool
	Roles  map[string]models.RoleSet
}

// DefaultPolicy leaves health checks and reflection open.
func DefaultPolicy() Policy {
	return Policy{
		Public: map[string]bool{
			healthpb.Health_Check_FullMethodName:                                         true,
			healthpb.Health_Watch_FullMethodName:                                         true,
			grpc_reflection_v1.ServerReflection_ServerReflectionInfo_FullMethodName:      true,
			grpc_reflection_v1alpha.ServerReflection_ServerReflectionInfo_FullMethodName: true,
		},
	}
}

func (p Policy) required(method string) (models.RoleSet, bool) {
	if p.Public[method] {
		return nil, false
	}
	return p.Roles[method], true
}

func (s *GRPCServer) unaryGate(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	ctx, err := s.authorize(ctx, info.FullMethod)
	if err != nil {
		return nil, err
	}
	return handler(ctx, req)
}

func (s *GRPCServer) streamGate(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	ctx, err := s.authorize(ss.Context(), info.FullMethod)
	if err != nil {
		return err
	}
	return handler(srv, &claimsStream{ServerStream: ss, ctx: ctx})
}

// authorize runs the gate for method and returns a context carrying the
// verified claims.
func (s *GRPCServer) authorize(ctx context.Context, method string) (context.Context, error) {
	required, guarded := s.policy.required(method)
	if !guarded {
		return ctx, nil
	}

	var header string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(authorizationKey); len(values) > 0 {
			header = values[0]
		}
	}

	claims, err := s.gate.AuthorizeHeader(header, required)
	s.observe(err)
	if err != nil {
		if claims != nil {
			s.logger.Warn(ctx, "access denied", "user_id", claims.UserID, "role", claims.Role.String(), "method", method)
		}
		return nil, toStatus(err)
	}

	return auth.WithClaims(ctx, claims), nil
}

func (s *GRPCServer) observe(err error) {
	if s.metrics == nil {
		return
	}
	switch {
	case err == nil:
		s.metrics.ObserveGate(metrics.DecisionAllowed)
	case errors.Is(err, common.ErrMissingToken):
		s.metrics.ObserveGate(metrics.DecisionMissingToken)
	case errors.Is(err, common.ErrInsufficientPermissions):
		s.metrics.ObserveGate(metrics.DecisionForbidden)
	default:
		s.metrics.ObserveGate(metrics.DecisionInvalidToken)
	}
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, common.ErrMissingToken):
		return status.Error(codes.Unauthenticated, common.ErrMissingToken.Error())
	case errors.Is(err, common.ErrInvalidOrExpiredToken):
		return status.Error(codes.Unauthenticated, common.ErrInvalidOrExpiredToken.Error())
	case errors.Is(err, common.ErrInsufficientPermissions):
		return status.Error(codes.PermissionDenied, err.Error())
	default:
		return status.Error(codes.Internal, common.ErrorInternal.Error())
	}
}

type claimsStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (c *claimsStream) Context() context.Context { return c.ctx }
