package recognize

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	apperrors "github.com/GriffinCanCode/confirmscout/internal/errors"
	"github.com/GriffinCanCode/confirmscout/internal/screen"
	"github.com/GriffinCanCode/confirmscout/internal/trace"
)

// Server exposes a Recognizer over gRPC so OCR can run on another host.
type Server struct {
	rec    Recognizer
	health *health.Server
}

// ServerOptions returns the options a recognizer gRPC server should use:
// tracing, frame-sized messages and a keepalive policy matching Client.
func ServerOptions() []grpc.ServerOption {
	return []grpc.ServerOption{
		grpc.UnaryInterceptor(trace.UnaryServerInterceptor()),
		grpc.MaxRecvMsgSize(MaxMessageSize),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             DefaultKeepaliveTime / 2,
			PermitWithoutStream: true,
		}),
	}
}

// RegisterServer registers the recognizer service and the standard health
// service on gs. The health status starts as SERVING.
func RegisterServer(gs *grpc.Server, rec Recognizer) *Server {
	s := &Server{rec: rec, health: health.NewServer()}
	gs.RegisterService(&serviceDesc, s)
	healthpb.RegisterHealthServer(gs, s.health)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	return s
}

// SetServing flips the advertised health of the recognizer service.
func (s *Server) SetServing(ok bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(ServiceName, st)
}

// Shutdown marks every service as not serving.
func (s *Server) Shutdown() { s.health.Shutdown() }

func (s *Server) recognize(ctx context.Context, req *wrapperspb.BytesValue) (*structpb.ListValue, error) {
	frame, err := screen.NewFrameFromPNG(req.GetValue(), screen.Region{})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.InvalidArgument, "frame is not a png")
	}

	obs, err := s.rec.Recognize(ctx, frame)
	if err != nil {
		trace.Logger(ctx).Warn("recognize failed", "error", err)
		if apperrors.CodeOf(err) == apperrors.Unknown {
			return nil, apperrors.Wrap(err, apperrors.RecognizeFailed, "recognize")
		}
		return nil, err
	}

	trace.Logger(ctx).Debug("recognized", "observations", len(obs))
	return encodeObservations(obs), nil
}
