package recognize

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	apperrors "github.com/GriffinCanCode/confirmscout/internal/errors"
	"github.com/GriffinCanCode/confirmscout/internal/resilience"
	"github.com/GriffinCanCode/confirmscout/internal/screen"
	"github.com/GriffinCanCode/confirmscout/internal/stability"
	"github.com/GriffinCanCode/confirmscout/internal/trace"
)

// Client is a Recognizer backed by a remote recognizer server.
type Client struct {
	conn   *grpc.ClientConn
	health healthpb.HealthClient
	retry  resilience.RetryConfig
}

// Dial creates a client for addr. The connection is established lazily;
// use Probe to check the server is up. Extra options are appended (tests
// pass a bufconn dialer).
func Dial(addr string, opts ...grpc.DialOption) (*Client, error) {
	base := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(trace.UnaryClientInterceptor()),
		grpc.WithDefaultCallOptions(grpc.MaxCallSendMsgSize(MaxMessageSize)),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                DefaultKeepaliveTime,
			Timeout:             DefaultKeepaliveTimeout,
			PermitWithoutStream: true,
		}),
	}
	conn, err := grpc.NewClient(addr, append(base, opts...)...)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ConfigInvalid, "recognizer address %q", addr)
	}
	return &Client{
		conn:   conn,
		health: healthpb.NewHealthClient(conn),
		retry:  resilience.DefaultRetryConfig(),
	}, nil
}

// Recognize implements Recognizer. Transient transport failures are retried
// within ctx.
func (c *Client) Recognize(ctx context.Context, f screen.Frame) ([]stability.Observation, error) {
	data, err := f.PNG()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.InvalidArgument, "encode frame")
	}
	in := wrapperspb.Bytes(data)
	out := new(structpb.ListValue)

	err = resilience.Retry(ctx, c.retry, func(ctx context.Context) error {
		return c.conn.Invoke(ctx, recognizeMethod, in, out)
	})
	if err != nil {
		return nil, apperrors.FromGRPCError(err)
	}

	obs, err := decodeObservations(out)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.RecognizeFailed, "decode response")
	}
	for i := range obs {
		obs[i].ObservedAt = f.CapturedAt
	}
	return obs, nil
}

// Probe asks the server's health service whether the recognizer is serving.
func (c *Client) Probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, HealthCheckTimeout)
	defer cancel()

	resp, err := c.health.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		return apperrors.Wrap(err, apperrors.Unavailable, "recognizer health check")
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return apperrors.Newf(apperrors.Unavailable, "recognizer status %s", resp.GetStatus())
	}
	return nil
}

// Close releases the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
