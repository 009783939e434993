package recognize

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/GriffinCanCode/confirmscout/internal/stability"
)

// The recognizer service is a single unary method. The request is the PNG
// frame as BytesValue; the response is a list of observation structs with
// the fields text, x, y, width, height, confidence.
const (
	ServiceName     = "confirmscout.recognizer.v1.Recognizer"
	recognizeMethod = "/" + ServiceName + "/Recognize"
)

type recognizerServer interface {
	recognize(ctx context.Context, req *wrapperspb.BytesValue) (*structpb.ListValue, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*recognizerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Recognize", Handler: recognizeHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "confirmscout/recognizer/v1/recognizer.proto",
}

func recognizeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(recognizerServer).recognize(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: recognizeMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(recognizerServer).recognize(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

func encodeObservations(obs []stability.Observation) *structpb.ListValue {
	list := &structpb.ListValue{Values: make([]*structpb.Value, 0, len(obs))}
	for _, o := range obs {
		list.Values = append(list.Values, structpb.NewStructValue(&structpb.Struct{
			Fields: map[string]*structpb.Value{
				"text":       structpb.NewStringValue(o.Text),
				"x":          structpb.NewNumberValue(o.Box.X),
				"y":          structpb.NewNumberValue(o.Box.Y),
				"width":      structpb.NewNumberValue(o.Box.Width),
				"height":     structpb.NewNumberValue(o.Box.Height),
				"confidence": structpb.NewNumberValue(o.Confidence),
			},
		}))
	}
	return list
}

func decodeObservations(list *structpb.ListValue) ([]stability.Observation, error) {
	out := make([]stability.Observation, 0, len(list.GetValues()))
	for i, v := range list.GetValues() {
		s := v.GetStructValue()
		if s == nil {
			return nil, fmt.Errorf("observation %d: not a struct", i)
		}
		f := s.GetFields()
		out = append(out, stability.Observation{
			Text: f["text"].GetStringValue(),
			Box: stability.Box{
				X:      f["x"].GetNumberValue(),
				Y:      f["y"].GetNumberValue(),
				Width:  f["width"].GetNumberValue(),
				Height: f["height"].GetNumberValue(),
			},
			Confidence: f["confidence"].GetNumberValue(),
		})
	}
	return out, nil
}
