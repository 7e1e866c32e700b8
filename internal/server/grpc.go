package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/pdf-fields/internal/common"
	"github.com/joseph-ayodele/pdf-fields/internal/entity"
	"github.com/joseph-ayodele/pdf-fields/internal/pipeline"
)

const (
	ExtractorServiceName = "pdffields.v1.Extractor"
	extractMethod        = "/" + ExtractorServiceName + "/Extract"
)

// ExtractorServer is the server side of pdffields.v1.Extractor. Messages are
// google.protobuf.Struct so no generated code is needed.
type ExtractorServer interface {
	Extract(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

func extractHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ExtractorServer).Extract(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: extractMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ExtractorServer).Extract(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

var ExtractorServiceDesc = grpc.ServiceDesc{
	ServiceName: ExtractorServiceName,
	HandlerType: (*ExtractorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Extract", Handler: extractHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pdffields/v1/extractor.proto",
}

func RegisterExtractorServer(s grpc.ServiceRegistrar, srv ExtractorServer) {
	s.RegisterService(&ExtractorServiceDesc, srv)
}

// ExtractorClient calls pdffields.v1.Extractor on cc.
type ExtractorClient struct {
	cc grpc.ClientConnInterface
}

func NewExtractorClient(cc grpc.ClientConnInterface) *ExtractorClient {
	return &ExtractorClient{cc: cc}
}

func (c *ExtractorClient) Extract(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, extractMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// ExtractorService implements ExtractorServer on top of the pipeline.
//
// Request:  {pdf_path: string, label: string, fields: [{name, description}]}
// Response: {result: {name: value|null}, fields: [{name, value, path}], paths: {name: path},
// llm_fields: number, content_hash: string}; fields is in schema order.
type ExtractorService struct {
	proc   Extractor
	logger *slog.Logger
}

func NewExtractorService(proc Extractor, logger *slog.Logger) *ExtractorService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractorService{proc: proc, logger: logger}
}

func (s *ExtractorService) Extract(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := requestFromStruct(in)
	if err != nil {
		return nil, common.InvalidArgumentError(err.Error())
	}
	rep, err := s.proc.Process(ctx, req)
	if err != nil {
		common.LoggerFromContext(ctx, s.logger).Warn("grpc.extract.failed", "path", req.Path, "error", err)
		return nil, grpcError(err)
	}
	out, err := reportToStruct(rep)
	if err != nil {
		return nil, common.InternalErrorf("encode response: %v", err)
	}
	return out, nil
}

func requestFromStruct(in *structpb.Struct) (pipeline.Request, error) {
	f := in.GetFields()
	req := pipeline.Request{
		Path:  f["pdf_path"].GetStringValue(),
		Label: f["label"].GetStringValue(),
	}
	if req.Path == "" {
		return req, errors.New("pdf_path is required")
	}
	list := f["fields"].GetListValue()
	if list == nil || len(list.GetValues()) == 0 {
		return req, errors.New("fields must be a non-empty list")
	}
	for i, v := range list.GetValues() {
		fs := v.GetStructValue().GetFields()
		name := fs["name"].GetStringValue()
		if name == "" {
			return req, fmt.Errorf("fields[%d].name is required", i)
		}
		req.Schema.Fields = append(req.Schema.Fields, entity.FieldSpec{
			Name:        name,
			Description: fs["description"].GetStringValue(),
		})
	}
	return req, nil
}

// reportToStruct encodes the report. Struct maps are unordered on the wire, so "fields"
// repeats the result as a list in schema order.
func reportToStruct(rep pipeline.Report) (*structpb.Struct, error) {
	result := make(map[string]interface{}, rep.Result.Len())
	fields := make([]interface{}, 0, rep.Result.Len())
	for _, name := range rep.Result.Names() {
		var value interface{}
		if v, ok := rep.Result.Get(name); ok {
			value = v
		}
		result[name] = value
		fields = append(fields, map[string]interface{}{
			"name":  name,
			"value": value,
			"path":  string(rep.Decisions[name].Path),
		})
	}
	paths := make(map[string]interface{}, len(rep.Decisions))
	for name, d := range rep.Decisions {
		paths[name] = string(d.Path)
	}
	return structpb.NewStruct(map[string]interface{}{
		"result":       result,
		"fields":       fields,
		"paths":        paths,
		"llm_fields":   rep.LLMFields,
		"content_hash": rep.ContentHash,
	})
}

func grpcError(err error) error {
	switch {
	case errors.Is(err, pipeline.ErrSchemaInvalid):
		return common.InvalidArgumentError(err.Error())
	case errors.Is(err, os.ErrNotExist):
		return common.NotFoundError(err.Error())
	case errors.Is(err, pipeline.ErrDocumentRead):
		return common.FailedPreconditionError(err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	default:
		return common.InternalError(err.Error())
	}
}

// unaryLogging tags the context with the caller's x-request-id (or a new one) and logs
// each call.
func unaryLogging(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		id := ""
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if v := md.Get("x-request-id"); len(v) > 0 {
				id = v[0]
			}
		}
		if id == "" {
			id = uuid.New().String()
		}
		ctx = common.WithRequestID(ctx, id)

		resp, err := handler(ctx, req)
		logger.Info("grpc.request",
			"method", info.FullMethod,
			"code", status.Code(err).String(),
			"elapsed_ms", time.Since(start).Milliseconds(),
			"request_id", id,
		)
		return resp, err
	}
}

// NewGRPCServer registers the extractor, the standard health service and reflection.
func NewGRPCServer(proc Extractor, logger *slog.Logger, opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	if logger == nil {
		logger = slog.Default()
	}
	opts = append(opts, grpc.ChainUnaryInterceptor(unaryLogging(logger)))
	gs := grpc.NewServer(opts...)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ExtractorServiceName, healthpb.HealthCheckResponse_SERVING)
	reflection.Register(gs)

	RegisterExtractorServer(gs, NewExtractorService(proc, logger))
	return gs, hs
}
