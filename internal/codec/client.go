package codec

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// encodeMethod is the full RPC name served by the inference service.
const encodeMethod = "/defeval.Encoder/Encode"

const (
	PoolingCLS  = "cls"
	PoolingMean = "mean"
)

// #region service
// EncoderServiceClient is the RPC surface of the inference service. Requests and
// responses travel as google.protobuf.Struct:
//
//	request:  {"texts": ["..."], "pooling": "cls"|"mean"}
//	response: {"embeddings": [[f, f, ...], ...]}
type EncoderServiceClient interface {
	Encode(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type encoderServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewEncoderServiceClient binds the Encode RPC to a client connection.
func NewEncoderServiceClient(cc grpc.ClientConnInterface) EncoderServiceClient {
	return &encoderServiceClient{cc: cc}
}

func (c *encoderServiceClient) Encode(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, encodeMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// #endregion service

// #region client-struct
// Options tunes how Encode splits and dispatches work.
type Options struct {
	ChunkSize int           // max sentences per RPC
	Workers   int           // max RPCs in flight
	Timeout   time.Duration // per RPC
}

// CodecClient wraps the gRPC connection to the sentence encoder service.
type CodecClient struct {
	conn   *grpc.ClientConn
	client EncoderServiceClient
	opts   Options
}

// #endregion client-struct

// #region constructor
// NewCodecClient connects to the encoder gRPC server.
func NewCodecClient(addr string, opts Options) (*CodecClient, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &CodecClient{
		conn:   conn,
		client: NewEncoderServiceClient(conn),
		opts:   normalize(opts),
	}, nil
}

// NewCodecClientWithService creates a CodecClient with an injected service implementation.
// Used for testing without a real gRPC connection.
func NewCodecClientWithService(svc EncoderServiceClient, opts Options) *CodecClient {
	return &CodecClient{client: svc, opts: normalize(opts)}
}

func normalize(o Options) Options {
	if o.ChunkSize <= 0 {
		o.ChunkSize = 32
	}
	if o.Workers <= 0 {
		o.Workers = 1
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	return o
}

// #endregion constructor

// #region close
// Close shuts down the gRPC connection.
func (c *CodecClient) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// #endregion close

// #region encode
// Encode returns one sentence vector per text, in input order. Large inputs
// are split into chunks that are sent concurrently.
func (c *CodecClient) Encode(ctx context.Context, texts []string, pooling string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	if len(texts) == 0 {
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Workers)
	for start := 0; start < len(texts); start += c.opts.ChunkSize {
		end := start + c.opts.ChunkSize
		if end > len(texts) {
			end = len(texts)
		}
		start, chunk := start, texts[start:end]
		g.Go(func() error {
			vecs, err := c.encodeChunk(gctx, chunk, pooling)
			if err != nil {
				return fmt.Errorf("encode [%d:%d]: %w", start, start+len(chunk), err)
			}
			copy(out[start:], vecs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *CodecClient) encodeChunk(ctx context.Context, texts []string, pooling string) ([][]float64, error) {
	items := make([]interface{}, len(texts))
	for i, t := range texts {
		items[i] = t
	}
	req, err := structpb.NewStruct(map[string]interface{}{
		"texts":   items,
		"pooling": pooling,
	})
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	cctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()
	resp, err := c.client.Encode(cctx, req)
	if err != nil {
		return nil, fmt.Errorf("encode rpc: %w", err)
	}
	return decodeEmbeddings(resp, len(texts))
}

// #endregion encode

// #region decode
func decodeEmbeddings(resp *structpb.Struct, want int) ([][]float64, error) {
	field, ok := resp.GetFields()["embeddings"]
	if !ok {
		return nil, fmt.Errorf("response has no embeddings field")
	}
	rows := field.GetListValue().GetValues()
	if len(rows) != want {
		return nil, fmt.Errorf("expected %d embeddings, got %d", want, len(rows))
	}
	out := make([][]float64, len(rows))
	for i, row := range rows {
		vals := row.GetListValue().GetValues()
		vec := make([]float64, len(vals))
		for j, v := range vals {
			vec[j] = v.GetNumberValue()
		}
		out[i] = vec
	}
	return out, nil
}

// #endregion decode
