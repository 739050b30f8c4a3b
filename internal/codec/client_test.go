package codec

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region mock
// mockEncoderService embeds each text as [word count, first-letter code].
type mockEncoderService struct {
	mu      sync.Mutex
	calls   int
	pooling []string
	err     error
	short   bool
}

func (m *mockEncoderService) Encode(_ context.Context, in *structpb.Struct, _ ...grpc.CallOption) (*structpb.Struct, error) {
	m.mu.Lock()
	m.calls++
	m.pooling = append(m.pooling, in.GetFields()["pooling"].GetStringValue())
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}

	texts := in.GetFields()["texts"].GetListValue().GetValues()
	if m.short {
		texts = texts[:len(texts)-1]
	}
	rows := make([]interface{}, len(texts))
	for i, v := range texts {
		s := v.GetStringValue()
		rows[i] = []interface{}{float64(len(strings.Fields(s))), float64(s[0])}
	}
	return structpb.NewStruct(map[string]interface{}{"embeddings": rows})
}

// #endregion mock

func TestNewCodecClientLazyConnect(t *testing.T) {
	client, err := NewCodecClient("localhost:0", Options{})
	if err != nil {
		t.Fatalf("unexpected error creating client: %v", err)
	}
	defer client.Close()
	if client.opts.ChunkSize != 32 || client.opts.Workers != 1 {
		t.Fatalf("expected normalized options, got %+v", client.opts)
	}
}

func TestEncode_ChunksKeepOrder(t *testing.T) {
	mock := &mockEncoderService{}
	c := NewCodecClientWithService(mock, Options{ChunkSize: 2, Workers: 3})

	texts := []string{"a", "b c", "d e f", "g", "h i"}
	vecs, err := c.Encode(context.Background(), texts, PoolingMean)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(vecs) != len(texts) {
		t.Fatalf("expected %d vectors, got %d", len(texts), len(vecs))
	}
	for i, text := range texts {
		if vecs[i][1] != float64(text[0]) {
			t.Errorf("vector %d out of order: %v", i, vecs[i])
		}
		if vecs[i][0] != float64(len(strings.Fields(text))) {
			t.Errorf("vector %d: expected word count %d, got %v", i, len(strings.Fields(text)), vecs[i][0])
		}
	}
	if mock.calls != 3 {
		t.Errorf("expected 3 rpc calls, got %d", mock.calls)
	}
	for _, p := range mock.pooling {
		if p != PoolingMean {
			t.Errorf("expected pooling %q, got %q", PoolingMean, p)
		}
	}
}

func TestEncode_Empty(t *testing.T) {
	mock := &mockEncoderService{}
	c := NewCodecClientWithService(mock, Options{})
	vecs, err := c.Encode(context.Background(), nil, PoolingCLS)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(vecs) != 0 || mock.calls != 0 {
		t.Fatalf("expected no work, got %d vectors and %d calls", len(vecs), mock.calls)
	}
}

func TestEncode_RPCError(t *testing.T) {
	mock := &mockEncoderService{err: errors.New("unavailable")}
	c := NewCodecClientWithService(mock, Options{ChunkSize: 1, Workers: 2})
	if _, err := c.Encode(context.Background(), []string{"a", "b"}, PoolingCLS); err == nil {
		t.Fatal("expected error")
	}
}

func TestEncode_CountMismatch(t *testing.T) {
	mock := &mockEncoderService{short: true}
	c := NewCodecClientWithService(mock, Options{})
	if _, err := c.Encode(context.Background(), []string{"a", "b"}, PoolingCLS); err == nil {
		t.Fatal("expected error on short response")
	}
}

func TestCloseWithoutConn(t *testing.T) {
	c := NewCodecClientWithService(&mockEncoderService{}, Options{})
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
