package rpc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/chuliyu/kvwal/internal/kv"
)

type nopWriter struct{}

func (nopWriter) Enqueue([]byte) error { return nil }

func newTestServer() *Server {
	return &Server{KV: kv.New(nopWriter{})}
}

func TestGetKeyMissReturnsEmptyValue(t *testing.T) {
	s := newTestServer()
	resp, err := s.GetKey(context.Background(), &GetKeyRequest{Key: "nope"})
	require.NoError(t, err, "a miss is not an RPC error on this surface")
	require.Equal(t, "", resp.Value)
}

func TestSetKeyThenGetKey(t *testing.T) {
	s := newTestServer()
	_, err := s.SetKey(context.Background(), &SetKeyRequest{Key: "k", Value: "v"})
	require.NoError(t, err)

	resp, err := s.GetKey(context.Background(), &GetKeyRequest{Key: "k"})
	require.NoError(t, err)
	require.Equal(t, "v", resp.Value)
}

func TestDeleteKeyMissingReturnsNotFound(t *testing.T) {
	s := newTestServer()
	_, err := s.DeleteKey(context.Background(), &DeleteKeyRequest{Key: "nope"})
	require.Equal(t, codes.NotFound, status.Code(err))
}

func TestDeleteKeyRemovesExisting(t *testing.T) {
	s := newTestServer()
	_, err := s.SetKey(context.Background(), &SetKeyRequest{Key: "k", Value: "v"})
	require.NoError(t, err)
	_, err = s.DeleteKey(context.Background(), &DeleteKeyRequest{Key: "k"})
	require.NoError(t, err)

	resp, err := s.GetKey(context.Background(), &GetKeyRequest{Key: "k"})
	require.NoError(t, err)
	require.Equal(t, "", resp.Value)
}

func TestCodecRoundTripsRequestMessages(t *testing.T) {
	c := codec{}
	b, err := c.Marshal(&SetKeyRequest{Key: "k", Value: "v"})
	require.NoError(t, err)

	var got SetKeyRequest
	require.NoError(t, c.Unmarshal(b, &got))
	require.Equal(t, "k", got.Key)
	require.Equal(t, "v", got.Value)
}

func TestCodecRejectsForeignMessageTypes(t *testing.T) {
	c := codec{}
	_, err := c.Marshal(struct{}{})
	require.Error(t, err)
}
