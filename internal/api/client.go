package api

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Client is a SyncService client over the daemon's Unix domain socket.
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to the daemon listening on socketPath.
func Dial(socketPath string) (*Client, error) {
	conn, err := grpc.NewClient(
		"unix://"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
	)
	if err != nil {
		return nil, fmt.Errorf("dial daemon: %w", err)
	}
	return &Client{conn: conn}, nil
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) ApplyBatch(ctx context.Context, req *ApplyBatchRequest) (*ApplyBatchResponse, error) {
	out := new(ApplyBatchResponse)
	if err := c.invoke(ctx, "ApplyBatch", req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) QueueAction(ctx context.Context, req *QueueActionRequest) (*QueueActionResponse, error) {
	out := new(QueueActionResponse)
	if err := c.invoke(ctx, "QueueAction", req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CompleteAction(ctx context.Context, req *CompleteActionRequest) (*CompleteActionResponse, error) {
	out := new(CompleteActionResponse)
	if err := c.invoke(ctx, "CompleteAction", req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) NextContactFetch(ctx context.Context, req *NextContactFetchRequest) (*NextContactFetchResponse, error) {
	out := new(NextContactFetchResponse)
	if err := c.invoke(ctx, "NextContactFetch", req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Status(ctx context.Context, req *StatusRequest) (*StatusResponse, error) {
	out := new(StatusResponse)
	if err := c.invoke(ctx, "Status", req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) invoke(ctx context.Context, method string, in, out any) error {
	return c.conn.Invoke(ctx, fullMethod(method), in, out)
}
