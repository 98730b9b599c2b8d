package admin

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Client calls the admin services.
type Client struct {
	conn *grpc.ClientConn
}

// Dial creates a client for target. The connection is established lazily.
func Dial(target string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(codec{})),
	}, opts...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("admin: dial %s: %w", target, err)
	}
	return &Client{conn: conn}, nil
}

// Set overwrites the score of term and returns the previous value.
func (c *Client) Set(ctx context.Context, term string, value int64) (int64, error) {
	resp := new(SetResponse)
	if err := c.conn.Invoke(ctx, SetMethod, &SetRequest{Term: term, Value: value}, resp); err != nil {
		return 0, err
	}
	return resp.OldValue, nil
}

// List returns the loaded plugins.
func (c *Client) List(ctx context.Context) ([]PluginInfo, error) {
	resp := new(ListResponse)
	if err := c.conn.Invoke(ctx, ListMethod, &ListRequest{}, resp); err != nil {
		return nil, err
	}
	return resp.Plugins, nil
}

// Close releases the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
