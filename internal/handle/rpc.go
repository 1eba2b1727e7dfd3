package handle

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Klingon-tech/klingpay/internal/rpcclient"
)

// MethodResolve is the directory method taking {"query": ...} and returning
// a Profile or null.
const MethodResolve = "directory_resolve"

// RPCResolver queries a JSON-RPC contact directory.
type RPCResolver struct {
	client *rpcclient.Client
}

// NewRPCResolver returns a resolver over client.
func NewRPCResolver(client *rpcclient.Client) *RPCResolver {
	return &RPCResolver{client: client}
}

// Resolve implements Resolver.
func (r *RPCResolver) Resolve(ctx context.Context, handleOrAddress string) (*Profile, error) {
	q := Normalize(handleOrAddress)
	if q == "" {
		return nil, ErrNotFound
	}
	var raw json.RawMessage
	if err := r.client.Call(ctx, MethodResolve, map[string]string{"query": q}, &raw); err != nil {
		return nil, fmt.Errorf("resolve %q: %w", q, err)
	}
	if rpcclient.IsNullResult(raw) {
		return nil, ErrNotFound
	}
	var p Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	if p.Address.IsZero() {
		return nil, fmt.Errorf("profile for %q has no address", q)
	}
	return &p, nil
}
