package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/dd0wney/cluso-registry/pkg/naming"
	"github.com/dd0wney/cluso-registry/pkg/proc"
)

// Resolve turns a key into a worker handle.
//
// A nil key is the "no such registration" sentinel and short-circuits
// to nil without touching the naming facility. A handle passes through
// unchanged. Anything else is treated as a logical name: the proxy
// registered under it is located and issued the reserved get-handle
// request, and its stored worker handle is returned. The caller's
// context bounds the whole operation.
func (r *Registry) Resolve(ctx context.Context, key any) (proc.Handle, error) {
	switch k := key.(type) {
	case nil:
		return nil, nil
	case proc.Handle:
		return k, nil
	case Name:
		return r.resolveName(ctx, string(k))
	case string:
		return r.resolveName(ctx, k)
	default:
		return nil, fmt.Errorf("%w: unresolvable key type %T", ErrNoSuchRegistration, key)
	}
}

func (r *Registry) resolveName(ctx context.Context, name string) (proc.Handle, error) {
	h := r.facility.Lookup(name)
	if h == nil {
		r.metricsRegistry.RecordResolve(false)
		return nil, fmt.Errorf("%w: %s", ErrNoSuchRegistration, name)
	}

	val, err := h.Call(ctx, naming.GetHandleRequest{})
	if err != nil {
		r.metricsRegistry.RecordResolve(false)
		// The proxy died between lookup and call, a conflict shutdown
		// usually
		if errors.Is(err, proc.ErrStopped) || errors.Is(err, naming.ErrNotRegistered) {
			return nil, fmt.Errorf("%w: %s", ErrNoSuchRegistration, name)
		}
		return nil, err
	}

	worker, ok := val.(proc.Handle)
	if !ok {
		r.metricsRegistry.RecordResolve(false)
		return nil, fmt.Errorf("%w: %s answered with %T", ErrNoSuchRegistration, name, val)
	}
	r.metricsRegistry.RecordResolve(true)
	return worker, nil
}
