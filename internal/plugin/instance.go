package plugin

import (
	"context"
	"fmt"
	"sync"
	"time"

	glua "github.com/yuin/gopher-lua"

	"github.com/okian/karmabot/internal/plugin/lua"
)

// HandlerFunc is the global every plugin must define. It receives one line
// and returns a reply string, or nil for no reply.
const HandlerFunc = "handle_privmsg"

// Instance is one loaded plugin with its own Lua state.
// Calls into the same instance are serialized.
type Instance struct {
	desc        Descriptor
	callTimeout time.Duration

	mu    sync.Mutex
	state *lua.State
}

// Descriptor returns the identity recorded at load time.
func (i *Instance) Descriptor() Descriptor {
	return i.desc
}

// Handle passes lines to the plugin in order and returns its non-empty
// replies. If any line fails no replies are returned for the batch.
func (i *Instance) Handle(ctx context.Context, lines []string) ([]string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	var replies []string
	for _, line := range lines {
		reply, err := i.call(ctx, line)
		if err != nil {
			return nil, err
		}
		if reply != "" {
			replies = append(replies, reply)
		}
	}
	return replies, nil
}

func (i *Instance) call(ctx context.Context, line string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, i.callTimeout)
	defer cancel()

	results, err := i.state.Call(callCtx, HandlerFunc, glua.LString(line))
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "", nil
	}

	switch v := results[0].(type) {
	case glua.LString:
		return string(v), nil
	case *glua.LNilType:
		return "", nil
	default:
		return "", fmt.Errorf("%w: got %s", ErrBadReply, v.Type())
	}
}

// Close releases the Lua state.
func (i *Instance) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state.Close()
}
