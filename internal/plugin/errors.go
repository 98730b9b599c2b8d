package plugin

import (
	"errors"
	"fmt"
)

// Sentinel kinds for plugin errors.
var (
	ErrExtension  = errors.New("not a plugin file")
	ErrNotRegular = errors.New("plugin path is not a regular file")
	ErrNoHandler  = errors.New("plugin does not define " + HandlerFunc)
	ErrBadReply   = errors.New("plugin reply is not a string")
	ErrWatch      = errors.New("watch plugin directory")
)

// InstanceError is one instance's failure during a dispatch call.
type InstanceError struct {
	Plugin Descriptor
	Err    error
}

func (e *InstanceError) Error() string {
	return fmt.Sprintf("plugin %s (%s): %v", e.Plugin.Name, e.Plugin.Path, e.Err)
}

func (e *InstanceError) Unwrap() error { return e.Err }
