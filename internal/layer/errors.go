package layer

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrSetup matches every *SetupError.
var ErrSetup = errors.New("layer setup error")

// SetupError reports a configuration problem detected while setting up a
// layer, or a layer used before it was set up.
type SetupError struct {
	Layer string // Layer name
	Type  string // Layer type, e.g. "embedding"
	Msg   string
}

// Error implements the error interface.
func (e *SetupError) Error() string {
	return fmt.Sprintf("%s layer %q: %s", e.Type, e.Layer, e.Msg)
}

// Is reports whether target is ErrSetup.
func (e *SetupError) Is(target error) bool {
	return target == ErrSetup
}

func (b *Base[T]) setupErrorf(format string, args ...any) error {
	return errors.WithStack(&SetupError{Layer: b.name, Type: b.typ, Msg: fmt.Sprintf(format, args...)})
}
