package agenterr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
)

func TestKindOfUnwraps(t *testing.T) {
	err := InvalidArg("bad domain %q", "../etc")
	assert.Equal(t, InvalidArgument, KindOf(err))

	wrapped := fmt.Errorf("outer: %w", err)
	assert.Equal(t, InvalidArgument, KindOf(wrapped))

	flattened := errors.New("outer: " + err.Error())
	assert.Equal(t, Unknown, KindOf(flattened))
}

func TestErrorMessageIncludesCause(t *testing.T) {
	cause := errors.New("exec: not found")
	err := Spawn(cause, "failed to start useradd")
	assert.Contains(t, err.Error(), "exec: not found")
	assert.Contains(t, err.Error(), "failed to start useradd")
}

func TestCodeMapping(t *testing.T) {
	cases := map[Kind]codes.Code{
		InvalidArgument:   codes.InvalidArgument,
		PermissionDenied:  codes.PermissionDenied,
		SecurityViolation: codes.PermissionDenied,
		Internal:          codes.Internal,
		ExitFailure:       codes.Internal,
		IO:                codes.Internal,
		Unknown:           codes.Unknown,
	}
	for kind, want := range cases {
		assert.Equal(t, want, kind.Code(), "kind %v", kind)
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Io(cause, "write failed")
	assert.True(t, errors.Is(err, cause))
}
