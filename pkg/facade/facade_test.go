package facade

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/irgordon/kari/pkg/agenterr"
	"github.com/irgordon/kari/pkg/rpc"
)

func TestExecutePackageCommandRejectsNonWhitelisted(t *testing.T) {
	s := &Service{}
	resp, err := s.ExecutePackageCommand(context.Background(), &rpc.PackageCommandRequest{Command: "rm"})
	assert.Nil(t, resp)
	assert.Error(t, err)
	assert.Equal(t, agenterr.PermissionDenied, agenterr.KindOf(err))
}

func TestExecutePackageCommandRejectsShellMetacharacters(t *testing.T) {
	s := &Service{}
	resp, err := s.ExecutePackageCommand(context.Background(), &rpc.PackageCommandRequest{
		Command: "apt-get",
		Args:    []string{"install; rm -rf /"},
	})
	assert.Nil(t, resp)
	assert.Error(t, err)
	assert.Equal(t, agenterr.InvalidArgument, agenterr.KindOf(err))
}

func TestDeleteDeploymentRejectsPathTraversal(t *testing.T) {
	s := &Service{WebRoot: "/var/www/kari"}
	resp, err := s.DeleteDeployment(context.Background(), &rpc.DeleteRequest{DomainName: "../../etc"})
	assert.Nil(t, resp)
	assert.Error(t, err)
	assert.Equal(t, agenterr.InvalidArgument, agenterr.KindOf(err))
}

func TestSecureJoinRejectsTraversalAndSeparators(t *testing.T) {
	_, err := secureJoin("/var/www/kari", "..")
	assert.Error(t, err)

	_, err = secureJoin("/var/www/kari", "a/b")
	assert.Error(t, err)

	_, err = secureJoin("/var/www/kari", "")
	assert.Error(t, err)

	p, err := secureJoin("/var/www/kari", "example.com")
	assert.NoError(t, err)
	assert.Equal(t, "/var/www/kari/example.com", p)
}
