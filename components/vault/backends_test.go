package vault

import (
	"sync"
	"testing"

	"github.com/pulumi/pulumi/sdk/v3/go/common/resource"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mitodl/ol-infrastructure-sub004/components/iampolicy"
)

// resourceRecorder captures every resource registration so tests can assert
// on the declared graph without a provider.
type resourceRecorder struct {
	mu     sync.Mutex
	inputs map[string]resource.PropertyMap
}

func newResourceRecorder() *resourceRecorder {
	return &resourceRecorder{inputs: map[string]resource.PropertyMap{}}
}

func (r *resourceRecorder) NewResource(args pulumi.MockResourceArgs) (string, resource.PropertyMap, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inputs[args.TypeToken] = args.Inputs
	return args.Name + "_id", args.Inputs, nil
}

func (r *resourceRecorder) Call(args pulumi.MockCallArgs) (resource.PropertyMap, error) {
	return args.Args, nil
}

func (r *resourceRecorder) recorded(token string) (resource.PropertyMap, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inputs, ok := r.inputs[token]
	return inputs, ok
}

func TestOLVaultAWSBackendArgsValidate(t *testing.T) {
	args := &OLVaultAWSBackendArgs{
		Path:   "aws-mitx",
		Region: "us-east-1",
		Roles: map[string]iampolicy.Document{
			"read-course-data": iampolicy.New(iampolicy.Statement{
				Effect:   "Allow",
				Action:   []string{"s3:GetObject"},
				Resource: []string{"arn:aws:s3:::course-data/*"},
			}),
		},
	}
	assert.NoError(t, args.validate())

	args.Path = " "
	assert.Error(t, args.validate())
}

func TestOLVaultAWSBackendArgsLintsRolePolicies(t *testing.T) {
	args := &OLVaultAWSBackendArgs{
		Path: "aws-mitx",
		Roles: map[string]iampolicy.Document{
			"too-broad": iampolicy.New(iampolicy.Statement{
				Effect: "Allow", Action: []string{"*"}, Resource: []string{"*"},
			}),
		},
	}
	err := args.validate()
	var lerr *iampolicy.LintError
	require.ErrorAs(t, err, &lerr)
}

func TestOLVaultDatabaseBackendArgsValidate(t *testing.T) {
	args := &OLVaultDatabaseBackendArgs{
		MountPath:     "postgres-app",
		ConnectionURL: pulumi.String("postgresql://admin@db:5432/app"),
		Roles: map[string][]string{
			"app": {`CREATE ROLE "{{name}}" WITH LOGIN PASSWORD '{{password}}';`},
		},
	}
	assert.NoError(t, args.validate())

	args.Roles["empty"] = nil
	assert.Error(t, args.validate())

	delete(args.Roles, "empty")
	args.ConnectionURL = nil
	assert.Error(t, args.validate())
}

func TestOLVaultDatabaseBackendDeclaresMount(t *testing.T) {
	rec := newResourceRecorder()

	err := pulumi.RunErr(func(ctx *pulumi.Context) error {
		_, err := NewOLVaultDatabaseBackend(ctx, "app-db", &OLVaultDatabaseBackendArgs{
			MountPath:     "postgres-app",
			ConnectionURL: pulumi.String("postgresql://{{username}}:{{password}}@db:5432/app"),
			Roles: map[string][]string{
				"app": {`CREATE ROLE "{{name}}" WITH LOGIN PASSWORD '{{password}}';`},
			},
		})
		return err
	}, pulumi.WithMocks("infrastructure", "test", rec))
	require.NoError(t, err)

	mount, ok := rec.recorded("vault:index/mount:Mount")
	require.True(t, ok, "the database secrets engine mount must be declared")
	assert.Equal(t, "postgres-app", mount["path"].StringValue())
	assert.Equal(t, "database", mount["type"].StringValue())

	connection, ok := rec.recorded("vault:database/secretBackendConnection:SecretBackendConnection")
	require.True(t, ok)
	assert.Equal(t, "postgres-app", connection["backend"].StringValue())

	role, ok := rec.recorded("vault:database/secretBackendRole:SecretBackendRole")
	require.True(t, ok)
	assert.Equal(t, "postgres-app", role["backend"].StringValue())
}
