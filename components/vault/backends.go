// Package vault declares the secret backends our Vault servers serve:
// dynamic AWS credentials and dynamic database users. The Vault server
// itself is provisioned by the infrastructure/vault program; this package
// only configures mounts on a running server through the vault provider.
package vault

import (
	"fmt"
	"strings"

	vaultsdk "github.com/pulumi/pulumi-vault/sdk/v6/go/vault"
	vaultaws "github.com/pulumi/pulumi-vault/sdk/v6/go/vault/aws"
	"github.com/pulumi/pulumi-vault/sdk/v6/go/vault/database"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"

	"github.com/mitodl/ol-infrastructure-sub004/components/iampolicy"
)

// OLVaultAWSBackendArgs configures a dynamic AWS credentials backend.
type OLVaultAWSBackendArgs struct {
	// Path is the mount path, e.g. aws-mitx.
	Path string
	// Region scopes issued credentials.
	Region string
	// DefaultLeaseSeconds and MaxLeaseSeconds bound credential lifetime.
	DefaultLeaseSeconds int
	MaxLeaseSeconds     int
	// Roles maps role names to the policy documents issued credentials
	// carry. Each document is linted before it is handed to Vault.
	Roles map[string]iampolicy.Document
}

func (args *OLVaultAWSBackendArgs) validate() error {
	if strings.TrimSpace(args.Path) == "" {
		return fmt.Errorf("olvault: aws backend path is required")
	}
	if len(args.Roles) == 0 {
		return fmt.Errorf("olvault: aws backend needs at least one role")
	}
	for name, doc := range args.Roles {
		if err := doc.Lint(); err != nil {
			return fmt.Errorf("olvault: aws role %q: %w", name, err)
		}
	}
	return nil
}

// OLVaultAWSBackend bundles an AWS secret backend and its roles.
type OLVaultAWSBackend struct {
	pulumi.ResourceState

	Path pulumi.StringOutput
}

// NewOLVaultAWSBackend validates args and declares the backend.
func NewOLVaultAWSBackend(ctx *pulumi.Context, name string, args *OLVaultAWSBackendArgs, opts ...pulumi.ResourceOption) (*OLVaultAWSBackend, error) {
	if args == nil {
		args = &OLVaultAWSBackendArgs{}
	}
	if err := args.validate(); err != nil {
		return nil, err
	}

	comp := &OLVaultAWSBackend{}
	err := ctx.RegisterComponentResource("ol:infrastructure:VaultAWSBackend", name, comp, opts...)
	if err != nil {
		return nil, err
	}

	defaultLease := args.DefaultLeaseSeconds
	if defaultLease == 0 {
		defaultLease = 3600
	}
	maxLease := args.MaxLeaseSeconds
	if maxLease == 0 {
		maxLease = 4 * 3600
	}

	backend, err := vaultaws.NewSecretBackend(ctx, name, &vaultaws.SecretBackendArgs{
		Path:                   pulumi.String(args.Path),
		Region:                 pulumi.String(args.Region),
		DefaultLeaseTtlSeconds: pulumi.Int(defaultLease),
		MaxLeaseTtlSeconds:     pulumi.Int(maxLease),
	}, pulumi.Parent(comp))
	if err != nil {
		return nil, err
	}

	for roleName, doc := range args.Roles {
		policyJSON, err := doc.JSON()
		if err != nil {
			return nil, err
		}
		_, err = vaultaws.NewSecretBackendRole(ctx, fmt.Sprintf("%s-%s", name, roleName), &vaultaws.SecretBackendRoleArgs{
			Backend:        backend.Path.Elem(),
			Name:           pulumi.String(roleName),
			CredentialType: pulumi.String("iam_user"),
			PolicyDocument: pulumi.String(policyJSON),
		}, pulumi.Parent(backend))
		if err != nil {
			return nil, err
		}
	}

	comp.Path = backend.Path.Elem()
	err = ctx.RegisterResourceOutputs(comp, pulumi.Map{"path": comp.Path})
	if err != nil {
		return nil, err
	}
	return comp, nil
}

// OLVaultDatabaseBackendArgs configures a dynamic postgres user backend.
type OLVaultDatabaseBackendArgs struct {
	// MountPath is the database mount, e.g. postgres-app.
	MountPath string
	// ConnectionURL is the admin connection string, normally built from a
	// database component's outputs.
	ConnectionURL pulumi.StringInput
	// Roles maps role names to the SQL statements creating their users.
	Roles map[string][]string
	// DefaultTTLSeconds and MaxTTLSeconds bound issued user lifetime.
	DefaultTTLSeconds int
	MaxTTLSeconds     int
}

func (args *OLVaultDatabaseBackendArgs) validate() error {
	if strings.TrimSpace(args.MountPath) == "" {
		return fmt.Errorf("olvault: database mount path is required")
	}
	if args.ConnectionURL == nil {
		return fmt.Errorf("olvault: database connection url is required")
	}
	if len(args.Roles) == 0 {
		return fmt.Errorf("olvault: database backend needs at least one role")
	}
	for name, statements := range args.Roles {
		if len(statements) == 0 {
			return fmt.Errorf("olvault: database role %q has no creation statements", name)
		}
	}
	return nil
}

// OLVaultDatabaseBackend bundles a database secret backend, its connection
// and its roles.
type OLVaultDatabaseBackend struct {
	pulumi.ResourceState

	MountPath pulumi.StringOutput
}

// NewOLVaultDatabaseBackend validates args and declares the backend.
func NewOLVaultDatabaseBackend(ctx *pulumi.Context, name string, args *OLVaultDatabaseBackendArgs, opts ...pulumi.ResourceOption) (*OLVaultDatabaseBackend, error) {
	if args == nil {
		args = &OLVaultDatabaseBackendArgs{}
	}
	if err := args.validate(); err != nil {
		return nil, err
	}

	comp := &OLVaultDatabaseBackend{}
	err := ctx.RegisterComponentResource("ol:infrastructure:VaultDatabaseBackend", name, comp, opts...)
	if err != nil {
		return nil, err
	}

	defaultTTL := args.DefaultTTLSeconds
	if defaultTTL == 0 {
		defaultTTL = 3600
	}
	maxTTL := args.MaxTTLSeconds
	if maxTTL == 0 {
		maxTTL = 24 * 3600
	}

	/*
	 * The database secrets engine itself; the connection and roles below
	 * hang off this mount
	 */
	mount, err := vaultsdk.NewMount(ctx, name, &vaultsdk.MountArgs{
		Path:                   pulumi.String(args.MountPath),
		Type:                   pulumi.String("database"),
		Description:            pulumi.String(fmt.Sprintf("Dynamic database credentials for %s", name)),
		DefaultLeaseTtlSeconds: pulumi.Int(defaultTTL),
		MaxLeaseTtlSeconds:     pulumi.Int(maxTTL),
	}, pulumi.Parent(comp))
	if err != nil {
		return nil, err
	}

	roleNames := make(pulumi.StringArray, 0, len(args.Roles))
	for roleName := range args.Roles {
		roleNames = append(roleNames, pulumi.String(roleName))
	}

	connection, err := database.NewSecretBackendConnection(ctx, name, &database.SecretBackendConnectionArgs{
		Backend:      mount.Path,
		Name:         pulumi.String(name),
		AllowedRoles: roleNames,
		Postgresql: &database.SecretBackendConnectionPostgresqlArgs{
			ConnectionUrl: args.ConnectionURL,
		},
		VerifyConnection: pulumi.Bool(true),
	}, pulumi.Parent(mount))
	if err != nil {
		return nil, err
	}

	for roleName, statements := range args.Roles {
		creation := make(pulumi.StringArray, 0, len(statements))
		for _, s := range statements {
			creation = append(creation, pulumi.String(s))
		}
		_, err = database.NewSecretBackendRole(ctx, fmt.Sprintf("%s-%s", name, roleName), &database.SecretBackendRoleArgs{
			Backend:            mount.Path,
			Name:               pulumi.String(roleName),
			DbName:             connection.Name,
			CreationStatements: creation,
			DefaultTtl:         pulumi.Int(defaultTTL),
			MaxTtl:             pulumi.Int(maxTTL),
		}, pulumi.Parent(connection))
		if err != nil {
			return nil, err
		}
	}

	comp.MountPath = mount.Path
	err = ctx.RegisterResourceOutputs(comp, pulumi.Map{"mountPath": comp.MountPath})
	if err != nil {
		return nil, err
	}
	return comp, nil
}
