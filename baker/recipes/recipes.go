// Package recipes holds the concrete image recipes baked by the packer
// pipeline. Configuration written here is the bake-time baseline; runtime
// values arrive through consul-template and vault agent on boot.
package recipes

import (
	"fmt"
	"sort"

	"github.com/mitodl/ol-infrastructure-sub004/baker"
)

const debianOwner = "136693071363"

func debianBase() baker.BaseImage {
	return baker.BaseImage{NamePattern: "debian-12-amd64-*", Owner: debianOwner}
}

// ConsulServer bakes a consul server image for the given datacenter.
func ConsulServer(datacenter string) baker.Recipe {
	serverConfig := fmt.Sprintf(`{
  "datacenter": %q,
  "server": true,
  "bootstrap_expect": 3,
  "retry_join": ["provider=aws tag_key=consul_env tag_value=%s"],
  "encrypt_verify_incoming": true,
  "encrypt_verify_outgoing": true
}`, datacenter, datacenter)

	return baker.Recipe{
		Name: "consul",
		Base: debianBase(),
		Steps: []baker.Step{
			baker.InstallPackages{Packages: []string{"consul"}, Update: true},
			baker.WriteFile{
				Path:    "/etc/consul.d/server.json",
				Content: serverConfig,
				Mode:    "0640",
				Owner:   "consul",
				Group:   "consul",
			},
			baker.Systemd{Unit: "consul.service", Enabled: true, DaemonReload: true},
		},
	}
}

// VaultServer bakes a vault server image using the KMS auto-unseal key the
// infrastructure/vault stack provisions.
func VaultServer() baker.Recipe {
	serverConfig := `ui = true

storage "raft" {
  path = "/var/lib/vault"
}

listener "tcp" {
  address     = "0.0.0.0:8200"
  tls_disable = false
}

seal "awskms" {}
`
	return baker.Recipe{
		Name: "vault",
		Base: debianBase(),
		Steps: []baker.Step{
			baker.InstallPackages{Packages: []string{"vault"}, Update: true},
			baker.WriteFile{
				Path:    "/etc/vault.d/server.hcl",
				Content: serverConfig,
				Mode:    "0640",
				Owner:   "vault",
				Group:   "vault",
			},
			baker.RunCommand{Command: "setcap cap_ipc_lock=+ep /usr/bin/vault"},
			baker.Systemd{Unit: "vault.service", Enabled: true, DaemonReload: true},
		},
	}
}

// ConcourseWeb bakes the concourse web node. Keys and the postgres
// connection arrive through the environment file the deploy stack manages.
func ConcourseWeb(version string) baker.Recipe {
	url := fmt.Sprintf("https://github.com/concourse/concourse/releases/download/v%s/concourse-%s-linux-amd64.tgz", version, version)
	return baker.Recipe{
		Name: "concourse-web",
		Base: debianBase(),
		Steps: []baker.Step{
			baker.InstallPackages{Packages: []string{"ca-certificates"}, Update: true},
			baker.Download{URL: url, Dest: "/tmp/concourse.tgz"},
			baker.RunCommand{Command: "tar -xzf /tmp/concourse.tgz -C /usr/local && rm /tmp/concourse.tgz"},
			baker.WriteFile{
				Path: "/etc/systemd/system/concourse-web.service",
				Content: `[Unit]
Description=Concourse web
After=network-online.target

[Service]
ExecStart=/usr/local/concourse/bin/concourse web
EnvironmentFile=/etc/concourse/web.env
Restart=on-failure

[Install]
WantedBy=multi-user.target
`,
				Mode: "0644",
			},
			baker.Systemd{Unit: "concourse-web.service", Enabled: true, DaemonReload: true},
		},
	}
}

// ConcourseWorker bakes a concourse worker image from the upstream release
// tarball.
func ConcourseWorker(version string) baker.Recipe {
	url := fmt.Sprintf("https://github.com/concourse/concourse/releases/download/v%s/concourse-%s-linux-amd64.tgz", version, version)
	return baker.Recipe{
		Name: "concourse-worker",
		Base: debianBase(),
		Steps: []baker.Step{
			baker.InstallPackages{Packages: []string{"ca-certificates", "iproute2"}, Update: true},
			baker.Download{URL: url, Dest: "/tmp/concourse.tgz"},
			baker.RunCommand{Command: "tar -xzf /tmp/concourse.tgz -C /usr/local && rm /tmp/concourse.tgz"},
			baker.WriteFile{
				Path: "/etc/systemd/system/concourse-worker.service",
				Content: `[Unit]
Description=Concourse worker
After=network-online.target

[Service]
ExecStart=/usr/local/concourse/bin/concourse worker
EnvironmentFile=/etc/concourse/worker.env
Restart=on-failure

[Install]
WantedBy=multi-user.target
`,
				Mode: "0644",
			},
			baker.Systemd{Unit: "concourse-worker.service", Enabled: true, DaemonReload: true},
		},
	}
}

// All returns the recipe catalog keyed by name, for the CLI.
func All() map[string]baker.Recipe {
	catalog := []baker.Recipe{
		ConsulServer("operations-qa"),
		VaultServer(),
		ConcourseWeb("7.11.0"),
		ConcourseWorker("7.11.0"),
	}
	out := make(map[string]baker.Recipe, len(catalog))
	for _, r := range catalog {
		out[r.Name] = r
	}
	return out
}

// Names returns the catalog names in sorted order.
func Names() []string {
	all := All()
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
