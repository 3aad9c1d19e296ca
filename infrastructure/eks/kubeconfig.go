package main

import (
	"encoding/json"

	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
)

// kubeconfig is the subset of the kubeconfig v1 schema this program emits.
// The aws CLI handles token issuance, so no client certs appear here.
type kubeconfig struct {
	APIVersion     string             `json:"apiVersion"`
	Kind           string             `json:"kind"`
	CurrentContext string             `json:"current-context"`
	Clusters       []namedCluster     `json:"clusters"`
	Contexts       []namedContext     `json:"contexts"`
	Users          []namedUser        `json:"users"`
	Preferences    map[string]any     `json:"preferences"`
}

type namedCluster struct {
	Name    string `json:"name"`
	Cluster struct {
		Server string `json:"server"`
		CAData string `json:"certificate-authority-data"`
	} `json:"cluster"`
}

type namedContext struct {
	Name    string `json:"name"`
	Context struct {
		Cluster string `json:"cluster"`
		User    string `json:"user"`
	} `json:"context"`
}

type namedUser struct {
	Name string `json:"name"`
	User struct {
		Exec struct {
			APIVersion string   `json:"apiVersion"`
			Command    string   `json:"command"`
			Args       []string `json:"args"`
		} `json:"exec"`
	} `json:"user"`
}

// generateKubeconfig renders a kubeconfig whose server, CA data and cluster
// name are filled from the cluster outputs. The document is marshalled once
// with %s placeholders and resolved through pulumi.Sprintf, so the result
// stays an output and inherits secretness from its inputs.
func generateKubeconfig(endpoint, caData, clusterName pulumi.StringOutput) (pulumi.StringOutput, error) {
	doc := kubeconfig{
		APIVersion:     "v1",
		Kind:           "Config",
		CurrentContext: "aws",
		Preferences:    map[string]any{},
	}

	cluster := namedCluster{Name: "kubernetes"}
	cluster.Cluster.Server = "%s"
	cluster.Cluster.CAData = "%s"
	doc.Clusters = []namedCluster{cluster}

	context := namedContext{Name: "aws"}
	context.Context.Cluster = "kubernetes"
	context.Context.User = "aws"
	doc.Contexts = []namedContext{context}

	user := namedUser{Name: "aws"}
	user.User.Exec.APIVersion = "client.authentication.k8s.io/v1beta1"
	user.User.Exec.Command = "aws"
	user.User.Exec.Args = []string{"eks", "get-token", "--cluster-name", "%s"}
	doc.Users = []namedUser{user}

	raw, err := json.Marshal(doc)
	if err != nil {
		return pulumi.StringOutput{}, err
	}
	return pulumi.Sprintf(string(raw), endpoint, caData, clusterName), nil
}
