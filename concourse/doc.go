// Package concourse models Concourse CI pipeline documents and provides
// fragment composition for assembling them.
//
// A pipeline is authored as one or more fragments, each carrying the
// resource types, resources and jobs for a slice of the pipeline. Fragments
// from different concerns (a pulumi deployment chain, a packer AMI build, a
// container image build) are merged into a single document with
// MergeFragments and serialized to the JSON schema the Concourse API
// accepts. The generated document is registered out-of-band with
// `fly set-pipeline`.
package concourse
