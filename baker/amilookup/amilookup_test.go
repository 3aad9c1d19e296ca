package amilookup

import (
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/aws/aws-sdk-go/service/ec2/ec2iface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockEC2 struct {
	ec2iface.EC2API
	input  *ec2.DescribeImagesInput
	output *ec2.DescribeImagesOutput
	err    error
}

func (m *mockEC2) DescribeImages(input *ec2.DescribeImagesInput) (*ec2.DescribeImagesOutput, error) {
	m.input = input
	return m.output, m.err
}

func image(id, date string) *ec2.Image {
	return &ec2.Image{
		ImageId:      aws.String(id),
		Name:         aws.String("consul-" + date),
		CreationDate: aws.String(date),
	}
}

func TestLatestPicksNewestByCreationDate(t *testing.T) {
	client := &mockEC2{output: &ec2.DescribeImagesOutput{Images: []*ec2.Image{
		image("ami-old", "2026-01-02T00:00:00.000Z"),
		image("ami-new", "2026-08-01T12:30:00.000Z"),
		image("ami-mid", "2026-04-15T08:00:00.000Z"),
	}}}

	got, err := Lookup{Client: client}.Latest("consul-*", "self", nil)
	require.NoError(t, err)
	assert.Equal(t, "ami-new", got.ID)
}

func TestLatestBuildsTagFilters(t *testing.T) {
	client := &mockEC2{output: &ec2.DescribeImagesOutput{Images: []*ec2.Image{
		image("ami-1", "2026-01-02T00:00:00.000Z"),
	}}}

	_, err := Lookup{Client: client}.Latest("vault-*", "self", map[string]string{"deployment": "operations-qa"})
	require.NoError(t, err)

	var names []string
	for _, f := range client.input.Filters {
		names = append(names, aws.StringValue(f.Name))
	}
	assert.Contains(t, names, "name")
	assert.Contains(t, names, "state")
	assert.Contains(t, names, "tag:deployment")
}

func TestLatestErrorsWhenNothingMatches(t *testing.T) {
	client := &mockEC2{output: &ec2.DescribeImagesOutput{}}

	_, err := Lookup{Client: client}.Latest("ghost-*", "self", nil)
	assert.ErrorContains(t, err, "no available ami")
}

func TestLatestWrapsAPIErrors(t *testing.T) {
	apiErr := errors.New("throttled")
	client := &mockEC2{err: apiErr}

	_, err := Lookup{Client: client}.Latest("consul-*", "self", nil)
	assert.ErrorIs(t, err, apiErr)
}
