// Package amilookup resolves the newest baked AMI matching a recipe's
// output, for wiring image ids into launch templates and bake-plan
// smoke checks.
package amilookup

import (
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/aws/aws-sdk-go/service/ec2/ec2iface"
)

// Image is the subset of AMI metadata callers need.
type Image struct {
	ID           string
	Name         string
	CreationDate string
}

// Lookup queries EC2 for AMIs.
type Lookup struct {
	Client ec2iface.EC2API
}

// Latest returns the newest available AMI owned by owner whose name matches
// pattern, with every tag in tags present. It errors when nothing matches.
func (l Lookup) Latest(pattern, owner string, tags map[string]string) (Image, error) {
	filters := []*ec2.Filter{
		{Name: aws.String("name"), Values: aws.StringSlice([]string{pattern})},
		{Name: aws.String("state"), Values: aws.StringSlice([]string{"available"})},
	}
	for key, value := range tags {
		filters = append(filters, &ec2.Filter{
			Name:   aws.String(fmt.Sprintf("tag:%s", key)),
			Values: aws.StringSlice([]string{value}),
		})
	}

	output, err := l.Client.DescribeImages(&ec2.DescribeImagesInput{
		Owners:  aws.StringSlice([]string{owner}),
		Filters: filters,
	})
	if err != nil {
		return Image{}, fmt.Errorf("describe images %q: %w", pattern, err)
	}
	if len(output.Images) == 0 {
		return Image{}, fmt.Errorf("no available ami matches %q for owner %s", pattern, owner)
	}

	// CreationDate is RFC3339, so the lexicographic max is the newest.
	images := output.Images
	sort.Slice(images, func(i, j int) bool {
		return aws.StringValue(images[i].CreationDate) > aws.StringValue(images[j].CreationDate)
	})
	newest := images[0]
	return Image{
		ID:           aws.StringValue(newest.ImageId),
		Name:         aws.StringValue(newest.Name),
		CreationDate: aws.StringValue(newest.CreationDate),
	}, nil
}
