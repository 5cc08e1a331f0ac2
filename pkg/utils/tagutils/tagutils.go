package tagutils

import (
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/samber/lo"
)

func EC2TagsToMap(ec2Tags []ec2types.Tag) map[string]string {
	tags := map[string]string{}
	for _, t := range ec2Tags {
		tags[lo.FromPtr(t.Key)] = lo.FromPtr(t.Value)
	}
	return tags
}

// Name returns the value of the Name tag or the empty string.
func Name(ec2Tags []ec2types.Tag) string {
	return EC2TagsToMap(ec2Tags)["Name"]
}
