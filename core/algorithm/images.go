package algorithm

import "fmt"

// RequiredChannels are the data channels the image classification
// algorithm refuses to start without.
var RequiredChannels = []string{"train", "validation"}

// ContentType is the record format the algorithm consumes.
const ContentType = "application/x-recordio"

// Accounts hosting the built-in image classification image, per region.
var imageAccounts = map[string]string{
	"us-east-1":      "811284229777",
	"us-east-2":      "825641698319",
	"us-west-2":      "433757028032",
	"eu-west-1":      "685385470294",
	"eu-central-1":   "813361260812",
	"ap-northeast-1": "501404015308",
	"ap-southeast-2": "544295431143",
}

// ImageReference resolves the algorithm container image for a region.
func ImageReference(region string) (string, error) {
	account, ok := imageAccounts[region]
	if !ok {
		return "", fmt.Errorf("image classification algorithm not published in region %s", region)
	}
	return fmt.Sprintf("%s.dkr.ecr.%s.amazonaws.com/image-classification:1", account, region), nil
}
