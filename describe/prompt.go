// Package describe writes rental listing descriptions with a text
// generation model.
package describe

import (
	"fmt"
	"strconv"
	"strings"
)

// Listing is the input to a description request.
type Listing struct {
	Bedrooms    int      `json:"bedrooms" validate:"min=0"`
	Bathrooms   float64  `json:"bathrooms" validate:"min=0"`
	SquareFeet  int      `json:"square_feet" validate:"min=1"`
	CityName    string   `json:"cityname" validate:"required"`
	HasPhoto    string   `json:"has_photo"`
	DogsAllowed string   `json:"dogs_allowed"`
	CatsAllowed string   `json:"cats_allowed"`
	Amenities   []string `json:"amenities"`
}

func yes(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "yes")
}

func pick(flag bool, ifYes, ifNo string) string {
	if flag {
		return ifYes
	}
	return ifNo
}

// Prompt renders the generation prompt for l.
func Prompt(l Listing) string {
	dogs := pick(yes(l.DogsAllowed), "It is dog-friendly.", "It is not dog-friendly.")
	cats := pick(yes(l.CatsAllowed), "It is cat-friendly.", "It is not cat-friendly.")
	photo := pick(yes(l.HasPhoto), "There are display pictures", "There are no display pictures")

	var amenities string
	if len(l.Amenities) > 0 {
		amenities = "The amenities available are " + strings.Join(l.Amenities, ", ") + ". "
	}

	return fmt.Sprintf(
		"There is a house with %d bedrooms, %s bathrooms with an area of %d sq. feet. "+
			"It is located in %s. %s %s %s. %sMake a description for a rental posting on Zillow.",
		l.Bedrooms,
		strconv.FormatFloat(l.Bathrooms, 'f', -1, 64),
		l.SquareFeet,
		l.CityName,
		dogs, cats, photo,
		amenities,
	)
}
