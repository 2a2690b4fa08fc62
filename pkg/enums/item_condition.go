package enums

import "fmt"

// ItemCondition describes the physical state of a used textbook.
type ItemCondition string

const (
	ItemConditionLikeNew       ItemCondition = "like_new"
	ItemConditionGood          ItemCondition = "good"
	ItemConditionFair          ItemCondition = "fair"
	ItemConditionWritingInside ItemCondition = "writing_inside"
	ItemConditionWorn          ItemCondition = "worn"
)

var validItemConditions = []ItemCondition{
	ItemConditionLikeNew,
	ItemConditionGood,
	ItemConditionFair,
	ItemConditionWritingInside,
	ItemConditionWorn,
}

// IsValid reports whether the value is a known ItemCondition.
func (c ItemCondition) IsValid() bool {
	for _, candidate := range validItemConditions {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseItemCondition converts raw input into an ItemCondition.
func ParseItemCondition(value string) (ItemCondition, error) {
	for _, candidate := range validItemConditions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid item condition %q", value)
}
