package event

import (
	"fmt"
	"strings"
)

// Category is the closed set of event kinds. The zero value means unset.
type Category uint8

const (
	CategoryWork Category = iota + 1
	CategoryPersonal
	CategoryMeeting
	CategoryOther

	numCategories = int(CategoryOther) + 1
)

type categoryInfo struct {
	key   string
	label string
	color string
}

// Sized by numCategories so a new constant without an entry stays a zero
// row that TestCategoryTableComplete catches.
var categoryTable = [numCategories]categoryInfo{
	CategoryWork:     {key: "work", label: "Work", color: "#3498DB"},
	CategoryPersonal: {key: "personal", label: "Personal", color: "#2ECC71"},
	CategoryMeeting:  {key: "meeting", label: "Meeting", color: "#9B59B6"},
	CategoryOther:    {key: "other", label: "Other", color: "#95A5A6"},
}

// Categories lists every category in display order.
func Categories() []Category {
	return []Category{CategoryWork, CategoryPersonal, CategoryMeeting, CategoryOther}
}

func ParseCategory(s string) (Category, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, c := range Categories() {
		if categoryTable[c].key == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown category %q", s)
}

func (c Category) Valid() bool {
	return c > 0 && int(c) < numCategories
}

// OrDefault maps an unset category to other.
func (c Category) OrDefault() Category {
	if !c.Valid() {
		return CategoryOther
	}
	return c
}

func (c Category) String() string { return categoryTable[c.OrDefault()].key }
func (c Category) Label() string  { return categoryTable[c.OrDefault()].label }
func (c Category) Color() string  { return categoryTable[c.OrDefault()].color }

func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Category) UnmarshalText(b []byte) error {
	v, err := ParseCategory(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}
