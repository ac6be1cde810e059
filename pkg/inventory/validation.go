package inventory

import (
	"strings"
	"unicode"
)

const maxNameLength = 256

// ValidateName validates an entity name. The rules are intentionally
// conservative: no empty names, no control characters, bounded length.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return NewError(ErrCodeInvalidName, "name cannot be empty")
	}
	if len(name) > maxNameLength {
		return NewError(ErrCodeInvalidName, "name too long (max %d characters)", maxNameLength)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return NewError(ErrCodeInvalidName, "name contains control characters")
		}
	}
	return nil
}

// ValidateRegion checks a region's geometry. Region names may be empty:
// a freshly drawn region is born nameless.
func ValidateRegion(r Region) error {
	if r.LocationID == "" {
		return NewError(ErrCodeInvalidRegion, "region must belong to a location")
	}
	if r.Width <= 0 || r.Height <= 0 {
		return NewError(ErrCodeInvalidRegion, "region size %gx%g is degenerate", r.Width, r.Height)
	}
	if r.X < 0 || r.Y < 0 {
		return NewError(ErrCodeInvalidRegion, "region position %g,%g is negative", r.X, r.Y)
	}
	return nil
}

// ValidateItem checks an item before it is stored.
func ValidateItem(i Item) error {
	if err := ValidateName(i.Name); err != nil {
		return err
	}
	if i.Quantity < 0 {
		return NewError(ErrCodeInvalidQuantity, "quantity cannot be negative")
	}
	if i.RegionID != "" && i.LocationID == "" {
		return NewError(ErrCodeInvalidInput, "an item with a region must also have a location")
	}
	return nil
}
