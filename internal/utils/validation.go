package utils

import (
	"errors"
	"regexp"
)

// Allow alphanumeric, underscore, hyphen, dot and colon - common in traveler and stop IDs
var validIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_.:-]+$`)

// ValidateID validates that an ID is safe and within reasonable limits
func ValidateID(id string) error {
	if id == "" {
		return errors.New("id cannot be empty")
	}

	if len(id) > 100 {
		return errors.New("id too long (max 100 characters)")
	}

	if !validIDPattern.MatchString(id) {
		return errors.New("id contains invalid characters")
	}

	return nil
}

// ValidateLatitude validates latitude values
func ValidateLatitude(lat float64) error {
	if lat < -90.0 || lat > 90.0 {
		return errors.New("latitude must be between -90 and 90")
	}
	return nil
}

// ValidateLongitude validates longitude values
func ValidateLongitude(lon float64) error {
	if lon < -180.0 || lon > 180.0 {
		return errors.New("longitude must be between -180 and 180")
	}
	return nil
}

// ValidateCoordinates adds any latitude or longitude errors to fieldErrors
// under "<field>.lat" and "<field>.lon", allocating the map when needed.
func ValidateCoordinates(field string, lat, lon float64, fieldErrors map[string][]string) map[string][]string {
	if fieldErrors == nil {
		fieldErrors = make(map[string][]string)
	}

	if err := ValidateLatitude(lat); err != nil {
		fieldErrors[field+".lat"] = append(fieldErrors[field+".lat"], err.Error())
	}

	if err := ValidateLongitude(lon); err != nil {
		fieldErrors[field+".lon"] = append(fieldErrors[field+".lon"], err.Error())
	}

	return fieldErrors
}
