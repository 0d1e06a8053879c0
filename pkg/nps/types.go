package nps

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Park is a single record of the /parks endpoint. Text fields are pointers so
// that a missing or null value survives as NULL instead of an empty string.
type Park struct {
	ID          *string    `json:"id"`
	FullName    *string    `json:"fullName"`
	ParkCode    *string    `json:"parkCode"`
	States      *string    `json:"states"`
	Description *string    `json:"description"`
	Latitude    Coordinate `json:"latitude"`
	Longitude   Coordinate `json:"longitude"`
	Activities  []Activity `json:"activities"`
}

// Activity is an entry of a park's activities list.
type Activity struct {
	ID   *string `json:"id"`
	Name *string `json:"name"`
}

// Amenity is a record of the /amenities/parksplaces endpoint.
type Amenity struct {
	ID    *string   `json:"id"`
	Name  *string   `json:"name"`
	Parks []ParkRef `json:"parks"`
}

// ParkRef is a park embedded in an amenity record. The endpoint only
// identifies parks by their short code.
type ParkRef struct {
	ParkCode *string `json:"parkCode"`
	FullName *string `json:"fullName"`
}

// ParksResponse is a decoded /parks document together with its raw body.
type ParksResponse struct {
	Raw   []byte
	Parks []Park
}

// AmenitiesResponse is a decoded /amenities/parksplaces document. The data
// field of that endpoint is a list of lists of amenities.
type AmenitiesResponse struct {
	Raw       []byte
	Amenities [][]Amenity
}

// Coordinate is a latitude or longitude. The API sends them as strings, and
// sometimes as empty strings; null, missing and empty all decode to 0.
type Coordinate float64

func (c *Coordinate) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = 0
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*c = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid coordinate %q", s)
		}
		*c = Coordinate(f)
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("invalid coordinate %s", data)
	}
	*c = Coordinate(f)
	return nil
}

// DecodeParks parses a /parks body. The top-level data list is required.
func DecodeParks(body []byte) (*ParksResponse, error) {
	var doc struct {
		Data *[]Park `json:"data"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: decode parks: %w", ErrMalformed, err)
	}
	if doc.Data == nil {
		return nil, fmt.Errorf("%w: parks document has no data list", ErrMalformed)
	}
	return &ParksResponse{Raw: body, Parks: *doc.Data}, nil
}

// DecodeAmenities parses a /amenities/parksplaces body. The data field must be
// a list of lists.
func DecodeAmenities(body []byte) (*AmenitiesResponse, error) {
	var doc struct {
		Data *[][]Amenity `json:"data"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: decode amenities: %w", ErrMalformed, err)
	}
	if doc.Data == nil {
		return nil, fmt.Errorf("%w: amenities document has no data list", ErrMalformed)
	}
	return &AmenitiesResponse{Raw: body, Amenities: *doc.Data}, nil
}
