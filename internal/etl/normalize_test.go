package etl

import (
	"fmt"
	"strings"
	"testing"

	"github.com/elonfeng/parksync/pkg/nps"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParks(t *testing.T, body string) *nps.ParksResponse {
	t.Helper()
	resp, err := nps.DecodeParks([]byte(body))
	require.NoError(t, err)
	return resp
}

func mustAmenities(t *testing.T, body string) *nps.AmenitiesResponse {
	t.Helper()
	resp, err := nps.DecodeAmenities([]byte(body))
	require.NoError(t, err)
	return resp
}

func TestNormalize_ParksAndActivities(t *testing.T) {
	const n, m = 4, 3

	var parks []string
	for i := 0; i < n; i++ {
		var acts []string
		for j := 0; j < m; j++ {
			acts = append(acts, fmt.Sprintf(`{"id":"ACT%d","name":"Activity %d"}`, j, j))
		}
		parks = append(parks, fmt.Sprintf(`{"id":"P%d","fullName":"Park %d","parkCode":"p%d","activities":[%s]}`,
			i, i, i, strings.Join(acts, ",")))
	}
	body := `{"data":[` + strings.Join(parks, ",") + `]}`

	b := Normalize(mustParks(t, body), nil, nil)
	require.Len(t, b.Parks, n)
	assert.Len(t, b.Activities, n*m)

	assert.Equal(t, "P2", *b.Activities[2*m].ParkID)
	assert.Equal(t, "ACT0", *b.Activities[2*m].ActivityID)
}

func TestNormalize_MissingCoordinatesAreZero(t *testing.T) {
	b := Normalize(mustParks(t, `{"data":[
		{"id":"P1"},
		{"id":"P2","latitude":null,"longitude":""},
		{"id":"P3","latitude":"12.5","longitude":-3}
	]}`), nil, nil)

	require.Len(t, b.Parks, 3)
	for _, p := range b.Parks[:2] {
		assert.Equal(t, 0.0, p.Latitude)
		assert.Equal(t, 0.0, p.Longitude)
	}
	assert.Equal(t, 12.5, b.Parks[2].Latitude)
	assert.Equal(t, -3.0, b.Parks[2].Longitude)
	assert.Nil(t, b.Parks[0].FullName)
}

func TestNormalize_Amenities(t *testing.T) {
	b := Normalize(nil, mustAmenities(t,
		`{"data":[[{"id":"A1","name":"Restrooms","parks":[{"parkCode":"YELL"}]}]]}`), nil)

	require.Len(t, b.Amenities, 1)
	assert.Equal(t, "A1", *b.Amenities[0].ID)
	assert.Equal(t, "Restrooms", *b.Amenities[0].Name)

	require.Len(t, b.ParkAmenities, 1)
	assert.Equal(t, "YELL", *b.ParkAmenities[0].ParkCode)
	assert.Equal(t, "A1", *b.ParkAmenities[0].AmenityID)
}

func TestNormalize_AmenityGroupsFlatten(t *testing.T) {
	b := Normalize(nil, mustAmenities(t, `{"data":[
		[{"id":"A1","name":"Restrooms","parks":[{"parkCode":"yell"},{"parkCode":"grca"}]}],
		[],
		[{"id":"A2","name":"Parking"},{"id":"A3","parks":[{"parkCode":"acad"}]}]
	]}`), nil)

	assert.Len(t, b.Amenities, 3)
	assert.Len(t, b.ParkAmenities, 3)
	assert.Nil(t, b.Amenities[2].Name)
	assert.Equal(t, "A3", *b.ParkAmenities[2].AmenityID)
}

func TestNormalize_NFC(t *testing.T) {
	decomposed := "Haleakala\u0304 National Park"
	b := Normalize(mustParks(t, `{"data":[{"id":"P1","fullName":"`+decomposed+`"}]}`), nil,
		[]nps.NewsItem{{ID: "x", Title: "Cafe\u0301 reopens"}})

	assert.Equal(t, "Haleakal\u0101 National Park", *b.Parks[0].FullName)
	assert.Equal(t, "Caf\u00e9 reopens", b.News[0].Title)
}
