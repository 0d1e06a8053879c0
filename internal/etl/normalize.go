package etl

import (
	"github.com/elonfeng/parksync/internal/store"
	"github.com/elonfeng/parksync/pkg/nps"
	"golang.org/x/text/unicode/norm"
)

// Normalize flattens the fetched documents into table rows. Missing fields
// stay nil; coordinates are already coerced to 0 by the decoder. Free text is
// NFC-normalized so that names like "Haleakalā" compare equal regardless of
// how the API composed them.
func Normalize(parks *nps.ParksResponse, amenities *nps.AmenitiesResponse, news []nps.NewsItem) *store.Batch {
	b := &store.Batch{}

	if parks != nil {
		for _, p := range parks.Parks {
			b.Parks = append(b.Parks, store.Park{
				ID:          p.ID,
				FullName:    nfc(p.FullName),
				ParkCode:    p.ParkCode,
				States:      p.States,
				Description: nfc(p.Description),
				Latitude:    float64(p.Latitude),
				Longitude:   float64(p.Longitude),
			})
			for _, a := range p.Activities {
				b.Activities = append(b.Activities, store.Activity{
					ParkID:     p.ID,
					ActivityID: a.ID,
					Name:       nfc(a.Name),
				})
			}
		}
	}

	if amenities != nil {
		for _, group := range amenities.Amenities {
			for _, a := range group {
				b.Amenities = append(b.Amenities, store.Amenity{
					ID:   a.ID,
					Name: nfc(a.Name),
				})
				for _, ref := range a.Parks {
					b.ParkAmenities = append(b.ParkAmenities, store.ParkAmenity{
						ParkCode:  ref.ParkCode,
						AmenityID: a.ID,
					})
				}
			}
		}
	}

	for _, n := range news {
		n.Title = norm.NFC.String(n.Title)
		b.News = append(b.News, n)
	}

	return b
}

func nfc(s *string) *string {
	if s == nil {
		return nil
	}
	v := norm.NFC.String(*s)
	return &v
}
