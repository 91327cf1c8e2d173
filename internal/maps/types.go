package maps

// Point is one end of a move. Coordinates win over the address when both are set.
type Point struct {
	Address string
	Lat     *float64
	Lng     *float64
}

func (p Point) hasCoordinates() bool {
	return p.Lat != nil && p.Lng != nil
}

// Route is the road distance between two points.
type Route struct {
	DistanceKm      float64 `json:"distanceKm"`
	DurationMinutes int     `json:"durationMinutes"`
}

// LookupRequest represents the address autocomplete query.
type LookupRequest struct {
	Query string `form:"q" binding:"required,min=3"`
}

// DistanceRequest is the admin distance lookup.
type DistanceRequest struct {
	FromAddress string   `form:"fromAddress" validate:"omitempty,max=500"`
	FromLat     *float64 `form:"fromLat" validate:"omitempty,latitude"`
	FromLng     *float64 `form:"fromLng" validate:"omitempty,longitude"`
	ToAddress   string   `form:"toAddress" validate:"omitempty,max=500"`
	ToLat       *float64 `form:"toLat" validate:"omitempty,latitude"`
	ToLng       *float64 `form:"toLng" validate:"omitempty,longitude"`
}

// AddressSuggestion is the normalized data returned to the quote form.
type AddressSuggestion struct {
	Label       string `json:"label"`
	Street      string `json:"street"`
	HouseNumber string `json:"houseNumber"`
	PostalCode  string `json:"postalCode"`
	City        string `json:"city"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
}

type nominatimAddress struct {
	Road         string `json:"road"`
	HouseNumber  string `json:"house_number"`
	Postcode     string `json:"postcode"`
	City         string `json:"city"`
	Town         string `json:"town"`
	Village      string `json:"village"`
	Municipality string `json:"municipality"`
	Hamlet       string `json:"hamlet"`
}

// nominatimResponse mirrors the relevant parts of the OSM search payload.
type nominatimResponse struct {
	DisplayName string           `json:"display_name"`
	Lat         string           `json:"lat"`
	Lon         string           `json:"lon"`
	Address     nominatimAddress `json:"address"`
}

// osrmResponse is the subset of the OSRM route service payload we read.
// Distance is in meters and duration in seconds.
type osrmResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
	} `json:"routes"`
}
