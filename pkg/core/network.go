package core

// SimSwapCheck is the answer of a SIM swap check.
type SimSwapCheck struct {
	Swapped         bool   `json:"swapped"`
	LatestSimChange string `json:"latestSimChange,omitempty"`
	PhoneNumber     string `json:"phone_number"`
	Message         string `json:"message,omitempty"`
}

// SimSwapDate carries the timestamp of the latest SIM change.
type SimSwapDate struct {
	LatestSimChange string `json:"latestSimChange"`
	PhoneNumber     string `json:"phone_number"`
}

// MatchValue is the per-field verdict of a KYC match.
type MatchValue string

// KYC match verdicts.
const (
	MatchTrue         MatchValue = "true"
	MatchFalse        MatchValue = "false"
	MatchNotAvailable MatchValue = "not_available"
)

// KYCMatchRequest lists the identity claims to check against operator records.
// Empty fields are not sent.
type KYCMatchRequest struct {
	PhoneNumber          string `json:"phoneNumber"`
	IDDocument           string `json:"idDocument,omitempty"`
	Name                 string `json:"name,omitempty"`
	GivenName            string `json:"givenName,omitempty"`
	FamilyName           string `json:"familyName,omitempty"`
	NameKanaHankaku      string `json:"nameKanaHankaku,omitempty"`
	NameKanaZenkaku      string `json:"nameKanaZenkaku,omitempty"`
	MiddleNames          string `json:"middleNames,omitempty"`
	FamilyNameAtBirth    string `json:"familyNameAtBirth,omitempty"`
	Address              string `json:"address,omitempty"`
	StreetName           string `json:"streetName,omitempty"`
	StreetNumber         string `json:"streetNumber,omitempty"`
	PostalCode           string `json:"postalCode,omitempty"`
	Region               string `json:"region,omitempty"`
	Locality             string `json:"locality,omitempty"`
	Country              string `json:"country,omitempty"`
	HouseNumberExtension string `json:"houseNumberExtension,omitempty"`
	Birthdate            string `json:"birthdate,omitempty"`
	Email                string `json:"email,omitempty"`
	Gender               string `json:"gender,omitempty"`
}

// Claims returns the provided fields keyed by their CAMARA field name.
func (r KYCMatchRequest) Claims() map[string]string {
	all := map[string]string{
		"idDocument":           r.IDDocument,
		"name":                 r.Name,
		"givenName":            r.GivenName,
		"familyName":           r.FamilyName,
		"nameKanaHankaku":      r.NameKanaHankaku,
		"nameKanaZenkaku":      r.NameKanaZenkaku,
		"middleNames":          r.MiddleNames,
		"familyNameAtBirth":    r.FamilyNameAtBirth,
		"address":              r.Address,
		"streetName":           r.StreetName,
		"streetNumber":         r.StreetNumber,
		"postalCode":           r.PostalCode,
		"region":               r.Region,
		"locality":             r.Locality,
		"country":              r.Country,
		"houseNumberExtension": r.HouseNumberExtension,
		"birthdate":            r.Birthdate,
		"email":                r.Email,
		"gender":               r.Gender,
	}
	out := make(map[string]string, len(all))
	for k, v := range all {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// KYCMatchResult holds the verdict for every field that was provided.
// Fields is keyed by CAMARA field name ("name", "address", ...). Scores
// holds the optional 0..100 similarity reported for non-matching fields.
type KYCMatchResult struct {
	PhoneNumber string                `json:"phone_number"`
	Fields      map[string]MatchValue `json:"fields"`
	Scores      map[string]int        `json:"scores,omitempty"`
}

// OverallScore averages the verdicts into 0..100: a match counts 100, an
// unavailable field 50, and a mismatch its similarity score (0 if none).
// A result without fields scores 50.
func (r KYCMatchResult) OverallScore() int {
	if len(r.Fields) == 0 {
		return 50
	}
	total := 0
	for field, v := range r.Fields {
		switch v {
		case MatchTrue:
			total += 100
		case MatchNotAvailable:
			total += 50
		default:
			total += r.Scores[field]
		}
	}
	return total / len(r.Fields)
}

// Point is a WGS84 coordinate.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Area is a circle around a center point, radius in meters.
type Area struct {
	AreaType string `json:"areaType"`
	Center   Point  `json:"center"`
	Radius   int    `json:"radius"`
}

// Circle builds a circular area.
func Circle(lat, lon float64, radius int) Area {
	return Area{AreaType: "CIRCLE", Center: Point{Latitude: lat, Longitude: lon}, Radius: radius}
}

// VerificationResult is the outcome of a device location verification.
type VerificationResult string

// Location verification outcomes.
const (
	VerificationTrue    VerificationResult = "TRUE"
	VerificationFalse   VerificationResult = "FALSE"
	VerificationPartial VerificationResult = "PARTIAL"
	VerificationUnknown VerificationResult = "UNKNOWN"
)

// LocationVerification is the answer of a device location check.
type LocationVerification struct {
	Result           VerificationResult `json:"verificationResult"`
	MatchRate        *int               `json:"matchRate,omitempty"`
	LastLocationTime string             `json:"lastLocationTime,omitempty"`
	DistanceMeters   *float64           `json:"distance_meters,omitempty"`
	City             string             `json:"city,omitempty"`
	StoredLocality   string             `json:"stored_locality,omitempty"`
	Coordinates      *Point             `json:"coordinates,omitempty"`
	Message          string             `json:"message,omitempty"`
	PhoneNumber      string             `json:"phone_number"`
}

// DeviceLocation is where the network last saw a device.
type DeviceLocation struct {
	LastLocationTime string `json:"lastLocationTime"`
	Area             Area   `json:"area"`
	PhoneNumber      string `json:"phone_number"`
}

// GeoPoint is a geocoded place.
type GeoPoint struct {
	Point
	City        string `json:"city"`
	DisplayName string `json:"display_name"`
	Country     string `json:"country"`
}
