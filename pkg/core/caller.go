package core

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// CallerInfo holds what a caller claims about themselves during a call.
// Field names follow the CAMARA KYC vocabulary so the struct can feed a
// KYC match request directly.
type CallerInfo struct {
	PhoneNumber              string `json:"phoneNumber,omitempty"`
	IDDocument               string `json:"idDocument,omitempty"`
	Name                     string `json:"name,omitempty"`
	GivenName                string `json:"givenName,omitempty"`
	MiddleNames              string `json:"middleNames,omitempty"`
	FamilyName               string `json:"familyName,omitempty"`
	FamilyNameAtBirth        string `json:"familyNameAtBirth,omitempty"`
	Birthdate                string `json:"birthdate,omitempty"`
	Country                  string `json:"country,omitempty"`
	Locality                 string `json:"locality,omitempty"`
	Region                   string `json:"region,omitempty"`
	Address                  string `json:"address,omitempty"`
	StreetName               string `json:"streetName,omitempty"`
	StreetNumber             string `json:"streetNumber,omitempty"`
	HouseNumberExtension     string `json:"houseNumberExtension,omitempty"`
	PostalCode               string `json:"postalCode,omitempty"`
	Email                    string `json:"email,omitempty"`
	Gender                   string `json:"gender,omitempty"`
	ClaimsCompanyAffiliation bool   `json:"claimsCompanyAffiliation,omitempty"`
	CompanyName              string `json:"companyName,omitempty"`
}

// City returns the claimed locality.
func (c CallerInfo) City() string {
	return strings.TrimSpace(c.Locality)
}

// Company returns the claimed company name.
func (c CallerInfo) Company() string {
	return strings.TrimSpace(c.CompanyName)
}

// IsEmpty reports whether nothing at all was extracted.
func (c CallerInfo) IsEmpty() bool {
	return c == CallerInfo{}
}

// stringFields maps every JSON key (including legacy aliases) to its field.
func (c *CallerInfo) stringFields() map[string]*string {
	return map[string]*string{
		"phoneNumber":          &c.PhoneNumber,
		"idDocument":           &c.IDDocument,
		"name":                 &c.Name,
		"givenName":            &c.GivenName,
		"middleNames":          &c.MiddleNames,
		"familyName":           &c.FamilyName,
		"familyNameAtBirth":    &c.FamilyNameAtBirth,
		"birthdate":            &c.Birthdate,
		"country":              &c.Country,
		"locality":             &c.Locality,
		"location":             &c.Locality,
		"region":               &c.Region,
		"address":              &c.Address,
		"streetName":           &c.StreetName,
		"streetNumber":         &c.StreetNumber,
		"houseNumberExtension": &c.HouseNumberExtension,
		"postalCode":           &c.PostalCode,
		"email":                &c.Email,
		"gender":               &c.Gender,
		"companyName":          &c.CompanyName,
		"company":              &c.CompanyName,
	}
}

// UnmarshalJSON accepts the loose shapes LLMs and older clients produce:
// null values are skipped, numbers are kept as their decimal text, the
// affiliation flag may be a bool or a "true"/"false" string, and the
// aliases "location" and "company" fill Locality and CompanyName when the
// canonical keys are absent.
func (c *CallerInfo) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var out CallerInfo
	fields := out.stringFields()
	// Canonical keys win over aliases, so aliases are applied first.
	order := []string{"location", "company"}
	for key := range raw {
		if key != "location" && key != "company" {
			order = append(order, key)
		}
	}

	for _, key := range order {
		msg, ok := raw[key]
		if !ok {
			continue
		}
		if key == "claimsCompanyAffiliation" {
			v, err := looseBool(msg)
			if err != nil {
				return fmt.Errorf("claimsCompanyAffiliation: %w", err)
			}
			out.ClaimsCompanyAffiliation = v
			continue
		}
		dst, known := fields[key]
		if !known {
			continue
		}
		v, err := looseString(msg)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if v != "" {
			*dst = v
		}
	}

	*c = out
	return nil
}

func looseString(msg json.RawMessage) (string, error) {
	var v any
	if err := json.Unmarshal(msg, &v); err != nil {
		return "", err
	}
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return strings.TrimSpace(t), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(t), nil
	default:
		return "", fmt.Errorf("unsupported value %s", string(msg))
	}
}

func looseBool(msg json.RawMessage) (bool, error) {
	var v any
	if err := json.Unmarshal(msg, &v); err != nil {
		return false, err
	}
	switch t := v.(type) {
	case nil:
		return false, nil
	case bool:
		return t, nil
	case string:
		if t == "" {
			return false, nil
		}
		return strconv.ParseBool(strings.ToLower(strings.TrimSpace(t)))
	default:
		return false, fmt.Errorf("unsupported value %s", string(msg))
	}
}
