package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallerInfo_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  CallerInfo
	}{
		{
			name:  "canonical keys",
			input: `{"name":"Marcel Barosanu","locality":"Sibiu","companyName":"Orange Romania","claimsCompanyAffiliation":true}`,
			want:  CallerInfo{Name: "Marcel Barosanu", Locality: "Sibiu", CompanyName: "Orange Romania", ClaimsCompanyAffiliation: true},
		},
		{
			name:  "legacy aliases",
			input: `{"name":"Marcel","location":"Sibiu","company":"Orange Romania","address":"street Nicolae Iancu"}`,
			want:  CallerInfo{Name: "Marcel", Locality: "Sibiu", CompanyName: "Orange Romania", Address: "street Nicolae Iancu"},
		},
		{
			name:  "canonical beats alias",
			input: `{"location":"Brasov","locality":"Sibiu"}`,
			want:  CallerInfo{Locality: "Sibiu"},
		},
		{
			name:  "nulls numbers and string bools",
			input: `{"name":null,"streetNumber":12,"claimsCompanyAffiliation":"TRUE","unknown":"x"}`,
			want:  CallerInfo{StreetNumber: "12", ClaimsCompanyAffiliation: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got CallerInfo
			require.NoError(t, json.Unmarshal([]byte(tt.input), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCallerInfo_UnmarshalJSON_BadBool(t *testing.T) {
	var got CallerInfo
	err := json.Unmarshal([]byte(`{"claimsCompanyAffiliation":"maybe"}`), &got)
	assert.Error(t, err)
}

func TestCallerInfo_IsEmpty(t *testing.T) {
	assert.True(t, CallerInfo{}.IsEmpty())
	assert.False(t, CallerInfo{Name: "x"}.IsEmpty())
}

func TestKYCMatchRequest_Claims(t *testing.T) {
	req := KYCMatchRequest{PhoneNumber: "+40712345678", Name: "Ana", Address: "Str. Mare 1"}
	assert.Equal(t, map[string]string{"name": "Ana", "address": "Str. Mare 1"}, req.Claims())
}

func TestKYCMatchResult_OverallScore(t *testing.T) {
	tests := []struct {
		name   string
		result KYCMatchResult
		want   int
	}{
		{"no fields", KYCMatchResult{}, 50},
		{"all match", KYCMatchResult{Fields: map[string]MatchValue{"name": MatchTrue, "address": MatchTrue}}, 100},
		{"mixed", KYCMatchResult{Fields: map[string]MatchValue{"name": MatchTrue, "address": MatchNotAvailable}}, 75},
		{
			"mismatch with score",
			KYCMatchResult{
				Fields: map[string]MatchValue{"name": MatchFalse, "address": MatchFalse},
				Scores: map[string]int{"name": 80},
			},
			40,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.result.OverallScore())
		})
	}
}

func TestRiskLevelFor(t *testing.T) {
	cases := map[int]RiskLevel{1: RiskLow, 25: RiskLow, 26: RiskMedium, 50: RiskMedium, 51: RiskHigh, 75: RiskHigh, 76: RiskCritical, 100: RiskCritical}
	for score, want := range cases {
		assert.Equal(t, want, RiskLevelFor(score), "score %d", score)
	}
}
