package qualification

import (
	"encoding/json"
	"testing"
)

func TestNormalizePainLevelNumericPrecedence(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  PainLevel
	}{
		{"plain ten", "10", PainLevelEmergency},
		{"ten out of ten", "it's a 10 out of 10", PainLevelEmergency},
		{"nine", "probably a 9", PainLevelEmergency},
		{"eight", "8", PainLevelSevere},
		{"seven in sentence", "around 7 I think", PainLevelSevere},
		{"mixed digits favor higher bucket", "somewhere between 3 and 8", PainLevelSevere},
		{"five", "a 5", PainLevelModerate},
		{"two", "maybe a 2", PainLevelMild},
		{"zero", "0", PainLevelNone},
		{"no pain phrase", "no pain at all", PainLevelNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizePainLevel(tt.input); got != tt.want {
				t.Errorf("NormalizePainLevel(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizePainLevelDescriptive(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  PainLevel
	}{
		{"excruciating", "it's excruciating", PainLevelSevere},
		{"unbearable", "unbearable", PainLevelSevere},
		{"severe", "pretty severe", PainLevelSevere},
		{"moderate", "moderate discomfort", PainLevelModerate},
		{"strong", "a strong ache", PainLevelModerate},
		{"significant", "significant soreness", PainLevelModerate},
		{"mild", "just mild", PainLevelMild},
		{"slight", "a slight twinge", PainLevelMild},
		{"minor", "minor sensitivity", PainLevelMild},
		{"none word", "none really", PainLevelNone},
		{"no match", "hard to say", PainLevelUnset},
		{"empty", "", PainLevelUnset},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizePainLevel(tt.input); got != tt.want {
				t.Errorf("NormalizePainLevel(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizePainLevelNumericWinsOverDescriptive(t *testing.T) {
	// A digit mention beats a contradicting descriptive word.
	if got := NormalizePainLevel("severe, like an 8"); got != PainLevelSevere {
		t.Errorf("got %q, want %q", got, PainLevelSevere)
	}
	if got := NormalizePainLevel("mild but spikes to 9"); got != PainLevelEmergency {
		t.Errorf("got %q, want %q", got, PainLevelEmergency)
	}
}

func TestDeriveUrgencyTotal(t *testing.T) {
	tests := []struct {
		level PainLevel
		want  Urgency
	}{
		{PainLevelEmergency, UrgencyEmergency},
		{PainLevelSevere, UrgencyHigh},
		{PainLevelModerate, UrgencyMedium},
		{PainLevelMild, UrgencyLow},
		{PainLevelNone, UrgencyLow},
		{PainLevelUnset, UrgencyLow},
	}

	for _, tt := range tests {
		if got := DeriveUrgency(tt.level); got != tt.want {
			t.Errorf("DeriveUrgency(%q) = %q, want %q", tt.level, got, tt.want)
		}
	}
}

func TestPainLevelTagRoundTrip(t *testing.T) {
	levels := []PainLevel{
		PainLevelNone, PainLevelMild, PainLevelModerate, PainLevelSevere, PainLevelEmergency,
	}
	for _, level := range levels {
		parsed, ok := ParsePainLevel(string(level))
		if !ok || parsed != level {
			t.Errorf("ParsePainLevel(%q) = (%q, %v), want (%q, true)", level, parsed, ok, level)
		}
	}
	if _, ok := ParsePainLevel("3-5"); ok {
		t.Error("ParsePainLevel accepted an unknown tag")
	}
	if _, ok := ParsePainLevel(""); ok {
		t.Error("ParsePainLevel accepted the empty tag")
	}
}

func TestPainLevelSeverityOrdering(t *testing.T) {
	ordered := []PainLevel{
		PainLevelUnset, PainLevelNone, PainLevelMild, PainLevelModerate, PainLevelSevere, PainLevelEmergency,
	}
	for i := 1; i < len(ordered); i++ {
		if ordered[i-1].Severity() >= ordered[i].Severity() {
			t.Errorf("Severity(%q) >= Severity(%q)", ordered[i-1], ordered[i])
		}
	}
}

func TestRequiresEscalation(t *testing.T) {
	tests := []struct {
		name string
		data QualificationData
		want bool
	}{
		{"empty", QualificationData{}, false},
		{"emergency pain", QualificationData{PainLevel: PainLevelEmergency}, true},
		{"severe pain alone", QualificationData{PainLevel: PainLevelSevere}, false},
		{"swelling complaint", QualificationData{ChiefComplaint: "Facial Swelling on left side"}, true},
		{"fever complaint", QualificationData{ChiefComplaint: "toothache with fever"}, true},
		{"trauma complaint", QualificationData{ChiefComplaint: "trauma from a fall"}, true},
		{"bleeding complaint", QualificationData{ChiefComplaint: "gums bleeding"}, true},
		{"plain complaint", QualificationData{ChiefComplaint: "chipped tooth"}, false},
		{"indicators present", QualificationData{EmergencyIndicators: []string{"abscess"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.data.RequiresEscalation(); got != tt.want {
				t.Errorf("RequiresEscalation() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestQualificationDataJSONTags(t *testing.T) {
	data := QualificationData{
		ChiefComplaint: "toothache",
		PainLevel:      PainLevelSevere,
		Urgency:        UrgencyHigh,
	}
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["pain_level"] != "7-8" {
		t.Errorf("pain_level tag = %v, want 7-8", decoded["pain_level"])
	}
	if decoded["urgency"] != "high" {
		t.Errorf("urgency tag = %v, want high", decoded["urgency"])
	}
	if _, present := decoded["insurance_provider"]; present {
		t.Error("unset insurance_provider should be omitted")
	}
}

func TestCloneIsDeep(t *testing.T) {
	data := QualificationData{
		EmergencyIndicators: []string{"fever"},
		Allergies:           []string{"penicillin"},
	}
	copied := data.Clone()
	copied.EmergencyIndicators[0] = "changed"
	copied.Allergies = append(copied.Allergies, "latex")

	if data.EmergencyIndicators[0] != "fever" {
		t.Error("Clone shares emergency indicator backing array")
	}
	if len(data.Allergies) != 1 {
		t.Error("Clone shares allergies backing array")
	}
}
