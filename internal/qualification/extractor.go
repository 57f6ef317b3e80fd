package qualification

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/premierdental/nova-voice-ai/internal/llm"
	"github.com/premierdental/nova-voice-ai/pkg/logging"
)

// Extractor pulls structured qualification fields out of one utterance
// with a single model call. Extraction is fail-soft: any model or parse
// failure returns the input data unchanged.
type Extractor struct {
	client llm.Client
	model  string
	logger *logging.Logger
	tracer trace.Tracer
}

func NewExtractor(client llm.Client, model string, logger *logging.Logger) *Extractor {
	if client == nil {
		panic("qualification: llm client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Extractor{
		client: client,
		model:  model,
		logger: logger,
		tracer: otel.Tracer("nova.internal.qualification.extractor"),
	}
}

// extractedFields mirrors the JSON shape the model is instructed to
// return. Absent fields stay zero and are never applied.
type extractedFields struct {
	ChiefComplaint           string   `json:"chief_complaint"`
	PainLevel                string   `json:"pain_level"`
	InsuranceProvider        string   `json:"insurance_provider"`
	PreferredAppointmentTime string   `json:"preferred_appointment_time"`
	LastDentalVisit          string   `json:"last_dental_visit"`
	CurrentMedications       []string `json:"current_medications"`
	Allergies                []string `json:"allergies"`
	EmergencyIndicators      []string `json:"emergency_indicators"`
}

// Extract merges fields mentioned in the utterance into current and
// returns the result. Mentioned scalar and list fields replace prior
// values; emergency indicators accumulate across turns. Urgency is
// recomputed after every merge.
func (e *Extractor) Extract(ctx context.Context, utterance string, current QualificationData) QualificationData {
	ctx, span := e.tracer.Start(ctx, "qualification.extract",
		trace.WithAttributes(attribute.Int("utterance_length", len(utterance))))
	defer span.End()

	merged := current.Clone()

	currentJSON, err := json.Marshal(current)
	if err != nil {
		span.RecordError(err)
		e.logger.Error("failed to marshal current qualification data", "error", err)
		merged.Urgency = DeriveUrgency(merged.PainLevel)
		return merged
	}

	prompt := fmt.Sprintf(`Extract dental qualification information from this patient response: %q

Current data: %s

Extract and return JSON with any mentioned:
- chief_complaint: main dental issue/concern
- pain_level: scale 0-10 or descriptive (none/mild/moderate/severe/emergency)
- insurance_provider: dental insurance company name
- preferred_appointment_time: mentioned timeframe/preference
- last_dental_visit: when they last saw a dentist
- current_medications: medications mentioned
- allergies: allergies mentioned
- emergency_indicators: any urgent symptoms mentioned

Only include fields that are explicitly mentioned. Return valid JSON.`, utterance, currentJSON)

	resp, err := e.client.Complete(ctx, llm.Request{
		Model:       e.model,
		System:      []string{extractionSystemPrompt},
		Messages:    []llm.ChatMessage{{Role: llm.ChatRoleUser, Content: prompt}},
		MaxTokens:   200,
		Temperature: 0.1,
	})
	if err != nil {
		span.RecordError(err)
		e.logger.Warn("extraction model call failed, keeping current data", "error", err)
		merged.Urgency = DeriveUrgency(merged.PainLevel)
		return merged
	}

	var fields extractedFields
	if err := json.Unmarshal([]byte(stripCodeFences(resp.Text)), &fields); err != nil {
		span.RecordError(err)
		e.logger.Warn("extraction response was not valid JSON, keeping current data",
			"error", err)
		merged.Urgency = DeriveUrgency(merged.PainLevel)
		return merged
	}

	applyExtractedFields(&merged, fields)
	merged.Urgency = DeriveUrgency(merged.PainLevel)

	span.SetAttributes(
		attribute.String("pain_level", string(merged.PainLevel)),
		attribute.String("urgency", string(merged.Urgency)),
	)
	return merged
}

func applyExtractedFields(data *QualificationData, fields extractedFields) {
	if v := strings.TrimSpace(fields.ChiefComplaint); v != "" {
		data.ChiefComplaint = v
	}
	if v := strings.TrimSpace(fields.PainLevel); v != "" {
		// An unrecognized description never clears a known level.
		if level := NormalizePainLevel(v); level != PainLevelUnset {
			data.PainLevel = level
		}
	}
	if v := strings.TrimSpace(fields.InsuranceProvider); v != "" {
		data.InsuranceProvider = v
	}
	if v := strings.TrimSpace(fields.PreferredAppointmentTime); v != "" {
		data.PreferredAppointmentTime = v
	}
	if v := strings.TrimSpace(fields.LastDentalVisit); v != "" {
		data.LastDentalVisit = v
	}
	if len(fields.CurrentMedications) > 0 {
		data.CurrentMedications = append([]string(nil), fields.CurrentMedications...)
	}
	if len(fields.Allergies) > 0 {
		data.Allergies = append([]string(nil), fields.Allergies...)
	}
	for _, indicator := range fields.EmergencyIndicators {
		indicator = strings.TrimSpace(indicator)
		if indicator == "" || containsFold(data.EmergencyIndicators, indicator) {
			continue
		}
		data.EmergencyIndicators = append(data.EmergencyIndicators, indicator)
	}
}

func containsFold(list []string, target string) bool {
	for _, item := range list {
		if strings.EqualFold(item, target) {
			return true
		}
	}
	return false
}

// stripCodeFences unwraps ```json ... ``` blocks some models emit
// despite the JSON-only instruction.
func stripCodeFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
