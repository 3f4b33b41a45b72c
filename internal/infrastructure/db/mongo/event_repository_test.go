package mongo

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/dronewatch/drone-weather/internal/core/domain"
)

func TestEventDocument_RestoresPayloadVariant(t *testing.T) {
	occurred := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	env := domain.Envelope{
		ID:         "e1",
		Type:       domain.TypeWeatherDataReceived,
		OccurredAt: occurred,
		Payload: domain.WeatherDataReceived{Data: domain.Weather{
			WOEID:               2459115,
			Title:               "New York",
			ConsolidatedWeather: []domain.Forecast{{TheTemp: 21.5}},
		}},
	}

	doc, err := toEventDocument(env, occurred.Add(time.Second))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	// Round-trip through BSON as the driver would.
	raw, err := bson.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var stored eventDocument
	if err := bson.Unmarshal(raw, &stored); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	got, err := stored.envelope()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	data, ok := got.Payload.(domain.WeatherDataReceived)
	if !ok {
		t.Fatalf("expected WeatherDataReceived, got %T", got.Payload)
	}
	if cur, _ := data.Data.Current(); data.Data.Title != "New York" || cur.TheTemp != 21.5 {
		t.Errorf("unexpected payload: %+v", data)
	}
	if got.ID != "e1" || !got.OccurredAt.Equal(occurred) {
		t.Errorf("unexpected metadata: %+v", got)
	}
}

func TestEventDocument_APIErrorWithoutCode(t *testing.T) {
	doc, err := toEventDocument(domain.Envelope{ID: "e2", Type: domain.TypeAPIError, Payload: domain.APIError{}}, time.Now())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := doc.Payload.LookupErr("code"); err == nil {
		t.Error("expected code to be omitted")
	}

	got, err := doc.envelope()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ae, ok := got.Payload.(domain.APIError); !ok || ae.HasCode() {
		t.Errorf("unexpected payload: %+v", got.Payload)
	}
}

func TestEventDocument_UnknownType(t *testing.T) {
	doc := eventDocument{EventID: "x", Type: "NOPE"}
	if _, err := doc.envelope(); err == nil {
		t.Fatal("expected error for unknown type")
	}
}
