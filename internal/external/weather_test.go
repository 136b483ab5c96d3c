package external

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetchCurrent(t *testing.T) {
	var gotQuery map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotQuery = map[string]string{
			"latitude":  q.Get("latitude"),
			"longitude": q.Get("longitude"),
			"current":   q.Get("current"),
			"timezone":  q.Get("timezone"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"current":{"temperature_2m":30.2,"relative_humidity_2m":84,"precipitation":6.5}}`))
	}))
	defer server.Close()

	client := NewWeatherClient(server.Client(), server.URL)
	got, err := client.FetchCurrent(context.Background(), 14.5995, 120.9842)
	if err != nil {
		t.Fatalf("FetchCurrent() error: %v", err)
	}

	if gotQuery["latitude"] != "14.5995" || gotQuery["longitude"] != "120.9842" {
		t.Errorf("coordinates = %s,%s", gotQuery["latitude"], gotQuery["longitude"])
	}
	if gotQuery["current"] != "temperature_2m,relative_humidity_2m,precipitation" {
		t.Errorf("current fields = %q", gotQuery["current"])
	}
	if gotQuery["timezone"] != "UTC" {
		t.Errorf("timezone = %q", gotQuery["timezone"])
	}

	if got.Temperature != 30.2 || got.Humidity != 84 || got.Precipitation != 6.5 {
		t.Errorf("conditions = %+v", got)
	}
}

func TestFetchCurrent_NonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewWeatherClient(server.Client(), server.URL)
	if _, err := client.FetchCurrent(context.Background(), 0, 0); err == nil {
		t.Fatal("expected an error for a non-200 response")
	}
}

func TestFetchCurrent_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{`))
	}))
	defer server.Close()

	client := NewWeatherClient(server.Client(), server.URL)
	if _, err := client.FetchCurrent(context.Background(), 0, 0); err == nil {
		t.Fatal("expected an error for a malformed body")
	}
}
