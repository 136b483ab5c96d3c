package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"floodwatch/internal/types"
)

// InferenceClient talks to the model-inference service hosting the trained
// flood classifiers. Each supported algorithm is exposed to the engine as a
// named scoring backend via RemoteBackend.
type InferenceClient struct {
	base    *BaseClient
	baseURL string
	apiKey  types.SecretString
}

// NewInferenceClient creates an InferenceClient.
func NewInferenceClient(httpClient *http.Client, baseURL string, apiKey types.SecretString, opts ...BaseClientOption) *InferenceClient {
	return &InferenceClient{
		base:    NewBaseClient(httpClient, "inference", DefaultRetryPolicy(), "floodwatch/1.0", opts...),
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

// predictRequest is the inference service's scoring payload.
type predictRequest struct {
	Algorithm string           `json:"algorithm"`
	Features  types.FeatureSet `json:"features"`
}

// predictResponse mirrors the inference service's scoring result.
type predictResponse struct {
	Probability         float64  `json:"probability"`
	SeverityLevel       int      `json:"severity_level"`
	HoursToFlood        *float64 `json:"hours_to_flood"`
	Impact              string   `json:"impact"`
	ContributingFactors []string `json:"contributing_factors"`
}

// Predict scores a FeatureSet with the named algorithm.
func (c *InferenceClient) Predict(ctx context.Context, algorithm string, features types.FeatureSet) (*types.RiskAssessment, error) {
	var out predictResponse
	err := c.post(ctx, "/v1/predict", predictRequest{Algorithm: algorithm, Features: features}, &out)
	if err != nil {
		return nil, err
	}

	band := types.RiskBand(out.SeverityLevel)
	return &types.RiskAssessment{
		Probability:         out.Probability,
		Band:                band,
		BandName:            band.String(),
		HoursToFlood:        out.HoursToFlood,
		Impact:              out.Impact,
		ContributingFactors: out.ContributingFactors,
		Source:              algorithm,
	}, nil
}

// affectedAreasRequest asks the inference service for its area prediction.
type affectedAreasRequest struct {
	MunicipalityID string  `json:"municipality_id,omitempty"`
	AreaID         string  `json:"area_id,omitempty"`
	Probability    float64 `json:"probability"`
}

type affectedAreaResponse struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Municipality      string `json:"municipality"`
	Population        int    `json:"population"`
	RiskLevel         string `json:"risk_level"`
	EvacuationCenters int    `json:"evacuation_centers"`
}

// PredictAffectedAreas asks the inference service which areas it expects to
// be affected. An empty answer advances the engine to its fallback chain.
func (c *InferenceClient) PredictAffectedAreas(ctx context.Context, scope types.LocationScope, probability float64) ([]types.AffectedArea, error) {
	req := affectedAreasRequest{Probability: probability}
	switch scope.Kind {
	case types.ScopeMunicipality:
		req.MunicipalityID = scope.MunicipalityID
	case types.ScopeArea:
		req.AreaID = scope.AreaID
	}

	var out []affectedAreaResponse
	if err := c.post(ctx, "/v1/affected-areas", req, &out); err != nil {
		return nil, err
	}

	areas := make([]types.AffectedArea, 0, len(out))
	for _, a := range out {
		areas = append(areas, types.AffectedArea{
			Area: types.Area{
				ID:               a.ID,
				Name:             a.Name,
				MunicipalityName: a.Municipality,
				Population:       a.Population,
			},
			RiskLevel:         types.AreaRiskLevel(a.RiskLevel),
			EvacuationCenters: a.EvacuationCenters,
		})
	}
	return areas, nil
}

func (c *InferenceClient) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "failed to encode inference request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "failed to build inference request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if key := c.apiKey.Unmask(); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	resp, err := c.base.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.NewAppError(
			types.ErrCodeBackendFailure,
			fmt.Sprintf("inference service returned %d", resp.StatusCode),
			nil,
		)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return types.NewAppError(types.ErrCodeBackendFailure, "failed to decode inference response", err)
	}
	return nil
}

// RemoteBackend adapts one inference-service algorithm to the engine's
// scoring backend contract.
type RemoteBackend struct {
	name   string
	client *InferenceClient
}

// NewRemoteBackend creates a backend for the named algorithm.
func NewRemoteBackend(name string, client *InferenceClient) *RemoteBackend {
	return &RemoteBackend{name: name, client: client}
}

// Name returns the backend's registry key.
func (b *RemoteBackend) Name() string { return b.name }

// Predict scores the features through the inference service.
func (b *RemoteBackend) Predict(ctx context.Context, features types.FeatureSet) (*types.RiskAssessment, error) {
	return b.client.Predict(ctx, b.name, features)
}

// KnownAlgorithms lists the algorithms the inference service hosts. Each is
// registered as a scoring backend at startup; the service tolerates any of
// them being absent at runtime.
var KnownAlgorithms = []string{"random_forest", "gradient_boosting", "logistic_regression"}
