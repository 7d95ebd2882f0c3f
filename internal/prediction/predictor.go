// internal/prediction/predictor.go
package prediction

import "github.com/wpitallo/crawlee/pkg/models"

// Prediction is the predictor's answer for one URL: the rendering type it
// expects, and the probability with which it recommends running an active
// detection probe on this request anyway.
type Prediction struct {
	RenderingType        models.RenderingType
	DetectionProbability float64
}

// Predictor is the learned model behind rendering-type decisions.
//
// Predict must always return and must be safe to call from many in-flight
// requests at once; StoreResult folds one labeled observation into the model
// and must likewise tolerate concurrent use. Implementations synchronize
// internally; callers never lock around them.
type Predictor interface {
	Predict(url string) Prediction
	StoreResult(url string, observed models.RenderingType)
}
