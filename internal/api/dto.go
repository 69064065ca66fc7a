package api

// PredictRequest asks for one batch prediction against a model. Inputs
// bind to the network's input layers positionally, matching the order
// the model declares them.
type PredictRequest struct {
	Model  string         `json:"model"`
	Inputs []InputPayload `json:"inputs"`
}

// InputPayload carries the dense values for one input layer. Values
// holds one row per example; every row must have x*y*z entries, and the
// number of rows must equal the network's batch size.
type InputPayload struct {
	Name   string      `json:"name"`
	X      uint32      `json:"x"`
	Y      uint32      `json:"y,omitempty"`
	Z      uint32      `json:"z,omitempty"`
	Values [][]float32 `json:"values"`
}

// PredictResponse returns the populated outputs of one prediction.
type PredictResponse struct {
	ID        string          `json:"id"`
	Object    string          `json:"object"`
	Model     string          `json:"model"`
	CreatedAt int64           `json:"created_at"`
	BatchSize uint32          `json:"batch_size"`
	K         uint32          `json:"k,omitempty"`
	Outputs   []OutputPayload `json:"outputs"`
}

// OutputPayload carries the result for one output layer: either the
// full values (one row per example), or ranked top-k indices and scores
// per example when the network runs in top-k mode.
type OutputPayload struct {
	Name    string      `json:"name"`
	X       uint32      `json:"x"`
	Y       uint32      `json:"y,omitempty"`
	Z       uint32      `json:"z,omitempty"`
	Values  [][]float32 `json:"values,omitempty"`
	Indices [][]uint32  `json:"indices,omitempty"`
	Scores  [][]float32 `json:"scores,omitempty"`
}

// ModelList is the response of GET /v1/models.
type ModelList struct {
	Object string      `json:"object"`
	Data   []ModelInfo `json:"data"`
}

type ModelInfo struct {
	ID     string `json:"id"`
	Object string `json:"object"`
}

type errorBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}
