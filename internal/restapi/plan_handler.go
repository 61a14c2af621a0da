package restapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"grouptrip.org/internal/search"
)

const maxPlanBodyBytes = 1 << 20

type planResponse struct {
	CurrentTime int64                        `json:"currentTime"`
	Results     map[string]search.PathResult `json:"results"`
}

func (api *RestAPI) planHandler(w http.ResponseWriter, r *http.Request) {
	var req search.PlanRequest
	if err := decodeJSON(w, r, &req); err != nil {
		api.badRequestResponse(w, err.Error())
		return
	}

	results, err := api.Planner.ComputePaths(r.Context(), req)
	if err != nil {
		api.planErrorResponse(w, r, err)
		return
	}

	api.sendJSON(w, http.StatusOK, planResponse{
		CurrentTime: api.now().UnixMilli(),
		Results:     results,
	})
}

// decodeJSON reads exactly one JSON object with no unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPlanBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		var maxBytesErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return errors.New("request body must not be empty")
		case errors.As(err, &syntaxErr):
			return fmt.Errorf("malformed JSON at offset %d", syntaxErr.Offset)
		case errors.As(err, &typeErr):
			return fmt.Errorf("invalid value for field %q", typeErr.Field)
		case errors.As(err, &maxBytesErr):
			return fmt.Errorf("request body must not exceed %d bytes", maxBytesErr.Limit)
		default:
			return fmt.Errorf("invalid request body: %w", err)
		}
	}

	if dec.More() {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}
