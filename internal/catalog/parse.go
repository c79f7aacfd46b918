package catalog

import (
	"encoding/json"
	"errors"

	"github.com/lehigh-university-libraries/marvelous/internal/models"
)

// ParseCharacterResponse classifies an OK response body. An error body
// carrying both code and message yields a remote error; anything that does
// not decode into a complete envelope yields a decode error.
func ParseCharacterResponse(body []byte) (*models.CatalogResponse, error) {
	var errResp models.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Code != nil && errResp.Message != nil {
		return nil, &Error{
			Kind:    KindRemote,
			Code:    string(*errResp.Code),
			Message: *errResp.Message,
		}
	}

	var resp *models.CatalogResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, decodeError(err)
	}
	if resp == nil {
		return nil, decodeError(errors.New("unexpected null result processing JSON"))
	}
	if resp.Data == nil {
		return nil, decodeError(errors.New("response has no data container"))
	}
	if resp.Data.Results == nil {
		resp.Data.Results = []models.Record{}
	}
	return resp, nil
}
