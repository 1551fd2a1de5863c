package sdk

import (
	"errors"
	"fmt"

	"github.com/imroc/req/v3"
)

var (
	ErrNoServerURL  = errors.New("sdk: server url missing")
	ErrAccessDenied = errors.New("sdk: access denied, check the api key")
	ErrNotFound     = errors.New("sdk: not found")
)

// StaleError is returned by Upload when the server refuses a save older
// than (or as old as) its stored copy and force was not set.
type StaleError struct {
	ServerTimestamp string
	ServerHash      string
}

func (e *StaleError) Error() string {
	return fmt.Sprintf("sdk: server has a newer or equal save (timestamp=%s)", e.ServerTimestamp)
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"error"`
}

// handleAPIError folds transport errors and API error responses into one
// error value.
func handleAPIError(resp *req.Response, err error, op string) error {
	if err != nil {
		return fmt.Errorf("sdk: %s: %w", op, err)
	}
	if !resp.IsErrorState() {
		return nil
	}

	switch resp.GetStatusCode() {
	case 401:
		return ErrAccessDenied
	case 404:
		return ErrNotFound
	case 409:
		return &StaleError{
			ServerTimestamp: resp.GetHeader("X-Server-Timestamp"),
			ServerHash:      resp.GetHeader("X-Server-Hash"),
		}
	}

	var apiErr apiError
	if body, readErr := resp.ToBytes(); readErr == nil && len(body) > 0 {
		if jsonUnmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("sdk: %s: %s (%s)", op, apiErr.Message, apiErr.Code)
		}
	}

	return fmt.Errorf("sdk: %s: status %d", op, resp.GetStatusCode())
}
