package kpa

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/alfredjeanlab/kpatap/internal/model"
)

// ListForms returns every form visible to the token. A failure here is fatal
// for the whole run: no form stream can be discovered without it.
func (c *Client) ListForms(ctx context.Context) ([]model.Form, error) {
	body, err := c.do(ctx, "/forms.list", nil)
	if err != nil {
		return nil, fmt.Errorf("listing forms: %w", err)
	}
	var resp struct {
		Forms []model.Form `json:"forms"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding forms.list response: %w", err)
	}
	return resp.Forms, nil
}

// FormFields fetches the current field metadata for one form.
func (c *Client) FormFields(ctx context.Context, formID model.ID) ([]model.Field, error) {
	body, err := c.do(ctx, "/forms.info", map[string]any{"form_id": formID})
	if err != nil {
		return nil, fmt.Errorf("fetching fields for form %s: %w", formID, err)
	}
	var resp struct {
		Form struct {
			Latest struct {
				Fields []model.Field `json:"fields"`
			} `json:"latest"`
		} `json:"form"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding forms.info response: %w", err)
	}
	return resp.Form.Latest.Fields, nil
}

// ListResponses fetches one page of response summaries for a form. A zero
// page requests the implicit first page without a page parameter. A positive
// updatedAfter (epoch millis) bounds the query to newer records. It returns
// the page's summaries and the server-reported last page number.
func (c *Client) ListResponses(ctx context.Context, formID model.ID, page int, updatedAfter int64) ([]model.ResponseSummary, int, error) {
	payload := map[string]any{"form_id": formID}
	if page > 0 {
		payload["page"] = page
	}
	if updatedAfter > 0 {
		payload["updated_after"] = updatedAfter
	}

	body, err := c.do(ctx, "/responses.list", payload)
	if err != nil {
		return nil, 0, fmt.Errorf("listing responses for form %s: %w", formID, err)
	}
	var resp struct {
		Paging struct {
			LastPage int `json:"last_page"`
		} `json:"paging"`
		Responses []model.ResponseSummary `json:"responses"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, 0, fmt.Errorf("decoding responses.list response: %w", err)
	}
	return resp.Responses, resp.Paging.LastPage, nil
}

// GetResponse fetches the full detail payload for one response. Unpaginated:
// one identifier, one request.
func (c *Client) GetResponse(ctx context.Context, formID model.ID, responseID int64) (*model.ResponseDetail, error) {
	body, err := c.do(ctx, "/responses.info", map[string]any{
		"form_id":     formID,
		"response_id": responseID,
	})
	if err != nil {
		return nil, fmt.Errorf("fetching response %d for form %s: %w", responseID, formID, err)
	}
	var resp struct {
		Response model.ResponseDetail `json:"response"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding responses.info response: %w", err)
	}
	return &resp.Response, nil
}

// ListRoles returns the raw records from roles.list.
func (c *Client) ListRoles(ctx context.Context) ([]model.Record, error) {
	return c.listStatic(ctx, "/roles.list", "roles")
}

// ListUsers returns the raw records from users.list.
func (c *Client) ListUsers(ctx context.Context) ([]model.Record, error) {
	return c.listStatic(ctx, "/users.list", "users")
}

// ListLinesOfBusiness returns the raw records from linesofbusiness.list.
func (c *Client) ListLinesOfBusiness(ctx context.Context) ([]model.Record, error) {
	return c.listStatic(ctx, "/linesofbusiness.list", "linesofbusiness")
}

// listStatic fetches a fixed single-shot list endpoint whose records are
// keyed under key in the response envelope.
func (c *Client) listStatic(ctx context.Context, path, key string) ([]model.Record, error) {
	body, err := c.do(ctx, path, nil)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", key, err)
	}
	var resp map[string]json.RawMessage
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding %s response: %w", path, err)
	}
	raw, ok := resp[key]
	if !ok {
		return nil, nil
	}
	var records []model.Record
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decoding %s records: %w", path, err)
	}
	return records, nil
}
