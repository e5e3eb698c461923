package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"inkwell/internal/gateway"
	"inkwell/internal/models"
)

const pgrstObjectJSON = "application/vnd.pgrst.object+json"

// Select runs a filtered, ordered, optionally ranged query and returns the
// raw row array plus the exact total when requested.
func (c *Client) Select(ctx context.Context, table string, q gateway.Query) (json.RawMessage, int64, error) {
	query := url.Values{"select": {"*"}}
	for col, val := range q.Filters {
		query.Set(col, "eq."+val)
	}
	if q.OrderBy != "" {
		dir := "asc"
		if q.Descending {
			dir = "desc"
		}
		query.Set("order", q.OrderBy+"."+dir)
	}

	headers := map[string]string{}
	if q.Ranged {
		headers["Range-Unit"] = "items"
		headers["Range"] = fmt.Sprintf("%d-%d", q.From, q.To)
	}
	if q.Count {
		headers["Prefer"] = "count=exact"
	}

	resp, err := c.do(ctx, http.MethodGet, "/rest/v1/"+table, query, headers, nil)
	if err != nil {
		return nil, 0, models.NewGatewayError("select "+table, err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return nil, 0, apiError("select "+table, resp)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, models.NewGatewayError("select "+table, err)
	}
	count := int64(-1)
	if q.Count {
		count = parseContentRangeTotal(resp.Header.Get("Content-Range"))
	}
	return body, count, nil
}

// SelectByID fetches exactly one row.
func (c *Client) SelectByID(ctx context.Context, table, id string) (json.RawMessage, error) {
	query := url.Values{"select": {"*"}, "id": {"eq." + id}}
	headers := map[string]string{"Accept": pgrstObjectJSON}

	resp, err := c.do(ctx, http.MethodGet, "/rest/v1/"+table, query, headers, nil)
	if err != nil {
		return nil, models.NewGatewayError("select "+table, err)
	}
	// PostgREST answers 406 when the singular Accept matches zero rows.
	if resp.StatusCode == http.StatusNotAcceptable || resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, gateway.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apiError("select "+table, resp)
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// Insert creates one row and returns the canonical representation the
// backend assigned (id, timestamps).
func (c *Client) Insert(ctx context.Context, table string, values any) (json.RawMessage, error) {
	payload, err := json.Marshal(values)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	headers := map[string]string{
		"Prefer": "return=representation",
		"Accept": pgrstObjectJSON,
	}
	resp, err := c.do(ctx, http.MethodPost, "/rest/v1/"+table, nil, headers, bytes.NewReader(payload))
	if err != nil {
		return nil, models.NewGatewayError("insert "+table, err)
	}
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, apiError("insert "+table, resp)
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// Update patches one row by id and returns its new representation.
func (c *Client) Update(ctx context.Context, table, id string, values any) (json.RawMessage, error) {
	payload, err := json.Marshal(values)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	query := url.Values{"id": {"eq." + id}}
	headers := map[string]string{
		"Prefer": "return=representation",
		"Accept": pgrstObjectJSON,
	}
	resp, err := c.do(ctx, http.MethodPatch, "/rest/v1/"+table, query, headers, bytes.NewReader(payload))
	if err != nil {
		return nil, models.NewGatewayError("update "+table, err)
	}
	if resp.StatusCode == http.StatusNotAcceptable || resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, gateway.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apiError("update "+table, resp)
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// Delete removes one row by id. Deleting a row that no longer exists returns
// gateway.ErrNotFound so callers can treat it as idempotent.
func (c *Client) Delete(ctx context.Context, table, id string) error {
	query := url.Values{"id": {"eq." + id}}
	headers := map[string]string{"Prefer": "return=representation"}
	resp, err := c.do(ctx, http.MethodDelete, "/rest/v1/"+table, query, headers, nil)
	if err != nil {
		return models.NewGatewayError("delete "+table, err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return apiError("delete "+table, resp)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.NewGatewayError("delete "+table, err)
	}
	if strings.TrimSpace(string(body)) == "[]" {
		return gateway.ErrNotFound
	}
	return nil
}

// parseContentRangeTotal extracts the total from a "from-to/total" or
// "*/total" Content-Range header. Returns -1 when absent or malformed.
func parseContentRangeTotal(header string) int64 {
	_, total, found := strings.Cut(header, "/")
	if !found || total == "*" {
		return -1
	}
	n, err := strconv.ParseInt(total, 10, 64)
	if err != nil {
		return -1
	}
	return n
}
