// Curatus - Personal Media Recommendation and Taste Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curatus

package watchprov

import (
	"context"
	"fmt"
	"net/http"

	json "github.com/goccy/go-json"

	"github.com/tomtom215/curatus/internal/models"
	"github.com/tomtom215/curatus/internal/recerr"
)

// listPayload is the create/update request body.
type listPayload struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Privacy     string `json:"privacy,omitempty"`
}

// itemsPayload carries item references for add/remove calls.
type itemsPayload struct {
	Movies []itemIDs `json:"movies,omitempty"`
	Shows  []itemIDs `json:"shows,omitempty"`
}

type itemIDs struct {
	IDs IDs `json:"ids"`
}

// GetLists returns the authenticated user's lists.
func (c *Client) GetLists(ctx context.Context) ([]List, error) {
	const op = "watchprov.GetLists"
	var lists []List
	err := c.get(ctx, op, "/users/me/lists", &lists)
	return lists, err
}

// CreateList creates a personal list and returns it with its assigned
// provider identifiers.
func (c *Client) CreateList(ctx context.Context, name, description string) (*List, error) {
	const op = "watchprov.CreateList"
	if name == "" {
		return nil, recerr.Input(op, "list name is required")
	}
	body, err := c.do(ctx, op, http.MethodPost, "/users/me/lists", listPayload{
		Name:        name,
		Description: description,
		Privacy:     "private",
	})
	if err != nil {
		return nil, err
	}
	var created List
	if err := json.Unmarshal(body, &created); err != nil {
		return nil, recerr.Internal(op, err)
	}
	return &created, nil
}

// UpdateList changes the name or description of an existing list.
func (c *Client) UpdateList(ctx context.Context, listID int64, name, description string) error {
	const op = "watchprov.UpdateList"
	if listID == 0 {
		return recerr.Input(op, "list id is required")
	}
	_, err := c.do(ctx, op, http.MethodPut, listPath(listID), listPayload{
		Name:        name,
		Description: description,
	})
	return err
}

// DeleteList removes a list. Deleting a list that no longer exists is
// not an error.
func (c *Client) DeleteList(ctx context.Context, listID int64) error {
	const op = "watchprov.DeleteList"
	if listID == 0 {
		return recerr.Input(op, "list id is required")
	}
	_, err := c.do(ctx, op, http.MethodDelete, listPath(listID), nil)
	if recerr.IsKind(err, recerr.KindNotFound) {
		return nil
	}
	return err
}

// AddListItems appends catalog items to a list.
func (c *Client) AddListItems(ctx context.Context, listID int64, keys []models.CandidateKey) error {
	const op = "watchprov.AddListItems"
	if listID == 0 {
		return recerr.Input(op, "list id is required")
	}
	if len(keys) == 0 {
		return nil
	}
	_, err := c.do(ctx, op, http.MethodPost, listPath(listID)+"/items", keysPayload(keys))
	return err
}

// RemoveListItems removes catalog items from a list.
func (c *Client) RemoveListItems(ctx context.Context, listID int64, keys []models.CandidateKey) error {
	const op = "watchprov.RemoveListItems"
	if listID == 0 {
		return recerr.Input(op, "list id is required")
	}
	if len(keys) == 0 {
		return nil
	}
	_, err := c.do(ctx, op, http.MethodPost, listPath(listID)+"/items/remove", keysPayload(keys))
	return err
}

// GetListItems returns the items on a list in list order.
func (c *Client) GetListItems(ctx context.Context, listID int64) ([]ListItem, error) {
	const op = "watchprov.GetListItems"
	if listID == 0 {
		return nil, recerr.Input(op, "list id is required")
	}
	var items []ListItem
	err := c.get(ctx, op, listPath(listID)+"/items", &items)
	return items, err
}

// keysPayload groups candidate keys into the provider's movies/shows
// item shape, identified by TMDB id.
func keysPayload(keys []models.CandidateKey) itemsPayload {
	var p itemsPayload
	for _, k := range keys {
		entry := itemIDs{IDs: IDs{TMDB: k.TMDBID}}
		if k.MediaType == models.MediaTypeShow {
			p.Shows = append(p.Shows, entry)
		} else {
			p.Movies = append(p.Movies, entry)
		}
	}
	return p
}

func listPath(listID int64) string {
	return fmt.Sprintf("/users/me/lists/%d", listID)
}
