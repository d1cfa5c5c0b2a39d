package marketo

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/Sternrassler/marketo-client/pkg/client"
	"github.com/Sternrassler/marketo-client/pkg/pagination"
)

// StaticList is a static list asset.
type StaticList struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   string    `json:"createdAt,omitempty"`
	UpdatedAt   string    `json:"updatedAt,omitempty"`
	URL         string    `json:"url,omitempty"`
	Folder      FolderRef `json:"folder"`
	Workspace   string    `json:"workspace,omitempty"`
	ComputedURL string    `json:"computedUrl,omitempty"`
}

// Folder identifies the folder or program a new asset is created in.
type Folder struct {
	ID   int64  `json:"id"`
	Type string `json:"type"` // "Folder" or "Program"
}

// Lead is a lead record as returned by list membership reads.
type Lead struct {
	ID        int64  `json:"id"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// RecordStatus is the per-record outcome of a write.
type RecordStatus struct {
	ID          int64                   `json:"id,omitempty"`
	MarketoGUID string                  `json:"marketoGUID,omitempty"`
	Seq         int                     `json:"seq"`
	Status      string                  `json:"status"`
	Reasons     []client.APIErrorDetail `json:"reasons,omitempty"`
}

// Record write statuses.
const (
	StatusCreated = "created"
	StatusUpdated = "updated"
	StatusDeleted = "deleted"
	StatusAdded   = "added"
	StatusRemoved = "removed"
	StatusSkipped = "skipped"
)

// StaticListService manages static lists and their membership.
type StaticListService struct {
	service
}

// All reads the static lists at the five fixed offsets concurrently and
// returns them sorted by case-insensitive name.
func (s *StaticListService) All(ctx context.Context) pagination.AggregatedResult[StaticList] {
	return pagination.FanOut(ctx, pagination.DefaultOffsets, s.offsetPage,
		pagination.CompareNameFold(func(l StaticList) string { return l.Name }, func(l StaticList) int64 { return l.ID }))
}

func (s *StaticListService) offsetPage(ctx context.Context, offset int) ([]StaticList, error) {
	resp, err := s.get(ctx, "/asset/v1/staticLists.json", offsetQuery(offset))
	if err != nil {
		return nil, fmt.Errorf("get static lists: %w", err)
	}
	return results[StaticList](resp)
}

// ByID returns the static list with the given ID.
func (s *StaticListService) ByID(ctx context.Context, id int64) (*StaticList, error) {
	resp, err := s.get(ctx, pathf("/asset/v1/staticList/%s.json", id), nil)
	if err != nil {
		return nil, fmt.Errorf("get static list %d: %w", id, err)
	}

	list, err := first[StaticList](resp)
	if err != nil {
		return nil, fmt.Errorf("static list %d: %w", id, err)
	}
	return list, nil
}

// ByName returns the static list with the given name.
func (s *StaticListService) ByName(ctx context.Context, name string) (*StaticList, error) {
	resp, err := s.get(ctx, "/asset/v1/staticList/byName.json", url.Values{"name": {name}})
	if err != nil {
		return nil, fmt.Errorf("get static list %q: %w", name, err)
	}

	list, err := first[StaticList](resp)
	if err != nil {
		return nil, fmt.Errorf("static list %q: %w", name, err)
	}
	return list, nil
}

// Create creates a static list in folder.
func (s *StaticListService) Create(ctx context.Context, name string, folder Folder, description string) (*StaticList, error) {
	if folder.Type == "" {
		folder.Type = "Folder"
	}
	body := map[string]any{
		"name":   name,
		"folder": folder,
	}
	if description != "" {
		body["description"] = description
	}

	resp, err := s.postJSON(ctx, "/asset/v1/staticLists.json", body, nil)
	if err != nil {
		return nil, fmt.Errorf("create static list %q: %w", name, err)
	}

	list, err := first[StaticList](resp)
	if err != nil {
		return nil, fmt.Errorf("create static list %q: %w", name, err)
	}

	s.logger.Info().Int64("list_id", list.ID).Str("name", name).Msg("Static list created")
	return list, nil
}

// Delete deletes the static list with the given ID.
func (s *StaticListService) Delete(ctx context.Context, id int64) error {
	if _, err := s.post(ctx, pathf("/asset/v1/staticList/%s/delete.json", id), nil); err != nil {
		return fmt.Errorf("delete static list %d: %w", id, err)
	}

	s.logger.Info().Int64("list_id", id).Msg("Static list deleted")
	return nil
}

// Leads reads one page of list members starting at token. An empty token
// reads the first page.
func (s *StaticListService) Leads(ctx context.Context, listID int64, token string) (pagination.Page[Lead], error) {
	var query url.Values
	if token != "" {
		query = url.Values{"nextPageToken": {token}}
	}

	resp, err := s.get(ctx, pathf("/v1/lists/%s/leads.json", listID), query)
	if err != nil {
		return pagination.Page[Lead]{}, fmt.Errorf("get leads of list %d: %w", listID, err)
	}

	leads, err := results[Lead](resp)
	if err != nil {
		return pagination.Page[Lead]{}, err
	}
	return pagination.Page[Lead]{
		Records:       leads,
		NextPageToken: resp.NextPageToken,
		MoreResult:    resp.MoreResult,
	}, nil
}

// AddLeads adds leads to a static list.
func (s *StaticListService) AddLeads(ctx context.Context, listID int64, leadIDs []int64) ([]RecordStatus, error) {
	input := make([]map[string]int64, len(leadIDs))
	for i, id := range leadIDs {
		input[i] = map[string]int64{"id": id}
	}

	resp, err := s.postJSON(ctx, pathf("/v1/lists/%s/leads.json", listID), map[string]any{"input": input}, nil)
	if err != nil {
		return nil, fmt.Errorf("add leads to list %d: %w", listID, err)
	}
	return results[RecordStatus](resp)
}

// RemoveLeads removes leads from a static list.
func (s *StaticListService) RemoveLeads(ctx context.Context, listID int64, leadIDs []int64) ([]RecordStatus, error) {
	ids := make([]string, len(leadIDs))
	for i, id := range leadIDs {
		ids[i] = fmt.Sprint(id)
	}

	resp, err := s.delete(ctx, pathf("/v1/lists/%s/leads.json", listID), url.Values{"id": {strings.Join(ids, ",")}})
	if err != nil {
		return nil, fmt.Errorf("remove leads from list %d: %w", listID, err)
	}
	return results[RecordStatus](resp)
}
