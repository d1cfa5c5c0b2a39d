package marketo

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Sternrassler/marketo-client/pkg/pagination"
)

// Activity is one lead activity record.
type Activity struct {
	ID                      int64               `json:"id"`
	MarketoGUID             string              `json:"marketoGUID"`
	LeadID                  int64               `json:"leadId"`
	ActivityDate            time.Time           `json:"activityDate"`
	ActivityTypeID          int                 `json:"activityTypeId"`
	CampaignID              int64               `json:"campaignId,omitempty"`
	PrimaryAttributeValueID int64               `json:"primaryAttributeValueId,omitempty"`
	PrimaryAttributeValue   string              `json:"primaryAttributeValue,omitempty"`
	Attributes              []ActivityAttribute `json:"attributes,omitempty"`
}

// ActivityAttribute is a name/value pair attached to an activity.
type ActivityAttribute struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// ActivityType describes one activity type of the instance.
type ActivityType struct {
	ID               int                     `json:"id"`
	Name             string                  `json:"name"`
	Description      string                  `json:"description,omitempty"`
	PrimaryAttribute *ActivityTypeAttribute  `json:"primaryAttribute,omitempty"`
	Attributes       []ActivityTypeAttribute `json:"attributes,omitempty"`
}

// ActivityTypeAttribute is the schema of one activity attribute.
type ActivityTypeAttribute struct {
	Name     string `json:"name"`
	DataType string `json:"dataType"`
}

// ActivityService reads lead activities.
type ActivityService struct {
	service
}

// PagingToken returns the paging token that starts reading at since.
func (s *ActivityService) PagingToken(ctx context.Context, since time.Time) (string, error) {
	query := url.Values{"sinceDatetime": {since.UTC().Format(time.RFC3339)}}

	resp, err := s.get(ctx, "/v1/activities/pagingtoken.json", query)
	if err != nil {
		return "", fmt.Errorf("get paging token: %w", err)
	}
	if resp.NextPageToken == "" {
		return "", fmt.Errorf("get paging token: empty token")
	}
	return resp.NextPageToken, nil
}

// Page reads one page of activities for leadIDs starting at token.
// activityTypeIDs is a comma-separated list of activity type IDs.
func (s *ActivityService) Page(ctx context.Context, token string, leadIDs []string, activityTypeIDs string) (pagination.Page[Activity], error) {
	query := url.Values{"nextPageToken": {token}}
	if len(leadIDs) > 0 {
		query.Set("leadIds", strings.Join(leadIDs, ","))
	}
	if activityTypeIDs != "" {
		query.Set("activityTypeIds", activityTypeIDs)
	}

	resp, err := s.get(ctx, "/v1/activities.json", query)
	if err != nil {
		return pagination.Page[Activity]{}, fmt.Errorf("get activities: %w", err)
	}

	records, err := results[Activity](resp)
	if err != nil {
		return pagination.Page[Activity]{}, err
	}

	return pagination.Page[Activity]{
		Records:       records,
		NextPageToken: resp.NextPageToken,
		MoreResult:    resp.MoreResult,
	}, nil
}

// ForLeads reads all activities of the given types for leadIDs since the
// given time. Lead IDs are sent in batches of at most 30 and each batch is
// paged up to the follow-up ceiling. Failures are reported through the
// result's Success and Err; records read before a failure are kept.
func (s *ActivityService) ForLeads(ctx context.Context, leadIDs pagination.IDSet, activityTypeIDs string, since time.Time) pagination.AggregatedResult[Activity] {
	fetch := func(ctx context.Context, token string, batch []string, filter string) (pagination.Page[Activity], error) {
		if token == "" {
			var err error
			token, err = s.PagingToken(ctx, since)
			if err != nil {
				return pagination.Page[Activity]{}, err
			}
		}
		return s.Page(ctx, token, batch, filter)
	}

	result := pagination.FetchBatched(ctx, leadIDs, activityTypeIDs, fetch)

	s.logger.Debug().
		Int("leads", leadIDs.Len()).
		Int("activities", len(result.Result)).
		Bool("success", result.Success).
		Msg("Lead activities read")

	return result
}

// Types lists the activity types of the instance.
func (s *ActivityService) Types(ctx context.Context) ([]ActivityType, error) {
	resp, err := s.get(ctx, "/v1/activities/types.json", nil)
	if err != nil {
		return nil, fmt.Errorf("get activity types: %w", err)
	}
	return results[ActivityType](resp)
}
