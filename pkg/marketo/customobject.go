package marketo

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/Sternrassler/marketo-client/pkg/cache"
)

// Record is one custom object record.
type Record map[string]any

// Filter is a structured query over one or more key fields, used for
// compound keys that flat filter values cannot express.
type Filter struct {
	// Type is the filter field. Empty uses the object's idField.
	Type  string
	Input []map[string]any
}

// Criteria selects custom object records. Either Filter is set, or Values
// holds flat values of the field named by Type.
type Criteria struct {
	Filter *Filter
	Type   string
	Values []string
}

// ByValues selects records whose filterType field matches one of values.
// An empty filterType uses the object's idField; any other must be a
// single-field searchable key.
func ByValues(filterType string, values ...string) Criteria {
	return Criteria{Type: filterType, Values: values}
}

// ByFilter selects records with a structured filter.
func ByFilter(filter Filter) Criteria {
	return Criteria{Filter: &filter}
}

// CustomObjectService describes, queries and writes custom objects.
type CustomObjectService struct {
	service
	cache *cache.DescriptionCache
}

// Describe returns the schema of custom object name. Descriptions are fetched
// once per cache and reused afterwards.
func (s *CustomObjectService) Describe(ctx context.Context, name string) (*cache.Description, error) {
	return s.cache.GetOrFetch(ctx, name, s.describe)
}

func (s *CustomObjectService) describe(ctx context.Context, name string) (*cache.Description, error) {
	resp, err := s.get(ctx, pathf("/v1/customobjects/%s/describe.json", name), nil)
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", name, err)
	}

	desc, err := first[cache.Description](resp)
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", name, err)
	}

	s.logger.Debug().Str("object", name).Int("fields", len(desc.Fields)).Msg("Custom object described")
	return desc, nil
}

// Query reads the records of custom object name matching criteria. fields
// defaults to every described field.
func (s *CustomObjectService) Query(ctx context.Context, name string, criteria Criteria, fields []string) ([]Record, error) {
	desc, err := s.Describe(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		fields = desc.FieldNames()
	}

	path := pathf("/v1/customobjects/%s.json", name)

	if criteria.Filter != nil {
		filterType := criteria.Filter.Type
		if filterType == "" {
			filterType = desc.IDField
		}
		body := map[string]any{
			"filterType": filterType,
			"fields":     fields,
			"input":      criteria.Filter.Input,
		}

		resp, err := s.postJSON(ctx, path, body, url.Values{"_method": {"GET"}})
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", name, err)
		}
		return results[Record](resp)
	}

	filterType := criteria.Type
	if filterType == "" {
		filterType = desc.IDField
	}
	if filterType != desc.IDField && !desc.IsSearchable(filterType) {
		return nil, fmt.Errorf("query %s: %q: %w", name, filterType, ErrNotSearchable)
	}
	query := url.Values{
		"filterType":   {filterType},
		"filterValues": {strings.Join(criteria.Values, ",")},
		"fields":       {strings.Join(fields, ",")},
	}

	resp, err := s.get(ctx, path, query)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", name, err)
	}
	return results[Record](resp)
}

// CreateOrUpdate upserts records of custom object name, deduplicated by the
// object's dedupe fields.
func (s *CustomObjectService) CreateOrUpdate(ctx context.Context, name string, records []Record) ([]RecordStatus, error) {
	query := url.Values{
		"action":   {"createOrUpdate"},
		"dedupeBy": {"dedupeFields"},
	}

	resp, err := s.postJSON(ctx, pathf("/v1/customobjects/%s.json", name), map[string]any{"input": records}, query)
	if err != nil {
		return nil, fmt.Errorf("upsert %s: %w", name, err)
	}

	statuses, err := results[RecordStatus](resp)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("object", name).Int("records", len(records)).Msg("Custom objects upserted")
	return statuses, nil
}

// Delete deletes records of custom object name identified by idField.
func (s *CustomObjectService) Delete(ctx context.Context, name string, records []Record) ([]RecordStatus, error) {
	query := url.Values{"deleteBy": {"idField"}}

	resp, err := s.postJSON(ctx, pathf("/v1/customobjects/%s/delete.json", name), map[string]any{"input": records}, query)
	if err != nil {
		return nil, fmt.Errorf("delete %s: %w", name, err)
	}

	statuses, err := results[RecordStatus](resp)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("object", name).Int("records", len(records)).Msg("Custom objects deleted")
	return statuses, nil
}
