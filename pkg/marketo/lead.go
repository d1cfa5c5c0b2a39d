package marketo

import (
	"context"
	"fmt"
)

// Partition is a lead partition.
type Partition struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// LeadService reads partitions and creates leads.
type LeadService struct {
	service
}

// Partitions lists the lead partitions of the instance.
func (s *LeadService) Partitions(ctx context.Context) ([]Partition, error) {
	resp, err := s.get(ctx, "/v1/leads/partitions.json", nil)
	if err != nil {
		return nil, fmt.Errorf("get partitions: %w", err)
	}
	return results[Partition](resp)
}

// PartitionByID returns the partition with the given ID, or
// ErrPartitionNotFound.
func (s *LeadService) PartitionByID(ctx context.Context, id int) (*Partition, error) {
	partitions, err := s.Partitions(ctx)
	if err != nil {
		return nil, err
	}
	for i := range partitions {
		if partitions[i].ID == id {
			return &partitions[i], nil
		}
	}
	return nil, fmt.Errorf("partition %d: %w", id, ErrPartitionNotFound)
}

// Create creates leads in partitionName, matching existing leads by email.
// Existing leads are skipped, not updated.
func (s *LeadService) Create(ctx context.Context, leads []map[string]any, partitionName string) ([]RecordStatus, error) {
	body := map[string]any{
		"action":      "createOnly",
		"lookupField": "email",
		"input":       leads,
	}
	if partitionName != "" {
		body["partitionName"] = partitionName
	}

	resp, err := s.postJSON(ctx, "/v1/leads.json", body, nil)
	if err != nil {
		return nil, fmt.Errorf("create leads: %w", err)
	}

	statuses, err := results[RecordStatus](resp)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int("leads", len(leads)).Str("partition", partitionName).Msg("Leads submitted")
	return statuses, nil
}
