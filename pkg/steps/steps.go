// Package steps adapts Marketo operations to test-runner style steps that
// report a pass, fail or error outcome instead of returning errors.
package steps

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/marketo-client/pkg/client"
	"github.com/Sternrassler/marketo-client/pkg/marketo"
	"github.com/Sternrassler/marketo-client/pkg/pagination"
)

// Status is the verdict of a step.
type Status string

const (
	// StatusPass means the step did what was asked.
	StatusPass Status = "pass"

	// StatusFail means Marketo answered but the expectation was not met.
	StatusFail Status = "fail"

	// StatusError means the step could not complete.
	StatusError Status = "error"
)

// Outcome is the result of a step.
type Outcome struct {
	Status  Status `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Pass builds a passing outcome.
func Pass(message string, data any) Outcome {
	return Outcome{Status: StatusPass, Message: message, Data: data}
}

// Fail builds a failing outcome.
func Fail(message string, data any) Outcome {
	return Outcome{Status: StatusFail, Message: message, Data: data}
}

// Error builds an error outcome.
func Error(err error) Outcome {
	return Outcome{Status: StatusError, Message: err.Error()}
}

// CreateLead creates lead in the partition with the given ID. An existing
// lead with the same email is reported as skipped, which passes; any other
// skip reason fails as a validation error.
func CreateLead(ctx context.Context, mk *marketo.Client, lead map[string]any, partitionID int) Outcome {
	logger := log.With().Str("component", "steps").Str("step", "create-lead").Logger()

	partition, err := mk.Leads.PartitionByID(ctx, partitionID)
	if errors.Is(err, marketo.ErrPartitionNotFound) {
		return Fail(fmt.Sprintf("no such partition: %d", partitionID), nil)
	}
	if err != nil {
		return classify(err)
	}

	statuses, err := mk.Leads.Create(ctx, []map[string]any{lead}, partition.Name)
	if err != nil {
		return classify(err)
	}
	if len(statuses) == 0 {
		return Error(errors.New("create lead: empty result"))
	}

	status := statuses[0]
	logger.Debug().Str("status", status.Status).Int64("lead_id", status.ID).Msg("Lead create result")

	switch status.Status {
	case marketo.StatusCreated:
		return Pass("created", status)
	case marketo.StatusSkipped:
		if hasReason(status.Reasons, codeLeadExists) {
			return Pass("already exists / skipped: "+reasons(status.Reasons), status)
		}
		return Fail("validation failed: "+reasons(status.Reasons), status)
	default:
		return Error(fmt.Errorf("create lead: unexpected status %q", status.Status))
	}
}

// LeadActivities reads the activities of leadIDs since the given time. A
// partial read fails with the records read so far as data.
func LeadActivities(ctx context.Context, mk *marketo.Client, leadIDs pagination.IDSet, activityTypeIDs string, since time.Time) Outcome {
	result := mk.Activities.ForLeads(ctx, leadIDs, activityTypeIDs, since)
	return aggregated("activities", result)
}

// AllEmails lists every email asset reachable by the fixed offsets.
func AllEmails(ctx context.Context, mk *marketo.Client) Outcome {
	return aggregated("emails", mk.Emails.All(ctx))
}

// AllStaticLists lists every static list reachable by the fixed offsets.
func AllStaticLists(ctx context.Context, mk *marketo.Client) Outcome {
	return aggregated("static lists", mk.StaticLists.All(ctx))
}

// SendSampleEmail sends a sample of email id to emailAddress.
func SendSampleEmail(ctx context.Context, mk *marketo.Client, id int64, emailAddress string) Outcome {
	if err := mk.Emails.SendSample(ctx, id, emailAddress); err != nil {
		return classify(err)
	}
	return Pass(fmt.Sprintf("sample of email %d sent to %s", id, emailAddress), nil)
}

// DescribeCustomObject returns the schema of custom object name.
func DescribeCustomObject(ctx context.Context, mk *marketo.Client, name string) Outcome {
	desc, err := mk.CustomObjects.Describe(ctx, name)
	if errors.Is(err, marketo.ErrNotFound) {
		return Fail(fmt.Sprintf("no such custom object: %s", name), nil)
	}
	if err != nil {
		return classify(err)
	}
	return Pass(fmt.Sprintf("%s has %d fields", name, len(desc.Fields)), desc)
}

// UpsertCustomObjects creates or updates records of custom object name.
// Records rejected by Marketo fail the step.
func UpsertCustomObjects(ctx context.Context, mk *marketo.Client, name string, records []marketo.Record) Outcome {
	statuses, err := mk.CustomObjects.CreateOrUpdate(ctx, name, records)
	if err != nil {
		return classify(err)
	}

	var rejected []string
	for _, s := range statuses {
		if s.Status == marketo.StatusSkipped {
			rejected = append(rejected, fmt.Sprintf("#%d: %s", s.Seq, reasons(s.Reasons)))
		}
	}
	if len(rejected) > 0 {
		return Fail("validation failed: "+strings.Join(rejected, "; "), statuses)
	}
	return Pass(fmt.Sprintf("%d %s records upserted", len(statuses), name), statuses)
}

// aggregated maps a merged read to an outcome. The records are kept as data
// either way.
func aggregated[T any](what string, result pagination.AggregatedResult[T]) Outcome {
	if !result.Success {
		return Fail(fmt.Sprintf("partial %s read (%d records): %v", what, len(result.Result), result.Err), result.Result)
	}
	return Pass(fmt.Sprintf("%d %s", len(result.Result), what), result.Result)
}

// classify maps an operation error to an outcome. Marketo rejecting the
// request's data fails the step; anything else is an error.
func classify(err error) Outcome {
	if errors.Is(err, client.ErrValidation) {
		return Fail("validation failed: "+validationMessage(err), nil)
	}
	return Error(err)
}

func validationMessage(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}

// codeLeadExists is the skip reason of a createOnly lead that already exists.
const codeLeadExists = "1005"

func hasReason(details []client.APIErrorDetail, code string) bool {
	for _, d := range details {
		if d.Code == code {
			return true
		}
	}
	return false
}

func reasons(details []client.APIErrorDetail) string {
	if len(details) == 0 {
		return "no reason given"
	}
	msgs := make([]string, len(details))
	for i, d := range details {
		msgs[i] = d.Message
	}
	return strings.Join(msgs, ", ")
}
