package marketo

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/Sternrassler/marketo-client/pkg/pagination"
)

// Setting is a typed email attribute such as subject or sender.
type Setting struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// FolderRef is the folder an asset lives in.
type FolderRef struct {
	Type       string `json:"type"`
	Value      int64  `json:"value"`
	FolderName string `json:"folderName,omitempty"`
}

// Email is an email asset.
type Email struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   string    `json:"createdAt,omitempty"`
	UpdatedAt   string    `json:"updatedAt,omitempty"`
	URL         string    `json:"url,omitempty"`
	Subject     Setting   `json:"subject"`
	FromName    Setting   `json:"fromName"`
	FromEmail   Setting   `json:"fromEmail"`
	ReplyEmail  Setting   `json:"replyEmail"`
	Folder      FolderRef `json:"folder"`
	Operational bool      `json:"operational"`
	TextOnly    bool      `json:"textOnly"`
	Status      string    `json:"status,omitempty"`
	Template    int64     `json:"template,omitempty"`
	Workspace   string    `json:"workspace,omitempty"`
	Version     int       `json:"version,omitempty"`
}

// EmailService reads and sends email assets.
type EmailService struct {
	service
}

// SendSample sends a sample of email id to emailAddress.
func (s *EmailService) SendSample(ctx context.Context, id int64, emailAddress string) error {
	query := url.Values{"emailAddress": {emailAddress}}

	if _, err := s.post(ctx, pathf("/asset/v1/email/%s/sendSample.json", id), query); err != nil {
		return fmt.Errorf("send sample of email %d: %w", id, err)
	}

	s.logger.Info().Int64("email_id", id).Msg("Sample email sent")
	return nil
}

// ByName returns the email asset with the given name.
func (s *EmailService) ByName(ctx context.Context, name string) (*Email, error) {
	resp, err := s.get(ctx, "/asset/v1/email/byName.json", url.Values{"name": {name}})
	if err != nil {
		return nil, fmt.Errorf("get email %q: %w", name, err)
	}

	email, err := first[Email](resp)
	if err != nil {
		return nil, fmt.Errorf("email %q: %w", name, err)
	}
	return email, nil
}

// ByID returns the email asset with the given ID.
func (s *EmailService) ByID(ctx context.Context, id int64) (*Email, error) {
	resp, err := s.get(ctx, pathf("/asset/v1/email/%s.json", id), nil)
	if err != nil {
		return nil, fmt.Errorf("get email %d: %w", id, err)
	}

	email, err := first[Email](resp)
	if err != nil {
		return nil, fmt.Errorf("email %d: %w", id, err)
	}
	return email, nil
}

// All reads the email assets at the five fixed offsets concurrently and
// returns them sorted by case-insensitive name. A failed offset page drops
// only its own records.
func (s *EmailService) All(ctx context.Context) pagination.AggregatedResult[Email] {
	return pagination.FanOut(ctx, pagination.DefaultOffsets, s.offsetPage,
		pagination.CompareNameFold(func(e Email) string { return e.Name }, func(e Email) int64 { return e.ID }))
}

func (s *EmailService) offsetPage(ctx context.Context, offset int) ([]Email, error) {
	resp, err := s.get(ctx, "/asset/v1/emails.json", offsetQuery(offset))
	if err != nil {
		return nil, fmt.Errorf("get emails: %w", err)
	}
	return results[Email](resp)
}

func offsetQuery(offset int) url.Values {
	return url.Values{
		"maxReturn": {strconv.Itoa(pagination.OffsetPageSize)},
		"offset":    {strconv.Itoa(offset)},
	}
}
