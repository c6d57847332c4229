package service

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"anoa.com/campuscomplaint/internal/entity"
	"github.com/meilisearch/meilisearch-go"
	"github.com/microcosm-cc/bluemonday"
	"github.com/sirupsen/logrus"
)

const complaintsIndex = "complaints"

// ComplaintIndex mirrors complaints into the full-text search engine. The
// database stays the source of truth; the index only yields candidate ids.
type ComplaintIndex interface {
	IndexComplaint(ctx context.Context, complaint *entity.Complaint) error
	DeleteComplaint(ctx context.Context, id string) error
	Search(ctx context.Context, query string, limit int) ([]string, error)
}

type meiliSearchService struct {
	client    meilisearch.ServiceManager
	sanitizer *bluemonday.Policy
	log       logrus.FieldLogger
}

func NewMeiliSearchService(client meilisearch.ServiceManager, log logrus.FieldLogger) ComplaintIndex {
	s := &meiliSearchService{
		client:    client,
		sanitizer: bluemonday.StrictPolicy(),
		log:       log,
	}
	s.initIndexes()
	return s
}

func (s *meiliSearchService) initIndexes() {
	filterableAttrs := []string{"status", "priority", "category", "faculty", "department", "user_id"}
	filterableInterface := make([]any, len(filterableAttrs))
	for i, v := range filterableAttrs {
		filterableInterface[i] = v
	}
	if _, err := s.client.Index(complaintsIndex).UpdateFilterableAttributes(&filterableInterface); err != nil {
		s.log.WithError(err).Warn("failed to update complaints filterable attributes")
	}

	sortableAttrs := []string{"submitted_at"}
	if _, err := s.client.Index(complaintsIndex).UpdateSortableAttributes(&sortableAttrs); err != nil {
		s.log.WithError(err).Warn("failed to update complaints sortable attributes")
	}
}

type meiliComplaintDoc struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Faculty     string `json:"faculty"`
	Department  string `json:"department"`
	Status      string `json:"status"`
	Priority    string `json:"priority"`
	Sensitive   bool   `json:"sensitive"`
	SubmittedAt int64  `json:"submitted_at"`
}

func (s *meiliSearchService) cleanText(content string) string {
	content = strings.ReplaceAll(content, "</p>", " ")
	content = strings.ReplaceAll(content, "<br>", " ")
	content = strings.ReplaceAll(content, "</div>", " ")

	cleanText := html.UnescapeString(s.sanitizer.Sanitize(content))
	return strings.Join(strings.Fields(cleanText), " ")
}

func (s *meiliSearchService) IndexComplaint(ctx context.Context, complaint *entity.Complaint) error {
	doc := meiliComplaintDoc{
		ID:          complaint.ID.String(),
		UserID:      complaint.UserID,
		Title:       s.cleanText(complaint.Title),
		Description: s.cleanText(complaint.Description),
		Category:    string(complaint.Category),
		Faculty:     string(complaint.Faculty),
		Department:  complaint.Department,
		Status:      string(complaint.Status),
		Priority:    string(complaint.Priority),
		Sensitive:   complaint.Sensitive,
		SubmittedAt: complaint.SubmittedAt.Unix(),
	}

	task, err := s.client.Index(complaintsIndex).AddDocuments([]meiliComplaintDoc{doc}, strPtr("id"))
	if err != nil {
		return fmt.Errorf("failed to index complaint: %w", err)
	}
	s.log.WithFields(logrus.Fields{
		"complaint_id": complaint.ID,
		"task_uid":     task.TaskUID,
	}).Debug("complaint indexed")
	return nil
}

func (s *meiliSearchService) DeleteComplaint(ctx context.Context, id string) error {
	if _, err := s.client.Index(complaintsIndex).DeleteDocument(id); err != nil {
		return fmt.Errorf("failed to remove complaint from index: %w", err)
	}
	return nil
}

func (s *meiliSearchService) Search(ctx context.Context, query string, limit int) ([]string, error) {
	raw, err := s.client.Index(complaintsIndex).SearchRaw(query, &meilisearch.SearchRequest{
		Limit:                int64(limit),
		AttributesToRetrieve: []string{"id"},
	})
	if err != nil {
		return nil, fmt.Errorf("complaint search failed: %w", err)
	}

	var result struct {
		Hits []struct {
			ID string `json:"id"`
		} `json:"hits"`
	}
	if err := json.Unmarshal(*raw, &result); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	ids := make([]string, 0, len(result.Hits))
	for _, hit := range result.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}

func strPtr(s string) *string {
	return &s
}
