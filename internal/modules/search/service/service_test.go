package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"anoa.com/campuscomplaint/internal/entity"
	"github.com/google/uuid"
	"github.com/meilisearch/meilisearch-go"
	"github.com/microcosm-cc/bluemonday"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMeili hands out a single recording index. Methods the service does not
// call are left to the embedded interface and panic if reached.
type fakeMeili struct {
	meilisearch.ServiceManager
	index *fakeIndex
	uids  []string
}

func (f *fakeMeili) Index(uid string) meilisearch.IndexManager {
	f.uids = append(f.uids, uid)
	return f.index
}

type fakeIndex struct {
	meilisearch.IndexManager

	filterable []any
	sortable   []string
	settingErr error

	documents  []map[string]any
	primaryKey string
	addErr     error

	deleted   []string
	deleteErr error

	query     string
	request   *meilisearch.SearchRequest
	searchRaw string
	searchErr error
}

func (f *fakeIndex) UpdateFilterableAttributes(request *[]any) (*meilisearch.TaskInfo, error) {
	f.filterable = *request
	return &meilisearch.TaskInfo{TaskUID: 1}, f.settingErr
}

func (f *fakeIndex) UpdateSortableAttributes(request *[]string) (*meilisearch.TaskInfo, error) {
	f.sortable = *request
	return &meilisearch.TaskInfo{TaskUID: 2}, f.settingErr
}

func (f *fakeIndex) AddDocuments(documentsPtr any, primaryKey *string) (*meilisearch.TaskInfo, error) {
	if f.addErr != nil {
		return nil, f.addErr
	}
	raw, err := json.Marshal(documentsPtr)
	if err != nil {
		return nil, err
	}
	var docs []map[string]any
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, err
	}
	f.documents = append(f.documents, docs...)
	if primaryKey != nil {
		f.primaryKey = *primaryKey
	}
	return &meilisearch.TaskInfo{TaskUID: 3}, nil
}

func (f *fakeIndex) DeleteDocument(identifier string) (*meilisearch.TaskInfo, error) {
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	f.deleted = append(f.deleted, identifier)
	return &meilisearch.TaskInfo{TaskUID: 4}, nil
}

func (f *fakeIndex) SearchRaw(query string, request *meilisearch.SearchRequest) (*json.RawMessage, error) {
	f.query = query
	f.request = request
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	raw := json.RawMessage(f.searchRaw)
	return &raw, nil
}

func newIndex(t *testing.T, index *fakeIndex) (ComplaintIndex, *fakeMeili) {
	t.Helper()
	log, _ := test.NewNullLogger()
	client := &fakeMeili{index: index}
	return NewMeiliSearchService(client, log), client
}

func TestCleanTextStripsMarkup(t *testing.T) {
	s := &meiliSearchService{sanitizer: bluemonday.StrictPolicy()}

	got := s.cleanText("<p>Lab <b>fridge</b> broken</p><div>since &amp; Monday</div><script>alert(1)</script>")

	assert.Equal(t, "Lab fridge broken since & Monday", got)
}

func TestNewMeiliSearchServiceConfiguresIndex(t *testing.T) {
	index := &fakeIndex{}
	_, client := newIndex(t, index)

	assert.ElementsMatch(t, []any{"status", "priority", "category", "faculty", "department", "user_id"}, index.filterable)
	assert.Equal(t, []string{"submitted_at"}, index.sortable)
	for _, uid := range client.uids {
		assert.Equal(t, "complaints", uid)
	}
}

func TestSettingsFailureDoesNotBlockStartup(t *testing.T) {
	log, hook := test.NewNullLogger()
	index := &fakeIndex{settingErr: errors.New("meilisearch unreachable")}

	svc := NewMeiliSearchService(&fakeMeili{index: index}, log)

	assert.NotNil(t, svc)
	assert.Len(t, hook.AllEntries(), 2)
}

func TestIndexComplaintDocument(t *testing.T) {
	index := &fakeIndex{}
	svc, _ := newIndex(t, index)

	submitted := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	complaint := &entity.Complaint{
		ID:          uuid.MustParse("0190f5a2-7c1e-7a3b-9d4e-1f2a3b4c5d6e"),
		UserID:      "student-1",
		Title:       "<b>Broken</b> projector",
		Description: "<p>LT2 projector</p><p>flickers &amp; dies</p>",
		Category:    entity.CategoryFacility,
		Faculty:     entity.FacultyScience,
		Department:  "Computer Science",
		Status:      entity.StatusPending,
		Priority:    entity.PriorityHigh,
		Sensitive:   true,
		SubmittedAt: submitted,
	}

	require.NoError(t, svc.IndexComplaint(context.Background(), complaint))

	assert.Equal(t, "id", index.primaryKey)
	require.Len(t, index.documents, 1)
	assert.Equal(t, map[string]any{
		"id":           "0190f5a2-7c1e-7a3b-9d4e-1f2a3b4c5d6e",
		"user_id":      "student-1",
		"title":        "Broken projector",
		"description":  "LT2 projector flickers & dies",
		"category":     "facility",
		"faculty":      "science",
		"department":   "Computer Science",
		"status":       "pending",
		"priority":     "high",
		"sensitive":    true,
		"submitted_at": float64(submitted.Unix()),
	}, index.documents[0])
}

func TestIndexComplaintFailure(t *testing.T) {
	index := &fakeIndex{addErr: errors.New("payload too large")}
	svc, _ := newIndex(t, index)

	err := svc.IndexComplaint(context.Background(), &entity.Complaint{ID: uuid.New()})
	assert.ErrorContains(t, err, "payload too large")
}

func TestDeleteComplaint(t *testing.T) {
	index := &fakeIndex{}
	svc, _ := newIndex(t, index)

	require.NoError(t, svc.DeleteComplaint(context.Background(), "c-1"))
	assert.Equal(t, []string{"c-1"}, index.deleted)

	index.deleteErr = errors.New("task queue full")
	assert.Error(t, svc.DeleteComplaint(context.Background(), "c-2"))
}

func TestSearchReturnsHitIDsInOrder(t *testing.T) {
	index := &fakeIndex{
		searchRaw: `{"hits":[{"id":"c-2","title":"Projector"},{"id":"c-1"}],"query":"projector","estimatedTotalHits":2}`,
	}
	svc, _ := newIndex(t, index)

	ids, err := svc.Search(context.Background(), "projector", 5)
	require.NoError(t, err)

	assert.Equal(t, []string{"c-2", "c-1"}, ids)
	assert.Equal(t, "projector", index.query)
	require.NotNil(t, index.request)
	assert.Equal(t, int64(5), index.request.Limit)
	assert.Equal(t, []string{"id"}, index.request.AttributesToRetrieve)
}

func TestSearchFailures(t *testing.T) {
	t.Run("engine error", func(t *testing.T) {
		svc, _ := newIndex(t, &fakeIndex{searchErr: errors.New("index not found")})
		_, err := svc.Search(context.Background(), "wifi", 5)
		assert.ErrorContains(t, err, "index not found")
	})

	t.Run("undecodable response", func(t *testing.T) {
		svc, _ := newIndex(t, &fakeIndex{searchRaw: `{"hits":"nope"}`})
		_, err := svc.Search(context.Background(), "wifi", 5)
		assert.ErrorContains(t, err, "decode")
	})

	t.Run("no hits", func(t *testing.T) {
		svc, _ := newIndex(t, &fakeIndex{searchRaw: `{"hits":[]}`})
		ids, err := svc.Search(context.Background(), "wifi", 5)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})
}
