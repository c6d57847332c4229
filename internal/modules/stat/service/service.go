package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"anoa.com/campuscomplaint/internal/entity"
	complaint "anoa.com/campuscomplaint/internal/modules/complaint/service"
	statRepo "anoa.com/campuscomplaint/internal/modules/stat/repository"
	"anoa.com/campuscomplaint/pkg/apperror"
)

const (
	DefaultSeriesDays   = 7
	MaxSeriesDays       = 366
	DefaultSeriesMonths = 6
	MaxSeriesMonths     = 36

	dayLayout   = "2006-01-02"
	monthLayout = "2006-01"
)

type StatusCounts struct {
	Total    int64 `json:"total"`
	Pending  int64 `json:"pending"`
	InReview int64 `json:"in_review"`
	Resolved int64 `json:"resolved"`
}

type FacultyCount struct {
	Faculty entity.Faculty `json:"faculty"`
	Label   string         `json:"label"`
	Count   int64          `json:"count"`
	Color   string         `json:"color"`
}

type SeriesBucket struct {
	Date     string `json:"date"`
	Pending  int64  `json:"pending"`
	InReview int64  `json:"in_review"`
	Resolved int64  `json:"resolved"`
}

type facultyStyle struct {
	label string
	color string
}

var facultyStyles = map[entity.Faculty]facultyStyle{
	entity.FacultyScience:           {"Science", "#3b82f6"},
	entity.FacultyLaw:               {"Law", "#dc2626"},
	entity.FacultyArt:               {"Arts", "#059669"},
	entity.FacultyEducation:         {"Education", "#d97706"},
	entity.FacultyManagementScience: {"Management Science", "#7c3aed"},
	entity.FacultyTransport:         {"Transport", "#0891b2"},
	entity.FacultyOther:             {"Other", "#4b5563"},
}

// FacultyColor is the chart colour for a faculty; unknown values share Other's.
func FacultyColor(f entity.Faculty) string {
	if style, ok := facultyStyles[f]; ok {
		return style.color
	}
	return facultyStyles[entity.FacultyOther].color
}

type StatService interface {
	StatusCounts(ctx context.Context, actor entity.Actor) (*StatusCounts, error)
	FacultyCounts(ctx context.Context, actor entity.Actor) ([]FacultyCount, error)
	DateSeries(ctx context.Context, actor entity.Actor, days int) ([]SeriesBucket, error)
	MonthlySeries(ctx context.Context, actor entity.Actor, months int) ([]SeriesBucket, error)
}

type statService struct {
	repo   statRepo.StatRepository
	policy complaint.Policy
	now    func() time.Time
	loc    *time.Location
}

func NewStatService(repo statRepo.StatRepository, policy complaint.Policy) StatService {
	return &statService{
		repo:   repo,
		policy: policy,
		now:    time.Now,
		loc:    time.UTC,
	}
}

func (s *statService) StatusCounts(ctx context.Context, actor entity.Actor) (*StatusCounts, error) {
	if !actor.IsAuthenticated() {
		return nil, apperror.ErrUnauthenticated
	}

	rows, err := s.repo.CountByStatus(ctx, s.policy.ScopeFor(actor))
	if err != nil {
		return nil, apperror.Dependency("failed to count complaints", err)
	}

	counts := &StatusCounts{}
	for _, row := range rows {
		counts.Total += row.Count
		switch row.Status {
		case entity.StatusPending:
			counts.Pending += row.Count
		case entity.StatusInReview:
			counts.InReview += row.Count
		case entity.StatusResolved:
			counts.Resolved += row.Count
		}
	}
	return counts, nil
}

func (s *statService) FacultyCounts(ctx context.Context, actor entity.Actor) ([]FacultyCount, error) {
	if !actor.IsAuthenticated() {
		return nil, apperror.ErrUnauthenticated
	}
	if actor.Role != entity.RoleAdmin {
		return nil, apperror.Unauthorized("only administrators can view faculty statistics")
	}

	rows, err := s.repo.CountByFaculty(ctx, s.policy.ScopeFor(actor))
	if err != nil {
		return nil, apperror.Dependency("failed to count complaints by faculty", err)
	}

	counts := make([]FacultyCount, 0, len(rows))
	for _, row := range rows {
		label := string(row.Faculty)
		if style, ok := facultyStyles[row.Faculty]; ok {
			label = style.label
		}
		counts = append(counts, FacultyCount{
			Faculty: row.Faculty,
			Label:   label,
			Count:   row.Count,
			Color:   FacultyColor(row.Faculty),
		})
	}

	sort.SliceStable(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Faculty < counts[j].Faculty
	})
	return counts, nil
}

// DateSeries buckets complaints by creation day over the last days days,
// today included. Every day in range is present even with no complaints.
func (s *statService) DateSeries(ctx context.Context, actor entity.Actor, days int) ([]SeriesBucket, error) {
	if !actor.IsAuthenticated() {
		return nil, apperror.ErrUnauthenticated
	}
	if days == 0 {
		days = DefaultSeriesDays
	}
	if days < 1 || days > MaxSeriesDays {
		return nil, apperror.InvalidInput(fmt.Sprintf("days must be between 1 and %d", MaxSeriesDays))
	}

	now := s.now().In(s.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	start := today.AddDate(0, 0, -(days - 1))

	keys := make([]string, days)
	for i := range keys {
		keys[i] = start.AddDate(0, 0, i).Format(dayLayout)
	}

	return s.series(ctx, actor, start, keys, dayLayout)
}

// MonthlySeries is DateSeries at calendar-month granularity.
func (s *statService) MonthlySeries(ctx context.Context, actor entity.Actor, months int) ([]SeriesBucket, error) {
	if !actor.IsAuthenticated() {
		return nil, apperror.ErrUnauthenticated
	}
	if months == 0 {
		months = DefaultSeriesMonths
	}
	if months < 1 || months > MaxSeriesMonths {
		return nil, apperror.InvalidInput(fmt.Sprintf("months must be between 1 and %d", MaxSeriesMonths))
	}

	now := s.now().In(s.loc)
	thisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.loc)
	start := thisMonth.AddDate(0, -(months - 1), 0)

	keys := make([]string, months)
	for i := range keys {
		keys[i] = start.AddDate(0, i, 0).Format(monthLayout)
	}

	return s.series(ctx, actor, start, keys, monthLayout)
}

func (s *statService) series(ctx context.Context, actor entity.Actor, start time.Time, keys []string, layout string) ([]SeriesBucket, error) {
	points, err := s.repo.Timeline(ctx, s.policy.ScopeFor(actor), start)
	if err != nil {
		return nil, apperror.Dependency("failed to load complaint timeline", err)
	}

	buckets := make([]SeriesBucket, len(keys))
	index := make(map[string]int, len(keys))
	for i, key := range keys {
		buckets[i] = SeriesBucket{Date: key}
		index[key] = i
	}

	for _, p := range points {
		i, ok := index[p.CreatedAt.In(s.loc).Format(layout)]
		if !ok {
			continue
		}
		switch p.Status {
		case entity.StatusPending:
			buckets[i].Pending++
		case entity.StatusInReview:
			buckets[i].InReview++
		case entity.StatusResolved:
			buckets[i].Resolved++
		}
	}
	return buckets, nil
}
