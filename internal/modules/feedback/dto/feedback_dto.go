package dto

import "anoa.com/campuscomplaint/internal/entity"

type SubmitFeedbackRequest struct {
	Rating       int    `json:"rating"`
	FeedbackText string `json:"feedback_text" binding:"max=2000"`
}

type FacultyRating struct {
	Faculty       entity.Faculty `json:"faculty"`
	AverageRating float64        `json:"average_rating"`
	Count         int64          `json:"count"`
}

type FeedbackStats struct {
	TotalFeedback      int64           `json:"total_feedback"`
	AverageRating      float64         `json:"average_rating"`
	RatingDistribution map[int]int64   `json:"rating_distribution"`
	TotalResolved      int64           `json:"total_resolved"`
	ResponseRate       int             `json:"response_rate"`
	FacultyRatings     []FacultyRating `json:"faculty_ratings"`
}
