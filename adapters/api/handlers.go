package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"ideaforge/domain/brainstorm"
	"ideaforge/domain/core"
)

type brainstormRequest struct {
	Topic    string `json:"topic" binding:"required"`
	UserID   string `json:"user_id"`
	NumIdeas int    `json:"num_ideas"`
	Export   bool   `json:"export"`
}

type rankedIdea struct {
	Rank          int     `json:"rank"`
	Idea          string  `json:"idea"`
	Summary       string  `json:"summary"`
	Detail        string  `json:"detail"`
	DetailHTML    string  `json:"detail_html"`
	Composite     float64 `json:"composite"`
	Relevance     float64 `json:"relevance"`
	UserFit       float64 `json:"user_fit"`
	Feasibility   float64 `json:"feasibility"`
	Originality   float64 `json:"originality"`
	Justification string  `json:"justification"`
}

func (s *Server) handleBrainstorm(defaultCount int) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req brainstormRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "missing required parameter 'topic'"})
			return
		}
		topic := brainstorm.Topic(req.Topic)
		if topic.IsEmpty() {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "topic must not be empty"})
			return
		}
		if req.NumIdeas == 0 {
			req.NumIdeas = defaultCount
		}
		if req.NumIdeas < 1 || req.NumIdeas > s.maxIdeas {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   fmt.Sprintf("parameter 'num_ideas' must be between 1 and %d", s.maxIdeas),
			})
			return
		}

		result, md, err := s.pipeline.Run(c.Request.Context(), topic, req.UserID, req.NumIdeas)
		if err != nil {
			c.JSON(statusForPipelineError(err), gin.H{"success": false, "error": err.Error(), "metadata": md})
			return
		}

		if req.UserID != "" {
			if recorder, ok := s.profiles.(topicRecorder); ok {
				if err := recorder.RecordTopic(c.Request.Context(), req.UserID, req.Topic); err != nil {
					s.log.Warn("recording topic for %q failed: %v", req.UserID, err)
				}
			}
		}

		ideas := make([]rankedIdea, len(result.Entries))
		for i, entry := range result.Entries {
			detail := entry.Plan.Detail()
			ideas[i] = rankedIdea{
				Rank:          i + 1,
				Idea:          entry.Plan.Idea,
				Summary:       entry.Plan.Summary,
				Detail:        detail,
				DetailHTML:    renderHTML(detail),
				Composite:     entry.Composite,
				Relevance:     entry.Scorecard.Relevance,
				UserFit:       entry.Scorecard.UserFit,
				Feasibility:   entry.Scorecard.Feasibility,
				Originality:   entry.Scorecard.Originality,
				Justification: entry.Scorecard.Justification,
			}
		}

		resp := gin.H{
			"success":  true,
			"run_id":   result.RunID,
			"topic":    result.Topic,
			"ideas":    ideas,
			"metadata": md,
		}

		if req.Export && s.reports != nil {
			path, err := s.reports.WriteRunReport(s.reportDir, result, md)
			if err != nil {
				s.log.Warn("report export failed: %v", err)
			} else {
				resp["report_path"] = path
			}
		}

		c.JSON(http.StatusOK, resp)
	}
}

type outcomeRequest struct {
	UserID      string `json:"user_id" binding:"required"`
	IdeaSummary string `json:"idea_summary" binding:"required"`
	Accepted    *bool  `json:"accepted" binding:"required"`
}

func (s *Server) handleOutcome(c *gin.Context) {
	var req outcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "user_id, idea_summary and accepted are required"})
		return
	}
	if err := s.profiles.RecordOutcome(c.Request.Context(), req.UserID, req.IdeaSummary, *req.Accepted); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// topicRecorder is implemented by profile stores that also keep the
// recent-topic list.
type topicRecorder interface {
	RecordTopic(ctx context.Context, userID, topic string) error
}

func statusForPipelineError(err error) int {
	switch {
	case errors.Is(err, core.ErrRunTimeout):
		return http.StatusGatewayTimeout
	case core.IsFatalStageError(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
