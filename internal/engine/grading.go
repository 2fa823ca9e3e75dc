package engine

import (
	"math"
	"strings"
	"time"

	"github.com/gargallo/neolingus-backend/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Essay word-count bands, in percent of the question's points.
const (
	essayBandFloor = 150 // below this: 0%
	essayBandMid   = 180 // [150,180): 50%
	essayBandHigh  = 200 // [180,200): 70%, >= 200: 90%
)

// GradeQuestion grades a single question against the learner's answer.
// answered is false for questions the learner never touched; those are
// graded as incorrect under the same rules (an essay with zero words, a
// choice or text question with no match).
//
// Grading never fails: a question missing data required by its type is
// reported to log and degrades to zero points earned while keeping its
// full point value in MaxPoints.
func GradeQuestion(q *model.Question, answer string, answered bool, log zerolog.Logger) model.QuestionResult {
	res := model.QuestionResult{
		QuestionID: q.ID,
		Number:     q.Number,
		UserAnswer: answer,
		MaxPoints:  q.Points,
	}

	switch q.Type {
	case model.QuestionTypeMultipleChoice:
		res.CorrectAnswer = q.CorrectAnswer
		if q.CorrectAnswer == "" {
			reportMalformed(log, q, "multiple_choice question has no correct answer")
			return res
		}
		if answered && answer == q.CorrectAnswer {
			res.IsCorrect = true
			res.PointsEarned = q.Points
		}

	case model.QuestionTypeTextInput:
		res.CorrectAnswer = q.CorrectAnswer
		if q.CorrectAnswer == "" {
			reportMalformed(log, q, "text_input question has no correct answer")
			return res
		}
		if answered && textMatches(answer, q.CorrectAnswer) {
			res.IsCorrect = true
			res.PointsEarned = q.Points
		}

	case model.QuestionTypeEssay:
		words := 0
		if answered {
			words = len(strings.Fields(answer))
		}
		band := essayBand(words)
		// Integer division floors, per the banding rule. Exceeding the
		// word limit keeps the top band; over-length is not penalized
		// here (provisional product behavior).
		res.PointsEarned = q.Points * band / 100
		res.IsCorrect = res.PointsEarned > 0

	default:
		reportMalformed(log, q, "unknown question type "+string(q.Type))
	}

	return res
}

// essayBand maps a word count onto its scoring band in percent.
func essayBand(words int) int {
	switch {
	case words < essayBandFloor:
		return 0
	case words < essayBandMid:
		return 50
	case words < essayBandHigh:
		return 70
	default:
		return 90
	}
}

// textMatches compares text_input answers: case-insensitive, with
// surrounding whitespace trimmed on both sides.
func textMatches(answer, correct string) bool {
	return strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(correct))
}

// Aggregate turns a frozen answer map plus the question model into the
// final Result. Every question in the model contributes to the max
// score whether answered or not. Deterministic: grading the same inputs
// twice yields identical Results.
func Aggregate(
	sessionID uuid.UUID,
	m *model.ExamModel,
	answers map[uuid.UUID]string,
	timeSpentSeconds int,
	completedAt time.Time,
	log zerolog.Logger,
) *model.Result {
	result := &model.Result{
		SessionID:        sessionID,
		TimeSpentSeconds: timeSpentSeconds,
		CompletedAt:      completedAt,
		Sections:         make([]model.SectionResult, 0, len(m.Sections)),
		Questions:        []model.QuestionResult{},
	}

	for i := range m.Sections {
		sec := &m.Sections[i]
		secResult := model.SectionResult{
			SectionID: sec.ID,
			Name:      sec.Name,
		}

		for j := range sec.Parts {
			part := &sec.Parts[j]
			for k := range part.Questions {
				q := &part.Questions[k]
				answer, answered := answers[q.ID]
				qr := GradeQuestion(q, answer, answered, log)
				result.Questions = append(result.Questions, qr)
				secResult.Score += qr.PointsEarned
				secResult.MaxScore += qr.MaxPoints
			}
		}

		secResult.Percentage = percentage(secResult.Score, secResult.MaxScore)
		result.TotalScore += secResult.Score
		result.MaxScore += secResult.MaxScore
		result.Sections = append(result.Sections, secResult)
	}

	result.Percentage = percentage(result.TotalScore, result.MaxScore)
	result.Grade = GradeLabel(result.Percentage)
	return result
}

// percentage computes round(score/max*100); a zero max yields 0 rather
// than a division error.
func percentage(score, max int) int {
	if max == 0 {
		return 0
	}
	return int(math.Round(float64(score) / float64(max) * 100))
}

// GradeLabel maps an overall percentage onto its grade band.
func GradeLabel(pct int) string {
	switch {
	case pct >= 90:
		return model.GradeExcellent
	case pct >= 80:
		return model.GradeVeryGood
	case pct >= 70:
		return model.GradeGood
	case pct >= 50:
		return model.GradePass
	default:
		return model.GradeFail
	}
}

func reportMalformed(log zerolog.Logger, q *model.Question, reason string) {
	merr := &MalformedQuestionError{QuestionID: q.ID, Reason: reason}
	log.Warn().Err(merr).Str("question_id", q.ID.String()).Msg("Question degraded to zero points")
}
