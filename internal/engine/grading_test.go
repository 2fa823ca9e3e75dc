package engine

import (
	"reflect"
	"testing"
	"time"

	"github.com/gargallo/neolingus-backend/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func TestGradeMultipleChoice(t *testing.T) {
	q := &model.Question{
		ID:            uuid.New(),
		Number:        1,
		Type:          model.QuestionTypeMultipleChoice,
		CorrectAnswer: "B",
		Points:        2,
	}

	cases := []struct {
		name       string
		answer     string
		answered   bool
		wantOK     bool
		wantPoints int
	}{
		{"exact match", "B", true, true, 2},
		{"wrong option", "A", true, false, 0},
		{"case matters for options", "b", true, false, 0},
		{"unanswered", "", false, false, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := GradeQuestion(q, tc.answer, tc.answered, zerolog.Nop())
			if res.IsCorrect != tc.wantOK || res.PointsEarned != tc.wantPoints {
				t.Errorf("got correct=%v points=%d, want correct=%v points=%d",
					res.IsCorrect, res.PointsEarned, tc.wantOK, tc.wantPoints)
			}
			if res.MaxPoints != 2 {
				t.Errorf("MaxPoints = %d, want 2", res.MaxPoints)
			}
		})
	}
}

func TestGradeTextInputNormalization(t *testing.T) {
	q := &model.Question{
		ID:            uuid.New(),
		Number:        1,
		Type:          model.QuestionTypeTextInput,
		CorrectAnswer: "valencia",
		Points:        1,
	}

	cases := []struct {
		name   string
		answer string
		want   bool
	}{
		{"exact", "valencia", true},
		{"trailing space and case", "Valencia ", true},
		{"leading space", "  VALENCIA", true},
		{"different word", "madrid", false},
		{"internal whitespace differs", "val encia", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := GradeQuestion(q, tc.answer, true, zerolog.Nop())
			if res.IsCorrect != tc.want {
				t.Errorf("IsCorrect = %v, want %v", res.IsCorrect, tc.want)
			}
		})
	}
}

func TestEssayBandBoundaries(t *testing.T) {
	cases := []struct {
		words      int
		wantPoints int // For a 10-point essay.
	}{
		{0, 0},
		{149, 0},
		{150, 5},
		{179, 5},
		{180, 7},
		{199, 7},
		{200, 9},
		{400, 9},
	}

	q := &model.Question{
		ID:     uuid.New(),
		Number: 1,
		Type:   model.QuestionTypeEssay,
		Points: 10,
	}

	for _, tc := range cases {
		res := GradeQuestion(q, essayText(tc.words), tc.words > 0, zerolog.Nop())
		if res.PointsEarned != tc.wantPoints {
			t.Errorf("words=%d: PointsEarned = %d, want %d", tc.words, res.PointsEarned, tc.wantPoints)
		}
		if wantCorrect := tc.wantPoints > 0; res.IsCorrect != wantCorrect {
			t.Errorf("words=%d: IsCorrect = %v, want %v", tc.words, res.IsCorrect, wantCorrect)
		}
	}
}

func TestEssayOverWordLimitKeepsTopBand(t *testing.T) {
	q := &model.Question{
		ID:        uuid.New(),
		Number:    1,
		Type:      model.QuestionTypeEssay,
		Points:    10,
		WordLimit: 220,
	}

	res := GradeQuestion(q, essayText(250), true, zerolog.Nop())
	if res.PointsEarned != 9 {
		t.Errorf("PointsEarned = %d, want 9 (over-length keeps the top band)", res.PointsEarned)
	}
}

func TestAggregateFullMarks(t *testing.T) {
	m, mcID, textID := twoQuestionModel()
	answers := map[uuid.UUID]string{
		mcID:   "B",
		textID: "Valencia ",
	}

	res := Aggregate(uuid.New(), m, answers, 900, time.Now(), zerolog.Nop())

	if res.TotalScore != 3 || res.MaxScore != 3 {
		t.Fatalf("score = %d/%d, want 3/3", res.TotalScore, res.MaxScore)
	}
	if res.Percentage != 100 {
		t.Errorf("Percentage = %d, want 100", res.Percentage)
	}
	if res.Grade != model.GradeExcellent {
		t.Errorf("Grade = %q, want %q", res.Grade, model.GradeExcellent)
	}
	if len(res.Questions) != 2 || len(res.Sections) != 1 {
		t.Errorf("got %d questions, %d sections; want 2, 1", len(res.Questions), len(res.Sections))
	}
}

func TestAggregateAllWrong(t *testing.T) {
	m, mcID, textID := twoQuestionModel()
	answers := map[uuid.UUID]string{
		mcID:   "A",
		textID: "madrid",
	}

	res := Aggregate(uuid.New(), m, answers, 900, time.Now(), zerolog.Nop())

	if res.TotalScore != 0 || res.MaxScore != 3 {
		t.Fatalf("score = %d/%d, want 0/3", res.TotalScore, res.MaxScore)
	}
	if res.Percentage != 0 {
		t.Errorf("Percentage = %d, want 0", res.Percentage)
	}
	if res.Grade != model.GradeFail {
		t.Errorf("Grade = %q, want %q", res.Grade, model.GradeFail)
	}
}

func TestAggregateEssayMidBand(t *testing.T) {
	m, qID := essayOnlyModel(10, 0)
	answers := map[uuid.UUID]string{qID: essayText(185)}

	res := Aggregate(uuid.New(), m, answers, 1200, time.Now(), zerolog.Nop())

	if res.TotalScore != 7 {
		t.Errorf("TotalScore = %d, want 7 (floor of 10*0.7)", res.TotalScore)
	}
	if !res.Questions[0].IsCorrect {
		t.Error("essay in the 70%% band should count as correct")
	}
}

func TestAggregateEmptyModel(t *testing.T) {
	m := &model.ExamModel{ExamID: uuid.New(), Title: "Buit"}

	res := Aggregate(uuid.New(), m, nil, 0, time.Now(), zerolog.Nop())

	if res.MaxScore != 0 {
		t.Fatalf("MaxScore = %d, want 0", res.MaxScore)
	}
	if res.Percentage != 0 {
		t.Errorf("Percentage = %d, want 0 (no division error)", res.Percentage)
	}
}

func TestAggregateUnansweredCountTowardMax(t *testing.T) {
	m, mcID, _ := twoQuestionModel()
	answers := map[uuid.UUID]string{mcID: "B"} // text_input left unanswered

	res := Aggregate(uuid.New(), m, answers, 60, time.Now(), zerolog.Nop())

	if res.MaxScore != 3 {
		t.Errorf("MaxScore = %d, want 3 (unanswered questions keep their weight)", res.MaxScore)
	}
	if res.TotalScore != 2 {
		t.Errorf("TotalScore = %d, want 2", res.TotalScore)
	}
	if res.Percentage != 67 {
		t.Errorf("Percentage = %d, want 67 (round of 2/3)", res.Percentage)
	}
}

func TestAggregateDeterministic(t *testing.T) {
	m, mcID, textID := twoQuestionModel()
	answers := map[uuid.UUID]string{mcID: "B", textID: "x"}
	sessionID := uuid.New()
	at := time.Date(2025, 6, 10, 10, 0, 0, 0, time.UTC)

	first := Aggregate(sessionID, m, answers, 300, at, zerolog.Nop())
	second := Aggregate(sessionID, m, answers, 300, at, zerolog.Nop())

	if !reflect.DeepEqual(first, second) {
		t.Error("grading the same frozen answers twice must yield identical Results")
	}
}

func TestAggregateMalformedQuestionDegrades(t *testing.T) {
	qID := uuid.New()
	m := &model.ExamModel{
		ExamID: uuid.New(),
		Sections: []model.Section{{
			ID:   uuid.New(),
			Name: "Broken",
			Parts: []model.Part{{
				ID:   uuid.New(),
				Name: "P1",
				Questions: []model.Question{{
					ID:     qID,
					Number: 1,
					Type:   model.QuestionTypeMultipleChoice,
					Points: 5,
					// No correct answer: malformed.
				}},
			}},
		}},
	}

	res := Aggregate(uuid.New(), m, map[uuid.UUID]string{qID: "A"}, 10, time.Now(), zerolog.Nop())

	if res.TotalScore != 0 {
		t.Errorf("TotalScore = %d, want 0 (malformed earns nothing)", res.TotalScore)
	}
	if res.MaxScore != 5 {
		t.Errorf("MaxScore = %d, want 5 (malformed keeps its weight)", res.MaxScore)
	}
}

func TestGradeLabelBands(t *testing.T) {
	cases := []struct {
		pct  int
		want string
	}{
		{100, model.GradeExcellent},
		{90, model.GradeExcellent},
		{89, model.GradeVeryGood},
		{80, model.GradeVeryGood},
		{79, model.GradeGood},
		{70, model.GradeGood},
		{69, model.GradePass},
		{50, model.GradePass},
		{49, model.GradeFail},
		{0, model.GradeFail},
	}
	for _, tc := range cases {
		if got := GradeLabel(tc.pct); got != tc.want {
			t.Errorf("GradeLabel(%d) = %q, want %q", tc.pct, got, tc.want)
		}
	}
}
