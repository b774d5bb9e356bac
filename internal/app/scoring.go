package app

import "quiz-attempt-service/internal/domain"

// Score classifies every loaded question as correct, incorrect, or
// unanswered and totals the marks. The three counts always sum to
// len(questions). An answer referencing a question ID outside the loaded
// set is ignored rather than counted against anything.
func Score(questions []domain.Question, answers map[string]int, marksPerQuestion int) domain.Tally {
	var tally domain.Tally
	for _, q := range questions {
		selected, ok := answers[q.ID]
		switch {
		case !ok:
			tally.TotalUnanswered++
		case selected == q.CorrectIndex:
			tally.TotalCorrect++
		default:
			tally.TotalIncorrect++
		}
	}
	tally.Score = tally.TotalCorrect * marksPerQuestion
	return tally
}
