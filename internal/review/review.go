// Package review scores generated replies and suggests follow-up actions
// before a response is finalized.
package review

import (
	"strings"

	"mailpilot/internal/analyze"
)

// Evaluation holds the quality metrics for a generated reply.
type Evaluation struct {
	LengthRatio        float64 `json:"length_ratio"`
	QuestionsAnswered  float64 `json:"questions_answered"`
	ToneConsistency    float64 `json:"tone_consistency"`
	HallucinationScore float64 `json:"hallucination_score"`
	OverallScore       float64 `json:"overall_score"`
}

var questionIndicators = []string{"?", "can you", "could you", "would you"}

var answerIndicators = []string{"yes", "no", "here is", "attached", "please find"}

var professionalWords = []string{"please", "thank you", "regards", "sincerely"}

var casualWords = []string{"hey", "hi", "thanks", "cheers"}

// Phrases that assert actions the assistant has not actually taken.
var hallucinationIndicators = []string{
	"i confirm",
	"as requested",
	"per our conversation",
	"attached you will find",
	"i have sent",
}

// Evaluate scores a generated reply against the email it answers.
func Evaluate(emailBody, response string) Evaluation {
	eval := Evaluation{
		LengthRatio:        lengthRatio(emailBody, response),
		QuestionsAnswered:  questionsAnswered(emailBody, response),
		ToneConsistency:    toneConsistency(response),
		HallucinationScore: hallucinationScore(response),
	}
	eval.OverallScore = overallScore(eval)
	return eval
}

func lengthRatio(emailBody, response string) float64 {
	emailLen := len(emailBody)
	if emailLen == 0 {
		emailLen = 1
	}
	return float64(len(response)) / float64(emailLen)
}

// questionsAnswered estimates how many of the email's questions the
// reply addresses. Emails without questions score 1.0.
func questionsAnswered(emailBody, response string) float64 {
	body := strings.ToLower(emailBody)
	questions := 0
	for _, indicator := range questionIndicators {
		if strings.Contains(body, indicator) {
			questions++
		}
	}
	if questions == 0 {
		return 1.0
	}

	reply := strings.ToLower(response)
	answers := 0
	for _, indicator := range answerIndicators {
		if strings.Contains(reply, indicator) {
			answers++
		}
	}

	score := float64(answers) / float64(questions)
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// toneConsistency is higher when the reply sticks to one register
// instead of mixing professional and casual phrasing.
func toneConsistency(response string) float64 {
	reply := strings.ToLower(response)
	totalWords := len(strings.Fields(response))
	if totalWords == 0 {
		return 0.5
	}

	professional := 0
	for _, word := range professionalWords {
		professional += strings.Count(reply, word)
	}
	casual := 0
	for _, word := range casualWords {
		casual += strings.Count(reply, word)
	}

	diff := professional - casual
	if diff < 0 {
		diff = -diff
	}
	return float64(diff) / float64(totalWords)
}

// hallucinationScore decays toward zero as the reply asserts actions
// that were never performed. A clean reply scores 1.0.
func hallucinationScore(response string) float64 {
	reply := strings.ToLower(response)
	count := 0
	for _, indicator := range hallucinationIndicators {
		if strings.Contains(reply, indicator) {
			count++
		}
	}
	return 1.0 / (1.0 + float64(count))
}

// overallScore blends the metrics into a single 0..1 quality figure.
func overallScore(eval Evaluation) float64 {
	// A reply should be neither a one-liner brushing off a long email
	// nor many times its length.
	lengthScore := 1.0
	if eval.LengthRatio < 0.1 {
		lengthScore = eval.LengthRatio / 0.1
	} else if eval.LengthRatio > 5.0 {
		lengthScore = 5.0 / eval.LengthRatio
	}

	toneScore := eval.ToneConsistency * 10
	if toneScore > 1.0 {
		toneScore = 1.0
	}

	return 0.15*lengthScore + 0.35*eval.QuestionsAnswered + 0.15*toneScore + 0.35*eval.HallucinationScore
}

// SuggestFollowUps returns follow-up actions a human should consider
// after the reply goes out, based on the email's intent and priority.
func SuggestFollowUps(intent, priority string) []string {
	var suggestions []string

	switch intent {
	case analyze.IntentQuestion:
		suggestions = append(suggestions, "search_knowledge_base", "consult_team_lead")
	case analyze.IntentRequest:
		suggestions = append(suggestions, "create_task", "update_tracker")
	case analyze.IntentScheduling:
		suggestions = append(suggestions, "send_calendar_invite", "set_reminder")
	}

	if priority == analyze.PriorityUrgent {
		suggestions = append(suggestions, "notify_manager")
	}

	return suggestions
}
