package planner

import "github.com/polisai/educator-agent/pkg/domain"

// DemoPlan is returned when no LLM client is configured.
func DemoPlan() domain.CurriculumPlan {
	return domain.CurriculumPlan{
		LessonTitle: "Introduction to Environmental Science",
		LearningObjectives: []string{
			"Students will define what an ecosystem is",
			"Students will identify biotic and abiotic factors",
			"Students will explain food chains and energy flow",
		},
		ContentOutline: []domain.Section{
			{
				Title:       "What is an Ecosystem?",
				Description: "Introduce the concept of ecosystems using local examples",
			},
			{
				Title:       "Living vs Non-Living Components",
				Description: "Explore biotic and abiotic factors through hands-on activities",
			},
			{
				Title:       "Energy Flow in Ecosystems",
				Description: "Demonstrate food chains and energy transfer concepts",
			},
		},
		SuggestedAssessments: []string{
			"Ecosystem components identification worksheet",
			"Food chain construction activity",
			"Exit ticket with key vocabulary terms",
		},
	}
}
