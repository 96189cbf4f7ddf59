package ai

import (
	"context"

	"quizgen/internal/domain"
)

// StaticGenerator serves a fixed question bank. Used for demos and local runs without an API key.
type StaticGenerator struct {
	questions []domain.Question
}

// NewStaticGenerator returns a generator over questions, or over SampleQuestions when none are given.
func NewStaticGenerator(questions ...domain.Question) *StaticGenerator {
	if len(questions) == 0 {
		questions = SampleQuestions()
	}
	return &StaticGenerator{questions: questions}
}

// Generate returns up to req.Count questions in bank order, ignoring the topic.
func (g *StaticGenerator) Generate(ctx context.Context, req domain.GenerationRequest) ([]domain.Question, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := req.Count
	if n <= 0 || n > len(g.questions) {
		n = len(g.questions)
	}
	out := make([]domain.Question, n)
	copy(out, g.questions[:n])
	return out, nil
}

func SampleQuestions() []domain.Question {
	q := func(text string, options [4]string, right int) domain.Question {
		return domain.Question{
			Text:        text,
			Options:     options[:],
			RightAnswer: domain.RightAnswer{Index: right, Text: options[right-1]},
		}
	}
	return []domain.Question{
		q("What is the capital of France?", [4]string{"Berlin", "Paris", "Madrid", "Rome"}, 2),
		q("Which planet is known as the Red Planet?", [4]string{"Mars", "Venus", "Jupiter", "Mercury"}, 1),
		q("How many continents are there?", [4]string{"Five", "Six", "Seven", "Eight"}, 3),
		q("What is the chemical symbol for gold?", [4]string{"Ag", "Gd", "Go", "Au"}, 4),
		q("Who wrote 'Don Quixote'?", [4]string{"Cervantes", "Lorca", "Borges", "Neruda"}, 1),
		q("What is the largest ocean on Earth?", [4]string{"Atlantic", "Indian", "Pacific", "Arctic"}, 3),
		q("How many sides does a hexagon have?", [4]string{"Five", "Six", "Seven", "Eight"}, 2),
		q("Which gas do plants absorb from the air?", [4]string{"Oxygen", "Nitrogen", "Helium", "Carbon dioxide"}, 4),
		q("What is the boiling point of water at sea level?", [4]string{"90 °C", "100 °C", "110 °C", "120 °C"}, 2),
		q("Which language runs in web browsers natively?", [4]string{"JavaScript", "Go", "Rust", "Python"}, 1),
	}
}
