// Package console runs the quiz as an interactive terminal game.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/terra-clan/trivia-engine/internal/models"
	"github.com/terra-clan/trivia-engine/internal/quiz"
)

// errInputClosed ends the game early when the player closes stdin
var errInputClosed = errors.New("input closed")

// Game is one interactive console game
type Game struct {
	Engine *quiz.Engine
	In     io.Reader
	Out    io.Writer
	// Pause is how long results stay on screen before the next question
	Pause time.Duration

	scanner *bufio.Scanner
}

// Run plays a full session and returns its final score
func (g *Game) Run(ctx context.Context) (models.Score, error) {
	g.scanner = bufio.NewScanner(g.In)

	g.displayWelcome()
	if _, err := g.readLine(); err != nil && !errors.Is(err, errInputClosed) {
		return models.Score{}, err
	}

	session, err := g.Engine.Start(ctx)
	if err != nil {
		return models.Score{}, fmt.Errorf("start game: %w", err)
	}

	for g.Engine.HasNext(session) {
		if err := ctx.Err(); err != nil {
			return g.Engine.Score(session), err
		}

		q := g.Engine.NextQuestion(session)
		g.displayQuestion(q, session.Answered()+1)

		choice, err := g.readChoice(q)
		if errors.Is(err, errInputClosed) {
			break
		}
		if err != nil {
			return g.Engine.Score(session), err
		}

		res, err := g.Engine.SubmitAnswer(ctx, session, q.ID, choice)
		if err != nil {
			return g.Engine.Score(session), fmt.Errorf("submit answer: %w", err)
		}

		g.displayResult(res)
		if res.TierChanged {
			g.displayTierChange(res.Tier)
		}
		g.pause(ctx)
	}

	score := g.Engine.Score(session)
	g.displayGameOver(score)
	return score, nil
}

// readChoice reads a 1-based option number, asking again until it is valid
func (g *Game) readChoice(q *models.Question) (string, error) {
	for {
		fmt.Fprintf(g.Out, "\nYour answer (1-%d): ", len(q.Options))

		line, err := g.readLine()
		if err != nil {
			return "", err
		}

		n, err := strconv.Atoi(strings.TrimSpace(line))
		if err != nil {
			fmt.Fprintln(g.Out, "! Please enter a valid number.")
			continue
		}
		if n < 1 || n > len(q.Options) {
			fmt.Fprintf(g.Out, "! Please enter a number between 1 and %d.\n", len(q.Options))
			continue
		}

		return q.Options[n-1], nil
	}
}

func (g *Game) readLine() (string, error) {
	if g.scanner.Scan() {
		return g.scanner.Text(), nil
	}
	if err := g.scanner.Err(); err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return "", errInputClosed
}

func (g *Game) pause(ctx context.Context) {
	if g.Pause <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(g.Pause):
	}
}

func (g *Game) displayWelcome() {
	rule := strings.Repeat("=", 60)
	fmt.Fprintln(g.Out, rule)
	fmt.Fprintln(g.Out, "            WELCOME TO THE TRIVIA GAME")
	fmt.Fprintln(g.Out, rule)
	fmt.Fprintln(g.Out, "\n>> HOW TO PLAY:")
	fmt.Fprintln(g.Out, "  - Answer each question by typing the number of an option.")
	fmt.Fprintf(g.Out, "  - Three correct answers in a row raise the difficulty.\n")
	fmt.Fprintf(g.Out, "  - Starting level: %s\n", strings.ToUpper(models.TierEasy.String()))
	fmt.Fprintf(g.Out, "  - The game ends after %d answers.\n", g.Engine.Target())
	fmt.Fprintln(g.Out, "\n>> Press ENTER to start...")
}

func (g *Game) displayQuestion(q *models.Question, number int) {
	rule := strings.Repeat("-", 60)
	fmt.Fprintln(g.Out, "\n"+rule)
	fmt.Fprintf(g.Out, "| QUESTION %d/%d | DIFFICULTY: %s |\n", number, g.Engine.Target(), strings.ToUpper(q.Tier.String()))
	fmt.Fprintln(g.Out, rule)
	fmt.Fprintf(g.Out, "\n>> %s\n\n", q.Prompt)
	for i, opt := range q.Options {
		fmt.Fprintf(g.Out, "  %d. %s\n", i+1, opt)
	}
}

func (g *Game) displayResult(res *quiz.AnswerResult) {
	if res.IsCorrect {
		fmt.Fprintln(g.Out, "\n*** CORRECT! ***")
		return
	}
	fmt.Fprintf(g.Out, "\n--- WRONG. The correct answer was: %s\n", res.CorrectOption)
}

func (g *Game) displayTierChange(tier models.Tier) {
	fmt.Fprintf(g.Out, "\n!!! DIFFICULTY RAISED TO %s !!!\n", strings.ToUpper(tier.String()))
	fmt.Fprintln(g.Out, "New questions have been selected for this level.")
}

func (g *Game) displayGameOver(score models.Score) {
	rule := strings.Repeat("=", 60)
	fmt.Fprintln(g.Out, "\n"+rule)
	fmt.Fprintln(g.Out, "                      GAME OVER")
	fmt.Fprintln(g.Out, rule)
	fmt.Fprintln(g.Out, "\n>> SUMMARY:")
	fmt.Fprintf(g.Out, "  - Questions answered: %d\n", score.TotalAnswered)
	fmt.Fprintf(g.Out, "  - Correct answers: %d\n", score.CorrectCount)
	fmt.Fprintf(g.Out, "  - Incorrect answers: %d\n", score.IncorrectCount)
	fmt.Fprintf(g.Out, "\n>> ACCURACY: %.2f%%\n", score.Accuracy)
	fmt.Fprintf(g.Out, "\n>> RATING: %s\n", Rating(score.Accuracy))
	fmt.Fprintf(g.Out, "\n>> DIFFICULTY REACHED: %s\n", strings.ToUpper(score.Tier.String()))
	fmt.Fprintln(g.Out, "\nThanks for playing!")
}

// Rating describes an accuracy percentage
func Rating(accuracy float64) string {
	switch {
	case accuracy >= 90:
		return "EXCELLENT! You are a trivia master."
	case accuracy >= 70:
		return "VERY GOOD! You have solid general knowledge."
	case accuracy >= 50:
		return "WELL DONE! There is still room to improve."
	default:
		return "Keep practicing. Don't give up!"
	}
}
