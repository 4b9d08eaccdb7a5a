// llmtest is a manual smoke test for the generator backends. It sends one
// mid-conversation turn and prints the raw decision JSON each backend returns.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/fieldline/voice-agent-platform/internal/llm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	req := llm.Request{
		System: []string{
			"You are the phone receptionist for Comfort Air Heating and Cooling.",
			`Respond with a single JSON object {"slot","ack","values"} and nothing else.`,
			"Already collected: name (Dana Smith). Still needed, in order: phone, address.",
		},
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: "Hi, my AC stopped cooling this morning."},
			{Role: llm.RoleAssistant, Content: "Sorry to hear that! Can I get your name?"},
			{Role: llm.RoleUser, Content: "It's Dana Smith, and it's getting pretty hot in here."},
		},
		MaxTokens:   120,
		Temperature: 0.2,
	}

	geminiKey := os.Getenv("GEMINI_API_KEY")
	if geminiKey == "" {
		fmt.Println("GEMINI_API_KEY not set, nothing to test")
		return
	}

	model := os.Getenv("GEMINI_MODEL_ID")
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := llm.NewGeminiClient(ctx, geminiKey, model)
	if err != nil {
		log.Fatalf("create gemini client: %v", err)
	}

	start := time.Now()
	resp, err := client.Complete(ctx, req)
	elapsed := time.Since(start)
	if err != nil {
		log.Fatalf("gemini complete: %v", err)
	}

	fmt.Printf("response (%v):\n%s\n", elapsed.Round(time.Millisecond), resp.Text)
	fmt.Printf("tokens: in=%d out=%d stop=%s\n", resp.Usage.InputTokens, resp.Usage.OutputTokens, resp.StopReason)
}
