package news

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/Bayashat/zerde-bot/internal/config"
	"github.com/Bayashat/zerde-bot/internal/logger"
)

const scoringChunkSize = 20

// defaultImpact is assigned when the model skips an item or a chunk fails.
const defaultImpact = 5

// AI scores and summarizes news through an OpenAI-compatible chat API
// (the default deployment points it at Groq).
type AI struct {
	client *openai.Client
	model  string
	lang   string
}

// NewAI builds the client; an empty base URL uses the provider default.
func NewAI(cfg config.NewsConfig) *AI {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.APIBaseURL != "" {
		clientCfg.BaseURL = cfg.APIBaseURL
	}
	return &AI{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		lang:   cfg.Language,
	}
}

type scoreEntry struct {
	ID          int    `json:"id"`
	ImpactScore int    `json:"impact_score"`
	Reason      string `json:"reason"`
}

// EvaluateImpact rates every item 1-10 in chunks. A failed chunk gets the
// default score instead of failing the digest.
func (a *AI) EvaluateImpact(ctx context.Context, pool []Item) []Item {
	scored := make([]Item, 0, len(pool))
	for start := 0; start < len(pool); start += scoringChunkSize {
		end := start + scoringChunkSize
		if end > len(pool) {
			end = len(pool)
		}
		chunk := pool[start:end]

		entries, err := a.scoreChunk(ctx, chunk)
		if err != nil {
			logger.Error(ctx, "news", "scoring.chunk_failed",
				slog.Int("count", len(chunk)),
				slog.String("err", err.Error()),
			)
			entries = nil
		}

		byID := make(map[int]scoreEntry, len(entries))
		for _, e := range entries {
			byID[e.ID] = e
		}
		for _, item := range chunk {
			if e, ok := byID[item.ID]; ok {
				item.ImpactScore = e.ImpactScore
				item.Reason = e.Reason
			} else {
				item.ImpactScore = defaultImpact
				item.Reason = "not returned by model"
			}
			scored = append(scored, item)
		}
	}
	return scored
}

func (a *AI) scoreChunk(ctx context.Context, chunk []Item) ([]scoreEntry, error) {
	payload := make([]map[string]any, 0, len(chunk))
	for _, item := range chunk {
		payload = append(payload, map[string]any{"id": item.ID, "title": item.Title})
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal scoring payload: %w", err)
	}

	prompt := "Rate global IT market impact (1-10):\n" +
		"- 10: Massive investments ($100B+), AI breakthroughs, critical security\n" +
		"- 5: Major updates, new features\n" +
		"- 1: Minor bug fixes\n" +
		"Respond ONLY with valid JSON array of objects: " +
		`[{"id": int, "impact_score": int, "reason": "short string"}]` + "\n" +
		"Data: " + string(data)

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		Temperature: 0.1,
		MaxTokens:   2000,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("score chunk: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("score chunk: empty response")
	}
	return parseScores(resp.Choices[0].Message.Content)
}

var jsonArrayPattern = regexp.MustCompile(`(?s)\[.*\]`)

// parseScores tolerates prose around the JSON array the prompt asks for.
func parseScores(content string) ([]scoreEntry, error) {
	content = strings.TrimSpace(content)
	if match := jsonArrayPattern.FindString(content); match != "" {
		content = match
	}
	var entries []scoreEntry
	if err := json.Unmarshal([]byte(content), &entries); err != nil {
		return nil, fmt.Errorf("parse scores: %w", err)
	}
	return entries, nil
}

// TopByImpact returns the n highest-scored items.
func TopByImpact(pool []Item, n int) []Item {
	sorted := append([]Item(nil), pool...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ImpactScore > sorted[j].ImpactScore
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// Summarize renders the digest text for the selected items.
func (a *AI) Summarize(ctx context.Context, items []Item) (string, error) {
	if len(items) == 0 {
		return noNewsMessage(a.lang), nil
	}

	var b strings.Builder
	for i, item := range items {
		if i > 0 {
			b.WriteString("\n\n")
		}
		summary := item.Summary
		if summary == "" {
			summary = "Жоқ"
		}
		fmt.Fprintf(&b, "Тақырып: %s\nСипаттама: %s", item.Title, summary)
	}

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		Temperature: 0.7,
		MaxTokens:   1200,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: summarySystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: a.summaryPrompt(b.String())},
		},
	})
	if err != nil {
		return "", fmt.Errorf("generate summary: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("generate summary: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}

const summarySystemPrompt = "Сіз IT және developer жаңалықтарын қазақ тілінде жазатын " +
	"техникалық журналистсіз. Тек өте маңызды және актуалды жаңалықтарды таңдаңыз."

func (a *AI) summaryPrompt(newsText string) string {
	if a.lang != "kk" {
		return fmt.Sprintf("Summarize these IT news in %s:\n%s", a.lang, newsText)
	}
	return `Мына IT жаңалықтарын қазақ тілінде қысқаша мазмұндаңыз.

МАҢЫЗДЫ ФОРМАТТАУ ЕРЕЖЕЛЕРІ:
1. Тек 3 ең маңызды және қызықты жаңалықты таңдаңыз
2. Developer және IT-қа қатысты мазмұнға басымдық беріңіз
3. Сілтемелерді ҚОСПАҢЫЗ (оларды жібермеңіз)
4. Цитата (blockquote) форматын пайдаланыңыз: <blockquote>Сипаттама</blockquote>

Форматы:
🔥<b>Күннің IT жаңалықтары</b>

<b>[Bold тақырып - қысқа және нақты]</b>
<blockquote>Қысқаша сипаттама 2-3 сөйлем. Неге бұл маңызды? Әсері қандай?</blockquote>

Жаңалықтар:
` + newsText + `

Есте сақтаңыз:
- Emoji пайдаланыңыз (🚀 🔥 💻 🤖 🔒 ⚡ etc)
- Тақырыпты BOLD етіңіз: <b>Тақырып</b>
- Сипаттаманы blockquote етіңіз: <blockquote>Сипаттама</blockquote>
- Сілтемелерді ҚОСПАҢЫЗ
- Тек ең маңызды 3 жаңалық`
}

func noNewsMessage(lang string) string {
	switch lang {
	case "kk":
		return "📭 Бүгін жаңалық жоқ."
	case "ru":
		return "📭 Сегодня новостей нет."
	default:
		return "📭 No news today."
	}
}
