// Package agent runs the no-tools LLM agent that turns dashboard
// aggregates into a pt-BR management report.
package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"
	"google.golang.org/genai"

	"medicrm_backend/internal/dashboard/aggregate"
	"medicrm_backend/internal/dashboard/repository"
	"medicrm_backend/platform/ai/moonshot"
)

const appName = "medicrm-reporter"

const systemPrompt = `Você é um analista de gestão de clínicas de estética e saúde.
Receberá métricas agregadas do funil comercial de uma clínica (leads, conversões,
agendamentos e desempenho de anúncios) e deve produzir um relatório gerencial em
português do Brasil, em markdown.

Estrutura obrigatória:
1. **Resumo executivo** (3 a 5 frases)
2. **Funil de leads** (volume, conversão, valor projetado vs. realizado)
3. **Serviços mais procurados**
4. **Desempenho de anúncios** (destaque os melhores e piores)
5. **Recomendações práticas** (lista curta e acionável)

Use apenas os números fornecidos. Não invente dados. Valores monetários estão em
centavos de real; apresente-os formatados em reais.`

// Reporter renders management reports through the Kimi model.
type Reporter struct {
	agent          agent.Agent
	runner         *runner.Runner
	sessionService session.Service
	runMu          sync.Mutex
}

// NewReporter creates the report generator agent without tools.
func NewReporter(apiKey string) (*Reporter, error) {
	kimi := moonshot.NewModel(moonshot.Config{
		APIKey: apiKey,
	})

	adkAgent, err := llmagent.New(llmagent.Config{
		Name:        "ManagementReporter",
		Model:       kimi,
		Description: "Writes pt-BR management reports from CRM aggregates.",
		Instruction: systemPrompt,
	})
	if err != nil {
		return nil, fmt.Errorf("create reporter agent: %w", err)
	}

	sessionService := session.InMemoryService()
	r, err := runner.New(runner.Config{
		AppName:        appName,
		Agent:          adkAgent,
		SessionService: sessionService,
	})
	if err != nil {
		return nil, fmt.Errorf("create reporter runner: %w", err)
	}

	return &Reporter{
		agent:          adkAgent,
		runner:         r,
		sessionService: sessionService,
	}, nil
}

// Generate renders a markdown report from the tenant's aggregates.
func (g *Reporter) Generate(ctx context.Context, tenantID uuid.UUID, period string, leads []aggregate.Lead, appointments []aggregate.Appointment, kpis repository.KPIs) (string, error) {
	g.runMu.Lock()
	defer g.runMu.Unlock()

	promptText := BuildPrompt(period, leads, appointments, kpis)
	sessionID := uuid.New().String()
	userID := "report-" + tenantID.String()

	_, err := g.sessionService.Create(ctx, &session.CreateRequest{
		AppName:   appName,
		UserID:    userID,
		SessionID: sessionID,
	})
	if err != nil {
		return "", fmt.Errorf("report agent: create session: %w", err)
	}
	defer func() {
		_ = g.sessionService.Delete(ctx, &session.DeleteRequest{
			AppName:   appName,
			UserID:    userID,
			SessionID: sessionID,
		})
	}()

	userMessage := &genai.Content{
		Role: "user",
		Parts: []*genai.Part{{
			Text: promptText,
		}},
	}

	runConfig := agent.RunConfig{StreamingMode: agent.StreamingModeNone}

	var output strings.Builder
	for event, err := range g.runner.Run(ctx, userID, sessionID, userMessage, runConfig) {
		if err != nil {
			return "", fmt.Errorf("report agent: run failed: %w", err)
		}
		if event.Content == nil {
			continue
		}
		for _, part := range event.Content.Parts {
			output.WriteString(part.Text)
		}
	}

	report := strings.TrimSpace(output.String())
	if report == "" {
		return "", fmt.Errorf("report agent: empty response")
	}
	return report, nil
}

// BuildPrompt renders the aggregates into the user prompt. Exported for
// tests.
func BuildPrompt(period string, leads []aggregate.Lead, appointments []aggregate.Appointment, kpis repository.KPIs) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Período analisado: %s\n\n", period)

	fmt.Fprintf(&b, "Indicadores gerais:\n")
	fmt.Fprintf(&b, "- Total de leads: %d\n", kpis.TotalLeads)
	fmt.Fprintf(&b, "- Leads convertidos: %d\n", kpis.ConvertedLeads)
	fmt.Fprintf(&b, "- Leads em aberto: %d\n", kpis.OpenLeads)
	fmt.Fprintf(&b, "- Valor projetado (centavos): %d\n", kpis.ProjectedValueCents)
	fmt.Fprintf(&b, "- Valor convertido (centavos): %d\n\n", kpis.ConvertedValueCents)

	series := aggregate.LeadTimeSeries(leads, earliest(leads), latest(leads))
	fmt.Fprintf(&b, "Leads por dia:\n")
	for _, point := range series {
		fmt.Fprintf(&b, "- %s: %d\n", point.Label, point.Count)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "Conversões por serviço:\n")
	for _, category := range aggregate.ConversionsByCategory(leads, appointments) {
		fmt.Fprintf(&b, "- %s: %d\n", category.Category, category.Conversions)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "Desempenho de anúncios:\n")
	for _, ad := range aggregate.AdPerformance(leads) {
		fmt.Fprintf(&b, "- %s: %d leads, %d conversões\n", ad.AdName, ad.Leads, ad.Conversions)
	}

	return b.String()
}

func earliest(leads []aggregate.Lead) time.Time {
	var first time.Time
	for _, lead := range leads {
		if first.IsZero() || lead.CreatedAt.Before(first) {
			first = lead.CreatedAt
		}
	}
	return first
}

func latest(leads []aggregate.Lead) time.Time {
	var last time.Time
	for _, lead := range leads {
		if lead.CreatedAt.After(last) {
			last = lead.CreatedAt
		}
	}
	return last
}
