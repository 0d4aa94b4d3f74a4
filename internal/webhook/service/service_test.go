package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/google/uuid"

	"medicrm_backend/internal/auth/token"
	"medicrm_backend/internal/events"
	leadstransport "medicrm_backend/internal/leads/transport"
	"medicrm_backend/internal/scheduler"
	"medicrm_backend/internal/webhook/repository"
	"medicrm_backend/platform/apperr"
	"medicrm_backend/platform/logger"
)

type fakeRepo struct {
	tokens map[string]repository.Token
	events map[uuid.UUID]*repository.Event
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		tokens: make(map[string]repository.Token),
		events: make(map[uuid.UUID]*repository.Event),
	}
}

func (f *fakeRepo) CreateToken(_ context.Context, tenantID uuid.UUID, label, tokenHash string) (repository.Token, error) {
	t := repository.Token{ID: uuid.New(), TenantID: tenantID, Label: label, TokenHash: tokenHash}
	f.tokens[tokenHash] = t
	return t, nil
}

func (f *fakeRepo) ListTokens(_ context.Context, tenantID uuid.UUID) ([]repository.Token, error) {
	var out []repository.Token
	for _, t := range f.tokens {
		if t.TenantID == tenantID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeRepo) DeleteToken(_ context.Context, tenantID, id uuid.UUID) error {
	for hash, t := range f.tokens {
		if t.TenantID == tenantID && t.ID == id {
			delete(f.tokens, hash)
			return nil
		}
	}
	return apperr.NotFound("token not found")
}

func (f *fakeRepo) ResolveTenant(_ context.Context, tokenHash string) (uuid.UUID, error) {
	t, ok := f.tokens[tokenHash]
	if !ok {
		return uuid.Nil, apperr.Unauthorized("unknown intake token")
	}
	return t.TenantID, nil
}

func (f *fakeRepo) CreateEvent(_ context.Context, tenantID uuid.UUID, sourceDomain string, payload []byte, leadID *uuid.UUID, incomplete bool) (repository.Event, error) {
	e := repository.Event{
		ID:           uuid.New(),
		TenantID:     tenantID,
		SourceDomain: sourceDomain,
		Payload:      payload,
		LeadID:       leadID,
		IsIncomplete: incomplete,
	}
	f.events[e.ID] = &e
	return e, nil
}

func (f *fakeRepo) GetEvent(_ context.Context, tenantID, id uuid.UUID) (repository.Event, error) {
	e, ok := f.events[id]
	if !ok || e.TenantID != tenantID {
		return repository.Event{}, apperr.NotFound("event not found")
	}
	return *e, nil
}

func (f *fakeRepo) SetEventLead(_ context.Context, id, leadID uuid.UUID, incomplete bool) error {
	e, ok := f.events[id]
	if !ok {
		return apperr.NotFound("event not found")
	}
	e.LeadID = &leadID
	e.IsIncomplete = incomplete
	return nil
}

type fakeLeads struct {
	requests []leadstransport.CreateLeadRequest
	fail     bool
}

func (f *fakeLeads) Create(_ context.Context, _ uuid.UUID, req leadstransport.CreateLeadRequest) (leadstransport.LeadResponse, error) {
	if f.fail {
		return leadstransport.LeadResponse{}, apperr.Internal("lead store down")
	}
	f.requests = append(f.requests, req)
	return leadstransport.LeadResponse{ID: uuid.New(), Name: req.Name}, nil
}

type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *recordingBus) PublishSync(ctx context.Context, event events.Event) error {
	b.Publish(ctx, event)
	return nil
}

func (b *recordingBus) Subscribe(eventName string, handler events.Handler) {}

func newService(t *testing.T) (*Service, *fakeRepo, *fakeLeads, *recordingBus) {
	t.Helper()
	repo := newFakeRepo()
	leads := &fakeLeads{}
	bus := &recordingBus{}
	return New(repo, leads, bus, nil, logger.New("test")), repo, leads, bus
}

func issueToken(t *testing.T, svc *Service, tenantID uuid.UUID) string {
	t.Helper()
	created, err := svc.CreateToken(context.Background(), tenantID, "landing page")
	if err != nil {
		t.Fatalf("CreateToken: %v", err)
	}
	return created.Token
}

func TestIntakeCreatesLeadFromFormFields(t *testing.T) {
	svc, repo, leads, bus := newService(t)
	tenantID := uuid.New()
	raw := issueToken(t, svc, tenantID)

	resp, err := svc.Intake(context.Background(), raw, "forms.example.com", map[string]interface{}{
		"nome":     "Mariana Costa",
		"telefone": "+55 11 98888-1234",
		"servico":  "Harmonização facial",
		"ad_name":  "Campanha Botox Agosto",
	})
	if err != nil {
		t.Fatalf("Intake: %v", err)
	}
	if resp.LeadID == nil {
		t.Fatal("expected a lead to be created")
	}
	if resp.Incomplete {
		t.Fatal("submission with name and phone should not be flagged incomplete")
	}
	if len(leads.requests) != 1 {
		t.Fatalf("expected 1 lead request, got %d", len(leads.requests))
	}
	req := leads.requests[0]
	if req.Name != "Mariana Costa" {
		t.Fatalf("unexpected lead name %q", req.Name)
	}
	if req.AdName == nil || *req.AdName != "Campanha Botox Agosto" {
		t.Fatalf("ad name not carried over: %v", req.AdName)
	}

	stored, err := repo.GetEvent(context.Background(), tenantID, resp.EventID)
	if err != nil {
		t.Fatalf("GetEvent: %v", err)
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(stored.Payload, &payload); err != nil {
		t.Fatalf("stored payload is not valid json: %v", err)
	}
	if payload["nome"] != "Mariana Costa" {
		t.Fatal("raw payload was not stored verbatim")
	}

	if len(bus.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(bus.events))
	}
	captured, ok := bus.events[0].(events.WebhookLeadCaptured)
	if !ok {
		t.Fatalf("unexpected event type %T", bus.events[0])
	}
	if captured.LeadID != *resp.LeadID || captured.SourceDomain != "forms.example.com" {
		t.Fatalf("unexpected event contents: %+v", captured)
	}
}

func TestIntakeRejectsUnknownToken(t *testing.T) {
	svc, _, _, _ := newService(t)

	_, err := svc.Intake(context.Background(), "not-a-token", "forms.example.com", map[string]interface{}{"nome": "X"})
	if apperr.GetKind(err) != apperr.KindUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}

	_, err = svc.Intake(context.Background(), "", "forms.example.com", map[string]interface{}{"nome": "X"})
	if apperr.GetKind(err) != apperr.KindUnauthorized {
		t.Fatalf("expected unauthorized for empty token, got %v", err)
	}
}

func TestIntakeKeepsSubmissionWithoutAnyFields(t *testing.T) {
	svc, repo, leads, bus := newService(t)
	tenantID := uuid.New()
	raw := issueToken(t, svc, tenantID)

	resp, err := svc.Intake(context.Background(), raw, "", map[string]interface{}{
		"mensagem": "Gostaria de mais informações",
	})
	if err != nil {
		t.Fatalf("Intake: %v", err)
	}
	if resp.LeadID != nil {
		t.Fatal("submission without name or contact must not create a lead")
	}
	if !resp.Incomplete {
		t.Fatal("submission should be flagged incomplete")
	}
	if len(leads.requests) != 0 {
		t.Fatal("leads service should not have been called")
	}
	if len(bus.events) != 0 {
		t.Fatal("no lead means no captured event")
	}
	if _, err := repo.GetEvent(context.Background(), tenantID, resp.EventID); err != nil {
		t.Fatalf("event row should still exist: %v", err)
	}
}

func TestIntakeFallsBackToPlaceholderName(t *testing.T) {
	svc, _, leads, _ := newService(t)
	raw := issueToken(t, svc, uuid.New())

	resp, err := svc.Intake(context.Background(), raw, "", map[string]interface{}{
		"telefone": "(11) 97777-0000",
	})
	if err != nil {
		t.Fatalf("Intake: %v", err)
	}
	if resp.LeadID == nil {
		t.Fatal("phone-only submission should still create a lead")
	}
	if !resp.Incomplete {
		t.Fatal("nameless submission should be flagged incomplete")
	}
	if len(leads.requests) != 1 || leads.requests[0].Name != fallbackLeadName {
		t.Fatalf("expected placeholder name, got %+v", leads.requests)
	}
}

func TestIntakeSurvivesLeadStoreFailure(t *testing.T) {
	svc, repo, leads, bus := newService(t)
	leads.fail = true
	tenantID := uuid.New()
	raw := issueToken(t, svc, tenantID)

	resp, err := svc.Intake(context.Background(), raw, "", map[string]interface{}{
		"nome": "Sem Sorte", "email": "semsorte@example.com",
	})
	if err != nil {
		t.Fatalf("intake must not fail when lead creation fails: %v", err)
	}
	if resp.LeadID != nil {
		t.Fatal("no lead id expected on lead store failure")
	}
	if len(bus.events) != 0 {
		t.Fatal("no event expected on lead store failure")
	}
	if _, err := repo.GetEvent(context.Background(), tenantID, resp.EventID); err != nil {
		t.Fatalf("submission should still be stored: %v", err)
	}
}

func TestTokenSecretIsHashedAtRest(t *testing.T) {
	svc, repo, _, _ := newService(t)
	tenantID := uuid.New()

	created, err := svc.CreateToken(context.Background(), tenantID, "instagram bio")
	if err != nil {
		t.Fatalf("CreateToken: %v", err)
	}
	if created.Token == "" {
		t.Fatal("raw token must be returned on creation")
	}
	if _, ok := repo.tokens[created.Token]; ok {
		t.Fatal("raw token must not be stored")
	}
	if _, ok := repo.tokens[token.HashSHA256(created.Token)]; !ok {
		t.Fatal("token hash should be stored")
	}

	listed, err := svc.ListTokens(context.Background(), tenantID)
	if err != nil {
		t.Fatalf("ListTokens: %v", err)
	}
	if len(listed.Tokens) != 1 || listed.Tokens[0].Label != "instagram bio" {
		t.Fatalf("unexpected token list: %+v", listed)
	}

	if err := svc.DeleteToken(context.Background(), tenantID, created.ID); err != nil {
		t.Fatalf("DeleteToken: %v", err)
	}
	if _, err := svc.Intake(context.Background(), created.Token, "", map[string]interface{}{"nome": "X"}); apperr.GetKind(err) != apperr.KindUnauthorized {
		t.Fatalf("revoked token should be rejected, got %v", err)
	}
}

type fakeEnqueuer struct {
	replays []uuid.UUID
}

func (f *fakeEnqueuer) EnqueueReportGenerate(context.Context, scheduler.ReportGeneratePayload) error {
	return nil
}

func (f *fakeEnqueuer) EnqueueWebhookReplay(_ context.Context, payload scheduler.WebhookReplayPayload) error {
	f.replays = append(f.replays, payload.EventID)
	return nil
}

func TestRequestReplaySchedulesTask(t *testing.T) {
	repo := newFakeRepo()
	enqueuer := &fakeEnqueuer{}
	svc := New(repo, &fakeLeads{}, &recordingBus{}, enqueuer, logger.New("test"))
	tenantID := uuid.New()
	raw := issueToken(t, svc, tenantID)

	resp, err := svc.Intake(context.Background(), raw, "", map[string]interface{}{"mensagem": "oi"})
	if err != nil {
		t.Fatalf("Intake: %v", err)
	}

	if err := svc.RequestReplay(context.Background(), tenantID, resp.EventID); err != nil {
		t.Fatalf("RequestReplay: %v", err)
	}
	if len(enqueuer.replays) != 1 || enqueuer.replays[0] != resp.EventID {
		t.Fatalf("unexpected enqueued replays: %v", enqueuer.replays)
	}

	if err := svc.RequestReplay(context.Background(), tenantID, uuid.New()); apperr.GetKind(err) != apperr.KindNotFound {
		t.Fatalf("expected not found for unknown event, got %v", err)
	}
}

func TestRequestReplayWithoutQueue(t *testing.T) {
	svc, _, _, _ := newService(t)
	if err := svc.RequestReplay(context.Background(), uuid.New(), uuid.New()); apperr.GetKind(err) != apperr.KindInternal {
		t.Fatalf("expected internal error without a task queue, got %v", err)
	}
}

func TestReplayFillsMissingLead(t *testing.T) {
	svc, repo, leads, _ := newService(t)
	tenantID := uuid.New()
	raw := issueToken(t, svc, tenantID)

	leads.fail = true
	resp, err := svc.Intake(context.Background(), raw, "", map[string]interface{}{
		"nome": "Paciente Replay", "telefone": "11 96666-0000",
	})
	if err != nil {
		t.Fatalf("Intake: %v", err)
	}

	leads.fail = false
	if err := svc.Replay(context.Background(), tenantID, resp.EventID); err != nil {
		t.Fatalf("Replay: %v", err)
	}
	event, err := repo.GetEvent(context.Background(), tenantID, resp.EventID)
	if err != nil {
		t.Fatalf("GetEvent: %v", err)
	}
	if event.LeadID == nil {
		t.Fatal("replay should have created the lead")
	}
	if len(leads.requests) != 1 || leads.requests[0].Name != "Paciente Replay" {
		t.Fatalf("unexpected lead requests: %+v", leads.requests)
	}

	if err := svc.Replay(context.Background(), tenantID, resp.EventID); err != nil {
		t.Fatalf("second replay: %v", err)
	}
	if len(leads.requests) != 1 {
		t.Fatal("replay must be a no-op once the lead exists")
	}
}
