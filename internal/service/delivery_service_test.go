package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/AllPhaseMedia/unionsoftware-sub001/internal/model"
	"github.com/AllPhaseMedia/unionsoftware-sub001/internal/service"
)

func startedCampaign(t *testing.T, env *testEnv) *model.Campaign {
	t.Helper()
	c := env.createCampaign(t, service.CampaignInput{BatchSize: 10})
	if _, err := env.recipientSvc.Generate(c.ID); err != nil {
		t.Fatalf("generate: %v", err)
	}
	started, err := env.campaignSvc.Start(c.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	return started
}

func assertStatusLedger(t *testing.T, env *testEnv, campaignID int) {
	t.Helper()
	c, _ := env.campaigns.GetByID(campaignID)
	stats, _ := env.recipients.CountByStatus(campaignID)
	sum := stats["pending"] + stats["sending"] + stats["sent"] + stats["failed"] + stats["skipped"]
	if sum != c.TotalRecipients {
		t.Errorf("status ledger broken: pending+sending+sent+failed+skipped=%d, total=%d", sum, c.TotalRecipients)
	}
}

func TestSendBatchProcessesUpToBatchSize(t *testing.T) {
	env := newTestEnv()
	c := startedCampaign(t, env)

	result, err := env.deliverySvc.SendBatch(context.Background(), c.ID, 2)
	if err != nil {
		t.Fatalf("send batch: %v", err)
	}
	if result.Sent != 2 || result.Failed != 0 {
		t.Errorf("expected 2 sent, got %+v", result)
	}
	if result.Remaining != 2 {
		t.Errorf("expected 2 remaining, got %d", result.Remaining)
	}
	if result.Completed {
		t.Error("campaign should not complete with recipients remaining")
	}
	assertStatusLedger(t, env, c.ID)

	fresh, _ := env.campaigns.GetByID(c.ID)
	if fresh.SentCount != 2 {
		t.Errorf("campaign sent count should be 2, got %d", fresh.SentCount)
	}
}

func TestSendBatchClampsToCampaignBudget(t *testing.T) {
	env := newTestEnv()
	c := env.createCampaign(t, service.CampaignInput{BatchSize: 3})
	env.recipientSvc.Generate(c.ID)
	env.campaignSvc.Start(c.ID)

	result, err := env.deliverySvc.SendBatch(context.Background(), c.ID, 100)
	if err != nil {
		t.Fatalf("send batch: %v", err)
	}
	if result.Sent != 3 {
		t.Errorf("batch should be clamped to the campaign budget of 3, got %d", result.Sent)
	}
}

func TestSendBatchFailureDoesNotAbortBatch(t *testing.T) {
	env := newTestEnv()
	env.mail.failFor["bob@example.com"] = "mailbox unavailable"
	c := startedCampaign(t, env)

	result, err := env.deliverySvc.SendBatch(context.Background(), c.ID, 10)
	if err != nil {
		t.Fatalf("send batch: %v", err)
	}
	if result.Sent != 3 || result.Failed != 1 {
		t.Errorf("expected 3 sent 1 failed, got %+v", result)
	}
	assertStatusLedger(t, env, c.ID)

	// failed recipient keeps the error text and a bumped retry count
	recs, _, _ := env.recipients.ListByCampaign(c.ID, 0, 100, "failed")
	if len(recs) != 1 {
		t.Fatalf("expected exactly one failed recipient, got %d", len(recs))
	}
	if recs[0].LastError != "mailbox unavailable" || recs[0].RetryCount != 1 {
		t.Errorf("failure should be recorded on the recipient: %+v", recs[0])
	}

	fresh, _ := env.campaigns.GetByID(c.ID)
	if fresh.FailedCount != 1 {
		t.Errorf("campaign failed count should be 1, got %d", fresh.FailedCount)
	}
	// no automatic requeue: the recipient stays failed
	if n, _ := env.recipients.CountPending(c.ID); n != 0 {
		t.Errorf("failed recipients must not return to pending, %d pending", n)
	}
}

func TestSendBatchCompletesOnLastPending(t *testing.T) {
	env := newTestEnv()
	c := startedCampaign(t, env)

	first, err := env.deliverySvc.SendBatch(context.Background(), c.ID, 3)
	if err != nil {
		t.Fatalf("first batch: %v", err)
	}
	if first.Completed {
		t.Fatal("should not complete with one recipient left")
	}

	second, err := env.deliverySvc.SendBatch(context.Background(), c.ID, 3)
	if err != nil {
		t.Fatalf("second batch: %v", err)
	}
	if !second.Completed || second.Remaining != 0 {
		t.Errorf("expected completion on the last batch, got %+v", second)
	}

	fresh, _ := env.campaigns.GetByID(c.ID)
	if fresh.Status != model.StatusCompleted {
		t.Errorf("campaign should transition to completed, got %s", fresh.Status)
	}
	if fresh.CompletedAt == nil {
		t.Error("completed_at should be stamped")
	}
}

func TestSendBatchNeverResendsSentRecipients(t *testing.T) {
	env := newTestEnv()
	c := startedCampaign(t, env)

	env.deliverySvc.SendBatch(context.Background(), c.ID, 10)
	sentBefore := len(env.mail.sentTo())

	// completed now, so the state guard rejects another batch outright
	if _, err := env.deliverySvc.SendBatch(context.Background(), c.ID, 10); err == nil {
		t.Fatal("batch against a completed campaign should be rejected")
	}
	if got := len(env.mail.sentTo()); got != sentBefore {
		t.Errorf("no message may be sent twice: %d then %d", sentBefore, got)
	}
}

func TestConcurrentBatchesNeverDoubleSend(t *testing.T) {
	env := newTestEnv()
	c := startedCampaign(t, env) // 4 recipients

	// Two overlapping batch calls; the pending-to-sending claim must hand
	// each recipient to exactly one of them.
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			env.deliverySvc.SendBatch(context.Background(), c.ID, 2)
		}()
	}
	wg.Wait()

	seen := map[string]int{}
	for _, addr := range env.mail.sentTo() {
		seen[addr]++
	}
	for addr, n := range seen {
		if n > 1 {
			t.Errorf("recipient %s was delivered %d times", addr, n)
		}
	}
	if len(seen) != 4 {
		t.Errorf("each of the 4 recipients should be delivered exactly once, got %d", len(seen))
	}
	assertStatusLedger(t, env, c.ID)

	fresh, _ := env.campaigns.GetByID(c.ID)
	if fresh.SentCount != 4 {
		t.Errorf("campaign sent count should be 4, got %d", fresh.SentCount)
	}
}

func TestSendBatchRejectedUnlessSending(t *testing.T) {
	env := newTestEnv()
	c := env.createCampaign(t, service.CampaignInput{})
	env.recipientSvc.Generate(c.ID)

	if _, err := env.deliverySvc.SendBatch(context.Background(), c.ID, 5); err == nil {
		t.Fatal("batch against a draft should be rejected")
	}

	env.campaignSvc.Start(c.ID)
	env.campaignSvc.Pause(c.ID)
	if _, err := env.deliverySvc.SendBatch(context.Background(), c.ID, 5); err == nil {
		t.Fatal("batch against a paused campaign should be rejected")
	}
}

func TestSendBatchRateLimiterLeavesRestPending(t *testing.T) {
	env := newTestEnv()
	env.deliverySvc.Limiter = &allowNLimiter{remaining: 2}
	c := startedCampaign(t, env)

	result, err := env.deliverySvc.SendBatch(context.Background(), c.ID, 10)
	if err != nil {
		t.Fatalf("send batch: %v", err)
	}
	if result.Sent != 2 {
		t.Errorf("limiter allowed 2, got %d sent", result.Sent)
	}
	if result.Remaining != 2 {
		t.Errorf("denied recipients must stay pending, got %d remaining", result.Remaining)
	}
	if result.Completed {
		t.Error("rate-limited campaign must not complete")
	}
	assertStatusLedger(t, env, c.ID)
}

func TestSendBatchRendersSnapshotIntoMessage(t *testing.T) {
	env := newTestEnv()
	c := env.createCampaign(t, service.CampaignInput{
		Subject: "For {{member.first_name}}",
		Body:    "{{organization.name}} update",
	})
	env.recipientSvc.Generate(c.ID)
	env.campaignSvc.Start(c.ID)

	env.deliverySvc.SendBatch(context.Background(), c.ID, 1)

	env.mail.mu.Lock()
	defer env.mail.mu.Unlock()
	if len(env.mail.sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(env.mail.sent))
	}
	msg := env.mail.sent[0]
	if msg.Subject != "For Alice" {
		t.Errorf("subject should render the snapshot, got %q", msg.Subject)
	}
	if msg.Body != "Local 580 update" {
		t.Errorf("body should render the organization, got %q", msg.Body)
	}
	if msg.FromAddr != "updates@local580.test" {
		t.Errorf("sender should come from the organization, got %q", msg.FromAddr)
	}
}
